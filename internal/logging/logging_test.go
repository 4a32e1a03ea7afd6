package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestInfoWritesTaggedLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Info("metadata", "loaded %d functions", 42)

	got := buf.String()
	if !strings.Contains(got, "[INFO:metadata]") || !strings.Contains(got, "loaded 42 functions") {
		t.Errorf("unexpected log line: %q", got)
	}
}

func TestStdioModeSuppressesOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	StdioMode = true
	defer func() { StdioMode = false }()

	Warn("fetch", "retrying %s", "https://example.com")

	if buf.Len() != 0 {
		t.Errorf("expected no output in stdio mode, got %q", buf.String())
	}
}

func TestNilOutputIsSafe(t *testing.T) {
	SetOutput(nil)
	Log("", "no writer configured")
}

func TestUntaggedComponentOmitsColon(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Perf("", "startup took %dms", 12)

	got := buf.String()
	if !strings.HasPrefix(got, "[PERF] ") {
		t.Errorf("expected untagged [PERF] prefix, got %q", got)
	}
}
