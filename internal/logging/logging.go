// Package logging provides the tagged log sink used across the
// ForgeScript language server core: an injectable writer, level tags
// ([INFO], [WARN], [PERF], [LOG]), and a stdio-transport suppression
// flag so log output never corrupts the LSP JSON-RPC stream when the
// server is wired to stdin/stdout.
package logging

import (
	"fmt"
	"io"
	"sync"
)

// StdioMode suppresses all output when true, since stdio is reserved
// for the LSP JSON-RPC2 stream. transport.Server.Run sets this before
// opening the stdio stream.
var StdioMode = false

var (
	mu     sync.Mutex
	output io.Writer
)

// SetOutput sets the writer log output is sent to. Pass nil to disable
// output entirely regardless of StdioMode.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	if StdioMode {
		return nil
	}
	return output
}

func write(tag, component, format string, args ...interface{}) {
	w := writer()
	if w == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if component != "" {
		fmt.Fprintf(w, "[%s:%s] %s\n", tag, component, msg)
		return
	}
	fmt.Fprintf(w, "[%s] %s\n", tag, msg)
}

// Info logs an informational message, optionally tagged with a
// component name (pass "" for none).
func Info(component, format string, args ...interface{}) {
	write("INFO", component, format, args...)
}

// Warn logs a recoverable-problem message: config fallbacks, fetch
// failures, recovered handler panics.
func Warn(component, format string, args ...interface{}) {
	write("WARN", component, format, args...)
}

// Perf logs a timing/performance measurement.
func Perf(component, format string, args ...interface{}) {
	write("PERF", component, format, args...)
}

// Log is the generic, untagged-severity message used for routine
// lifecycle events (document opened, metadata snapshot swapped).
func Log(component, format string, args ...interface{}) {
	write("LOG", component, format, args...)
}
