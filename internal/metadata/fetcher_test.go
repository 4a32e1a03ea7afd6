package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchOrCacheWritesCacheOnSuccess(t *testing.T) {
	dir := t.TempDir()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	f, err := NewFetcher(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.FetchOrCache(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}
	if _, err := readCache(dir, srv.URL); err != nil {
		t.Error("expected a cache file to be written after a successful fetch")
	}
}

func TestFetchOrCacheFailsWithoutCacheOrNetwork(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFetcher(dir)
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.FetchOrCache(context.Background(), "http://127.0.0.1:1/unreachable")
	if err == nil {
		t.Fatal("expected an error when neither network nor cache is available")
	}
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer ok.Close()

	f, err := NewFetcher(dir)
	if err != nil {
		t.Fatal(err)
	}
	results := f.FetchAll(context.Background(), []string{ok.URL, "http://127.0.0.1:1/unreachable"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Err != nil {
		t.Errorf("expected the good URL to succeed, got %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("expected the bad URL to fail independently")
	}
}

func TestCacheKeyIsURLSafeNoPadding(t *testing.T) {
	key := cacheKey("https://example.com/a?b=c")
	for _, c := range key {
		if c == '+' || c == '/' || c == '=' {
			t.Errorf("expected URL-safe, unpadded base64, got %q", key)
		}
	}
}
