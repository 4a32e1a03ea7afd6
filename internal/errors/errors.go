// Package errors defines the typed error kinds the ForgeScript language
// server core raises, one per error-handling category: configuration
// loading, metadata fetching, and feature-handler recovery. Parse-time
// problems are reported as dsl.Diagnostic values, not errors, and
// protocol errors from the transport layer are passed through unwrapped.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind tags which error-handling category an error belongs to.
type ErrorKind string

const (
	KindConfig  ErrorKind = "config"
	KindFetch   ErrorKind = "fetch"
	KindHandler ErrorKind = "handler"
)

// ConfigError wraps a failure loading or validating forgeconfig.json.
// A ConfigError is always non-fatal: the caller falls back to defaults
// and logs the error at WARN.
type ConfigError struct {
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a ConfigError for the given file and operation
// (e.g. "parse", "validate", "read").
func NewConfigError(path, op string, err error) *ConfigError {
	return &ConfigError{Path: path, Operation: op, Underlying: err, Timestamp: time.Now()}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

func (e *ConfigError) Unwrap() error { return e.Underlying }

// FetchError wraps a single source's failure during metadata fetching:
// a network error, a non-2xx status, or a malformed JSON body.
type FetchError struct {
	URL        string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFetchError creates a FetchError for the given source URL and
// operation (e.g. "http", "decode", "cache-read").
func NewFetchError(url, op string, err error) *FetchError {
	return &FetchError{URL: url, Operation: op, Underlying: err, Timestamp: time.Now()}
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed for %s: %v", e.Operation, e.URL, e.Underlying)
}

func (e *FetchError) Unwrap() error { return e.Underlying }

// MultiError aggregates the independent per-URL failures produced by a
// single fetch_all batch: one source failing never aborts the others,
// so all failures are collected and reported together.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d fetch errors (first: %v)", len(m.Errors), m.Errors[0])
}

// Unwrap exposes the wrapped errors to errors.Is/errors.As via the
// multi-unwrap convention (Go 1.20+).
func (m *MultiError) Unwrap() []error { return m.Errors }

// Empty reports whether the batch had no failures.
func (m *MultiError) Empty() bool { return len(m.Errors) == 0 }

// AsMultiError returns nil if errs is empty, the single error unwrapped
// if there is exactly one, or a *MultiError otherwise. Use this at the
// end of a fetch_all batch instead of constructing MultiError directly.
func AsMultiError(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &MultiError{Errors: errs}
	}
}

// HandlerError wraps a recovered panic from a feature handler (hover,
// completion, signature help, semantic tokens). The handler boundary
// recovers these, logs them at WARN, and returns a best-effort empty
// result to the caller rather than propagating the panic across the
// transport.
type HandlerError struct {
	Handler    string
	Underlying error
	Timestamp  time.Time
}

func NewHandlerError(handler string, recovered any) *HandlerError {
	err, ok := recovered.(error)
	if !ok {
		err = fmt.Errorf("%v", recovered)
	}
	return &HandlerError{Handler: handler, Underlying: err, Timestamp: time.Now()}
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s panicked: %v", e.Handler, e.Underlying)
}

func (e *HandlerError) Unwrap() error { return e.Underlying }
