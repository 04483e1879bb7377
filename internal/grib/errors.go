package grib

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy for the parse pipeline. All of these propagate to the
// request boundary unmodified; none are retried automatically.
var (
	// ErrDecoderUnavailable means the external decoder tools are not
	// installed or not runnable. Precondition failure for every parse.
	ErrDecoderUnavailable = errors.New("grib decoder tools not available")

	// ErrEmptySeries means no forecast hour had both wind components.
	ErrEmptySeries = errors.New("no forecast hour with both wind components")

	// ErrServerBusy means the concurrency limit was reached. Callers should
	// retry later rather than queue.
	ErrServerBusy = errors.New("too many concurrent parse operations")
)

// DecodeError wraps a failure of the external decoder: a non-zero exit, a
// timeout, or output that could not be parsed. Output carries the tool's raw
// diagnostic text.
type DecodeError struct {
	Op     string // "list" or "dump"
	Output string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("grib decode failed (%s): %v", e.Op, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ComponentNotFoundError means the file carries no usable wind component at
// all. A file with exactly one component fails later as an empty series
// instead. Found lists the distinct variable short names actually present so
// the caller can diagnose an unsupported file.
type ComponentNotFoundError struct {
	Component string // "eastward" or "northward"
	Found     []string
}

func (e *ComponentNotFoundError) Error() string {
	return fmt.Sprintf("no %s wind component found, variables present: %s",
		e.Component, strings.Join(e.Found, ", "))
}
