package core

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every failure surfaced by the core wraps one of these so the
// presentation boundary can classify it with errors.Is.
var (
	// ErrSourceUnavailable means the remote store could not be reached.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrAuth means the remote store rejected the configured credentials.
	ErrAuth = fmt.Errorf("%w: authentication failed", ErrSourceUnavailable)

	// ErrNotFound means a spreadsheet or worksheet reference does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrWrite means a write-back to the remote store failed.
	ErrWrite = errors.New("write-back failed")

	// ErrMalformedInput means an uploaded file could not be parsed.
	ErrMalformedInput = errors.New("malformed input")
)

// Session precondition errors.
var (
	ErrNoDataset       = errors.New("no dataset loaded")
	ErrIndexOutOfRange = errors.New("record index out of range")
	ErrInvalidDecision = errors.New("invalid decision")
	ErrNoSpreadsheet   = errors.New("no spreadsheet selected")
	ErrWrongSource     = errors.New("operation not available for the selected source")
)

// SourceError records the adapter operation and source that failed.
type SourceError struct {
	Op     string // "list", "load", "write"
	Source string // spreadsheet id or file name
	Err    error
}

func (e *SourceError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func sourceError(op, source string, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{Op: op, Source: source, Err: err}
}
