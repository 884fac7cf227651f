package store

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that no offset has been saved yet.
var ErrNotFound = errors.New("store: no saved offset")

// ParseError reports a persisted offset that is not a decimal integer.
type ParseError struct {
	Source string
	Raw    string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("store: parse offset from %s (%q): %v", e.Source, e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// WriteError reports a failure to persist the offset.
type WriteError struct {
	Source string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store: write offset to %s: %v", e.Source, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
