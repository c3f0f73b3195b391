package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced object does not exist.
var ErrNotFound = errors.New("object not found")

// Error describes a failed storage operation.
type Error struct {
	Provider string
	Op       string
	Key      string
	Err      error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Provider, e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ParseError reports a listing entry that could not be converted to an ObjectInfo.
type ParseError struct {
	Key   string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse last modified %q of %s: %v", e.Value, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newError(provider, op, key string, err error) error {
	return &Error{Provider: provider, Op: op, Key: key, Err: err}
}
