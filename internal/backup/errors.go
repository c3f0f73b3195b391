package backup

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFileNotFound is returned when a local file to upload does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrUsage is returned when a workflow is invoked without a target.
	ErrUsage = errors.New("invalid usage")
)

// ToolError reports a failed external tool invocation.
type ToolError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Tool, e.Err, e.Stderr)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// FileError pairs a local file with the error its upload returned.
type FileError struct {
	File string
	Err  error
}

// UploadErrors lists every failed upload of a bulk run.
type UploadErrors []FileError

func (e UploadErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fmt.Sprintf("%s: %v", fe.File, fe.Err))
	}
	return fmt.Sprintf("%d upload(s) failed: %s", len(e), strings.Join(parts, "; "))
}

// Unwrap exposes the individual causes to errors.Is and errors.As.
func (e UploadErrors) Unwrap() []error {
	errs := make([]error, 0, len(e))
	for _, fe := range e {
		errs = append(errs, fe.Err)
	}
	return errs
}
