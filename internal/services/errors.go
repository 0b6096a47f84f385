package services

import (
	"fmt"

	"github.com/Lllllllleong/presentationflow/internal/models"
)

// UnsupportedFormatError is a per-file error: the file is skipped and the
// rest of the batch continues.
type UnsupportedFormatError struct {
	Name   string
	Detail string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unsupported file type: %s", e.Name)
	}
	return fmt.Sprintf("unsupported file type: %s (%s)", e.Name, e.Detail)
}

// DecodeError is a per-file error for bytes that do not parse as their format.
type DecodeError struct {
	Name   string
	Format models.Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s as %s: %v", e.Name, e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DuplicateNameError is a per-file error for a second file with a name
// already used in the same request.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate document name: %s", e.Name)
}

// EmptyInputError aborts a request that has nothing to summarize.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "no documents to summarize"
}

// GenerationError aborts a request whose backend call failed. Transient
// failures (timeouts, rate limits, network errors) may be retried by the caller.
type GenerationError struct {
	Transient bool
	Err       error
}

func (e *GenerationError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("narrative generation failed (%s): %v", kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// RenderError aborts a request whose output document could not be produced.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render presentation: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// FileError pairs a per-file failure with the file it belongs to.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
