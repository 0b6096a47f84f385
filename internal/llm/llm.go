// Package llm defines the narrow request/response contract used to reach a
// text-generation backend, and the error classes adapters report so callers
// can tell retryable failures from permanent ones.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Request is one generation call.
type Request struct {
	System          string
	Prompt          string
	MaxOutputTokens int
}

// Backend sends a prompt to a generation service and returns the generated text.
type Backend interface {
	Send(ctx context.Context, req Request) (string, error)
}

var (
	ErrTruncated     = errors.New("response truncated by backend")
	ErrEmptyResponse = errors.New("backend returned an empty response")
	ErrBlocked       = errors.New("response blocked by backend safety filters")
)

// Class says whether a failed call is worth retrying.
type Class int

const (
	ClassFatal Class = iota
	ClassTransient
)

func (c Class) String() string {
	if c == ClassTransient {
		return "transient"
	}
	return "fatal"
}

// Error is a classified backend failure.
type Error struct {
	Backend string
	Class   Class
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s backend: %s (%s): %v", e.Backend, e.Reason, e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a retryable failure.
func Transient(backend, reason string, err error) error {
	return &Error{Backend: backend, Class: ClassTransient, Reason: reason, Err: err}
}

// Fatal wraps err as a non-retryable failure.
func Fatal(backend, reason string, err error) error {
	return &Error{Backend: backend, Class: ClassFatal, Reason: reason, Err: err}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ClassTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Classify maps transport-level errors shared by the SDKs (gRPC status,
// googleapi errors, network errors) onto a Class. Errors that are already
// classified are returned unchanged.
func Classify(backend string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return ClassifyStatus(backend, apiErr.Code, err)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Transient(backend, "timeout", err)
	case errors.Is(err, context.Canceled):
		return Fatal(backend, "canceled", err)
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return Fatal(backend, "authentication failed", err)
		case codes.ResourceExhausted:
			return Transient(backend, "rate limited", err)
		case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
			return Transient(backend, "unavailable", err)
		case codes.Internal:
			return Transient(backend, "server error", err)
		}
		return Fatal(backend, "request rejected", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient(backend, "network failure", err)
	}
	return Fatal(backend, "backend error", err)
}

// ClassifyStatus classifies an HTTP status code returned by a backend.
func ClassifyStatus(backend string, code int, err error) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return Fatal(backend, "authentication failed", err)
	case code == http.StatusTooManyRequests:
		return Transient(backend, "rate limited", err)
	case code == http.StatusRequestTimeout || code >= http.StatusInternalServerError:
		return Transient(backend, "server error", err)
	}
	return Fatal(backend, "request rejected", err)
}

// TrimFences strips whitespace and a wrapping Markdown code fence, which
// models occasionally add around an otherwise plain answer.
func TrimFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimPrefix(s, "```markdown")
	s = strings.TrimPrefix(s, "```md")
	s = strings.TrimPrefix(s, "```")
	return strings.TrimSpace(s)
}
