package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "bad key"), false},
		{"grpc permission denied", status.Error(codes.PermissionDenied, "no access"), false},
		{"grpc resource exhausted", status.Error(codes.ResourceExhausted, "quota"), true},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), true},
		{"grpc invalid argument", status.Error(codes.InvalidArgument, "bad request"), false},
		{"googleapi 401", &googleapi.Error{Code: 401}, false},
		{"googleapi 429", &googleapi.Error{Code: 429}, true},
		{"googleapi 503", &googleapi.Error{Code: 503}, true},
		{"googleapi 400", &googleapi.Error{Code: 400}, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"canceled", context.Canceled, false},
		{"network", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
		{"unknown", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("test", tt.err)
			var classified *Error
			if !errors.As(err, &classified) {
				t.Fatalf("Classify(%v) = %T, want *Error", tt.err, err)
			}
			if got := IsTransient(err); got != tt.transient {
				t.Errorf("IsTransient = %v, want %v (reason %q)", got, tt.transient, classified.Reason)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("classified error does not wrap the cause")
			}
		})
	}
}

func TestClassifyKeepsExistingClass(t *testing.T) {
	original := Transient("vertex", "rate limited", errors.New("slow down"))
	if got := Classify("other", original); got != original {
		t.Fatalf("Classify re-wrapped an already classified error: %v", got)
	}
}

func TestTrimFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain text \n", "plain text"},
		{"```markdown\n# Title\n- point\n```", "# Title\n- point"},
		{"```\nbody\n```", "body"},
		{"```", "```"},
		{"uses ``` inline", "uses ``` inline"},
	}
	for _, tt := range tests {
		if got := TrimFences(tt.in); got != tt.want {
			t.Errorf("TrimFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
