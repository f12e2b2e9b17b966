package types

import (
	"context"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if _, ok := RequestID(ctx); ok {
		t.Fatal("RequestID should be absent")
	}

	ctx = WithRequestID(ctx, "req-1")
	if got, ok := RequestID(ctx); !ok || got != "req-1" {
		t.Fatalf("RequestID mismatch: %v %v", got, ok)
	}

	ctx = WithSubject(ctx, "alice")
	if got, ok := Subject(ctx); !ok || got != "alice" {
		t.Fatalf("Subject mismatch: %v %v", got, ok)
	}

	ctx = WithSubject(ctx, "")
	if _, ok := Subject(ctx); ok {
		t.Fatal("empty Subject should report absent")
	}
}
