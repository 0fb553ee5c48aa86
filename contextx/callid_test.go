package contextx

import (
	"context"
	"testing"
)

func TestCallIDRoundTrip(t *testing.T) {
	ctx := WithCallID(context.Background(), "abc-123")
	if got := CallIDFromContext(ctx); got != "abc-123" {
		t.Fatalf("expected %q, got %q", "abc-123", got)
	}
}

func TestCallIDMissing(t *testing.T) {
	if got := CallIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestEnsureCallID(t *testing.T) {
	ctx := EnsureCallID(context.Background())
	id := CallIDFromContext(ctx)
	if id == "" {
		t.Fatal("expected a generated call ID")
	}

	// A second Ensure must not replace an existing ID.
	ctx2 := EnsureCallID(ctx)
	if got := CallIDFromContext(ctx2); got != id {
		t.Fatalf("expected %q to be preserved, got %q", id, got)
	}
}

func TestOperationRoundTrip(t *testing.T) {
	ctx := WithOperation(context.Background(), "db.FetchUser")
	if got := OperationFromContext(ctx); got != "db.FetchUser" {
		t.Fatalf("expected %q, got %q", "db.FetchUser", got)
	}
}
