package faults

import (
	"errors"
	"testing"
)

func TestUnavailableIsRetryable(t *testing.T) {
	err := Unavailable("redis", errors.New("dial tcp: refused"))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !Retryable(err) {
		t.Fatal("expected unavailable error to be retryable")
	}
}

func TestInvariantIsNotRetryable(t *testing.T) {
	err := Invariant("provider %q not configured", "github")
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
	if Retryable(err) {
		t.Fatal("invariant violation must not be retryable")
	}
	if err.Error() != `invariant violated: provider "github" not configured` {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestUnavailableNil(t *testing.T) {
	if Unavailable("redis", nil) != nil {
		t.Fatal("expected nil for nil cause")
	}
}
