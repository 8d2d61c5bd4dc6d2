// Package faults classifies infrastructure failures raised by goIdentity
// components.
//
// Domain outcomes (wrong credential, expired token, rate limited) are never
// errors; they are returned as typed values by each flow. Everything that does
// surface as an error belongs to one of two classes:
//
//   - [ErrUnavailable]: a store, queue or network call failed. Retryable.
//   - [ErrInvariant]: a logic invariant was violated (unconfigured provider at
//     callback time, corrupt record, invalid settings). Not retryable and must
//     always be surfaced.
//
// # What this package must NOT do
//
//   - Import any other goIdentity package.
//   - Hide the wrapped cause: callers log it.
package faults

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable marks a retryable infrastructure failure.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrInvariant marks a non-retryable logic failure.
	ErrInvariant = errors.New("invariant violated")
)

// Unavailable wraps err as a retryable failure of component.
func Unavailable(component string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, component, err)
}

// Invariant builds a non-retryable failure with a formatted reason.
func Invariant(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}

// Retryable reports whether err is a retryable infrastructure failure.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) && !errors.Is(err, ErrInvariant)
}
