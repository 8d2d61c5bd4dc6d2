package goIdentity

import (
	"errors"

	"github.com/MrEthical07/goIdentity/faults"
)

var (
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrTokenInvalid is returned for access or refresh tokens that fail
	// signature, expiry, audience or kind checks.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrSessionNotFound is returned when a token or id names a session that is
	// absent, expired or terminated.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAccountNotFound is returned by lookups that are not outcome-typed.
	ErrAccountNotFound = errors.New("account not found")

	// ErrUnavailable marks retryable backend failures (redis, SQL, broker).
	ErrUnavailable = faults.ErrUnavailable
	// ErrInvariant marks non-retryable logic failures.
	ErrInvariant = faults.ErrInvariant
)

// IsRetryable reports whether err came from a transient backend failure.
func IsRetryable(err error) bool {
	return faults.Retryable(err)
}
