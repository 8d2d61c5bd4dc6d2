// Package otp implements the one-time-code half of the credential verifier:
// RFC 6238 TOTP generation and verification, and six digit email codes.
//
// # Architecture boundaries
//
// This package is pure computation. Persisting secrets, staging enrollment and
// deciding when a code is required belong to the mfa package and the Engine.
//
// # What this package must NOT do
//
//   - Perform I/O or keep state between calls.
//   - Compare codes with non-constant-time equality.
package otp
