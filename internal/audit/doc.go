// Package audit dispatches identity events (logins, MFA, sudo, OTP issuance,
// OAuth registrations) to a Sink without blocking the request path.
//
// It decides nothing about which events exist; the Engine does that.
package audit
