// Package mfa implements TOTP enrollment, sudo mode and the login MFA gate.
//
// Enrollment moves through NotEnrolled, PendingSetup (a TTL-bound secret under
// totp_setup:<user>) and Enrolled (a persisted store.Totp). Sudo tokens are
// verified by read and stay valid until they expire. Login tokens are consumed
// with GETDEL before the code is checked.
package mfa
