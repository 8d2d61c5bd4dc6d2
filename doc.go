// Package goIdentity is the account-security core of a multi-tenant service:
// password and email-code login, passwordless and password registration,
// password reset, sudo-gated account changes, TOTP enrollment, OAuth login and
// linking, and session-bound access tokens.
//
// Every flow is a method on [Engine], built once through [Builder] and then
// safe for concurrent use. Flows return closed outcome enums for expected
// conditions (wrong code, rate limited, sudo failed) and errors only for
// infrastructure failures, classified by package faults.
//
// # Architecture boundaries
//
// The engine composes the leaf packages:
//
//	session   session lifecycle and per-user index (redis)
//	mfa       TOTP enrollment, sudo mode, login MFA gate (redis + store)
//	oauth     challenge redirect and callback routing
//	password  argon2id hashing
//	otp       RFC 6238 codes and six-digit email codes
//	store     persistent records (reference: store/sqlite)
//	notify    outbound events (reference: notify/amqp)
//	settings  runtime policy, refreshed from redis
//
// # What this package must NOT do
//
//   - Hold runtime policy in globals: every flow loads settings.Source.
//   - Consume a single-use token with read-then-delete: GETDEL only.
//   - Log codes, tokens, secrets or password material.
package goIdentity
