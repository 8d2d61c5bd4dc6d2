// Package settings holds the runtime configuration of the identity flows:
// token lifetimes, email OTP timing, email domain policy, OAuth client
// credentials and JWT parameters.
//
// Settings are never global. Every flow asks its [Source] for the current
// value, so a [RedisSource] can pick up a newly published JSON document
// without a restart.
package settings
