// Package stores is the ephemeral token store: short-lived, TTL-bound records
// in Redis (sessions, sudo tokens, MFA login tokens, pending TOTP setups, OAuth
// challenges) and the per-user session index sets.
//
// Single-use records are consumed with [Redis.ReadAndDelete], a server-side
// GETDEL. Nothing in this package reads and then deletes in two round trips.
//
// Values are versioned binary records built with [NewRecord] and decoded with
// [OpenRecord].
//
// # What this package must NOT do
//
//   - Import goIdentity or any sibling package other than faults.
//   - Interpret record contents or make authentication decisions.
//   - Retry a failed ReadAndDelete.
package stores
