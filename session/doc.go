// Package session manages login sessions stored in redis.
//
// A session record lives under session:<uuid> with a sliding TTL that every
// authenticated request renews. Each user has a set user_sessions_set:<uuid>
// listing their session ids; the set is not transactional with the records,
// so entries whose record already expired are skipped on read and pruned.
//
// # Binary encoding
//
// Records are a version byte followed by big-endian fields; see [Encode].
//
// # What this package must NOT do
//
//   - Touch the relational store. Refresh is one redis read and one write.
//   - Interpret JWTs or HTTP headers.
package session
