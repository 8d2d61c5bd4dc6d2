// Package password hashes and verifies account passwords with argon2id.
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// [Hasher.NeedsRehash] reports hashes produced with weaker parameters so callers
// can upgrade them after a successful login. [Hasher.VerifyDummy] exists for the
// login path where no password record exists.
//
// This package never stores passwords and never logs plaintext or hashes.
package password
