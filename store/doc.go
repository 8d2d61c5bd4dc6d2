// Package store declares the persistent records of the identity core and the
// Repository they are read from and written to.
//
// Implementations return [ErrNotFound] and [ErrConflict] for the two expected
// data conditions and wrap every other failure as faults.ErrUnavailable.
// The reference implementation is store/sqlite.
package store
