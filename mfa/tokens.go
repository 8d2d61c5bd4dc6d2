package mfa

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrMalformedToken is returned when a client-supplied token is not the
// expected length of hex.
var ErrMalformedToken = errors.New("malformed token")

// SudoToken is the 128-bit bearer of sudo mode.
type SudoToken [16]byte

// LoginToken is the 256-bit single-use token bridging password and TOTP login.
type LoginToken [32]byte

func (t SudoToken) String() string  { return hex.EncodeToString(t[:]) }
func (t LoginToken) String() string { return hex.EncodeToString(t[:]) }

func (t SudoToken) key() string  { return "sudo:" + t.String() }
func (t LoginToken) key() string { return "mfa_login:" + t.String() }

// ParseSudoToken decodes the hex form returned by SudoToken.String.
func ParseSudoToken(s string) (SudoToken, error) {
	var t SudoToken
	err := decodeHex(t[:], s)
	return t, err
}

// ParseLoginToken decodes the hex form returned by LoginToken.String.
func ParseLoginToken(s string) (LoginToken, error) {
	var t LoginToken
	err := decodeHex(t[:], s)
	return t, err
}

func decodeHex(dst []byte, s string) error {
	if len(s) != hex.EncodedLen(len(dst)) {
		return fmt.Errorf("%w: want %d hex chars", ErrMalformedToken, hex.EncodedLen(len(dst)))
	}
	if _, err := hex.Decode(dst, []byte(s)); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return nil
}

func randomBytes(dst []byte) error {
	if _, err := rand.Read(dst); err != nil {
		return fmt.Errorf("mfa: read random: %w", err)
	}
	return nil
}
