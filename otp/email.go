package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// EmailCodeDigits is the length of codes delivered by email.
const EmailCodeDigits = 6

var emailCodeSpace = big.NewInt(1_000_000)

// GenerateEmailCode returns a uniformly random, zero-padded six digit code.
func GenerateEmailCode() (string, error) {
	n, err := rand.Int(rand.Reader, emailCodeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", EmailCodeDigits, n.Int64()), nil
}
