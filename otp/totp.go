package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SecretSize is the RFC 6238 recommended key length (160 bits).
const SecretSize = 20

var (
	// ErrEmptySecret is returned when a TOTP operation receives no key material.
	ErrEmptySecret = errors.New("empty totp secret")
	// ErrUnsupportedAlgorithm is returned for HMAC algorithms other than SHA1/SHA256/SHA512.
	ErrUnsupportedAlgorithm = errors.New("unsupported totp algorithm")
)

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// TOTPConfig controls code shape and verification window.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Algorithm string
	// Skew is the number of periods accepted on either side of now.
	Skew int
}

// DefaultTOTPConfig returns RFC 6238 defaults: 6 digits, 30s period, SHA1, one
// step of skew.
func DefaultTOTPConfig() TOTPConfig {
	return TOTPConfig{
		Digits:    6,
		Period:    30,
		Algorithm: "SHA1",
		Skew:      1,
	}
}

// TOTP generates and verifies RFC 6238 codes.
type TOTP struct {
	config TOTPConfig
}

// NewTOTP validates cfg and returns a verifier.
func NewTOTP(cfg TOTPConfig) (*TOTP, error) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	if cfg.Digits < 6 || cfg.Digits > 8 {
		return nil, errors.New("totp digits must be between 6 and 8")
	}
	if cfg.Period <= 0 {
		return nil, errors.New("totp period must be > 0")
	}
	if cfg.Skew < 0 || cfg.Skew > 3 {
		return nil, errors.New("totp skew must be between 0 and 3")
	}
	if _, err := hmacFunc(cfg.Algorithm); err != nil {
		return nil, err
	}
	return &TOTP{config: cfg}, nil
}

// GenerateSecret returns fresh key material and its unpadded base32 form.
func (m *TOTP) GenerateSecret() ([]byte, string, error) {
	raw := make([]byte, SecretSize)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	return raw, EncodeSecret(raw), nil
}

// EncodeSecret renders key material the way authenticator apps expect it.
func EncodeSecret(raw []byte) string {
	return secretEncoding.EncodeToString(raw)
}

// ProvisionURI builds an otpauth:// URI for QR enrollment.
func (m *TOTP) ProvisionURI(secretBase32, account string) string {
	issuer := m.config.Issuer
	label := url.PathEscape(account)
	if issuer != "" {
		label = url.PathEscape(issuer + ":" + account)
	}

	v := url.Values{}
	v.Set("secret", secretBase32)
	if issuer != "" {
		v.Set("issuer", issuer)
	}
	v.Set("period", strconv.Itoa(m.config.Period))
	v.Set("digits", strconv.Itoa(m.config.Digits))
	v.Set("algorithm", strings.ToUpper(m.config.Algorithm))

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Code returns the code for the period containing now.
func (m *TOTP) Code(secret []byte, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	return hotpCode(secret, now.Unix()/int64(m.config.Period), m.config.Digits, m.config.Algorithm)
}

// Verify reports whether code matches secret within the configured skew.
// Malformed codes are a plain mismatch, not an error.
func (m *TOTP) Verify(secret []byte, code string, now time.Time) (bool, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != m.config.Digits || !isNumeric(trimmed) {
		return false, nil
	}
	if len(secret) == 0 {
		return false, ErrEmptySecret
	}

	base := now.Unix() / int64(m.config.Period)
	matched := 0
	for step := -m.config.Skew; step <= m.config.Skew; step++ {
		counter := base + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := hotpCode(secret, counter, m.config.Digits, m.config.Algorithm)
		if err != nil {
			return false, err
		}
		// no early exit: every window is computed
		matched |= subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed))
	}
	return matched == 1, nil
}

func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
