package otp

import (
	"strings"
	"testing"
	"time"
)

func rfcVerifier(t *testing.T, algorithm string) *TOTP {
	t.Helper()
	m, err := NewTOTP(TOTPConfig{Digits: 8, Period: 30, Algorithm: algorithm, Skew: 0})
	if err != nil {
		t.Fatalf("NewTOTP(%s): %v", algorithm, err)
	}
	return m
}

func TestVerifyRFC6238Vectors(t *testing.T) {
	suites := []struct {
		algorithm string
		secret    string
		codes     map[int64]string
	}{
		{
			algorithm: "SHA1",
			secret:    "12345678901234567890",
			codes: map[int64]string{
				59:          "94287082",
				1111111109:  "07081804",
				1234567890:  "89005924",
				20000000000: "65353130",
			},
		},
		{
			algorithm: "SHA256",
			secret:    "12345678901234567890123456789012",
			codes: map[int64]string{
				59:         "46119246",
				1111111111: "67062674",
				2000000000: "90698825",
			},
		},
		{
			algorithm: "SHA512",
			secret:    "1234567890123456789012345678901234567890123456789012345678901234",
			codes: map[int64]string{
				59:         "90693936",
				1234567890: "93441116",
			},
		},
	}

	for _, suite := range suites {
		m := rfcVerifier(t, suite.algorithm)
		for ts, code := range suite.codes {
			ok, err := m.Verify([]byte(suite.secret), code, time.Unix(ts, 0))
			if err != nil || !ok {
				t.Fatalf("%s vector failed at t=%d: ok=%v err=%v", suite.algorithm, ts, ok, err)
			}
			got, err := m.Code([]byte(suite.secret), time.Unix(ts, 0))
			if err != nil || got != code {
				t.Fatalf("%s Code at t=%d = %q (%v), want %q", suite.algorithm, ts, got, err, code)
			}
		}
	}
}

func TestVerifySkewWindow(t *testing.T) {
	m, err := NewTOTP(DefaultTOTPConfig())
	if err != nil {
		t.Fatalf("NewTOTP: %v", err)
	}
	secret, _, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)
	code, err := m.Code(secret, now)
	if err != nil {
		t.Fatalf("Code: %v", err)
	}

	if ok, _ := m.Verify(secret, code, now.Add(30*time.Second)); !ok {
		t.Fatal("expected code from previous period to pass with skew 1")
	}
	if ok, _ := m.Verify(secret, code, now.Add(90*time.Second)); ok {
		t.Fatal("expected code three periods old to fail")
	}
}

func TestVerifyRejectsMalformedCodes(t *testing.T) {
	m, err := NewTOTP(DefaultTOTPConfig())
	if err != nil {
		t.Fatalf("NewTOTP: %v", err)
	}
	secret := []byte("12345678901234567890")
	for _, code := range []string{"", "12345", "1234567", "12a456"} {
		ok, err := m.Verify(secret, code, time.Now())
		if err != nil || ok {
			t.Fatalf("code %q: ok=%v err=%v, want false/nil", code, ok, err)
		}
	}
	if _, err := m.Verify(nil, "123456", time.Now()); err != ErrEmptySecret {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
}

func TestGenerateSecretAndURI(t *testing.T) {
	m, err := NewTOTP(TOTPConfig{Issuer: "Phantom Store", Digits: 6, Period: 30, Skew: 1})
	if err != nil {
		t.Fatalf("NewTOTP: %v", err)
	}
	raw, encoded, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if len(raw) != SecretSize {
		t.Fatalf("secret length = %d, want %d", len(raw), SecretSize)
	}
	if encoded != EncodeSecret(raw) || strings.Contains(encoded, "=") {
		t.Fatalf("unexpected base32 encoding %q", encoded)
	}

	uri := m.ProvisionURI(encoded, "ada@example.com")
	if !strings.HasPrefix(uri, "otpauth://totp/Phantom%20Store:ada@example.com?") {
		t.Fatalf("unexpected uri %q", uri)
	}
	if !strings.Contains(uri, "secret="+encoded) || !strings.Contains(uri, "algorithm=SHA1") {
		t.Fatalf("uri missing parameters: %q", uri)
	}
}

func TestNewTOTPRejectsBadConfig(t *testing.T) {
	bad := []TOTPConfig{
		{Digits: 4, Period: 30},
		{Digits: 6, Period: 0},
		{Digits: 6, Period: 30, Skew: 9},
		{Digits: 6, Period: 30, Algorithm: "MD5"},
	}
	for _, cfg := range bad {
		if _, err := NewTOTP(cfg); err == nil {
			t.Fatalf("expected config %+v to be rejected", cfg)
		}
	}
}

func TestGenerateEmailCode(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		code, err := GenerateEmailCode()
		if err != nil {
			t.Fatalf("GenerateEmailCode: %v", err)
		}
		if len(code) != EmailCodeDigits || !isNumeric(code) {
			t.Fatalf("malformed code %q", code)
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 40 {
		t.Fatalf("suspiciously few distinct codes: %d", len(seen))
	}
}
