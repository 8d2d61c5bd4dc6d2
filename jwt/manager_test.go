package jwt

import (
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/settings"
)

const testSecret = "0123456789abcdefghijklmnopqrstuv"

func newTestManager(t *testing.T, now func() time.Time) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Secret:     []byte(testSecret),
		Issuer:     "goidentity",
		Audience:   "goidentity_user",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, now)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestIssueAndParse(t *testing.T) {
	m := newTestManager(t, nil)
	user, sid := uuid.New(), uuid.New()

	token, exp, err := m.Issue(KindAccess, user, sid)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if d := time.Until(exp); d < 14*time.Minute || d > 15*time.Minute {
		t.Fatalf("unexpected access expiry in %v", d)
	}

	claims, err := m.Parse(KindAccess, token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, _ := claims.UserID(); got != user {
		t.Fatalf("subject = %v, want %v", got, user)
	}
	if got, _ := claims.SessionID(); got != sid {
		t.Fatalf("sid = %v, want %v", got, sid)
	}
	if claims.Issuer != "goidentity" || len(claims.Audience) != 1 || claims.Audience[0] != "goidentity_user" {
		t.Fatalf("unexpected iss/aud: %q %v", claims.Issuer, claims.Audience)
	}
}

func TestKindsAreNotInterchangeable(t *testing.T) {
	m := newTestManager(t, nil)
	refresh, _, err := m.Issue(KindRefresh, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := m.Parse(KindAccess, refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected refresh token rejected as access, got %v", err)
	}
	if _, err := m.Parse(KindRefresh, refresh); err != nil {
		t.Fatalf("Parse refresh: %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	m := newTestManager(t, clock)

	token, _, err := m.Issue(KindAccess, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	now = now.Add(16 * time.Minute)
	if _, err := m.Parse(KindAccess, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
}

func TestParseRejectsForeignTokens(t *testing.T) {
	m := newTestManager(t, nil)
	base := Claims{
		SID:  uuid.NewString(),
		Kind: KindAccess,
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    "goidentity",
			Audience:  gjwt.ClaimStrings{"goidentity_user"},
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	sign := func(method gjwt.SigningMethod, claims Claims, key []byte) string {
		t.Helper()
		s, err := gjwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	wrongIssuer := base
	wrongIssuer.Issuer = "other"
	wrongAudience := base
	wrongAudience.Audience = gjwt.ClaimStrings{"other"}
	noExpiry := base
	noExpiry.ExpiresAt = nil

	cases := map[string]string{
		"hs256":        sign(gjwt.SigningMethodHS256, base, []byte(testSecret)),
		"other secret": sign(gjwt.SigningMethodHS512, base, []byte("another-secret-another-secret-xx")),
		"issuer":       sign(gjwt.SigningMethodHS512, wrongIssuer, []byte(testSecret)),
		"audience":     sign(gjwt.SigningMethodHS512, wrongAudience, []byte(testSecret)),
		"no expiry":    sign(gjwt.SigningMethodHS512, noExpiry, []byte(testSecret)),
	}
	for name, token := range cases {
		if _, err := m.Parse(KindAccess, token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
	if _, err := m.Parse(KindAccess, sign(gjwt.SigningMethodHS512, base, []byte(testSecret))); err != nil {
		t.Fatalf("control token rejected: %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []Config{
		{Secret: []byte("short"), AccessTTL: time.Minute, RefreshTTL: time.Hour},
		{Secret: []byte(testSecret), RefreshTTL: time.Hour},
		{Secret: []byte(testSecret), AccessTTL: time.Minute, RefreshTTL: time.Hour, Leeway: time.Hour},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg, nil); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
}

func TestConfigFromSettings(t *testing.T) {
	s := settings.Default()
	cfg := ConfigFromSettings(s.JWT)
	if cfg.AccessTTL != 15*time.Minute || cfg.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected ttl mapping: %+v", cfg)
	}
	if _, err := NewManager(cfg, nil); err != nil {
		t.Fatalf("default settings rejected: %v", err)
	}
}
