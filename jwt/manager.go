package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/settings"
)

// MinSecretLength is the shortest HS512 secret NewManager accepts.
const MinSecretLength = 32

var (
	ErrInvalidConfig = errors.New("jwt: invalid configuration")
	// ErrInvalidToken covers every rejected token: bad signature, expiry,
	// issuer or audience mismatch, wrong kind and malformed claims.
	ErrInvalidToken = errors.New("jwt: invalid token")
)

// Kind separates access tokens from refresh tokens so one can never stand in
// for the other.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Config defines the signing secret and token lifetimes.
type Config struct {
	Secret     []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Leeway tolerates clock drift on exp checks.
	Leeway time.Duration
}

// ConfigFromSettings maps the runtime JWT settings.
func ConfigFromSettings(s settings.JWTSettings) Config {
	return Config{
		Secret:     []byte(s.Secret),
		Issuer:     s.Issuer,
		Audience:   s.Audience,
		AccessTTL:  s.AccessTTL.Std(),
		RefreshTTL: s.RefreshTTL.Std(),
	}
}

// Claims are the registered claims plus the session binding.
type Claims struct {
	SID  string `json:"sid"`
	Kind Kind   `json:"typ"`
	jwt.RegisteredClaims
}

// UserID parses the subject.
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject", ErrInvalidToken)
	}
	return id, nil
}

// SessionID parses the sid claim.
func (c *Claims) SessionID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.SID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: sid", ErrInvalidToken)
	}
	return id, nil
}

// Manager signs and verifies HS512 tokens bound to a session.
//
// Manager is immutable after construction and safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates cfg. now may be nil.
func NewManager(cfg Config, now func() time.Time) (*Manager, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: secret shorter than %d bytes", ErrInvalidConfig, MinSecretLength)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrInvalidConfig)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, fmt.Errorf("%w: leeway out of range", ErrInvalidConfig)
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{config: cfg, now: now}, nil
}

// Issue signs a token of kind for userID and sessionID. It returns the
// expiry alongside the token.
func (j *Manager) Issue(kind Kind, userID, sessionID uuid.UUID) (string, time.Time, error) {
	ttl := j.config.AccessTTL
	if kind == KindRefresh {
		ttl = j.config.RefreshTTL
	}
	now := j.now()
	exp := now.Add(ttl)

	claims := Claims{
		SID:  sessionID.String(),
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    j.config.Issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(j.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies token and requires it to be of kind.
func (j *Manager) Parse(kind Kind, token string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return j.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, kind)
	}
	return claims, nil
}
