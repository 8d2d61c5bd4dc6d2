package settings

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrEthical07/goIdentity/faults"
)

// Duration is a time.Duration that encodes as a Go duration string ("5m0s") and
// also decodes from a plain number of seconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		parsed, err := time.ParseDuration(x)
		if err != nil {
			return fmt.Errorf("duration %q: %w", x, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(x * float64(time.Second)))
	default:
		return fmt.Errorf("duration: unsupported JSON value %s", b)
	}
	return nil
}

// Settings is the runtime configuration of the identity flows. It is loaded
// from a Source on every flow and may change between calls.
type Settings struct {
	Email EmailSettings `json:"email_provider"`
	JWT   JWTSettings   `json:"jwt"`
	OAuth OAuthSettings `json:"oauth_providers"`

	// SessionTTL is both the redis lifetime of a session and its sliding renewal.
	SessionTTL   Duration `json:"session_ttl"`
	SudoTokenTTL Duration `json:"sudo_token_ttl"`
	MfaTokenTTL  Duration `json:"mfa_token_ttl"`
	TotpSetupTTL Duration `json:"totp_setup_ttl"`
}

type EmailSettings struct {
	Domain DomainPolicy `json:"domain"`
	Otp    OtpSettings  `json:"otp"`
}

type OtpSettings struct {
	ExpireAfter    Duration `json:"expire_after"`
	DeleteBefore   Duration `json:"delete_before"`
	ResendInterval Duration `json:"resend_interval"`
}

type JWTSettings struct {
	Secret     string   `json:"secret"`
	Issuer     string   `json:"issuer"`
	Audience   string   `json:"audience"`
	AccessTTL  Duration `json:"access_token_ttl"`
	RefreshTTL Duration `json:"refresh_token_ttl"`
}

type OAuthSettings struct {
	Providers           []ProviderCredentials `json:"providers"`
	ChallengeExpiration Duration              `json:"challenge_expiration"`
}

// ProviderCredentials are the client credentials registered with one OAuth
// provider. A provider without both values is treated as not configured.
type ProviderCredentials struct {
	Name         string `json:"name"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

func (p ProviderCredentials) String() string {
	return fmt.Sprintf("%s{client_id=%s client_secret=[REDACTED]}", p.Name, p.ClientID)
}

// Provider returns the credentials for name when they are complete.
func (s Settings) Provider(name string) (ProviderCredentials, bool) {
	for _, p := range s.OAuth.Providers {
		if p.Name == name && p.ClientID != "" && p.ClientSecret != "" {
			return p, true
		}
	}
	return ProviderCredentials{}, false
}

// Default returns the built-in settings. The JWT secret is random per call;
// deployments are expected to publish a fixed one.
func Default() Settings {
	return Settings{
		Email: EmailSettings{
			Otp: OtpSettings{
				ExpireAfter:    Duration(10 * time.Minute),
				DeleteBefore:   Duration(2 * time.Hour),
				ResendInterval: Duration(time.Minute),
			},
		},
		JWT: JWTSettings{
			Secret:     randomSecret(32),
			Issuer:     "goidentity",
			Audience:   "goidentity_user",
			AccessTTL:  Duration(15 * time.Minute),
			RefreshTTL: Duration(7 * 24 * time.Hour),
		},
		OAuth: OAuthSettings{
			ChallengeExpiration: Duration(5 * time.Minute),
		},
		SessionTTL:   Duration(7 * 24 * time.Hour),
		SudoTokenTTL: Duration(5 * time.Minute),
		MfaTokenTTL:  Duration(5 * time.Minute),
		TotpSetupTTL: Duration(10 * time.Minute),
	}
}

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// randomSecret draws n alphanumeric characters, rejecting bytes at or above
// the largest multiple of len(alphanumeric) so every character is equally
// likely.
func randomSecret(n int) string {
	const limit = 256 - 256%len(alphanumeric)

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic(fmt.Sprintf("settings: crypto/rand failed: %v", err))
		}
		for _, c := range buf {
			if int(c) >= limit {
				continue
			}
			out = append(out, alphanumeric[int(c)%len(alphanumeric)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}

// Validate reports settings that no flow can run with. The error is a
// faults.ErrInvariant.
func (s Settings) Validate() error {
	durations := []struct {
		name string
		d    Duration
	}{
		{"session_ttl", s.SessionTTL},
		{"sudo_token_ttl", s.SudoTokenTTL},
		{"mfa_token_ttl", s.MfaTokenTTL},
		{"totp_setup_ttl", s.TotpSetupTTL},
		{"email_provider.otp.expire_after", s.Email.Otp.ExpireAfter},
		{"email_provider.otp.delete_before", s.Email.Otp.DeleteBefore},
		{"oauth_providers.challenge_expiration", s.OAuth.ChallengeExpiration},
		{"jwt.access_token_ttl", s.JWT.AccessTTL},
		{"jwt.refresh_token_ttl", s.JWT.RefreshTTL},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return faults.Invariant("settings: %s must be > 0", d.name)
		}
	}
	if s.Email.Otp.ResendInterval < 0 {
		return faults.Invariant("settings: email_provider.otp.resend_interval must be >= 0")
	}
	if s.Email.Otp.DeleteBefore < s.Email.Otp.ExpireAfter {
		return faults.Invariant("settings: email_provider.otp.delete_before must be >= expire_after")
	}
	if len(s.JWT.Secret) < 32 {
		return faults.Invariant("settings: jwt.secret must be at least 32 bytes")
	}
	if s.JWT.Issuer == "" || s.JWT.Audience == "" {
		return faults.Invariant("settings: jwt.issuer and jwt.audience are required")
	}
	seen := make(map[string]bool, len(s.OAuth.Providers))
	for _, p := range s.OAuth.Providers {
		if p.Name == "" {
			return faults.Invariant("settings: oauth provider without a name")
		}
		if seen[p.Name] {
			return faults.Invariant("settings: oauth provider %q listed twice", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Decode parses JSON over Default, so omitted fields keep their defaults.
func Decode(data []byte, base Settings) (Settings, error) {
	out := base
	if err := json.Unmarshal(data, &out); err != nil {
		return Settings{}, err
	}
	return out, nil
}
