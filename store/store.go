package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by point lookups and keyed updates that match no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an insert or update violates a unique key.
	ErrConflict = errors.New("record conflicts with an existing one")
)

type UserAccount struct {
	ID        uuid.UUID
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserPassword struct {
	UserID       uuid.UUID
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OAuthAccount binds a provider identity to a user. (Provider, ProviderUserID)
// is unique across all users.
type OAuthAccount struct {
	ID             int64
	UserID         uuid.UUID
	Provider       string
	ProviderUserID string
	RegisteredAt   time.Time
	TokenUpdatedAt time.Time
}

// Totp is an enrolled authenticator. A user has at most one.
type Totp struct {
	UserID    uuid.UUID
	Secret    []byte
	CreatedAt time.Time
}

// OtpUsage scopes an email code to the flow that issued it.
type OtpUsage int

const (
	OtpLogin OtpUsage = iota + 1
	OtpPasswordReset
	OtpChangeEmailAddress
	OtpSudoMode
)

func (u OtpUsage) String() string {
	switch u {
	case OtpLogin:
		return "login"
	case OtpPasswordReset:
		return "password_reset"
	case OtpChangeEmailAddress:
		return "change_email_address"
	case OtpSudoMode:
		return "sudo_mode"
	default:
		return fmt.Sprintf("OtpUsage(%d)", int(u))
	}
}

// ParseOtpUsage is the inverse of OtpUsage.String.
func ParseOtpUsage(s string) (OtpUsage, error) {
	for u := OtpLogin; u <= OtpSudoMode; u++ {
		if u.String() == s {
			return u, nil
		}
	}
	return 0, fmt.Errorf("unknown otp usage %q", s)
}

// EmailOtp is a six-digit code mailed to an address. It is valid while unused
// and unexpired, for exactly the (Email, Usage, Code) it was issued for.
type EmailOtp struct {
	ID        int64
	UserID    uuid.NullUUID
	Email     string
	Code      string
	Usage     OtpUsage
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
}

// Valid reports whether the code can still be redeemed at now.
func (o *EmailOtp) Valid(now time.Time) bool {
	return o != nil && !o.Used && now.Before(o.ExpiresAt)
}

type Accounts interface {
	AccountByID(ctx context.Context, id uuid.UUID) (*UserAccount, error)
	AccountByEmail(ctx context.Context, email string) (*UserAccount, error)
	UpdateEmail(ctx context.Context, id uuid.UUID, email string) error
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	// RegisterPasswordless inserts an account without a password.
	RegisterPasswordless(ctx context.Context, email, name string) (*UserAccount, error)
	// RegisterWithPassword inserts the account and its password in one transaction.
	RegisterWithPassword(ctx context.Context, email, name, passwordHash string) (*UserAccount, error)
}

type Passwords interface {
	PasswordByUserID(ctx context.Context, userID uuid.UUID) (*UserPassword, error)
	PasswordByEmail(ctx context.Context, email string) (*UserPassword, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	UpsertPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	DeletePassword(ctx context.Context, userID uuid.UUID) (bool, error)
}

type OAuthAccounts interface {
	OAuthAccountByProviderUser(ctx context.Context, provider, providerUserID string) (*OAuthAccount, error)
	OAuthAccountsByUser(ctx context.Context, userID uuid.UUID) ([]OAuthAccount, error)
	// RegisterOAuth inserts a passwordless account and its first provider
	// binding in one transaction.
	RegisterOAuth(ctx context.Context, email, name, provider, providerUserID string) (*UserAccount, *OAuthAccount, error)
	AppendOAuthAccount(ctx context.Context, userID uuid.UUID, provider, providerUserID string) (*OAuthAccount, error)
	DeleteOAuthAccount(ctx context.Context, id int64) (bool, error)
}

type Totps interface {
	TotpByUser(ctx context.Context, userID uuid.UUID) (*Totp, error)
	InsertTotp(ctx context.Context, userID uuid.UUID, secret []byte) error
	DeleteTotp(ctx context.Context, userID uuid.UUID) (bool, error)
}

type EmailOtps interface {
	CreateEmailOtp(ctx context.Context, otp EmailOtp) (*EmailOtp, error)
	// FindValidEmailOtp returns the newest unused, unexpired code matching
	// (email, usage, code).
	FindValidEmailOtp(ctx context.Context, email string, usage OtpUsage, code string, now time.Time) (*EmailOtp, error)
	// MarkEmailOtpUsed flips the used flag once; a second call reports false.
	MarkEmailOtpUsed(ctx context.Context, id int64, now time.Time) (bool, error)
	CountEmailOtpsSince(ctx context.Context, email string, since time.Time) (int, error)
	DeleteEmailOtpsBefore(ctx context.Context, before time.Time) (int64, error)
}

// Repository is the persistent store the identity flows run against.
type Repository interface {
	Accounts
	Passwords
	OAuthAccounts
	Totps
	EmailOtps
}
