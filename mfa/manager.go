package mfa

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/internal/stores"
	"github.com/MrEthical07/goIdentity/otp"
	"github.com/MrEthical07/goIdentity/settings"
	"github.com/MrEthical07/goIdentity/store"
)

const recordVersion = 1

// TokenStore is the slice of the ephemeral token store used for sudo tokens,
// login tokens and pending setups.
type TokenStore interface {
	Write(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Read(ctx context.Context, key string) ([]byte, bool, error)
	ReadAndDelete(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) (bool, error)
}

// Repository is the slice of the persistent store the Manager needs.
type Repository interface {
	TotpByUser(ctx context.Context, userID uuid.UUID) (*store.Totp, error)
	InsertTotp(ctx context.Context, userID uuid.UUID, secret []byte) error
	DeleteTotp(ctx context.Context, userID uuid.UUID) (bool, error)
	AccountByID(ctx context.Context, id uuid.UUID) (*store.UserAccount, error)
	FindValidEmailOtp(ctx context.Context, email string, usage store.OtpUsage, code string, now time.Time) (*store.EmailOtp, error)
	MarkEmailOtpUsed(ctx context.Context, id int64, now time.Time) (bool, error)
}

// SessionCreator starts a session once the second factor is verified.
type SessionCreator interface {
	Create(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Tokens   TokenStore
	Repo     Repository
	Sessions SessionCreator
	Settings settings.Source
	TOTP     *otp.TOTP
	Logger   *slog.Logger
	Now      func() time.Time
}

// Manager runs TOTP enrollment, sudo mode and the login MFA gate.
type Manager struct {
	d Deps
}

func NewManager(d Deps) *Manager {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Manager{d: d}
}

func pendingKey(userID uuid.UUID) string {
	return "totp_setup:" + userID.String()
}

func (m *Manager) settings(ctx context.Context) (settings.Settings, error) {
	return m.d.Settings.Load(ctx)
}

// totp returns the enrolled authenticator, or nil.
func (m *Manager) totp(ctx context.Context, userID uuid.UUID) (*store.Totp, error) {
	t, err := m.d.Repo.TotpByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

// IsEnrolled reports whether userID has a TOTP authenticator.
func (m *Manager) IsEnrolled(ctx context.Context, userID uuid.UUID) (bool, error) {
	t, err := m.totp(ctx, userID)
	return t != nil, err
}

// TotpStatus summarizes enrollment for account pages.
type TotpStatus struct {
	Enrolled     bool
	EnrolledAt   time.Time
	SetupPending bool
}

func (m *Manager) Status(ctx context.Context, userID uuid.UUID) (TotpStatus, error) {
	var st TotpStatus
	t, err := m.totp(ctx, userID)
	if err != nil {
		return st, err
	}
	if t != nil {
		st.Enrolled, st.EnrolledAt = true, t.CreatedAt
	}
	_, st.SetupPending, err = m.d.Tokens.Read(ctx, pendingKey(userID))
	return st, err
}

// StartSetup stages a fresh secret for userID. It requires a valid sudo token.
// A second call replaces the staged secret.
func (m *Manager) StartSetup(ctx context.Context, userID uuid.UUID, sudo SudoToken) (SetupResult, error) {
	ok, err := m.VerifySudo(ctx, userID, sudo)
	if err != nil {
		return SetupResult{}, err
	}
	if !ok {
		return SetupResult{Outcome: SetupSudoFailed}, nil
	}

	s, err := m.settings(ctx)
	if err != nil {
		return SetupResult{}, err
	}
	secret, encoded, err := m.d.TOTP.GenerateSecret()
	if err != nil {
		return SetupResult{}, err
	}

	label := userID.String()
	if account, err := m.d.Repo.AccountByID(ctx, userID); err == nil {
		label = account.Email
	} else if !errors.Is(err, store.ErrNotFound) {
		return SetupResult{}, err
	}

	data, err := stores.NewRecord(recordVersion).Blob(secret).Bytes()
	if err != nil {
		return SetupResult{}, err
	}
	if err := m.d.Tokens.Write(ctx, pendingKey(userID), data, s.TotpSetupTTL.Std()); err != nil {
		return SetupResult{}, err
	}

	return SetupResult{
		Outcome: SetupStarted,
		Setup: &PendingSetup{
			Secret:       secret,
			SecretBase32: encoded,
			URI:          m.d.TOTP.ProvisionURI(encoded, label),
		},
	}, nil
}

// FinishSetup promotes the staged secret once code verifies against it.
func (m *Manager) FinishSetup(ctx context.Context, userID uuid.UUID, code string) (FinishOutcome, error) {
	data, found, err := m.d.Tokens.Read(ctx, pendingKey(userID))
	if err != nil {
		return 0, err
	}
	if !found {
		return FinishExpired, nil
	}
	rd := stores.OpenRecord(data, recordVersion)
	secret := rd.Blob()
	if err := rd.Err(); err != nil {
		return 0, err
	}

	existing, err := m.totp(ctx, userID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return FinishDuplicate, nil
	}

	ok, err := m.d.TOTP.Verify(secret, code, m.d.Now())
	if err != nil {
		return 0, err
	}
	if !ok {
		return FinishInvalidCode, nil
	}

	if err := m.d.Repo.InsertTotp(ctx, userID, secret); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return FinishDuplicate, nil
		}
		return 0, err
	}
	if _, err := m.d.Tokens.Delete(ctx, pendingKey(userID)); err != nil {
		m.d.Logger.Warn("pending totp setup not deleted", "component", "mfa", "user_id", userID, "error", err)
	}
	return FinishSuccess, nil
}

// Remove deletes the authenticator unconditionally.
func (m *Manager) Remove(ctx context.Context, userID uuid.UUID) error {
	_, err := m.d.Repo.DeleteTotp(ctx, userID)
	return err
}

// VerifyCode checks code against the enrolled authenticator. Users without one
// never verify.
func (m *Manager) VerifyCode(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	t, err := m.totp(ctx, userID)
	if err != nil || t == nil {
		return false, err
	}
	return m.d.TOTP.Verify(t.Secret, code, m.d.Now())
}
