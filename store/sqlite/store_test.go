package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goIdentity/faults"
	"github.com/MrEthical07/goIdentity/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMigrationsApply(t *testing.T) {
	s := openTestStore(t)
	v, err := MigrationVersion(s.DB())
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	// re-running is a no-op
	require.NoError(t, Migrate(s.DB()))
}

func TestRegisterWithPasswordAndLookups(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.RegisterWithPassword(ctx, "ada@example.com", "Ada", "$argon2id$hash")
	require.NoError(t, err)
	assert.Equal(t, "Ada", a.Name)

	byEmail, err := s.AccountByEmail(ctx, "ADA@example.com")
	require.NoError(t, err, "email lookups are case-insensitive")
	assert.Equal(t, a.ID, byEmail.ID)

	p, err := s.PasswordByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, p.UserID)
	assert.Equal(t, "$argon2id$hash", p.PasswordHash)

	_, err = s.RegisterPasswordless(ctx, "ada@example.com", "")
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = s.AccountByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRegisterWithPasswordIsAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.RegisterPasswordless(ctx, "taken@example.com", "")
	require.NoError(t, err)

	_, err = s.RegisterWithPassword(ctx, "taken@example.com", "", "hash")
	require.ErrorIs(t, err, store.ErrConflict)

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM user_password`).Scan(&n))
	assert.Zero(t, n)
}

func TestPasswordUpdateUpsertDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.RegisterPasswordless(ctx, "nopass@example.com", "")
	require.NoError(t, err)

	assert.ErrorIs(t, s.UpdatePassword(ctx, a.ID, "h1"), store.ErrNotFound)
	require.NoError(t, s.UpsertPassword(ctx, a.ID, "h1"))
	require.NoError(t, s.UpsertPassword(ctx, a.ID, "h2"))
	p, err := s.PasswordByUserID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "h2", p.PasswordHash)

	require.NoError(t, s.UpdatePassword(ctx, a.ID, "h3"))
	assert.ErrorIs(t, s.UpsertPassword(ctx, uuid.New(), "h"), store.ErrNotFound)

	removed, err := s.DeletePassword(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.DeletePassword(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestUpdateEmailConflicts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.RegisterPasswordless(ctx, "a@example.com", "")
	require.NoError(t, err)
	_, err = s.RegisterPasswordless(ctx, "b@example.com", "")
	require.NoError(t, err)

	assert.ErrorIs(t, s.UpdateEmail(ctx, a.ID, "b@example.com"), store.ErrConflict)
	require.NoError(t, s.UpdateEmail(ctx, a.ID, "c@example.com"))
	assert.ErrorIs(t, s.UpdateEmail(ctx, uuid.New(), "d@example.com"), store.ErrNotFound)
	require.NoError(t, s.UpdateName(ctx, a.ID, "Alice"))

	got, err := s.AccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "c@example.com", got.Email)
	assert.Equal(t, "Alice", got.Name)
}

func TestOAuthAccounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, o, err := s.RegisterOAuth(ctx, "gh@example.com", "Octo", "github", "42")
	require.NoError(t, err)
	assert.Equal(t, a.ID, o.UserID)

	found, err := s.OAuthAccountByProviderUser(ctx, "github", "42")
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)

	_, err = s.AppendOAuthAccount(ctx, uuid.New(), "github", "42")
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = s.AppendOAuthAccount(ctx, a.ID, "google", "sub-1")
	require.NoError(t, err)
	list, err := s.OAuthAccountsByUser(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "github", list[0].Provider)

	// a failed second insert leaves no orphan account behind
	_, _, err = s.RegisterOAuth(ctx, "other@example.com", "", "github", "42")
	assert.ErrorIs(t, err, store.ErrConflict)
	_, err = s.AccountByEmail(ctx, "other@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	deleted, err := s.DeleteOAuthAccount(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = s.OAuthAccountByProviderUser(ctx, "github", "42")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTotpAtMostOnePerUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.RegisterPasswordless(ctx, "mfa@example.com", "")
	require.NoError(t, err)

	require.NoError(t, s.InsertTotp(ctx, a.ID, []byte("12345678901234567890")))
	assert.ErrorIs(t, s.InsertTotp(ctx, a.ID, []byte("other")), store.ErrConflict)

	got, err := s.TotpByUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("12345678901234567890"), got.Secret)

	deleted, err := s.DeleteTotp(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = s.TotpByUser(ctx, a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEmailOtpScopingAndSingleUse(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	created, err := s.CreateEmailOtp(ctx, store.EmailOtp{
		Email:     "ada@example.com",
		Code:      "123456",
		Usage:     store.OtpPasswordReset,
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	})
	require.NoError(t, err)
	assert.False(t, created.UserID.Valid)

	_, err = s.FindValidEmailOtp(ctx, "ada@example.com", store.OtpLogin, "123456", now)
	assert.ErrorIs(t, err, store.ErrNotFound, "usage must match")
	_, err = s.FindValidEmailOtp(ctx, "bob@example.com", store.OtpPasswordReset, "123456", now)
	assert.ErrorIs(t, err, store.ErrNotFound, "email must match")
	_, err = s.FindValidEmailOtp(ctx, "ada@example.com", store.OtpPasswordReset, "654321", now)
	assert.ErrorIs(t, err, store.ErrNotFound, "code must match")
	_, err = s.FindValidEmailOtp(ctx, "ada@example.com", store.OtpPasswordReset, "123456", now.Add(11*time.Minute))
	assert.ErrorIs(t, err, store.ErrNotFound, "expired codes are invalid")

	found, err := s.FindValidEmailOtp(ctx, "ada@example.com", store.OtpPasswordReset, "123456", now)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.True(t, found.Valid(now))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.MarkEmailOtpUsed(ctx, found.ID, now)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	_, err = s.FindValidEmailOtp(ctx, "ada@example.com", store.OtpPasswordReset, "123456", now)
	assert.ErrorIs(t, err, store.ErrNotFound, "used codes are invalid")
}

func TestEmailOtpFrequencyAndPurge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	t0 := time.UnixMilli(1_700_000_000_000)
	user := uuid.NullUUID{UUID: uuid.New(), Valid: true}

	for i, at := range []time.Time{t0, t0.Add(30 * time.Second)} {
		_, err := s.CreateEmailOtp(ctx, store.EmailOtp{
			UserID: user, Email: "ada@example.com", Code: "00000" + string(rune('0'+i)),
			Usage: store.OtpLogin, CreatedAt: at, ExpiresAt: at.Add(10 * time.Minute),
		})
		require.NoError(t, err)
	}

	n, err := s.CountEmailOtpsSince(ctx, "ada@example.com", t0.Add(30*time.Second).Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = s.CountEmailOtpsSince(ctx, "ada@example.com", t0.Add(10*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deleted, err := s.DeleteEmailOtpsBefore(ctx, t0.Add(10*time.Minute+time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestClosedDatabaseIsRetryable(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.AccountByEmail(context.Background(), "ada@example.com")
	require.Error(t, err)
	assert.True(t, faults.Retryable(err))
	assert.False(t, errors.Is(err, store.ErrNotFound))
}
