package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goIdentity/faults"
)

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, 7*24*time.Hour, s.SessionTTL.Std())
	assert.Equal(t, 5*time.Minute, s.SudoTokenTTL.Std())
	assert.Equal(t, time.Minute, s.Email.Otp.ResendInterval.Std())
	assert.Len(t, s.JWT.Secret, 32)
	assert.NotEqual(t, s.JWT.Secret, Default().JWT.Secret)
}

func TestValidateRejectsBrokenSettings(t *testing.T) {
	s := Default()
	s.SudoTokenTTL = 0
	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrInvariant))

	s = Default()
	s.JWT.Secret = "short"
	assert.Error(t, s.Validate())

	s = Default()
	s.OAuth.Providers = []ProviderCredentials{{Name: "google"}, {Name: "google"}}
	assert.Error(t, s.Validate())
}

func TestDurationJSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"90s","b":120}`), &v))
	assert.Equal(t, 90*time.Second, v.A.Std())
	assert.Equal(t, 2*time.Minute, v.B.Std())

	out, err := json.Marshal(Duration(5 * time.Minute))
	require.NoError(t, err)
	assert.JSONEq(t, `"5m0s"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a":"soon"}`), &v))
}

func TestDecodeKeepsDefaultsForOmittedFields(t *testing.T) {
	base := Default()
	got, err := Decode([]byte(`{"sudo_token_ttl":"1m","oauth_providers":{"providers":[{"name":"github","client_id":"id","client_secret":"secret"}]}}`), base)
	require.NoError(t, err)

	assert.Equal(t, time.Minute, got.SudoTokenTTL.Std())
	assert.Equal(t, base.MfaTokenTTL, got.MfaTokenTTL)
	assert.Equal(t, base.JWT.Secret, got.JWT.Secret)

	creds, ok := got.Provider("github")
	require.True(t, ok)
	assert.Equal(t, "id", creds.ClientID)
	assert.NotContains(t, creds.String(), "=secret")

	_, ok = got.Provider("google")
	assert.False(t, ok)
}

func TestProviderRequiresBothCredentials(t *testing.T) {
	s := Default()
	s.OAuth.Providers = []ProviderCredentials{{Name: "discord", ClientID: "id"}}
	_, ok := s.Provider("discord")
	assert.False(t, ok)
}

func TestDomainPolicy(t *testing.T) {
	open := DomainPolicy{}
	assert.True(t, open.Allows("ada@example.com"))
	assert.False(t, open.Allows("not-an-email"))
	assert.False(t, open.Allows("Ada <ada@example.com>"))
	assert.False(t, open.Allows("ada@localhost"))
	assert.False(t, open.Allows(""))

	allow := DomainPolicy{EnableAllowlist: true, Allowed: []string{"Example.COM", "bücher.example"}}
	assert.True(t, allow.Allows("ada@example.com"))
	assert.True(t, allow.Allows("ada@xn--bcher-kva.example"))
	assert.False(t, allow.Allows("ada@other.org"))

	deny := DomainPolicy{EnableDenylist: true, Denied: []string{"mailinator.com"}}
	assert.False(t, deny.Allows("bot@mailinator.com"))
	assert.True(t, deny.Allows("ada@example.com"))

	// disabled lists are ignored even when populated
	off := DomainPolicy{Allowed: []string{"example.com"}, Denied: []string{"other.org"}}
	assert.True(t, off.Allows("ada@other.org"))
}

func newRedisSource(t *testing.T, interval time.Duration) (*miniredis.Miniredis, *RedisSource) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	fallback := Default()
	return mr, NewRedisSource(client, RedisSourceOptions{RefreshInterval: interval, Fallback: &fallback})
}

func TestRedisSourceFallsBackWhenKeyAbsent(t *testing.T) {
	_, src := newRedisSource(t, time.Minute)

	s, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, s.SudoTokenTTL.Std())
}

func TestRedisSourceWarnsOnceWhileOnFallback(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var logs bytes.Buffer
	src := NewRedisSource(client, RedisSourceOptions{
		RefreshInterval: time.Minute,
		Logger:          slog.New(slog.NewTextHandler(&logs, nil)),
	})
	ctx := context.Background()

	_, err := src.Refresh(ctx)
	require.NoError(t, err)
	_, err = src.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(logs.String(), "settings key absent"))

	require.NoError(t, src.Publish(ctx, Default()))
	mr.Del(DefaultKey)
	_, err = src.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(logs.String(), "settings key absent"))
}

func TestRandomSecretAlphabet(t *testing.T) {
	for range 50 {
		secret := randomSecret(64)
		require.Len(t, secret, 64)
		for _, c := range secret {
			assert.True(t, strings.ContainsRune(alphanumeric, c), "unexpected %q", c)
		}
	}
}

func TestRedisSourcePublishAndRefresh(t *testing.T) {
	mr, src := newRedisSource(t, time.Minute)
	ctx := context.Background()
	clock := time.Unix(1_700_000_000, 0)
	src.now = func() time.Time { return clock }

	next := Default()
	next.SudoTokenTTL = Duration(2 * time.Minute)
	require.NoError(t, src.Publish(ctx, next))
	assert.True(t, mr.Exists(DefaultKey))

	// another writer changes the key; the cache is served until the interval passes
	changed := next
	changed.SudoTokenTTL = Duration(3 * time.Minute)
	data, err := json.Marshal(changed)
	require.NoError(t, err)
	require.NoError(t, mr.Set(DefaultKey, string(data)))

	s, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, s.SudoTokenTTL.Std())

	clock = clock.Add(2 * time.Minute)
	s, err = src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Minute, s.SudoTokenTTL.Std())
}

func TestRedisSourceServesStaleOnOutage(t *testing.T) {
	mr, src := newRedisSource(t, time.Minute)
	ctx := context.Background()
	clock := time.Unix(1_700_000_000, 0)
	src.now = func() time.Time { return clock }

	_, err := src.Load(ctx)
	require.NoError(t, err)

	mr.SetError("LOADING")
	clock = clock.Add(time.Hour)
	_, err = src.Load(ctx)
	assert.NoError(t, err)

	down, cold := newRedisSource(t, time.Minute)
	down.Close()
	_, err = cold.Load(ctx)
	assert.True(t, faults.Retryable(err), "cold cache outage should be retryable, got %v", err)
}

func TestRedisSourceRejectsInvalidPublish(t *testing.T) {
	_, src := newRedisSource(t, time.Minute)
	bad := Default()
	bad.SessionTTL = 0
	err := src.Publish(context.Background(), bad)
	assert.ErrorIs(t, err, faults.ErrInvariant)
}

func TestRedisSourceRunStopsWithContext(t *testing.T) {
	_, src := newRedisSource(t, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := src.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, src.loaded)
}
