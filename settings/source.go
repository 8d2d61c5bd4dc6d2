package settings

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goIdentity/faults"
)

// DefaultKey is the redis key the identity settings are published under.
const DefaultKey = "config:AUTH"

// Source yields the current settings. Implementations must be safe for
// concurrent use.
type Source interface {
	Load(ctx context.Context) (Settings, error)
}

// Static is a Source that never changes.
type Static Settings

func (s Static) Load(context.Context) (Settings, error) {
	return Settings(s), nil
}

// RedisSourceOptions configure a RedisSource.
type RedisSourceOptions struct {
	Key string
	// RefreshInterval bounds how stale a cached copy may get before Load
	// re-reads redis. Zero means 30s.
	RefreshInterval time.Duration
	// Fallback is served while the key is absent or undecodable. Zero means Default().
	Fallback *Settings
	Logger   *slog.Logger
}

// RedisSource caches the JSON settings stored at a redis key. The cache is
// refreshed lazily by Load and eagerly by Run.
type RedisSource struct {
	client   redis.UniversalClient
	key      string
	interval time.Duration
	fallback Settings
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.RWMutex
	cached     Settings
	loadedAt   time.Time
	loaded     bool
	onFallback bool
}

func NewRedisSource(client redis.UniversalClient, opts RedisSourceOptions) *RedisSource {
	s := &RedisSource{
		client:   client,
		key:      opts.Key,
		interval: opts.RefreshInterval,
		logger:   opts.Logger,
		now:      time.Now,
	}
	if s.key == "" {
		s.key = DefaultKey
	}
	if s.interval <= 0 {
		s.interval = 30 * time.Second
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if opts.Fallback != nil {
		s.fallback = *opts.Fallback
	} else {
		s.fallback = Default()
	}
	return s
}

// Load returns the cached settings, refreshing them first when the cache is
// older than the refresh interval. A refresh failure with a warm cache serves
// the stale copy.
func (s *RedisSource) Load(ctx context.Context) (Settings, error) {
	s.mu.RLock()
	cached, loaded, at := s.cached, s.loaded, s.loadedAt
	s.mu.RUnlock()

	if loaded && s.now().Sub(at) < s.interval {
		return cached, nil
	}

	fresh, err := s.Refresh(ctx)
	if err != nil {
		if loaded {
			s.logger.Warn("serving stale settings", "component", "settings", "key", s.key, "error", err)
			return cached, nil
		}
		return Settings{}, err
	}
	return fresh, nil
}

// Refresh re-reads the key unconditionally and replaces the cache.
func (s *RedisSource) Refresh(ctx context.Context) (Settings, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	var next Settings
	absent := false
	switch {
	case errors.Is(err, redis.Nil):
		next, absent = s.fallback, true
	case err != nil:
		return Settings{}, faults.Unavailable("settings", err)
	default:
		next, err = Decode(data, s.fallback)
		if err != nil {
			s.logger.Warn("undecodable settings, using defaults", "component", "settings", "key", s.key, "error", err)
			next = s.fallback
		}
	}
	if err := next.Validate(); err != nil {
		return Settings{}, err
	}

	s.mu.Lock()
	warn := absent && !s.onFallback
	s.cached, s.loadedAt, s.loaded, s.onFallback = next, s.now(), true, absent
	s.mu.Unlock()
	if warn {
		s.logger.Warn("settings key absent, serving fallback; JWTs signed with its secret are only valid in this process",
			"component", "settings", "key", s.key)
	}
	return next, nil
}

// Publish validates and stores settings at the key, then updates the cache.
func (s *RedisSource) Publish(ctx context.Context, next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(next)
	if err != nil {
		return faults.Invariant("settings: encode: %v", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return faults.Unavailable("settings", err)
	}

	s.mu.Lock()
	s.cached, s.loadedAt, s.loaded, s.onFallback = next, s.now(), true, false
	s.mu.Unlock()
	return nil
}

// Run refreshes the cache every interval until ctx is done.
func (s *RedisSource) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("settings refresh failed", "component", "settings", "key", s.key, "error", err)
			}
		}
	}
}
