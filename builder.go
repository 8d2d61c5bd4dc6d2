package goIdentity

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goIdentity/internal/audit"
	"github.com/MrEthical07/goIdentity/internal/stores"
	"github.com/MrEthical07/goIdentity/mfa"
	"github.com/MrEthical07/goIdentity/notify"
	"github.com/MrEthical07/goIdentity/oauth"
	"github.com/MrEthical07/goIdentity/otp"
	"github.com/MrEthical07/goIdentity/password"
	"github.com/MrEthical07/goIdentity/session"
	"github.com/MrEthical07/goIdentity/settings"
	"github.com/MrEthical07/goIdentity/store"
)

// Builder collects the collaborators of an Engine. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	repo   store.Repository

	producer   notify.Producer
	logger     *slog.Logger
	auditSink  AuditSink
	settings   settings.Source
	providers  oauth.Registry
	httpClient *http.Client
	now        func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the client used for sessions, ephemeral tokens and, unless
// WithSettingsSource is given, the settings document.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithRepository(repo store.Repository) *Builder {
	b.repo = repo
	return b
}

// WithProducer sets where OTP mails and registration events go. Without it
// events are discarded.
func (b *Builder) WithProducer(p notify.Producer) *Builder {
	b.producer = p
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go. The default logs them through the
// engine logger.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithSettingsSource replaces the redis-backed settings cache.
func (b *Builder) WithSettingsSource(src settings.Source) *Builder {
	b.settings = src
	return b
}

// WithOAuthProviders replaces the built-in provider endpoints.
func (b *Builder) WithOAuthProviders(r oauth.Registry) *Builder {
	b.providers = r
	return b
}

func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithClock overrides time.Now for every component.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.repo == nil {
		return nil, errors.New("repository required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}
	producer := b.producer
	if producer == nil {
		producer = notify.Discard{}
	}
	src := b.settings
	if src == nil {
		src = settings.NewRedisSource(b.redis, settings.RedisSourceOptions{
			Key:             cfg.Settings.Key,
			RefreshInterval: cfg.Settings.RefreshInterval,
			Logger:          logger,
		})
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	totp, err := otp.NewTOTP(otp.TOTPConfig{
		Issuer:    cfg.TOTP.Issuer,
		Digits:    cfg.TOTP.Digits,
		Period:    cfg.TOTP.Period,
		Algorithm: cfg.TOTP.Algorithm,
		Skew:      cfg.TOTP.Skew,
	})
	if err != nil {
		return nil, err
	}

	// -------- TOKEN STORE & SESSIONS --------
	tokens := stores.NewRedis(b.redis, cfg.Redis.KeyPrefix)
	sessions := session.NewManager(tokens, src, session.Options{Logger: logger, Now: now})

	// -------- MFA --------
	mfaManager := mfa.NewManager(mfa.Deps{
		Tokens:   tokens,
		Repo:     b.repo,
		Sessions: sessions,
		Settings: src,
		TOTP:     totp,
		Logger:   logger,
		Now:      now,
	})

	// -------- OAUTH --------
	coordinator := oauth.NewCoordinator(oauth.Deps{
		Tokens:     tokens,
		Repo:       b.repo,
		MFA:        mfaManager,
		Sessions:   sessions,
		Events:     producer,
		Settings:   src,
		Providers:  b.providers,
		HTTPClient: b.httpClient,
		Logger:     logger,
		Now:        now,
	})

	engine := &Engine{
		config:   cfg,
		repo:     b.repo,
		tokens:   tokens,
		settings: src,
		sessions: sessions,
		mfa:      mfaManager,
		oauth:    coordinator,
		hasher:   hasher,
		events:   producer,
		metrics:  NewMetrics(cfg.Metrics),
		logger:   logger,
		now:      now,
	}
	sink := b.auditSink
	if sink == nil {
		sink = NewSlogSink(logger)
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	b.built = true

	return engine, nil
}
