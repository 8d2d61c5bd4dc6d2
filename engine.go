package goIdentity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/internal/audit"
	"github.com/MrEthical07/goIdentity/internal/stores"
	"github.com/MrEthical07/goIdentity/mfa"
	"github.com/MrEthical07/goIdentity/notify"
	"github.com/MrEthical07/goIdentity/oauth"
	"github.com/MrEthical07/goIdentity/password"
	"github.com/MrEthical07/goIdentity/session"
	"github.com/MrEthical07/goIdentity/settings"
	"github.com/MrEthical07/goIdentity/store"
)

// Engine runs the identity flows. Build it with [Builder]; after Build it is
// safe for concurrent use.
type Engine struct {
	config   Config
	repo     store.Repository
	tokens   *stores.Redis
	settings settings.Source
	sessions *session.Manager
	mfa      *mfa.Manager
	oauth    *oauth.Coordinator
	hasher   *password.Hasher
	events   notify.Producer
	audit    *audit.Dispatcher
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time

	// closers are resources opened by Open and released by Close.
	closers []io.Closer
}

// Close drains the audit queue and releases resources opened by [Open].
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			e.logger.Warn("close failed", "component", "engine", "error", err)
		}
	}
	e.closers = nil
}

// AuditDropped reports events discarded because the audit buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Sessions exposes the session manager for listing UIs and tooling.
func (e *Engine) Sessions() *session.Manager { return e.sessions }

func (e *Engine) MFA() *mfa.Manager { return e.mfa }

func (e *Engine) OAuth() *oauth.Coordinator { return e.oauth }

func (e *Engine) Repository() store.Repository { return e.repo }

func (e *Engine) Settings() settings.Source { return e.settings }

func (e *Engine) loadSettings(ctx context.Context) (settings.Settings, error) {
	if e == nil || e.settings == nil {
		return settings.Settings{}, ErrEngineNotReady
	}
	return e.settings.Load(ctx)
}

// accountByEmail returns nil for an unknown address.
func (e *Engine) accountByEmail(ctx context.Context, email string) (*store.UserAccount, error) {
	account, err := e.repo.AccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return account, err
}

// accountByID returns nil for an unknown user.
func (e *Engine) accountByID(ctx context.Context, userID uuid.UUID) (*store.UserAccount, error) {
	account, err := e.repo.AccountByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return account, err
}

// createSession starts a session and records the metric.
func (e *Engine) createSession(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	id, err := e.sessions.Create(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	e.metricInc(MetricSessionCreated)
	return id, nil
}

// AccountInfo collects the account page view of userID.
func (e *Engine) AccountInfo(ctx context.Context, userID uuid.UUID) (*AccountInfo, error) {
	account, err := e.accountByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	info := &AccountInfo{Account: *account}
	_, err = e.repo.PasswordByUserID(ctx, userID)
	switch {
	case err == nil:
		info.HasPassword = true
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	if info.OAuthAccounts, err = e.oauth.ListAccounts(ctx, userID); err != nil {
		return nil, err
	}
	if info.Totp, err = e.mfa.Status(ctx, userID); err != nil {
		return nil, err
	}
	return info, nil
}
