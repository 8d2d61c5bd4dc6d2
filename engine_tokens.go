package goIdentity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/faults"
	"github.com/MrEthical07/goIdentity/jwt"
	"github.com/MrEthical07/goIdentity/session"
)

// jwtManager builds a signer from the current settings, so a rotated secret
// takes effect on the next call.
func (e *Engine) jwtManager(ctx context.Context) (*jwt.Manager, error) {
	s, err := e.loadSettings(ctx)
	if err != nil {
		return nil, err
	}
	m, err := jwt.NewManager(jwt.ConfigFromSettings(s.JWT), e.now)
	if err != nil {
		return nil, faults.Invariant("jwt settings: %v", err)
	}
	return m, nil
}

// IssueTokens signs an access and refresh token for an existing session.
func (e *Engine) IssueTokens(ctx context.Context, sessionID uuid.UUID) (TokenPair, error) {
	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return TokenPair{}, sessionError(err)
	}
	if !sess.Active() {
		return TokenPair{}, fmt.Errorf("%w: %w", ErrSessionNotFound, session.ErrTerminated)
	}
	m, err := e.jwtManager(ctx)
	if err != nil {
		return TokenPair{}, err
	}
	return issuePair(m, sess)
}

func issuePair(m *jwt.Manager, sess *session.Session) (TokenPair, error) {
	pair := TokenPair{SessionID: sess.ID}
	var err error
	if pair.AccessToken, pair.AccessExpiresAt, err = m.Issue(jwt.KindAccess, sess.UserID, sess.ID); err != nil {
		return TokenPair{}, err
	}
	if pair.RefreshToken, pair.RefreshExpiresAt, err = m.Issue(jwt.KindRefresh, sess.UserID, sess.ID); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// AuthenticateSession authenticates a raw session id and renews its TTL.
func (e *Engine) AuthenticateSession(ctx context.Context, sessionID uuid.UUID) (*session.Session, error) {
	start := e.now()
	defer func() {
		e.metrics.Observe(MetricAuthenticateLatency, e.now().Sub(start))
	}()

	sess, err := e.sessions.Authenticate(ctx, sessionID)
	if err != nil {
		return nil, sessionError(err)
	}
	return sess, nil
}

// AuthenticateAccessToken verifies an access JWT and the session it names.
// A valid signature on a terminated or expired session does not authenticate.
func (e *Engine) AuthenticateAccessToken(ctx context.Context, token string) (*session.Session, error) {
	claims, err := e.parseToken(ctx, jwt.KindAccess, token)
	if err != nil {
		return nil, err
	}
	return e.authenticateClaims(ctx, claims)
}

// RefreshTokens trades a refresh JWT for a new pair bound to the same session.
func (e *Engine) RefreshTokens(ctx context.Context, refreshToken string) (TokenPair, error) {
	m, err := e.jwtManager(ctx)
	if err != nil {
		return TokenPair{}, err
	}
	claims, err := m.Parse(jwt.KindRefresh, refreshToken)
	if err != nil {
		e.emitAudit(ctx, auditEventTokenRefresh, false, uuid.Nil, uuid.Nil, nil, nil)
		return TokenPair{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	sess, err := e.authenticateClaims(ctx, claims)
	if err != nil {
		return TokenPair{}, err
	}
	pair, err := issuePair(m, sess)
	if err != nil {
		return TokenPair{}, err
	}
	e.metricInc(MetricTokenRefreshed)
	e.emitAudit(ctx, auditEventTokenRefresh, true, sess.UserID, sess.ID, nil, nil)
	return pair, nil
}

func (e *Engine) parseToken(ctx context.Context, kind jwt.Kind, token string) (*jwt.Claims, error) {
	m, err := e.jwtManager(ctx)
	if err != nil {
		return nil, err
	}
	claims, err := m.Parse(kind, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	return claims, nil
}

func (e *Engine) authenticateClaims(ctx context.Context, claims *jwt.Claims) (*session.Session, error) {
	sessionID, err := claims.SessionID()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	sess, err := e.AuthenticateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, fmt.Errorf("%w: subject does not own session", ErrTokenInvalid)
	}
	return sess, nil
}

// Logout terminates one session. Unknown sessions are a no-op.
func (e *Engine) Logout(ctx context.Context, sessionID uuid.UUID) error {
	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return err
	}
	if err := e.sessions.Terminate(ctx, sessionID); err != nil {
		return err
	}
	if sess != nil {
		e.metricInc(MetricSessionTerminated)
		e.emitAudit(ctx, auditEventLogoutSession, true, sess.UserID, sessionID, nil, nil)
	}
	return nil
}

// LogoutAll terminates every session of userID and reports how many there were.
func (e *Engine) LogoutAll(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := e.sessions.TerminateAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	for range n {
		e.metricInc(MetricSessionTerminated)
	}
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, uuid.Nil, nil, func() map[string]string {
		return map[string]string{"terminated": fmt.Sprint(n)}
	})
	return n, nil
}

// ListSessions returns the live sessions of userID, most recently used first.
func (e *Engine) ListSessions(ctx context.Context, userID uuid.UUID) ([]*session.Session, error) {
	return e.sessions.List(ctx, userID)
}

// sessionError folds the session package's not-found and terminated errors
// into ErrSessionNotFound and leaves backend failures as they are.
func sessionError(err error) error {
	if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrTerminated) {
		return fmt.Errorf("%w: %w", ErrSessionNotFound, err)
	}
	return err
}
