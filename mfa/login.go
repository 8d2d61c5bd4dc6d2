package mfa

import (
	"context"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/internal/stores"
)

// LoginResult carries the user the token belonged to whenever the token was
// found, even when the code was wrong.
type LoginResult struct {
	Outcome   LoginOutcome
	UserID    uuid.UUID
	SessionID uuid.UUID
}

// CreateLoginToken parks a password-verified login until the TOTP code arrives.
func (m *Manager) CreateLoginToken(ctx context.Context, userID uuid.UUID) (LoginToken, error) {
	var t LoginToken
	s, err := m.settings(ctx)
	if err != nil {
		return t, err
	}
	if err := randomBytes(t[:]); err != nil {
		return t, err
	}
	data, err := stores.NewRecord(recordVersion).Fixed(userID[:]).Bytes()
	if err != nil {
		return t, err
	}
	if err := m.d.Tokens.Write(ctx, t.key(), data, s.MfaTokenTTL.Std()); err != nil {
		return LoginToken{}, err
	}
	return t, nil
}

// VerifyLogin consumes token and, when code verifies, starts a session. The
// token is consumed before the code is checked, so a wrong code burns it and
// concurrent callers see at most one non-InvalidToken outcome.
func (m *Manager) VerifyLogin(ctx context.Context, token LoginToken, code string) (LoginResult, error) {
	data, found, err := m.d.Tokens.ReadAndDelete(ctx, token.key())
	if err != nil {
		return LoginResult{}, err
	}
	if !found {
		return LoginResult{Outcome: LoginInvalidToken}, nil
	}
	userID, err := decodeUser(data)
	if err != nil {
		return LoginResult{}, err
	}

	t, err := m.totp(ctx, userID)
	if err != nil {
		return LoginResult{}, err
	}
	if t == nil {
		return LoginResult{Outcome: LoginNoNeed, UserID: userID}, nil
	}
	ok, err := m.d.TOTP.Verify(t.Secret, code, m.d.Now())
	if err != nil {
		return LoginResult{}, err
	}
	if !ok {
		return LoginResult{Outcome: LoginInvalidCode, UserID: userID}, nil
	}

	sessionID, err := m.d.Sessions.Create(ctx, userID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Outcome: LoginSuccess, UserID: userID, SessionID: sessionID}, nil
}
