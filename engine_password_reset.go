package goIdentity

import (
	"context"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/password"
	"github.com/MrEthical07/goIdentity/store"
)

// SendPasswordResetEmail mails a PasswordReset code. The outcome never tells
// a caller whether the address has an account, except through RateLimited.
func (e *Engine) SendPasswordResetEmail(ctx context.Context, email string) (SendOutcome, error) {
	s, err := e.loadSettings(ctx)
	if err != nil {
		return 0, err
	}
	account, err := e.accountByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if account == nil {
		if s.Email.Domain.Allows(email) {
			return SendMaybeSent, nil
		}
		e.metricInc(MetricOtpRejected)
		return SendInvalidEmailAddress, nil
	}

	out, err := e.sendEmailOtp(ctx, s, email, store.OtpPasswordReset, uuid.NullUUID{UUID: account.ID, Valid: true})
	if err != nil {
		return 0, err
	}
	if out == SendRateLimited {
		return SendRateLimited, nil
	}
	return SendMaybeSent, nil
}

// ResetPassword sets a new password for the account proven by a PasswordReset
// code and terminates every existing session of that account. Passwordless
// accounts gain a password.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPassword string, autoLogin bool) (ResetResult, error) {
	if e == nil || e.hasher == nil {
		return ResetResult{}, ErrEngineNotReady
	}
	if err := password.CheckLength(newPassword); err != nil {
		return ResetResult{Outcome: ResetInvalidPassword}, nil
	}

	rec, err := e.findEmailOtp(ctx, email, store.OtpPasswordReset, code)
	if err != nil {
		return ResetResult{}, err
	}
	if rec == nil {
		return e.resetRejected(ctx, uuid.Nil, ResetInvalidOtp), nil
	}
	account, err := e.accountByEmail(ctx, email)
	if err != nil {
		return ResetResult{}, err
	}
	if account == nil {
		return e.resetRejected(ctx, uuid.Nil, ResetAccountNotFound), nil
	}
	if ok, err := e.markEmailOtpUsed(ctx, rec); err != nil || !ok {
		if err != nil {
			return ResetResult{}, err
		}
		return e.resetRejected(ctx, account.ID, ResetInvalidOtp), nil
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return ResetResult{}, err
	}
	if err := e.repo.UpsertPassword(ctx, account.ID, hash); err != nil {
		return ResetResult{}, err
	}
	terminated, err := e.sessions.TerminateAll(ctx, account.ID)
	if err != nil {
		return ResetResult{}, err
	}
	for range terminated {
		e.metricInc(MetricSessionTerminated)
	}
	e.metricInc(MetricPasswordReset)

	res := ResetResult{Outcome: ResetSuccess}
	if autoLogin {
		if res.SessionID, err = e.createSession(ctx, account.ID); err != nil {
			return ResetResult{}, err
		}
		res.Outcome = ResetSuccessWithSession
	}
	e.emitAudit(ctx, auditEventPasswordReset, true, account.ID, res.SessionID, res.Outcome, nil)
	return res, nil
}

func (e *Engine) resetRejected(ctx context.Context, userID uuid.UUID, outcome ResetOutcome) ResetResult {
	e.emitAudit(ctx, auditEventPasswordReset, false, userID, uuid.Nil, outcome, nil)
	return ResetResult{Outcome: outcome}
}
