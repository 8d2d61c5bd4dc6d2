package goIdentity

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/faults"
	"github.com/MrEthical07/goIdentity/mfa"
	"github.com/MrEthical07/goIdentity/store"
)

// ListEmailLoginMethods reports how the account at email can sign in: nothing
// for an unknown address, [Password, Otp] with a password, [Otp] without.
func (e *Engine) ListEmailLoginMethods(ctx context.Context, email string) ([]LoginMethod, error) {
	account, err := e.accountByEmail(ctx, email)
	if err != nil || account == nil {
		return nil, err
	}
	_, err = e.repo.PasswordByUserID(ctx, account.ID)
	switch {
	case err == nil:
		return []LoginMethod{LoginMethodPassword, LoginMethodOtp}, nil
	case errors.Is(err, store.ErrNotFound):
		return []LoginMethod{LoginMethodOtp}, nil
	default:
		return nil, err
	}
}

// LoginWithPassword verifies email and password. An address without a password
// record still pays for one argon2 verification before MethodNotAvailable.
func (e *Engine) LoginWithPassword(ctx context.Context, email, plaintext string) (LoginResult, error) {
	if e == nil || e.hasher == nil {
		return LoginResult{}, ErrEngineNotReady
	}

	pw, err := e.repo.PasswordByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		e.hasher.VerifyDummy(plaintext)
		return e.loginFailed(ctx, uuid.Nil, LoginMethodNotAvailable, "password"), nil
	}
	if err != nil {
		return LoginResult{}, err
	}

	ok, err := e.hasher.Verify(plaintext, pw.PasswordHash)
	if err != nil {
		return LoginResult{}, faults.Invariant("stored password hash for %s: %v", pw.UserID, err)
	}
	if !ok {
		return e.loginFailed(ctx, pw.UserID, LoginWrongCredential, "password"), nil
	}
	return e.completeLogin(ctx, pw.UserID, "password")
}

// SendLoginEmail mails a Login code to a registered address. Unknown but
// well-formed addresses get SendMaybeSent too.
func (e *Engine) SendLoginEmail(ctx context.Context, email string) (SendOutcome, error) {
	s, err := e.loadSettings(ctx)
	if err != nil {
		return 0, err
	}
	account, err := e.accountByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if account == nil {
		if !s.Email.Domain.Allows(email) {
			e.metricInc(MetricOtpRejected)
			return SendInvalidEmailAddress, nil
		}
		return SendMaybeSent, nil
	}

	out, err := e.sendEmailOtp(ctx, s, email, store.OtpLogin, uuid.NullUUID{UUID: account.ID, Valid: true})
	if err != nil {
		return 0, err
	}
	switch out {
	case SendSent:
		return SendMaybeSent, nil
	default:
		return out, nil
	}
}

// LoginWithEmailOtp signs in with a Login code mailed by SendLoginEmail.
func (e *Engine) LoginWithEmailOtp(ctx context.Context, email, code string) (LoginResult, error) {
	account, err := e.accountByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}
	if account == nil {
		return e.loginFailed(ctx, uuid.Nil, LoginInvalidOtp, "otp"), nil
	}

	rec, err := e.findEmailOtp(ctx, email, store.OtpLogin, code)
	if err != nil {
		return LoginResult{}, err
	}
	if rec == nil {
		return e.loginFailed(ctx, account.ID, LoginInvalidOtp, "otp"), nil
	}
	if ok, err := e.markEmailOtpUsed(ctx, rec); err != nil || !ok {
		if err != nil {
			return LoginResult{}, err
		}
		return e.loginFailed(ctx, account.ID, LoginInvalidOtp, "otp"), nil
	}
	return e.completeLogin(ctx, account.ID, "otp")
}

// VerifyMfaLogin finishes a login parked by LoginMfaRequired. The token is
// single use: a wrong code burns it.
func (e *Engine) VerifyMfaLogin(ctx context.Context, token mfa.LoginToken, code string) (mfa.LoginResult, error) {
	res, err := e.mfa.VerifyLogin(ctx, token, code)
	if err != nil {
		return res, err
	}

	success := res.Outcome == mfa.LoginSuccess
	if success {
		e.metricInc(MetricMfaSuccess)
		e.metricInc(MetricLoginSuccess)
		e.metricInc(MetricSessionCreated)
	} else {
		e.metricInc(MetricMfaFailure)
	}
	e.emitAudit(ctx, auditEventMfaVerify, success, res.UserID, res.SessionID, res.Outcome, nil)
	return res, nil
}

// completeLogin runs the MFA gate after a first factor succeeded.
func (e *Engine) completeLogin(ctx context.Context, userID uuid.UUID, method string) (LoginResult, error) {
	enrolled, err := e.mfa.IsEnrolled(ctx, userID)
	if err != nil {
		return LoginResult{}, err
	}
	if enrolled {
		token, err := e.mfa.CreateLoginToken(ctx, userID)
		if err != nil {
			return LoginResult{}, err
		}
		e.metricInc(MetricMfaRequired)
		e.emitAudit(ctx, auditEventMfaRequired, true, userID, uuid.Nil, LoginMfaRequired, methodMetadata(method))
		return LoginResult{Outcome: LoginMfaRequired, MfaToken: token}, nil
	}

	sessionID, err := e.createSession(ctx, userID)
	if err != nil {
		return LoginResult{}, err
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, userID, sessionID, LoginSuccess, methodMetadata(method))
	return LoginResult{Outcome: LoginSuccess, SessionID: sessionID}, nil
}

func (e *Engine) loginFailed(ctx context.Context, userID uuid.UUID, outcome LoginOutcome, method string) LoginResult {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, uuid.Nil, outcome, methodMetadata(method))
	return LoginResult{Outcome: outcome}
}

func methodMetadata(method string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"method": method}
	}
}
