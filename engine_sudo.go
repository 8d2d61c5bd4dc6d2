package goIdentity

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/mfa"
	"github.com/MrEthical07/goIdentity/oauth"
	"github.com/MrEthical07/goIdentity/password"
	"github.com/MrEthical07/goIdentity/store"
)

// Sudo-gated mutations check, in order: the sudo token, the account, then the
// rule specific to the change.

func (e *Engine) ListSudoMethods(ctx context.Context, userID uuid.UUID) ([]mfa.Method, error) {
	return e.mfa.ListSudoMethods(ctx, userID)
}

// SendSudoEmail mails a SudoMode code to the account address.
func (e *Engine) SendSudoEmail(ctx context.Context, userID uuid.UUID) (SendOutcome, error) {
	s, err := e.loadSettings(ctx)
	if err != nil {
		return 0, err
	}
	account, err := e.accountByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return SendAccountNotFound, nil
	}
	return e.sendEmailOtp(ctx, s, account.Email, store.OtpSudoMode, uuid.NullUUID{UUID: userID, Valid: true})
}

// VerifyAndEnterSudo checks a TOTP or SudoMode email code and issues a sudo
// token on success.
func (e *Engine) VerifyAndEnterSudo(ctx context.Context, userID uuid.UUID, proof mfa.Proof) (mfa.SudoResult, error) {
	res, err := e.mfa.VerifyAndEnterSudo(ctx, userID, proof)
	if err != nil {
		return res, err
	}
	success := res.Outcome == mfa.SudoSuccess
	if success {
		e.metricInc(MetricSudoEntered)
	} else {
		e.metricInc(MetricSudoFailed)
	}
	e.emitAudit(ctx, auditEventSudoEnter, success, userID, uuid.Nil, res.Outcome, func() map[string]string {
		return map[string]string{"method": proof.Method.String()}
	})
	return res, nil
}

// verifySudo counts failures so that every gated flow shares one metric.
func (e *Engine) verifySudo(ctx context.Context, userID uuid.UUID, token mfa.SudoToken) (bool, error) {
	ok, err := e.mfa.VerifySudo(ctx, userID, token)
	if err == nil && !ok {
		e.metricInc(MetricSudoFailed)
	}
	return ok, err
}

// ChangePassword sets or replaces the password of userID.
// Outcomes: SudoFailed, NotFound, InvalidPassword, Success.
func (e *Engine) ChangePassword(ctx context.Context, userID uuid.UUID, sudo mfa.SudoToken, newPassword string) (ChangeOutcome, error) {
	out, err := e.changePassword(ctx, userID, sudo, newPassword)
	if err != nil {
		return 0, err
	}
	if out == ChangeSuccess {
		e.metricInc(MetricPasswordChanged)
	}
	e.emitAudit(ctx, auditEventPasswordChange, out == ChangeSuccess, userID, uuid.Nil, out, nil)
	return out, nil
}

func (e *Engine) changePassword(ctx context.Context, userID uuid.UUID, sudo mfa.SudoToken, newPassword string) (ChangeOutcome, error) {
	if ok, err := e.verifySudo(ctx, userID, sudo); err != nil || !ok {
		return ChangeSudoFailed, err
	}
	account, err := e.accountByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return ChangeNotFound, nil
	}
	if err := password.CheckLength(newPassword); err != nil {
		return ChangeInvalidPassword, nil
	}
	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return 0, err
	}
	if err := e.repo.UpsertPassword(ctx, userID, hash); err != nil {
		return 0, err
	}
	return ChangeSuccess, nil
}

// RemovePassword turns userID into a passwordless account.
// Outcomes: SudoFailed, NotFound, AlreadyRemoved, Success.
func (e *Engine) RemovePassword(ctx context.Context, userID uuid.UUID, sudo mfa.SudoToken) (ChangeOutcome, error) {
	out, err := e.removePassword(ctx, userID, sudo)
	if err != nil {
		return 0, err
	}
	e.emitAudit(ctx, auditEventPasswordRemove, out == ChangeSuccess, userID, uuid.Nil, out, nil)
	return out, nil
}

func (e *Engine) removePassword(ctx context.Context, userID uuid.UUID, sudo mfa.SudoToken) (ChangeOutcome, error) {
	if ok, err := e.verifySudo(ctx, userID, sudo); err != nil || !ok {
		return ChangeSudoFailed, err
	}
	account, err := e.accountByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return ChangeNotFound, nil
	}
	deleted, err := e.repo.DeletePassword(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !deleted {
		return ChangeAlreadyRemoved, nil
	}
	return ChangeSuccess, nil
}

// SendChangeEmailOtp mails a ChangeEmailAddress code to newEmail.
func (e *Engine) SendChangeEmailOtp(ctx context.Context, userID uuid.UUID, sudo mfa.SudoToken, newEmail string) (SendOutcome, error) {
	if ok, err := e.verifySudo(ctx, userID, sudo); err != nil || !ok {
		return SendSudoFailed, err
	}
	s, err := e.loadSettings(ctx)
	if err != nil {
		return 0, err
	}
	account, err := e.accountByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return SendAccountNotFound, nil
	}
	taken, err := e.accountByEmail(ctx, newEmail)
	if err != nil {
		return 0, err
	}
	if taken != nil {
		return SendDuplicatedEmail, nil
	}
	return e.sendEmailOtp(ctx, s, newEmail, store.OtpChangeEmailAddress, uuid.NullUUID{UUID: userID, Valid: true})
}

// ChangeEmail moves userID to newEmail once the code mailed there verifies.
// Outcomes: SudoFailed, InvalidOtp, NotFound, InvalidEmail, Success.
func (e *Engine) ChangeEmail(ctx context.Context, userID uuid.UUID, sudo mfa.SudoToken, newEmail, code string) (ChangeOutcome, error) {
	out, err := e.changeEmail(ctx, userID, sudo, newEmail, code)
	if err != nil {
		return 0, err
	}
	if out == ChangeSuccess {
		e.metricInc(MetricEmailChanged)
	}
	e.emitAudit(ctx, auditEventEmailChange, out == ChangeSuccess, userID, uuid.Nil, out, nil)
	return out, nil
}

func (e *Engine) changeEmail(ctx context.Context, userID uuid.UUID, sudo mfa.SudoToken, newEmail, code string) (ChangeOutcome, error) {
	if ok, err := e.verifySudo(ctx, userID, sudo); err != nil || !ok {
		return ChangeSudoFailed, err
	}
	rec, err := e.findEmailOtp(ctx, newEmail, store.OtpChangeEmailAddress, code)
	if err != nil {
		return 0, err
	}
	if rec == nil || (rec.UserID.Valid && rec.UserID.UUID != userID) {
		return ChangeInvalidOtp, nil
	}
	account, err := e.accountByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return ChangeNotFound, nil
	}

	s, err := e.loadSettings(ctx)
	if err != nil {
		return 0, err
	}
	if !s.Email.Domain.Allows(newEmail) {
		return ChangeInvalidEmail, nil
	}
	taken, err := e.accountByEmail(ctx, newEmail)
	if err != nil {
		return 0, err
	}
	if taken != nil {
		return ChangeInvalidEmail, nil
	}

	ok, err := e.markEmailOtpUsed(ctx, rec)
	if err != nil {
		return 0, err
	}
	if !ok {
		return ChangeInvalidOtp, nil
	}
	if err := e.repo.UpdateEmail(ctx, userID, newEmail); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ChangeInvalidEmail, nil
		}
		return 0, err
	}
	return ChangeSuccess, nil
}

// UnlinkOAuth removes the provider binding of userID.
func (e *Engine) UnlinkOAuth(ctx context.Context, userID uuid.UUID, sudo mfa.SudoToken, provider string) (oauth.UnlinkOutcome, error) {
	out, err := e.oauth.Unlink(ctx, userID, sudo, provider)
	if err != nil {
		return 0, err
	}
	if out == oauth.UnlinkSudoFailed {
		e.metricInc(MetricSudoFailed)
	}
	e.emitAudit(ctx, auditEventOAuthUnlink, out == oauth.UnlinkSuccess, userID, uuid.Nil, out, func() map[string]string {
		return map[string]string{"provider": provider}
	})
	return out, nil
}
