package goIdentity

import (
	"context"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/mfa"
)

// StartTotpSetup stages a new authenticator secret for userID.
func (e *Engine) StartTotpSetup(ctx context.Context, userID uuid.UUID, sudo mfa.SudoToken) (mfa.SetupResult, error) {
	res, err := e.mfa.StartSetup(ctx, userID, sudo)
	if err == nil && res.Outcome == mfa.SetupSudoFailed {
		e.metricInc(MetricSudoFailed)
	}
	return res, err
}

// FinishTotpSetup enrolls the staged secret once code verifies against it.
func (e *Engine) FinishTotpSetup(ctx context.Context, userID uuid.UUID, code string) (mfa.FinishOutcome, error) {
	out, err := e.mfa.FinishSetup(ctx, userID, code)
	if err != nil {
		return 0, err
	}
	e.emitAudit(ctx, auditEventTotpEnroll, out == mfa.FinishSuccess, userID, uuid.Nil, out, nil)
	return out, nil
}

// DisableTotp removes the authenticator of userID.
// Outcomes: SudoFailed, AlreadyRemoved, Success.
func (e *Engine) DisableTotp(ctx context.Context, userID uuid.UUID, sudo mfa.SudoToken) (ChangeOutcome, error) {
	if ok, err := e.verifySudo(ctx, userID, sudo); err != nil || !ok {
		if err != nil {
			return 0, err
		}
		return ChangeSudoFailed, nil
	}
	enrolled, err := e.mfa.IsEnrolled(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !enrolled {
		return ChangeAlreadyRemoved, nil
	}
	if err := e.mfa.Remove(ctx, userID); err != nil {
		return 0, err
	}
	e.emitAudit(ctx, auditEventTotpRemove, true, userID, uuid.Nil, ChangeSuccess, nil)
	return ChangeSuccess, nil
}
