package goIdentity

import (
	"context"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/mfa"
	"github.com/MrEthical07/goIdentity/oauth"
	"github.com/MrEthical07/goIdentity/store"
)

// CreateOAuthChallenge returns the provider authorize URL for action. Bind
// actions need a sudo token for the bound user.
func (e *Engine) CreateOAuthChallenge(ctx context.Context, provider string, action oauth.Action, redirectURI string, sudo *mfa.SudoToken) (oauth.ChallengeResult, error) {
	res, err := e.oauth.CreateChallenge(ctx, provider, action, redirectURI, sudo)
	if err == nil && res.Outcome == oauth.ChallengeSudoFailed {
		e.metricInc(MetricSudoFailed)
	}
	return res, err
}

// HandleOAuthCallback consumes the challenge named by state. caller is the
// signed-in user, if any.
func (e *Engine) HandleOAuthCallback(ctx context.Context, code string, state oauth.State, caller uuid.NullUUID) (oauth.CallbackResult, error) {
	res, err := e.oauth.HandleCallback(ctx, code, state, caller)
	if err != nil {
		return res, err
	}

	success := true
	switch res.Outcome {
	case oauth.CallbackLoggedIn:
		e.metricInc(MetricOAuthLogin)
		e.metricInc(MetricSessionCreated)
	case oauth.CallbackRegistered:
		e.metricInc(MetricOAuthRegistered)
		e.metricInc(MetricRegistered)
		e.metricInc(MetricSessionCreated)
	case oauth.CallbackMfaRequired:
		e.metricInc(MetricMfaRequired)
	case oauth.CallbackLinked:
		e.metricInc(MetricOAuthLinked)
	default:
		success = false
	}
	e.emitAudit(ctx, auditEventOAuthCallback, success, res.UserID, res.SessionID, res.Outcome, nil)
	return res, nil
}

func (e *Engine) ListOAuthAccounts(ctx context.Context, userID uuid.UUID) ([]store.OAuthAccount, error) {
	return e.oauth.ListAccounts(ctx, userID)
}
