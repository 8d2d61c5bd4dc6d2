package goIdentity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const (
	auditEventLoginSuccess   = "login_success"
	auditEventLoginFailure   = "login_failure"
	auditEventMfaRequired    = "mfa_required"
	auditEventMfaVerify      = "mfa_verify"
	auditEventOtpSent        = "otp_sent"
	auditEventOtpRateLimited = "otp_rate_limited"
	auditEventRegister       = "account_register"
	auditEventPasswordReset  = "password_reset"
	auditEventPasswordChange = "password_change"
	auditEventPasswordRemove = "password_remove"
	auditEventEmailChange    = "email_change"
	auditEventSudoEnter      = "sudo_enter"
	auditEventTotpEnroll     = "totp_enroll"
	auditEventTotpRemove     = "totp_remove"
	auditEventOAuthCallback  = "oauth_callback"
	auditEventOAuthUnlink    = "oauth_unlink"
	auditEventTokenRefresh   = "token_refresh"
	auditEventLogoutSession  = "logout_session"
	auditEventLogoutAll      = "logout_all"
)

// emitAudit queues an event on the dispatcher. Nil user or session ids are
// left out of the event.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID uuid.UUID,
	sessionID uuid.UUID,
	outcome fmt.Stringer,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if userID != uuid.Nil {
		event.UserID = userID.String()
	}
	if sessionID != uuid.Nil {
		event.SessionID = sessionID.String()
	}
	if outcome != nil {
		event.Outcome = outcome.String()
	}
	if metadataBuilder != nil {
		event.Metadata = metadataBuilder()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		event.Metadata["user_agent"] = ua
	}

	e.audit.Emit(ctx, event)
}
