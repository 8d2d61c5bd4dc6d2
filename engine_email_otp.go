package goIdentity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/notify"
	"github.com/MrEthical07/goIdentity/otp"
	"github.com/MrEthical07/goIdentity/settings"
	"github.com/MrEthical07/goIdentity/store"
)

// sendEmailOtp issues a code for (email, usage) and hands it to the mailer.
// An address that already received any code within the resend interval is
// rate limited.
func (e *Engine) sendEmailOtp(
	ctx context.Context,
	s settings.Settings,
	email string,
	usage store.OtpUsage,
	userID uuid.NullUUID,
) (SendOutcome, error) {
	if !s.Email.Domain.Allows(email) {
		e.metricInc(MetricOtpRejected)
		return SendInvalidEmailAddress, nil
	}

	now := e.now()
	recent, err := e.repo.CountEmailOtpsSince(ctx, email, now.Add(-s.Email.Otp.ResendInterval.Std()))
	if err != nil {
		return 0, err
	}
	if recent > 0 {
		e.metricInc(MetricOtpRateLimited)
		e.emitAudit(ctx, auditEventOtpRateLimited, false, userID.UUID, uuid.Nil, SendRateLimited, usageMetadata(usage))
		return SendRateLimited, nil
	}

	code, err := otp.GenerateEmailCode()
	if err != nil {
		return 0, err
	}
	expireAfter := s.Email.Otp.ExpireAfter.Std()
	if _, err := e.repo.CreateEmailOtp(ctx, store.EmailOtp{
		UserID:    userID,
		Email:     email,
		Code:      code,
		Usage:     usage,
		CreatedAt: now,
		ExpiresAt: now.Add(expireAfter),
	}); err != nil {
		return 0, err
	}

	if err := e.events.Publish(ctx, notify.OtpEmailSendCall{
		EmailAddress: email,
		OtpCode:      code,
		OtpUsage:     usage.String(),
		ExpireAfter:  int64(expireAfter / time.Second),
		SentAt:       now,
	}); err != nil {
		return 0, err
	}

	e.metricInc(MetricOtpSent)
	e.emitAudit(ctx, auditEventOtpSent, true, userID.UUID, uuid.Nil, SendSent, usageMetadata(usage))
	return SendSent, nil
}

// findEmailOtp returns the redeemable code for (email, usage, code), or nil.
func (e *Engine) findEmailOtp(ctx context.Context, email string, usage store.OtpUsage, code string) (*store.EmailOtp, error) {
	rec, err := e.repo.FindValidEmailOtp(ctx, email, usage, code, e.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

// markEmailOtpUsed reports false when a concurrent redeemer got there first.
func (e *Engine) markEmailOtpUsed(ctx context.Context, rec *store.EmailOtp) (bool, error) {
	return e.repo.MarkEmailOtpUsed(ctx, rec.ID, e.now())
}

// PurgeEmailOtps deletes codes that expired more than the configured
// delete-before window ago.
func (e *Engine) PurgeEmailOtps(ctx context.Context) (int64, error) {
	s, err := e.loadSettings(ctx)
	if err != nil {
		return 0, err
	}
	return e.repo.DeleteEmailOtpsBefore(ctx, e.now().Add(-s.Email.Otp.DeleteBefore.Std()))
}

func usageMetadata(usage store.OtpUsage) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"usage": usage.String()}
	}
}
