package internaldefs

import (
	goIdentity "github.com/MrEthical07/goIdentity"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   goIdentity.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   goIdentity.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goIdentity.MetricLoginSuccess, Name: "goidentity_login_success_total", Help: "Logins that created a session or asked for a second factor."},
	{ID: goIdentity.MetricLoginFailure, Name: "goidentity_login_failure_total", Help: "Rejected login attempts."},
	{ID: goIdentity.MetricMfaRequired, Name: "goidentity_mfa_required_total", Help: "Logins that issued an MFA login token."},
	{ID: goIdentity.MetricMfaSuccess, Name: "goidentity_mfa_success_total", Help: "MFA login tokens redeemed with a valid code."},
	{ID: goIdentity.MetricMfaFailure, Name: "goidentity_mfa_failure_total", Help: "Rejected MFA login attempts."},
	{ID: goIdentity.MetricOtpSent, Name: "goidentity_otp_sent_total", Help: "Email codes handed to the producer."},
	{ID: goIdentity.MetricOtpRateLimited, Name: "goidentity_otp_rate_limited_total", Help: "Email code requests inside the resend interval."},
	{ID: goIdentity.MetricOtpRejected, Name: "goidentity_otp_rejected_total", Help: "Email code requests refused by the domain policy."},
	{ID: goIdentity.MetricSudoEntered, Name: "goidentity_sudo_entered_total", Help: "Sudo tokens issued."},
	{ID: goIdentity.MetricSudoFailed, Name: "goidentity_sudo_failed_total", Help: "Operations refused for a missing or invalid sudo token."},
	{ID: goIdentity.MetricSessionCreated, Name: "goidentity_session_created_total", Help: "Sessions created."},
	{ID: goIdentity.MetricSessionTerminated, Name: "goidentity_session_terminated_total", Help: "Sessions terminated."},
	{ID: goIdentity.MetricRegistered, Name: "goidentity_registered_total", Help: "Accounts created through email registration."},
	{ID: goIdentity.MetricPasswordReset, Name: "goidentity_password_reset_total", Help: "Passwords reset with an email code."},
	{ID: goIdentity.MetricPasswordChanged, Name: "goidentity_password_changed_total", Help: "Passwords changed or removed under sudo."},
	{ID: goIdentity.MetricEmailChanged, Name: "goidentity_email_changed_total", Help: "Account addresses changed."},
	{ID: goIdentity.MetricOAuthLogin, Name: "goidentity_oauth_login_total", Help: "Logins through a linked OAuth account."},
	{ID: goIdentity.MetricOAuthRegistered, Name: "goidentity_oauth_registered_total", Help: "Accounts created through an OAuth provider."},
	{ID: goIdentity.MetricOAuthLinked, Name: "goidentity_oauth_linked_total", Help: "OAuth accounts linked to an existing user."},
	{ID: goIdentity.MetricTokenRefreshed, Name: "goidentity_token_refreshed_total", Help: "Token pairs issued from a refresh token."},
}

var HistogramDefs = []HistogramDef{
	{ID: goIdentity.MetricAuthenticateLatency, Name: "goidentity_authenticate_latency_seconds", Help: "Session authentication latency."},
}

// HistogramBounds are the upper bounds of the engine's latency buckets in
// seconds, in Prometheus label form.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names the same bounds for instruments whose names
// cannot carry dots.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
