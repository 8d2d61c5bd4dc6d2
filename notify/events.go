package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	AddressOtpEmail     = "auth/otp"
	AddressUserRegister = "auth/user_register"
)

// Event is a message with a fixed routing address.
type Event interface {
	Address() string
}

// Producer hands events to a delivery system. Publish returning nil means the
// broker accepted the message; delivery beyond that is out of scope.
type Producer interface {
	Publish(ctx context.Context, event Event) error
}

// OtpEmailSendCall asks the mailer to send a one-time code.
type OtpEmailSendCall struct {
	EmailAddress string `json:"email_address"`
	OtpCode      string `json:"otp_code"`
	OtpUsage     string `json:"otp_usage"`
	// ExpireAfter is in whole seconds.
	ExpireAfter int64     `json:"expire_after"`
	SentAt      time.Time `json:"sent_at"`
}

func (OtpEmailSendCall) Address() string { return AddressOtpEmail }

// GoString keeps the code out of %#v output.
func (c OtpEmailSendCall) GoString() string {
	return fmt.Sprintf("notify.OtpEmailSendCall{EmailAddress:%q, OtpCode:[REDACTED], OtpUsage:%q}", c.EmailAddress, c.OtpUsage)
}

type RegisterKind string

const (
	RegisteredByEmail RegisterKind = "email_account"
	RegisteredByOAuth RegisterKind = "oauth"
)

// RegisterMethod describes how an account was created. The OAuth fields are
// only set for RegisteredByOAuth.
type RegisterMethod struct {
	Kind           RegisterKind `json:"kind"`
	HasPassword    bool         `json:"has_password,omitempty"`
	OAuthAccountID int64        `json:"oauth_account_id,omitempty"`
	Provider       string       `json:"provider,omitempty"`
	AccessToken    string       `json:"access_token,omitempty"`
	RefreshToken   string       `json:"refresh_token,omitempty"`
}

func (m RegisterMethod) String() string {
	if m.Kind == RegisteredByOAuth {
		return fmt.Sprintf("oauth{provider=%s account=%d tokens=[REDACTED]}", m.Provider, m.OAuthAccountID)
	}
	return fmt.Sprintf("email_account{has_password=%t}", m.HasPassword)
}

// UserRegisterEvent announces a new account.
type UserRegisterEvent struct {
	UserID         uuid.UUID      `json:"user_id"`
	RegisteredAt   time.Time      `json:"registered_at"`
	RegisterMethod RegisterMethod `json:"register_method"`
}

func (UserRegisterEvent) Address() string { return AddressUserRegister }
