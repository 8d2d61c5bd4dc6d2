package goIdentity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/mfa"
	"github.com/MrEthical07/goIdentity/store"
)

// LoginMethod is a way an email account can sign in.
type LoginMethod int

const (
	LoginMethodPassword LoginMethod = iota + 1
	LoginMethodOtp
)

func (m LoginMethod) String() string {
	switch m {
	case LoginMethodPassword:
		return "password"
	case LoginMethodOtp:
		return "otp"
	}
	return fmt.Sprintf("LoginMethod(%d)", int(m))
}

// LoginOutcome is the result of a first-factor login.
type LoginOutcome int

const (
	LoginSuccess LoginOutcome = iota + 1
	LoginMfaRequired
	LoginWrongCredential
	LoginMethodNotAvailable
	LoginInvalidOtp
)

func (o LoginOutcome) String() string {
	switch o {
	case LoginSuccess:
		return "success"
	case LoginMfaRequired:
		return "mfa_required"
	case LoginWrongCredential:
		return "wrong_credential"
	case LoginMethodNotAvailable:
		return "method_not_available"
	case LoginInvalidOtp:
		return "invalid_otp"
	}
	return fmt.Sprintf("LoginOutcome(%d)", int(o))
}

// LoginResult carries SessionID for LoginSuccess and MfaToken for
// LoginMfaRequired.
type LoginResult struct {
	Outcome   LoginOutcome
	SessionID uuid.UUID
	MfaToken  mfa.LoginToken
}

// SendOutcome is the result of every flow that mails a code.
type SendOutcome int

const (
	SendSent SendOutcome = iota + 1
	// SendMaybeSent hides whether the address belongs to an account.
	SendMaybeSent
	SendRateLimited
	SendInvalidEmailAddress
	SendDuplicatedEmail
	SendSudoFailed
	SendAccountNotFound
)

func (o SendOutcome) String() string {
	switch o {
	case SendSent:
		return "sent"
	case SendMaybeSent:
		return "maybe_sent"
	case SendRateLimited:
		return "rate_limited"
	case SendInvalidEmailAddress:
		return "invalid_email_address"
	case SendDuplicatedEmail:
		return "duplicated_email"
	case SendSudoFailed:
		return "sudo_failed"
	case SendAccountNotFound:
		return "account_not_found"
	}
	return fmt.Sprintf("SendOutcome(%d)", int(o))
}

// RegisterRequest is the input of RegisterUser. An empty Password registers a
// passwordless account.
type RegisterRequest struct {
	Email     string
	Otp       string
	Password  string
	Name      string
	AutoLogin bool
}

type RegisterOutcome int

const (
	RegisterRegistered RegisterOutcome = iota + 1
	RegisterRegisteredWithSession
	RegisterInvalidOtp
	RegisterDuplicatedEmail
	RegisterInvalidPassword
)

func (o RegisterOutcome) String() string {
	switch o {
	case RegisterRegistered:
		return "registered"
	case RegisterRegisteredWithSession:
		return "registered_with_session"
	case RegisterInvalidOtp:
		return "invalid_otp"
	case RegisterDuplicatedEmail:
		return "duplicated_email"
	case RegisterInvalidPassword:
		return "invalid_password"
	}
	return fmt.Sprintf("RegisterOutcome(%d)", int(o))
}

type RegisterResult struct {
	Outcome   RegisterOutcome
	UserID    uuid.UUID
	SessionID uuid.UUID
}

type ResetOutcome int

const (
	ResetSuccess ResetOutcome = iota + 1
	ResetSuccessWithSession
	ResetInvalidOtp
	ResetAccountNotFound
	ResetInvalidPassword
)

func (o ResetOutcome) String() string {
	switch o {
	case ResetSuccess:
		return "success"
	case ResetSuccessWithSession:
		return "success_with_session"
	case ResetInvalidOtp:
		return "invalid_otp"
	case ResetAccountNotFound:
		return "account_not_found"
	case ResetInvalidPassword:
		return "invalid_password"
	}
	return fmt.Sprintf("ResetOutcome(%d)", int(o))
}

type ResetResult struct {
	Outcome   ResetOutcome
	SessionID uuid.UUID
}

// ChangeOutcome is the result of the sudo-gated account mutations. Each flow
// documents which values it can return.
type ChangeOutcome int

const (
	ChangeSuccess ChangeOutcome = iota + 1
	ChangeSudoFailed
	ChangeNotFound
	ChangeAlreadyRemoved
	ChangeInvalidOtp
	ChangeInvalidEmail
	ChangeInvalidPassword
)

func (o ChangeOutcome) String() string {
	switch o {
	case ChangeSuccess:
		return "success"
	case ChangeSudoFailed:
		return "sudo_failed"
	case ChangeNotFound:
		return "not_found"
	case ChangeAlreadyRemoved:
		return "already_removed"
	case ChangeInvalidOtp:
		return "invalid_otp"
	case ChangeInvalidEmail:
		return "invalid_email"
	case ChangeInvalidPassword:
		return "invalid_password"
	}
	return fmt.Sprintf("ChangeOutcome(%d)", int(o))
}

// TokenPair is an access and refresh JWT bound to one session.
type TokenPair struct {
	SessionID        uuid.UUID
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AccountInfo is the account page view of a user.
type AccountInfo struct {
	Account       store.UserAccount
	HasPassword   bool
	OAuthAccounts []store.OAuthAccount
	Totp          mfa.TotpStatus
}
