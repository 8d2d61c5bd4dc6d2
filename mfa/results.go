package mfa

import "fmt"

// SetupOutcome is the result of StartSetup.
type SetupOutcome int

const (
	SetupStarted SetupOutcome = iota + 1
	SetupSudoFailed
)

func (o SetupOutcome) String() string {
	switch o {
	case SetupStarted:
		return "started"
	case SetupSudoFailed:
		return "sudo_failed"
	}
	return fmt.Sprintf("SetupOutcome(%d)", int(o))
}

// PendingSetup is what an authenticator app needs to enroll.
type PendingSetup struct {
	Secret       []byte
	SecretBase32 string
	URI          string
}

type SetupResult struct {
	Outcome SetupOutcome
	// Setup is set when Outcome is SetupStarted.
	Setup *PendingSetup
}

// FinishOutcome is the result of FinishSetup.
type FinishOutcome int

const (
	FinishSuccess FinishOutcome = iota + 1
	FinishInvalidCode
	FinishDuplicate
	FinishExpired
)

func (o FinishOutcome) String() string {
	switch o {
	case FinishSuccess:
		return "success"
	case FinishInvalidCode:
		return "invalid_code"
	case FinishDuplicate:
		return "duplicate"
	case FinishExpired:
		return "expired"
	}
	return fmt.Sprintf("FinishOutcome(%d)", int(o))
}

// Method is a way to prove presence for sudo mode.
type Method int

const (
	MethodTotp Method = iota + 1
	MethodEmail
)

func (m Method) String() string {
	switch m {
	case MethodTotp:
		return "totp"
	case MethodEmail:
		return "email_otp"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Proof is a code submitted for one Method.
type Proof struct {
	Method Method
	Code   string
}

// SudoOutcome is the result of VerifyAndEnterSudo.
type SudoOutcome int

const (
	SudoSuccess SudoOutcome = iota + 1
	SudoMethodNotAllowed
	SudoInvalidCredential
)

func (o SudoOutcome) String() string {
	switch o {
	case SudoSuccess:
		return "success"
	case SudoMethodNotAllowed:
		return "method_not_allowed"
	case SudoInvalidCredential:
		return "invalid_credential"
	}
	return fmt.Sprintf("SudoOutcome(%d)", int(o))
}

type SudoResult struct {
	Outcome SudoOutcome
	Token   SudoToken
}

// LoginOutcome is the result of VerifyLogin.
type LoginOutcome int

const (
	LoginSuccess LoginOutcome = iota + 1
	LoginInvalidToken
	LoginInvalidCode
	LoginNoNeed
)

func (o LoginOutcome) String() string {
	switch o {
	case LoginSuccess:
		return "success"
	case LoginInvalidToken:
		return "invalid_token"
	case LoginInvalidCode:
		return "invalid_code"
	case LoginNoNeed:
		return "no_need"
	}
	return fmt.Sprintf("LoginOutcome(%d)", int(o))
}
