package middleware

import (
	"errors"
	"net/http"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/mfa"
	"github.com/MrEthical07/goIdentity/oauth"
)

// StatusError maps an engine error to a status code. A nil error is 200.
func StatusError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case goIdentity.IsRetryable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, goIdentity.ErrSessionNotFound), errors.Is(err, goIdentity.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, goIdentity.ErrAccountNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func StatusLogin(o goIdentity.LoginOutcome) int {
	switch o {
	case goIdentity.LoginSuccess:
		return http.StatusOK
	case goIdentity.LoginMfaRequired:
		return http.StatusAccepted
	case goIdentity.LoginWrongCredential, goIdentity.LoginMethodNotAvailable, goIdentity.LoginInvalidOtp:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func StatusSend(o goIdentity.SendOutcome) int {
	switch o {
	case goIdentity.SendSent, goIdentity.SendMaybeSent:
		return http.StatusAccepted
	case goIdentity.SendRateLimited:
		return http.StatusTooManyRequests
	case goIdentity.SendInvalidEmailAddress:
		return http.StatusBadRequest
	case goIdentity.SendDuplicatedEmail:
		return http.StatusConflict
	case goIdentity.SendSudoFailed:
		return http.StatusForbidden
	case goIdentity.SendAccountNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func StatusRegister(o goIdentity.RegisterOutcome) int {
	switch o {
	case goIdentity.RegisterRegistered, goIdentity.RegisterRegisteredWithSession:
		return http.StatusCreated
	case goIdentity.RegisterInvalidOtp:
		return http.StatusUnauthorized
	case goIdentity.RegisterDuplicatedEmail:
		return http.StatusConflict
	case goIdentity.RegisterInvalidPassword:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func StatusReset(o goIdentity.ResetOutcome) int {
	switch o {
	case goIdentity.ResetSuccess, goIdentity.ResetSuccessWithSession:
		return http.StatusOK
	case goIdentity.ResetInvalidOtp:
		return http.StatusUnauthorized
	case goIdentity.ResetAccountNotFound:
		return http.StatusNotFound
	case goIdentity.ResetInvalidPassword:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// StatusChange covers every sudo-gated account change.
func StatusChange(o goIdentity.ChangeOutcome) int {
	switch o {
	case goIdentity.ChangeSuccess:
		return http.StatusOK
	case goIdentity.ChangeSudoFailed:
		return http.StatusForbidden
	case goIdentity.ChangeNotFound:
		return http.StatusNotFound
	case goIdentity.ChangeAlreadyRemoved:
		return http.StatusConflict
	case goIdentity.ChangeInvalidOtp:
		return http.StatusUnauthorized
	case goIdentity.ChangeInvalidEmail, goIdentity.ChangeInvalidPassword:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func StatusSudo(o mfa.SudoOutcome) int {
	switch o {
	case mfa.SudoSuccess:
		return http.StatusOK
	case mfa.SudoMethodNotAllowed:
		return http.StatusBadRequest
	case mfa.SudoInvalidCredential:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func StatusMfaLogin(o mfa.LoginOutcome) int {
	switch o {
	case mfa.LoginSuccess:
		return http.StatusOK
	case mfa.LoginInvalidToken, mfa.LoginInvalidCode:
		return http.StatusUnauthorized
	case mfa.LoginNoNeed:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func StatusTotpFinish(o mfa.FinishOutcome) int {
	switch o {
	case mfa.FinishSuccess:
		return http.StatusOK
	case mfa.FinishInvalidCode:
		return http.StatusUnauthorized
	case mfa.FinishDuplicate:
		return http.StatusConflict
	case mfa.FinishExpired:
		return http.StatusGone
	}
	return http.StatusInternalServerError
}

func StatusOAuthCallback(o oauth.CallbackOutcome) int {
	switch o {
	case oauth.CallbackLoggedIn, oauth.CallbackLinked:
		return http.StatusOK
	case oauth.CallbackRegistered:
		return http.StatusCreated
	case oauth.CallbackMfaRequired:
		return http.StatusAccepted
	case oauth.CallbackInvalidState:
		return http.StatusBadRequest
	case oauth.CallbackUnmatched:
		return http.StatusForbidden
	case oauth.CallbackEmailRequired:
		return http.StatusUnprocessableEntity
	case oauth.CallbackEmailTaken, oauth.CallbackAlreadyExists:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
