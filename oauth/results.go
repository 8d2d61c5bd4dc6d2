package oauth

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/mfa"
	"github.com/MrEthical07/goIdentity/store"
)

// ChallengeOutcome is the result of CreateChallenge.
type ChallengeOutcome int

const (
	ChallengeRedirect ChallengeOutcome = iota + 1
	ChallengeProviderNotSupported
	ChallengeSudoFailed
)

func (o ChallengeOutcome) String() string {
	switch o {
	case ChallengeRedirect:
		return "redirect"
	case ChallengeProviderNotSupported:
		return "provider_not_supported"
	case ChallengeSudoFailed:
		return "sudo_failed"
	}
	return fmt.Sprintf("ChallengeOutcome(%d)", int(o))
}

type ChallengeResult struct {
	Outcome ChallengeOutcome
	// URL is the provider authorize URL for ChallengeRedirect.
	URL   string
	State State
}

// CallbackOutcome is the result of HandleCallback.
type CallbackOutcome int

const (
	CallbackInvalidState CallbackOutcome = iota + 1
	CallbackUnmatched
	CallbackLoggedIn
	CallbackMfaRequired
	CallbackRegistered
	CallbackEmailRequired
	CallbackEmailTaken
	CallbackLinked
	CallbackAlreadyExists
)

func (o CallbackOutcome) String() string {
	switch o {
	case CallbackInvalidState:
		return "invalid_state"
	case CallbackUnmatched:
		return "unmatched"
	case CallbackLoggedIn:
		return "logged_in"
	case CallbackMfaRequired:
		return "mfa_required"
	case CallbackRegistered:
		return "registered"
	case CallbackEmailRequired:
		return "email_required"
	case CallbackEmailTaken:
		return "email_taken"
	case CallbackLinked:
		return "linked"
	case CallbackAlreadyExists:
		return "already_exists"
	}
	return fmt.Sprintf("CallbackOutcome(%d)", int(o))
}

// CallbackResult carries the payload of a CallbackOutcome. Only the fields
// relevant to Outcome are set.
type CallbackResult struct {
	Outcome   CallbackOutcome
	UserID    uuid.UUID
	SessionID uuid.UUID
	MfaToken  mfa.LoginToken
	Account   *store.OAuthAccount
}

// UnlinkOutcome is the result of Unlink.
type UnlinkOutcome int

const (
	UnlinkSuccess UnlinkOutcome = iota + 1
	UnlinkSudoFailed
	UnlinkNotFound
)

func (o UnlinkOutcome) String() string {
	switch o {
	case UnlinkSuccess:
		return "success"
	case UnlinkSudoFailed:
		return "sudo_failed"
	case UnlinkNotFound:
		return "not_found"
	}
	return fmt.Sprintf("UnlinkOutcome(%d)", int(o))
}
