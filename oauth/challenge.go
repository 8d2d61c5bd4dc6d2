package oauth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/internal/stores"
)

const challengeVersion = 1

var ErrMalformedState = errors.New("oauth: malformed state")

// State is the CSRF token round-tripped through the provider redirect.
type State [32]byte

func (s State) String() string { return hex.EncodeToString(s[:]) }

func (s State) key() string { return "oauth_challenge:" + s.String() }

func ParseState(v string) (State, error) {
	var s State
	if hex.DecodedLen(len(v)) != len(s) {
		return s, ErrMalformedState
	}
	if _, err := hex.Decode(s[:], []byte(v)); err != nil {
		return State{}, ErrMalformedState
	}
	return s, nil
}

func newState() (State, error) {
	var s State
	_, err := rand.Read(s[:])
	return s, err
}

type ActionKind uint8

const (
	ActionLogin ActionKind = iota + 1
	ActionBind
)

// Action says what a completed callback should do.
type Action struct {
	Kind ActionKind
	// UserID is the account to link to for ActionBind.
	UserID uuid.UUID
}

func LoginAction() Action { return Action{Kind: ActionLogin} }

func BindAction(userID uuid.UUID) Action { return Action{Kind: ActionBind, UserID: userID} }

type challenge struct {
	provider    string
	action      Action
	redirectURI string
	verifier    string
}

func (c challenge) encode() ([]byte, error) {
	return stores.NewRecord(challengeVersion).
		String(c.provider).
		Bool(c.action.Kind == ActionBind).
		Fixed(c.action.UserID[:]).
		String(c.redirectURI).
		String(c.verifier).
		Bytes()
}

func decodeChallenge(data []byte) (challenge, error) {
	var c challenge
	rd := stores.OpenRecord(data, challengeVersion)
	c.provider = rd.String()
	c.action.Kind = ActionLogin
	if rd.Bool() {
		c.action.Kind = ActionBind
	}
	rd.Fixed(c.action.UserID[:])
	c.redirectURI = rd.String()
	c.verifier = rd.String()
	return c, rd.Err()
}
