package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/MrEthical07/goIdentity/faults"
	"github.com/MrEthical07/goIdentity/mfa"
	"github.com/MrEthical07/goIdentity/notify"
	"github.com/MrEthical07/goIdentity/settings"
	"github.com/MrEthical07/goIdentity/store"
)

const userInfoLimit = 1 << 20

// TokenStore persists challenges between redirect and callback.
type TokenStore interface {
	Write(ctx context.Context, key string, value []byte, ttl time.Duration) error
	ReadAndDelete(ctx context.Context, key string) ([]byte, bool, error)
}

// Repository is the slice of the persistent store the Coordinator needs.
type Repository interface {
	AccountByEmail(ctx context.Context, email string) (*store.UserAccount, error)
	OAuthAccountByProviderUser(ctx context.Context, provider, providerUserID string) (*store.OAuthAccount, error)
	OAuthAccountsByUser(ctx context.Context, userID uuid.UUID) ([]store.OAuthAccount, error)
	RegisterOAuth(ctx context.Context, email, name, provider, providerUserID string) (*store.UserAccount, *store.OAuthAccount, error)
	AppendOAuthAccount(ctx context.Context, userID uuid.UUID, provider, providerUserID string) (*store.OAuthAccount, error)
	DeleteOAuthAccount(ctx context.Context, id int64) (bool, error)
}

// Gate is the MFA surface used around OAuth logins and bindings.
type Gate interface {
	VerifySudo(ctx context.Context, userID uuid.UUID, token mfa.SudoToken) (bool, error)
	IsEnrolled(ctx context.Context, userID uuid.UUID) (bool, error)
	CreateLoginToken(ctx context.Context, userID uuid.UUID) (mfa.LoginToken, error)
}

type SessionCreator interface {
	Create(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Tokens    TokenStore
	Repo      Repository
	MFA       Gate
	Sessions  SessionCreator
	Events    notify.Producer
	Settings  settings.Source
	Providers Registry
	// HTTPClient is used for token exchange and userinfo requests.
	HTTPClient *http.Client
	Logger     *slog.Logger
	Now        func() time.Time
}

// Coordinator drives the authorize redirect and the callback that follows.
type Coordinator struct {
	d Deps
}

func NewCoordinator(d Deps) *Coordinator {
	if d.Providers == nil {
		d.Providers = DefaultRegistry()
	}
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if d.Events == nil {
		d.Events = notify.Discard{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Coordinator{d: d}
}

// resolve returns the provider constants and configured credentials for name.
func (c *Coordinator) resolve(s settings.Settings, name string) (Provider, settings.ProviderCredentials, bool) {
	p, ok := c.d.Providers[name]
	if !ok {
		return Provider{}, settings.ProviderCredentials{}, false
	}
	creds, ok := s.Provider(name)
	return p, creds, ok
}

// CreateChallenge stores a fresh challenge and returns the provider authorize
// URL. Bind actions require a sudo token for the bound user.
func (c *Coordinator) CreateChallenge(ctx context.Context, provider string, action Action, redirectURI string, sudo *mfa.SudoToken) (ChallengeResult, error) {
	if action.Kind == ActionBind {
		if sudo == nil {
			return ChallengeResult{Outcome: ChallengeSudoFailed}, nil
		}
		ok, err := c.d.MFA.VerifySudo(ctx, action.UserID, *sudo)
		if err != nil {
			return ChallengeResult{}, err
		}
		if !ok {
			return ChallengeResult{Outcome: ChallengeSudoFailed}, nil
		}
	}

	s, err := c.d.Settings.Load(ctx)
	if err != nil {
		return ChallengeResult{}, err
	}
	p, creds, ok := c.resolve(s, provider)
	if !ok {
		return ChallengeResult{Outcome: ChallengeProviderNotSupported}, nil
	}

	state, err := newState()
	if err != nil {
		return ChallengeResult{}, err
	}
	ch := challenge{provider: p.Name, action: action, redirectURI: redirectURI}
	var opts []oauth2.AuthCodeOption
	if p.PKCE {
		ch.verifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(ch.verifier))
	}

	data, err := ch.encode()
	if err != nil {
		return ChallengeResult{}, err
	}
	if err := c.d.Tokens.Write(ctx, state.key(), data, s.OAuth.ChallengeExpiration.Std()); err != nil {
		return ChallengeResult{}, err
	}

	authURL := p.config(creds.ClientID, creds.ClientSecret, redirectURI).AuthCodeURL(state.String(), opts...)
	return ChallengeResult{Outcome: ChallengeRedirect, URL: authURL, State: state}, nil
}

// HandleCallback consumes the challenge for state and routes to login,
// registration or linking. caller is the signed-in user, if any.
func (c *Coordinator) HandleCallback(ctx context.Context, code string, state State, caller uuid.NullUUID) (CallbackResult, error) {
	data, found, err := c.d.Tokens.ReadAndDelete(ctx, state.key())
	if err != nil {
		return CallbackResult{}, err
	}
	if !found {
		return CallbackResult{Outcome: CallbackInvalidState}, nil
	}
	ch, err := decodeChallenge(data)
	if err != nil {
		return CallbackResult{}, err
	}

	if ch.action.Kind == ActionBind && caller.Valid && caller.UUID != ch.action.UserID {
		return CallbackResult{Outcome: CallbackUnmatched}, nil
	}

	tok, info, err := c.identify(ctx, ch, code)
	if err != nil {
		return CallbackResult{}, err
	}

	if ch.action.Kind == ActionBind {
		return c.link(ctx, ch, info)
	}
	return c.loginOrRegister(ctx, ch, tok, info)
}

// identify exchanges code and fetches the provider identity. Every failure
// here is an invariant error: the provider or its configuration misbehaved.
func (c *Coordinator) identify(ctx context.Context, ch challenge, code string) (*oauth2.Token, UserInfo, error) {
	s, err := c.d.Settings.Load(ctx)
	if err != nil {
		return nil, UserInfo{}, err
	}
	p, creds, ok := c.resolve(s, ch.provider)
	if !ok {
		return nil, UserInfo{}, faults.Invariant("oauth provider %q not configured", ch.provider)
	}

	var opts []oauth2.AuthCodeOption
	if ch.verifier != "" {
		opts = append(opts, oauth2.VerifierOption(ch.verifier))
	}
	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, c.d.HTTPClient)
	tok, err := p.config(creds.ClientID, creds.ClientSecret, ch.redirectURI).Exchange(exchangeCtx, code, opts...)
	if err != nil {
		return nil, UserInfo{}, faults.Invariant("oauth %s token exchange: %v", p.Name, err)
	}

	info, err := c.fetchUserInfo(ctx, p, tok.AccessToken)
	if err != nil {
		return nil, UserInfo{}, faults.Invariant("oauth %s userinfo: %v", p.Name, err)
	}
	return tok, info, nil
}

func (c *Coordinator) fetchUserInfo(ctx context.Context, p Provider, accessToken string) (UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return UserInfo{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "goIdentity")

	resp, err := c.d.HTTPClient.Do(req)
	if err != nil {
		return UserInfo{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, userInfoLimit))
	if err != nil {
		return UserInfo{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return UserInfo{}, fmt.Errorf("status %d", resp.StatusCode)
	}
	return p.parse(body)
}

func (c *Coordinator) loginOrRegister(ctx context.Context, ch challenge, tok *oauth2.Token, info UserInfo) (CallbackResult, error) {
	existing, err := c.d.Repo.OAuthAccountByProviderUser(ctx, ch.provider, info.ID)
	switch {
	case err == nil:
		return c.login(ctx, existing.UserID)
	case !errors.Is(err, store.ErrNotFound):
		return CallbackResult{}, err
	}

	if info.Email == "" {
		return CallbackResult{Outcome: CallbackEmailRequired}, nil
	}
	if _, err := c.d.Repo.AccountByEmail(ctx, info.Email); err == nil {
		return CallbackResult{Outcome: CallbackEmailTaken}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return CallbackResult{}, err
	}

	account, linked, err := c.d.Repo.RegisterOAuth(ctx, info.Email, info.Name, ch.provider, info.ID)
	if errors.Is(err, store.ErrConflict) {
		// lost a race with a concurrent registration of the same email
		return CallbackResult{Outcome: CallbackEmailTaken}, nil
	}
	if err != nil {
		return CallbackResult{}, err
	}

	event := notify.UserRegisterEvent{
		UserID:       account.ID,
		RegisteredAt: account.CreatedAt,
		RegisterMethod: notify.RegisterMethod{
			Kind:           notify.RegisteredByOAuth,
			OAuthAccountID: linked.ID,
			Provider:       ch.provider,
			AccessToken:    tok.AccessToken,
			RefreshToken:   tok.RefreshToken,
		},
	}
	if err := c.d.Events.Publish(ctx, event); err != nil {
		c.d.Logger.Warn("user register event not published", "component", "oauth", "user_id", account.ID, "error", err)
	}

	sid, err := c.d.Sessions.Create(ctx, account.ID)
	if err != nil {
		return CallbackResult{}, err
	}
	return CallbackResult{Outcome: CallbackRegistered, UserID: account.ID, SessionID: sid, Account: linked}, nil
}

func (c *Coordinator) login(ctx context.Context, userID uuid.UUID) (CallbackResult, error) {
	enrolled, err := c.d.MFA.IsEnrolled(ctx, userID)
	if err != nil {
		return CallbackResult{}, err
	}
	if enrolled {
		token, err := c.d.MFA.CreateLoginToken(ctx, userID)
		if err != nil {
			return CallbackResult{}, err
		}
		return CallbackResult{Outcome: CallbackMfaRequired, UserID: userID, MfaToken: token}, nil
	}
	sid, err := c.d.Sessions.Create(ctx, userID)
	if err != nil {
		return CallbackResult{}, err
	}
	return CallbackResult{Outcome: CallbackLoggedIn, UserID: userID, SessionID: sid}, nil
}

func (c *Coordinator) link(ctx context.Context, ch challenge, info UserInfo) (CallbackResult, error) {
	userID := ch.action.UserID
	_, err := c.d.Repo.OAuthAccountByProviderUser(ctx, ch.provider, info.ID)
	if err == nil {
		return CallbackResult{Outcome: CallbackAlreadyExists, UserID: userID}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return CallbackResult{}, err
	}

	linked, err := c.d.Repo.AppendOAuthAccount(ctx, userID, ch.provider, info.ID)
	if errors.Is(err, store.ErrConflict) {
		return CallbackResult{Outcome: CallbackAlreadyExists, UserID: userID}, nil
	}
	if err != nil {
		return CallbackResult{}, err
	}
	return CallbackResult{Outcome: CallbackLinked, UserID: userID, Account: linked}, nil
}

// Unlink removes userID's account for provider.
func (c *Coordinator) Unlink(ctx context.Context, userID uuid.UUID, sudo mfa.SudoToken, provider string) (UnlinkOutcome, error) {
	ok, err := c.d.MFA.VerifySudo(ctx, userID, sudo)
	if err != nil {
		return 0, err
	}
	if !ok {
		return UnlinkSudoFailed, nil
	}

	accounts, err := c.d.Repo.OAuthAccountsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, a := range accounts {
		if a.Provider != provider {
			continue
		}
		deleted, err := c.d.Repo.DeleteOAuthAccount(ctx, a.ID)
		if err != nil {
			return 0, err
		}
		if deleted {
			return UnlinkSuccess, nil
		}
	}
	return UnlinkNotFound, nil
}

// ListAccounts returns the provider accounts bound to userID.
func (c *Coordinator) ListAccounts(ctx context.Context, userID uuid.UUID) ([]store.OAuthAccount, error) {
	return c.d.Repo.OAuthAccountsByUser(ctx, userID)
}
