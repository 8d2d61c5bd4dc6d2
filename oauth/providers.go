package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/oauth2"
)

const (
	Google    = "google"
	Microsoft = "microsoft"
	Github    = "github"
	Discord   = "discord"
)

// UserInfo is the provider identity normalized across providers.
type UserInfo struct {
	ID            string
	Email         string
	EmailVerified *bool
	Name          string
	Picture       string
}

// Provider holds the fixed endpoints of one identity provider. Client
// credentials come from settings at request time.
type Provider struct {
	Name        string
	Endpoint    oauth2.Endpoint
	UserInfoURL string
	Scopes      []string
	PKCE        bool
	// parse maps the provider's userinfo body to UserInfo.
	parse func([]byte) (UserInfo, error)
}

// config builds the oauth2 client for one challenge.
func (p Provider) config(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     p.Endpoint,
		RedirectURL:  redirectURI,
		Scopes:       p.Scopes,
	}
}

// Registry maps provider names to their constants.
type Registry map[string]Provider

// DefaultRegistry returns the supported providers with their public endpoints.
func DefaultRegistry() Registry {
	return Registry{
		Google: {
			Name: Google,
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://accounts.google.com/o/oauth2/v2/auth",
				TokenURL:  "https://www.googleapis.com/oauth2/v3/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			UserInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
			Scopes: []string{
				"openid",
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			PKCE:  true,
			parse: parseGoogle,
		},
		Microsoft: {
			Name: Microsoft,
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
				TokenURL:  "https://login.microsoftonline.com/common/oauth2/v2.0/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			UserInfoURL: "https://graph.microsoft.com/oidc/userinfo",
			Scopes:      []string{"openid", "email", "profile", "offline_access"},
			PKCE:        true,
			parse:       parseMicrosoft,
		},
		Github: {
			Name: Github,
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://github.com/login/oauth/authorize",
				TokenURL:  "https://github.com/login/oauth/access_token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			UserInfoURL: "https://api.github.com/user",
			Scopes:      []string{"read:user", "user:email"},
			parse:       parseGithub,
		},
		Discord: {
			Name: Discord,
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://discord.com/api/oauth2/authorize",
				TokenURL:  "https://discord.com/api/oauth2/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			UserInfoURL: "https://discord.com/api/users/@me",
			Scopes:      []string{"identify", "email"},
			parse:       parseDiscord,
		},
	}
}

// WithEndpoints returns a copy of r with name pointed at other endpoints.
// Unknown names are left out.
func (r Registry) WithEndpoints(name string, endpoint oauth2.Endpoint, userInfoURL string) Registry {
	out := make(Registry, len(r))
	for k, v := range r {
		out[k] = v
	}
	if p, ok := out[name]; ok {
		p.Endpoint = endpoint
		p.UserInfoURL = userInfoURL
		out[name] = p
	}
	return out
}

var errNoSubject = errors.New("userinfo has no subject")

func parseGoogle(body []byte) (UserInfo, error) {
	var v struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return UserInfo{}, err
	}
	if v.Sub == "" {
		return UserInfo{}, errNoSubject
	}
	return UserInfo{ID: v.Sub, Email: v.Email, EmailVerified: v.EmailVerified, Name: v.Name, Picture: v.Picture}, nil
}

func parseMicrosoft(body []byte) (UserInfo, error) {
	var v struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return UserInfo{}, err
	}
	if v.Sub == "" {
		return UserInfo{}, errNoSubject
	}
	return UserInfo{ID: v.Sub, Email: v.Email, Name: v.Name, Picture: v.Picture}, nil
}

func parseGithub(body []byte) (UserInfo, error) {
	var v struct {
		ID        int64  `json:"id"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return UserInfo{}, err
	}
	if v.ID == 0 {
		return UserInfo{}, errNoSubject
	}
	return UserInfo{ID: strconv.FormatInt(v.ID, 10), Email: v.Email, Name: v.Name, Picture: v.AvatarURL}, nil
}

func parseDiscord(body []byte) (UserInfo, error) {
	var v struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		Verified   *bool  `json:"verified"`
		Username   string `json:"username"`
		GlobalName string `json:"global_name"`
		Avatar     string `json:"avatar"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return UserInfo{}, err
	}
	if v.ID == "" {
		return UserInfo{}, errNoSubject
	}
	info := UserInfo{ID: v.ID, Email: v.Email, EmailVerified: v.Verified, Name: v.GlobalName}
	if info.Name == "" {
		info.Name = v.Username
	}
	if v.Avatar != "" {
		info.Picture = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", v.ID, v.Avatar)
	}
	return info, nil
}
