package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/session"
)

// SessionHeader carries a raw session id.
const SessionHeader = "x-user-authorization"

// Authenticator is the part of *goIdentity.Engine the guard needs.
type Authenticator interface {
	AuthenticateSession(ctx context.Context, sessionID uuid.UUID) (*session.Session, error)
	AuthenticateAccessToken(ctx context.Context, token string) (*session.Session, error)
}

type sessionContextKey struct{}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	return s, ok
}

// UserIDFromContext returns the authenticated user, or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if s, ok := SessionFromContext(ctx); ok {
		return s.UserID
	}
	return uuid.Nil
}

// RequireSession rejects requests without a live session. The session header
// wins when both credentials are present.
func RequireSession(engine Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sess, err := authenticate(r, engine)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var errNoCredentials = errors.New("no credentials")

func authenticate(r *http.Request, engine Authenticator) (*session.Session, error) {
	if raw := strings.TrimSpace(r.Header.Get(SessionHeader)); raw != "" {
		id, err := session.ParseID(raw)
		if err != nil {
			return nil, goIdentity.ErrSessionNotFound
		}
		return engine.AuthenticateSession(r.Context(), id)
	}
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return engine.AuthenticateAccessToken(r.Context(), token)
	}
	return nil, errNoCredentials
}

func writeAuthError(w http.ResponseWriter, err error) {
	if goIdentity.IsRetryable(err) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	if errors.Is(err, goIdentity.ErrInvariant) {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// ClientInfo records the caller's address and User-Agent for audit events.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ctx = goIdentity.WithClientIP(ctx, host)
		} else if r.RemoteAddr != "" {
			ctx = goIdentity.WithClientIP(ctx, r.RemoteAddr)
		}
		if ua := r.UserAgent(); ua != "" {
			ctx = goIdentity.WithUserAgent(ctx, ua)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
