package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/faults"
	"github.com/MrEthical07/goIdentity/session"
)

type fakeEngine struct {
	sessions map[uuid.UUID]*session.Session
	tokens   map[string]*session.Session
	err      error
}

func (f *fakeEngine) AuthenticateSession(_ context.Context, id uuid.UUID) (*session.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, goIdentity.ErrSessionNotFound
}

func (f *fakeEngine) AuthenticateAccessToken(_ context.Context, token string) (*session.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.tokens[token]; ok {
		return s, nil
	}
	return nil, goIdentity.ErrTokenInvalid
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	_, _ = fmt.Fprint(w, UserIDFromContext(r.Context()))
}

func TestRequireSession(t *testing.T) {
	byHeader := &session.Session{ID: uuid.New(), UserID: uuid.New()}
	byToken := &session.Session{ID: uuid.New(), UserID: uuid.New()}
	engine := &fakeEngine{
		sessions: map[uuid.UUID]*session.Session{byHeader.ID: byHeader},
		tokens:   map[string]*session.Session{"good-token": byToken},
	}
	h := RequireSession(engine)(http.HandlerFunc(echoUser))

	cases := []struct {
		name     string
		headers  map[string]string
		wantCode int
		wantUser uuid.UUID
	}{
		{"no credentials", nil, http.StatusUnauthorized, uuid.Nil},
		{"session header", map[string]string{SessionHeader: byHeader.ID.String()}, http.StatusOK, byHeader.UserID},
		{"malformed session header", map[string]string{SessionHeader: "nope"}, http.StatusUnauthorized, uuid.Nil},
		{"unknown session", map[string]string{SessionHeader: uuid.NewString()}, http.StatusUnauthorized, uuid.Nil},
		{"bearer token", map[string]string{"Authorization": "Bearer good-token"}, http.StatusOK, byToken.UserID},
		{"bad bearer", map[string]string{"Authorization": "Bearer bad"}, http.StatusUnauthorized, uuid.Nil},
		{"basic auth", map[string]string{"Authorization": "Basic Zm9vOmJhcg=="}, http.StatusUnauthorized, uuid.Nil},
		{"header wins", map[string]string{SessionHeader: byHeader.ID.String(), "Authorization": "Bearer good-token"}, http.StatusOK, byHeader.UserID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tc.wantCode)
			}
			if tc.wantCode == http.StatusOK && rec.Body.String() != tc.wantUser.String() {
				t.Fatalf("user = %q, want %s", rec.Body.String(), tc.wantUser)
			}
		})
	}
}

func TestRequireSessionBackendDown(t *testing.T) {
	engine := &fakeEngine{err: faults.Unavailable("redis", fmt.Errorf("dial tcp: refused"))}
	h := RequireSession(engine)(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(SessionHeader, uuid.NewString())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503", rec.Code)
	}
}

func TestRequireSessionNilEngine(t *testing.T) {
	h := RequireSession(nil)(http.HandlerFunc(echoUser))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestClientInfo(t *testing.T) {
	var gotIP, gotUA string
	h := ClientInfo(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP, gotUA = goIdentity.ClientInfoFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:52311"
	req.Header.Set("User-Agent", "test-agent")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if gotIP != "198.51.100.4" || gotUA != "test-agent" {
		t.Fatalf("got %q, %q", gotIP, gotUA)
	}
}
