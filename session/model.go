package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is a login session. The record lives in redis under session:<id>
// and its TTL is renewed on every authenticated request.
type Session struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Terminated    bool
	LastRefreshed time.Time
}

// Active reports whether the session may authenticate a request.
func (s *Session) Active() bool {
	return s != nil && !s.Terminated
}

func recordKey(id uuid.UUID) string {
	return "session:" + id.String()
}

func indexKey(userID uuid.UUID) string {
	return "user_sessions_set:" + userID.String()
}
