package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goIdentity/settings"
)

var (
	// ErrNotFound is returned when the session does not exist or has expired.
	ErrNotFound = errors.New("session not found")
	// ErrTerminated is returned by Authenticate for a session flagged terminated.
	ErrTerminated = errors.New("session terminated")
	// ErrInvalidID is returned by ParseID for anything that is not a UUID.
	ErrInvalidID = errors.New("invalid session id")
)

// TokenStore is the slice of the ephemeral token store the Manager uses.
type TokenStore interface {
	Rewrite(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	WriteIndexed(ctx context.Context, key string, value []byte, ttl time.Duration, index, member string) error
	Read(ctx context.Context, key string) ([]byte, bool, error)
	ReadMany(ctx context.Context, keys []string) ([][]byte, error)
	DeleteIndexed(ctx context.Context, key, index, member string) (bool, error)
	RemoveMember(ctx context.Context, key string, members ...string) error
	Members(ctx context.Context, key string) ([]string, error)
}

// Options tune a Manager. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
}

// Manager owns the session lifecycle and the per-user session index.
type Manager struct {
	store    TokenStore
	settings settings.Source
	logger   *slog.Logger
	now      func() time.Time
}

func NewManager(store TokenStore, src settings.Source, opts Options) *Manager {
	m := &Manager{store: store, settings: src, logger: opts.Logger, now: opts.Now}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// ParseID parses the textual session id sent by clients.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidID
	}
	return id, nil
}

func (m *Manager) ttl(ctx context.Context) (time.Duration, error) {
	s, err := m.settings.Load(ctx)
	if err != nil {
		return 0, err
	}
	return s.SessionTTL.Std(), nil
}

// Create starts a session for userID and records it in the user's index.
func (m *Manager) Create(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	ttl, err := m.ttl(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	s := &Session{
		ID:            uuid.New(),
		UserID:        userID,
		LastRefreshed: m.now(),
	}
	data, err := Encode(s)
	if err != nil {
		return uuid.Nil, err
	}
	if err := m.store.WriteIndexed(ctx, recordKey(s.ID), data, ttl, indexKey(userID), s.ID.String()); err != nil {
		return uuid.Nil, err
	}
	return s.ID, nil
}

// Get reads a session without renewing it.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	data, found, err := m.store.Read(ctx, recordKey(id))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	s, err := Decode(data)
	if err != nil {
		return nil, err
	}
	s.ID = id
	return s, nil
}

// Refresh stamps last_refreshed and renews the TTL. It costs one read and one
// conditional write; id and user are never changed. A session terminated
// between the two stays terminated and reads as ErrNotFound.
func (m *Manager) Refresh(ctx context.Context, id uuid.UUID) (*Session, error) {
	ttl, err := m.ttl(ctx)
	if err != nil {
		return nil, err
	}
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.touch(ctx, s, ttl); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) touch(ctx context.Context, s *Session, ttl time.Duration) error {
	s.LastRefreshed = m.now()
	data, err := Encode(s)
	if err != nil {
		return err
	}
	ok, err := m.store.Rewrite(ctx, recordKey(s.ID), data, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Authenticate rejects terminated sessions and refreshes live ones. A request
// is authenticated iff this returns a nil error.
func (m *Manager) Authenticate(ctx context.Context, id uuid.UUID) (*Session, error) {
	ttl, err := m.ttl(ctx)
	if err != nil {
		return nil, err
	}
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Terminated {
		return nil, ErrTerminated
	}
	if err := m.touch(ctx, s, ttl); err != nil {
		return nil, err
	}
	return s, nil
}

// Terminate removes the session and its index entry. An absent session is a
// no-op.
func (m *Manager) Terminate(ctx context.Context, id uuid.UUID) error {
	s, err := m.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = m.store.DeleteIndexed(ctx, recordKey(id), indexKey(s.UserID), id.String())
	return err
}

// TerminateAll ends every live session of userID and removes their index
// entries. It returns how many sessions were terminated.
func (m *Manager) TerminateAll(ctx context.Context, userID uuid.UUID) (int, error) {
	sessions, err := m.List(ctx, userID)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, s := range sessions {
		existed, err := m.store.DeleteIndexed(ctx, recordKey(s.ID), indexKey(userID), s.ID.String())
		if err != nil {
			return n, err
		}
		if existed {
			n++
		}
	}
	return n, nil
}

// List returns the live sessions of userID, most recently refreshed first.
// Index entries whose record has expired are skipped and pruned best-effort.
func (m *Manager) List(ctx context.Context, userID uuid.UUID) ([]*Session, error) {
	members, err := m.store.Members(ctx, indexKey(userID))
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(members))
	keys := make([]string, 0, len(members))
	var stale []string
	for _, member := range members {
		id, err := uuid.Parse(member)
		if err != nil {
			stale = append(stale, member)
			continue
		}
		ids = append(ids, id)
		keys = append(keys, recordKey(id))
	}

	values, err := m.store.ReadMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]*Session, 0, len(values))
	for i, data := range values {
		if data == nil {
			stale = append(stale, ids[i].String())
			continue
		}
		s, err := Decode(data)
		if err != nil {
			m.logger.Warn("skipping undecodable session", "component", "session", "session_id", ids[i], "error", err)
			continue
		}
		s.ID = ids[i]
		out = append(out, s)
	}

	if len(stale) > 0 {
		if err := m.store.RemoveMember(ctx, indexKey(userID), stale...); err != nil {
			m.logger.Warn("session index prune failed", "component", "session", "user_id", userID, "error", err)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastRefreshed.After(out[j].LastRefreshed)
	})
	return out, nil
}
