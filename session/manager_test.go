package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goIdentity/internal/stores"
	"github.com/MrEthical07/goIdentity/settings"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis, *stores.Redis, *testClock) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := settings.Default()
	cfg.SessionTTL = settings.Duration(time.Hour)

	store := stores.NewRedis(rdb, "")
	clock := &testClock{t: time.UnixMilli(1_700_000_000_000)}
	m := NewManager(store, settings.Static(cfg), Options{Now: clock.Now})
	return m, mr, store, clock
}

func TestCreateWritesRecordAndIndex(t *testing.T) {
	m, mr, _, clock := newTestManager(t)
	ctx := context.Background()
	user := uuid.New()

	id, err := m.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id.Version() != 4 {
		t.Fatalf("expected UUIDv4, got version %d", id.Version())
	}
	if ttl := mr.TTL("session:" + id.String()); ttl != time.Hour {
		t.Fatalf("expected 1h TTL, got %v", ttl)
	}
	if ok, _ := mr.SIsMember("user_sessions_set:"+user.String(), id.String()); !ok {
		t.Fatal("expected session id in user index")
	}

	s, err := m.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.ID != id || s.UserID != user || s.Terminated || !s.LastRefreshed.Equal(clock.t) {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestRefreshKeepsIdentityAndExtendsTTL(t *testing.T) {
	m, mr, _, clock := newTestManager(t)
	ctx := context.Background()
	user := uuid.New()

	id, err := m.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	mr.FastForward(50 * time.Minute)
	clock.t = clock.t.Add(50 * time.Minute)

	s, err := m.Refresh(ctx, id)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if s.ID != id || s.UserID != user {
		t.Fatalf("refresh changed identity: %+v", s)
	}
	if !s.LastRefreshed.Equal(clock.t) {
		t.Fatalf("expected last_refreshed %v, got %v", clock.t, s.LastRefreshed)
	}
	if ttl := mr.TTL("session:" + id.String()); ttl != time.Hour {
		t.Fatalf("expected TTL renewed to 1h, got %v", ttl)
	}

	// without the refresh the session would be gone by now
	mr.FastForward(30 * time.Minute)
	if _, err := m.Authenticate(ctx, id); err != nil {
		t.Fatalf("Authenticate after renewal: %v", err)
	}
}

func TestRefreshMissingIsNotFound(t *testing.T) {
	m, mr, _, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Refresh(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	id, _ := m.Create(ctx, uuid.New())
	mr.FastForward(2 * time.Hour)
	if _, err := m.Authenticate(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be ErrNotFound, got %v", err)
	}
}

func TestTerminatedSessionNeverAuthenticates(t *testing.T) {
	m, _, store, clock := newTestManager(t)
	ctx := context.Background()
	user := uuid.New()
	id := uuid.New()

	data, err := Encode(&Session{UserID: user, Terminated: true, LastRefreshed: clock.t})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := store.WriteIndexed(ctx, recordKey(id), data, time.Hour, indexKey(user), id.String()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := m.Authenticate(ctx, id); !errors.Is(err, ErrTerminated) {
		t.Fatalf("expected ErrTerminated, got %v", err)
	}
	// still rejected on the next request
	if _, err := m.Authenticate(ctx, id); !errors.Is(err, ErrTerminated) {
		t.Fatalf("expected ErrTerminated on retry, got %v", err)
	}
}

func TestTerminateRemovesRecordAndIndexEntry(t *testing.T) {
	m, mr, _, _ := newTestManager(t)
	ctx := context.Background()
	user := uuid.New()

	id, _ := m.Create(ctx, user)
	if err := m.Terminate(ctx, id); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if _, err := m.Authenticate(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected terminated session to be gone, got %v", err)
	}
	if ok, _ := mr.SIsMember("user_sessions_set:"+user.String(), id.String()); ok {
		t.Fatal("expected index entry removed")
	}
	if err := m.Terminate(ctx, id); err != nil {
		t.Fatalf("second Terminate should be a no-op, got %v", err)
	}
}

func TestListSortsAndSkipsStale(t *testing.T) {
	m, mr, _, clock := newTestManager(t)
	ctx := context.Background()
	user := uuid.New()

	first, _ := m.Create(ctx, user)
	clock.t = clock.t.Add(time.Minute)
	second, _ := m.Create(ctx, user)
	clock.t = clock.t.Add(time.Minute)
	third, _ := m.Create(ctx, user)

	// touching the first makes it the most recent
	clock.t = clock.t.Add(time.Minute)
	if _, err := m.Refresh(ctx, first); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	mr.Del("session:" + second.String())
	_, _ = mr.SAdd("user_sessions_set:"+user.String(), "garbage")

	list, err := m.List(ctx, user)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != first || list[1].ID != third {
		t.Fatalf("unexpected list order: %+v", list)
	}

	members, _ := mr.Members("user_sessions_set:" + user.String())
	if len(members) != 2 {
		t.Fatalf("expected stale members pruned, have %v", members)
	}
}

func TestTerminateAll(t *testing.T) {
	m, mr, _, _ := newTestManager(t)
	ctx := context.Background()
	user := uuid.New()
	other := uuid.New()

	a, _ := m.Create(ctx, user)
	b, _ := m.Create(ctx, user)
	keep, _ := m.Create(ctx, other)

	n, err := m.TerminateAll(ctx, user)
	if err != nil {
		t.Fatalf("TerminateAll: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 terminated, got %d", n)
	}
	for _, id := range []uuid.UUID{a, b} {
		if _, err := m.Authenticate(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("session %s still authenticates: %v", id, err)
		}
	}
	for _, id := range []uuid.UUID{a, b} {
		if ok, _ := mr.SIsMember("user_sessions_set:"+user.String(), id.String()); ok {
			t.Fatalf("index still lists %s", id)
		}
	}
	if _, err := m.Authenticate(ctx, keep); err != nil {
		t.Fatalf("other user's session affected: %v", err)
	}
}

// hookStore runs a callback once, right after the wrapped call returns.
type hookStore struct {
	*stores.Redis
	afterRead     func()
	afterReadMany func()
}

func (h *hookStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	data, found, err := h.Redis.Read(ctx, key)
	if fn := h.afterRead; fn != nil {
		h.afterRead = nil
		fn()
	}
	return data, found, err
}

func (h *hookStore) ReadMany(ctx context.Context, keys []string) ([][]byte, error) {
	values, err := h.Redis.ReadMany(ctx, keys)
	if fn := h.afterReadMany; fn != nil {
		h.afterReadMany = nil
		fn()
	}
	return values, err
}

func TestRefreshDoesNotResurrectTerminatedSession(t *testing.T) {
	m, mr, store, clock := newTestManager(t)
	ctx := context.Background()
	user := uuid.New()

	id, err := m.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	hooked := &hookStore{Redis: store}
	racing := NewManager(hooked, settings.Static(settings.Default()), Options{Now: clock.Now})
	hooked.afterRead = func() {
		if n, err := m.TerminateAll(ctx, user); err != nil || n != 1 {
			t.Errorf("TerminateAll = %d, %v", n, err)
		}
	}

	if _, err := racing.Authenticate(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after concurrent termination, got %v", err)
	}
	if mr.Exists("session:" + id.String()) {
		t.Fatal("terminated session record was written back")
	}
	if _, err := m.Authenticate(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("terminated session authenticates: %v", err)
	}
}

func TestTerminateAllKeepsConcurrentSessionIndexed(t *testing.T) {
	m, mr, store, clock := newTestManager(t)
	ctx := context.Background()
	user := uuid.New()

	old, err := m.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	hooked := &hookStore{Redis: store}
	racing := NewManager(hooked, settings.Static(settings.Default()), Options{Now: clock.Now})
	var fresh uuid.UUID
	hooked.afterReadMany = func() {
		id, err := m.Create(ctx, user)
		if err != nil {
			t.Errorf("Create: %v", err)
		}
		fresh = id
	}

	n, err := racing.TerminateAll(ctx, user)
	if err != nil || n != 1 {
		t.Fatalf("TerminateAll = %d, %v", n, err)
	}
	if mr.Exists("session:" + old.String()) {
		t.Fatal("snapshotted session survived")
	}
	if ok, _ := mr.SIsMember("user_sessions_set:"+user.String(), fresh.String()); !ok {
		t.Fatal("concurrently created session lost its index entry")
	}

	n, err = m.TerminateAll(ctx, user)
	if err != nil || n != 1 {
		t.Fatalf("second TerminateAll = %d, %v", n, err)
	}
	if _, err := m.Authenticate(ctx, fresh); !errors.Is(err, ErrNotFound) {
		t.Fatalf("session outlived TerminateAll: %v", err)
	}
}

func TestTerminatedFlagIsCheckedBeforeRenewal(t *testing.T) {
	m, mr, store, clock := newTestManager(t)
	ctx := context.Background()
	user := uuid.New()
	id := uuid.New()

	data, err := Encode(&Session{UserID: user, Terminated: true, LastRefreshed: clock.t})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := store.WriteIndexed(ctx, recordKey(id), data, time.Minute, indexKey(user), id.String()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := m.Authenticate(ctx, id); !errors.Is(err, ErrTerminated) {
		t.Fatalf("expected ErrTerminated, got %v", err)
	}
	if ttl := mr.TTL("session:" + id.String()); ttl != time.Minute {
		t.Fatalf("terminated session TTL renewed to %v", ttl)
	}
}

func TestParseID(t *testing.T) {
	if _, err := ParseID("not-a-uuid"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := ParseID(uuid.Nil.String()); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected nil uuid rejected, got %v", err)
	}
	id := uuid.New()
	if got, err := ParseID(id.String()); err != nil || got != id {
		t.Fatalf("ParseID = %v, %v", got, err)
	}
}
