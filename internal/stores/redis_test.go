package stores

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goIdentity/faults"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedis(client, "")
}

func TestWriteReadExpire(t *testing.T) {
	mr, s := newTestRedis(t)
	ctx := context.Background()

	if err := s.Write(ctx, "sudo:ab", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, found, err := s.Read(ctx, "sudo:ab")
	if err != nil || !found || string(got) != "v1" {
		t.Fatalf("Read = %q, %v, %v", got, found, err)
	}

	mr.FastForward(2 * time.Minute)
	_, found, err = s.Read(ctx, "sudo:ab")
	if err != nil || found {
		t.Fatalf("expected expired key to be not found, got found=%v err=%v", found, err)
	}
}

func TestReadAndDeleteIsSingleUse(t *testing.T) {
	_, s := newTestRedis(t)
	ctx := context.Background()

	if err := s.Write(ctx, "mfa_login:x", []byte("user"), time.Minute); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, found, err := s.ReadAndDelete(ctx, "mfa_login:x")
			if err != nil {
				t.Errorf("ReadAndDelete: %v", err)
				return
			}
			if found {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if winners.Load() != 1 {
		t.Fatalf("expected exactly one consumer, got %d", winners.Load())
	}
}

func TestSetPrimitivesAndReadMany(t *testing.T) {
	mr, s := newTestRedis(t)
	ctx := context.Background()

	if err := s.WriteIndexed(ctx, "session:a", []byte("A"), time.Hour, "user_sessions_set:u", "a"); err != nil {
		t.Fatalf("WriteIndexed: %v", err)
	}
	if err := s.AddMember(ctx, "user_sessions_set:u", "b"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	members, err := s.Members(ctx, "user_sessions_set:u")
	if err != nil || len(members) != 2 {
		t.Fatalf("Members = %v, %v", members, err)
	}

	values, err := s.ReadMany(ctx, []string{"session:a", "session:b"})
	if err != nil {
		t.Fatalf("ReadMany: %v", err)
	}
	if string(values[0]) != "A" || values[1] != nil {
		t.Fatalf("unexpected ReadMany result %q", values)
	}

	if err := s.RemoveMember(ctx, "user_sessions_set:u", "b"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if ok, _ := mr.SIsMember("user_sessions_set:u", "b"); ok {
		t.Fatal("expected member to be removed")
	}

	existed, err := s.Delete(ctx, "session:a", "user_sessions_set:u")
	if err != nil || !existed {
		t.Fatalf("Delete = %v, %v", existed, err)
	}
	members, _ = s.Members(ctx, "user_sessions_set:u")
	if len(members) != 0 {
		t.Fatalf("expected empty set, got %v", members)
	}
}

func TestRewriteOnlyTouchesLiveKeys(t *testing.T) {
	mr, s := newTestRedis(t)
	ctx := context.Background()

	ok, err := s.Rewrite(ctx, "session:gone", []byte("v"), time.Hour)
	if err != nil || ok {
		t.Fatalf("Rewrite on missing key = %v, %v", ok, err)
	}
	if mr.Exists("session:gone") {
		t.Fatal("Rewrite recreated a missing key")
	}

	if err := s.Write(ctx, "session:live", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ok, err = s.Rewrite(ctx, "session:live", []byte("v2"), time.Hour)
	if err != nil || !ok {
		t.Fatalf("Rewrite on live key = %v, %v", ok, err)
	}
	if got, _ := mr.Get("session:live"); got != "v2" {
		t.Fatalf("expected v2, got %q", got)
	}
	if ttl := mr.TTL("session:live"); ttl != time.Hour {
		t.Fatalf("expected TTL reset to 1h, got %v", ttl)
	}
}

func TestDeleteIndexedDropsRecordAndMember(t *testing.T) {
	mr, s := newTestRedis(t)
	ctx := context.Background()

	if err := s.WriteIndexed(ctx, "session:a", []byte("A"), time.Hour, "user_sessions_set:u", "a"); err != nil {
		t.Fatalf("WriteIndexed: %v", err)
	}
	existed, err := s.DeleteIndexed(ctx, "session:a", "user_sessions_set:u", "a")
	if err != nil || !existed {
		t.Fatalf("DeleteIndexed = %v, %v", existed, err)
	}
	if mr.Exists("session:a") {
		t.Fatal("expected record to be deleted")
	}
	if ok, _ := mr.SIsMember("user_sessions_set:u", "a"); ok {
		t.Fatal("expected index member to be removed")
	}

	existed, err = s.DeleteIndexed(ctx, "session:a", "user_sessions_set:u", "a")
	if err != nil || existed {
		t.Fatalf("second DeleteIndexed = %v, %v", existed, err)
	}
}

func TestPrefixAppliesToEveryKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	defer mr.Close()
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "tenant1")

	if err := s.Write(context.Background(), "sudo:k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !mr.Exists("tenant1:sudo:k") {
		t.Fatalf("expected prefixed key, have %v", mr.Keys())
	}
}

func TestBackendFailureIsRetryable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "")
	mr.Close()

	_, _, err = s.ReadAndDelete(context.Background(), "any")
	if !errors.Is(err, faults.ErrUnavailable) || !faults.Retryable(err) {
		t.Fatalf("expected retryable unavailable error, got %v", err)
	}
}

func TestRecordRoundTripAndCorruption(t *testing.T) {
	var fixed [4]byte
	data, err := NewRecord(1).Int64(-7).Bool(true).Fixed([]byte{1, 2, 3, 4}).String("user").Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	rd := OpenRecord(data, 1)
	n, b := rd.Int64(), rd.Bool()
	rd.Fixed(fixed[:])
	s := rd.String()
	if err := rd.Err(); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != -7 || !b || fixed != [4]byte{1, 2, 3, 4} || s != "user" {
		t.Fatalf("unexpected decode: %d %v %v %q", n, b, fixed, s)
	}

	if err := OpenRecord(data, 2).Err(); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected version mismatch to be corrupt, got %v", err)
	}
	short := OpenRecord(data[:5], 1)
	short.Int64()
	if err := short.Err(); !errors.Is(err, faults.ErrInvariant) {
		t.Fatalf("expected truncated record to be an invariant failure, got %v", err)
	}
	trailing := OpenRecord(append(append([]byte{}, data...), 0xFF), 1)
	trailing.Int64()
	trailing.Bool()
	trailing.Fixed(fixed[:])
	_ = trailing.String()
	if err := trailing.Err(); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected trailing bytes to be rejected, got %v", err)
	}
}
