package stores

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goIdentity/faults"
)

const component = "redis"

// deleteIndexedScript removes the index entry and the record together and
// reports whether the record existed.
var deleteIndexedScript = redis.NewScript(`
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
end
return existed
`)

// Redis is the ephemeral token store. A missing key is reported as not found,
// never as an error; every transport failure is wrapped as faults.ErrUnavailable.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a store over client. A non-empty prefix is prepended to
// every key as "<prefix>:".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Client exposes the underlying connection for components that share it.
func (r *Redis) Client() redis.UniversalClient {
	return r.client
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// Write stores value under key with ttl.
func (r *Redis) Write(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return faults.Unavailable(component, err)
	}
	return nil
}

// Rewrite replaces the value under key and resets its TTL only if key still
// exists (SET XX). It reports false when the key was gone.
func (r *Redis) Rewrite(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetXX(ctx, r.key(key), value, ttl).Result()
	if err != nil {
		return false, faults.Unavailable(component, err)
	}
	return ok, nil
}

// WriteIndexed stores value under key and adds member to the set at index in
// one MULTI/EXEC.
func (r *Redis) WriteIndexed(ctx context.Context, key string, value []byte, ttl time.Duration, index, member string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(key), value, ttl)
		pipe.SAdd(ctx, r.key(index), member)
		return nil
	})
	if err != nil {
		return faults.Unavailable(component, err)
	}
	return nil
}

// Read returns the value stored under key.
func (r *Redis) Read(ctx context.Context, key string) ([]byte, bool, error) {
	return r.result(r.client.Get(ctx, r.key(key)).Bytes())
}

// ReadAndDelete atomically reads and removes key with GETDEL. Of any number of
// concurrent callers at most one observes found == true.
func (r *Redis) ReadAndDelete(ctx context.Context, key string) ([]byte, bool, error) {
	return r.result(r.client.GetDel(ctx, r.key(key)).Bytes())
}

func (r *Redis) result(data []byte, err error) ([]byte, bool, error) {
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, faults.Unavailable(component, err)
	}
	return data, true, nil
}

// Delete removes keys and reports whether any existed.
func (r *Redis) Delete(ctx context.Context, keys ...string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	n, err := r.client.Del(ctx, full...).Result()
	if err != nil {
		return false, faults.Unavailable(component, err)
	}
	return n > 0, nil
}

// DeleteIndexed removes key and drops member from the set at index in one
// script call. Deleting an absent key is not an error.
func (r *Redis) DeleteIndexed(ctx context.Context, key, index, member string) (bool, error) {
	n, err := deleteIndexedScript.Run(ctx, r.client, []string{r.key(key), r.key(index)}, member).Int64()
	if err != nil {
		return false, faults.Unavailable(component, err)
	}
	return n == 1, nil
}

// Expire renews the TTL of key.
func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := r.client.Expire(ctx, r.key(key), ttl).Err(); err != nil {
		return faults.Unavailable(component, err)
	}
	return nil
}

// AddMember adds member to the set at key.
func (r *Redis) AddMember(ctx context.Context, key, member string) error {
	if err := r.client.SAdd(ctx, r.key(key), member).Err(); err != nil {
		return faults.Unavailable(component, err)
	}
	return nil
}

// RemoveMember removes members from the set at key.
func (r *Redis) RemoveMember(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := r.client.SRem(ctx, r.key(key), args...).Err(); err != nil {
		return faults.Unavailable(component, err)
	}
	return nil
}

// Members lists the set at key. A missing set is empty.
func (r *Redis) Members(ctx context.Context, key string) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.key(key)).Result()
	if err != nil {
		return nil, faults.Unavailable(component, err)
	}
	return members, nil
}

// ReadMany fetches keys in one pipeline. The result is aligned with keys; a
// missing key yields a nil entry.
func (r *Redis) ReadMany(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.Get(ctx, r.key(k))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, faults.Unavailable(component, err)
	}

	out := make([][]byte, len(keys))
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, faults.Unavailable(component, err)
		}
		out[i] = data
	}
	return out, nil
}

// TTL reports the remaining lifetime of key; zero when absent or persistent.
func (r *Redis) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.client.PTTL(ctx, r.key(key)).Result()
	if err != nil {
		return 0, faults.Unavailable(component, err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}
