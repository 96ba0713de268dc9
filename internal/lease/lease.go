// Package lease elects one instance to run a periodic task at a time.
package lease

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Local always grants the lease. It is used when the service runs as a single instance.
type Local struct{}

func (Local) Acquire(context.Context, string, time.Duration) (bool, error) { return true, nil }

func (Local) Release(context.Context, string) error { return nil }

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript refreshes the TTL only if this holder still owns the key.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis grants a lease by SET NX PX on a shared key. A holder that dies keeps
// the lease only until the TTL runs out.
type Redis struct {
	rdb    *redis.Client
	prefix string
	holder string
}

type RedisOption func(*Redis)

func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = strings.Trim(prefix, ":") }
}

func WithHolder(id string) RedisOption {
	return func(r *Redis) { r.holder = id }
}

// NewRedis constructs a Redis lease with a random holder id.
func NewRedis(rdb *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		rdb:    rdb,
		prefix: "meetingrooms:lease",
		holder: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(name string) string {
	return r.prefix + ":" + name
}

// Acquire reports whether this instance now holds the named lease.
// Re-acquiring a lease already held by this instance extends it.
func (r *Redis) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	key := r.key(name)

	ok, err := r.rdb.SetNX(ctx, key, r.holder, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	n, err := extendScript.Run(ctx, r.rdb, []string{key}, r.holder, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release gives up the named lease if this instance still holds it.
func (r *Redis) Release(ctx context.Context, name string) error {
	return releaseScript.Run(ctx, r.rdb, []string{r.key(name)}, r.holder).Err()
}
