package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lock serializes sweeps across processes. The in-process atomic flag
// already covers one process; the lock covers replicas sharing a
// database.
type Lock interface {
	// Acquire returns true when this holder owns the lease.
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	// Release drops the lease if still held by this holder.
	Release(ctx context.Context) error
}

// NoopLock always grants the lease. Used for single-instance deployments.
type NoopLock struct{}

func (NoopLock) Acquire(context.Context, time.Duration) (bool, error) { return true, nil }
func (NoopLock) Release(context.Context) error                        { return nil }

// redisReleaseScript deletes the lease only when the stored token still
// belongs to the caller, so an expired-and-reacquired lease is never
// released by the previous holder.
// KEYS[1] = lease key
// ARGV[1] = holder token
var redisReleaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a SET NX PX lease.
type RedisLock struct {
	client *redis.Client
	key    string
	token  string
}

// NewRedisLock creates a lease lock on addr under key.
func NewRedisLock(addr, password string, db int, key string) *RedisLock {
	return &RedisLock{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		key:   key,
		token: uuid.New().String(),
	}
}

func (l *RedisLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sweep lease: %w", err)
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	if err := redisReleaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release sweep lease: %w", err)
	}
	return nil
}
