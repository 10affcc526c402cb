// Package cache holds the Redis client shared by the task queue and the
// cross-instance sweep lock.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNoClient = errors.New("cache: redis client not configured")

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: connect %s: %w", addr, err)
	}
	return rdb, nil
}

// Ping adapts the client to a readiness check.
func Ping(rdb *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if rdb == nil {
			return ErrNoClient
		}
		return rdb.Ping(ctx).Err()
	}
}

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short-lived named locks so only one instance runs a job.
type Locker struct {
	Client *redis.Client
	Prefix string
}

// Acquire reports false without error when another holder has the lock.
func (l Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context), bool, error) {
	if l.Client == nil {
		return nil, false, ErrNoClient
	}
	key := l.key(name)
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release := func(ctx context.Context) {
		_ = releaseScript.Run(ctx, l.Client, []string{key}, token).Err()
	}
	return release, true, nil
}

func (l Locker) key(name string) string {
	prefix := l.Prefix
	if prefix == "" {
		prefix = "padicrib:lock:"
	}
	return prefix + name
}
