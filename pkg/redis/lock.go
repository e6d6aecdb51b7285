package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is a best-effort cross-process mutex built on SET NX PX
type Lock struct {
	client *Client
	key    string
	token  string
	ttl    time.Duration
}

// NewLock creates a lock handle; token identifies the holder
func NewLock(client *Client, prefix, name, token string, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		key:    fmt.Sprintf("%s:lock:%s", prefix, name),
		token:  token,
		ttl:    ttl,
	}
}

// TryAcquire takes the lock if free. Disabled Redis always grants it.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	if !l.client.Enabled() {
		return true, nil
	}

	ok, err := l.client.Redis().SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock acquire failed: %w", err)
	}
	return ok, nil
}

var releaseIfOwner = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Release drops the lock only when this holder still owns it
func (l *Lock) Release(ctx context.Context) error {
	if !l.client.Enabled() {
		return nil
	}

	if err := releaseIfOwner.Run(ctx, l.client.Redis(), []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("lock release failed: %w", err)
	}
	return nil
}
