package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker guards a short critical section across requests, such as one
// payment submission per sale.
type Locker interface {
	TryLock(ctx context.Context, key string) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type RedisLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (bool, error) {
	return l.rdb.SetNX(ctx, "lock:"+key, "1", l.ttl).Result()
}

func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, "lock:"+key).Err()
}

// NopLocker always grants the lock. It is used when Redis is not configured.
type NopLocker struct{}

func (NopLocker) TryLock(context.Context, string) (bool, error) { return true, nil }
func (NopLocker) Unlock(context.Context, string) error          { return nil }

// NewLocker returns a Redis backed locker for addr, or a NopLocker when
// addr is empty.
func NewLocker(addr string, ttl time.Duration) Locker {
	if addr == "" {
		return NopLocker{}
	}
	return NewRedisLocker(redis.NewClient(&redis.Options{Addr: addr}), ttl)
}

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = NopLocker{}
)
