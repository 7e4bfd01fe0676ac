package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the fixed-window parameters.
type Config struct {
	// MaxAttempts is how many failures a key may record per window before it is blocked.
	MaxAttempts int
	Window      time.Duration
	// Prefix namespaces the redis keys; empty means "goshop:throttle".
	Prefix string
}

// Limiter counts failures per key in redis and blocks a key once it exceeds the budget
// for the rest of the window.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New returns a limiter on client. It fails when the budget is not positive.
func New(client redis.UniversalClient, cfg Config) (*Limiter, error) {
	if client == nil {
		return nil, errors.New("rate: redis client is required")
	}
	if cfg.MaxAttempts <= 0 || cfg.Window <= 0 {
		return nil, fmt.Errorf("rate: invalid budget %d per %s", cfg.MaxAttempts, cfg.Window)
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "goshop:throttle"
	}
	return &Limiter{redis: client, config: cfg}, nil
}

// Check returns ErrRateLimited wrapped in a *LimitedError when key has used its budget.
func (l *Limiter) Check(ctx context.Context, key string) error {
	k := l.key(key)
	count, err := l.redis.Get(ctx, k).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < int64(l.config.MaxAttempts) {
		return nil
	}
	return l.limited(ctx, k)
}

// Fail records one failure for key. The window starts at the first failure.
func (l *Limiter) Fail(ctx context.Context, key string) error {
	k := l.key(key)
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil
}

// Reset clears key, typically after a success.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the failures recorded for key in the current window.
func (l *Limiter) Attempts(ctx context.Context, key string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(max(count, 0)), nil
}

func (l *Limiter) key(k string) string {
	return l.config.Prefix + ":" + k
}

func (l *Limiter) limited(ctx context.Context, k string) error {
	ttl, err := l.redis.TTL(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// A key without expiry would block forever; report the full window instead.
	if ttl <= 0 {
		ttl = l.config.Window
	}
	return &LimitedError{RetryAfter: ttl}
}
