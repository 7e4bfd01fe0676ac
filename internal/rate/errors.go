package rate

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// LimitedError reports how long a blocked key stays blocked.
type LimitedError struct {
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("rate limited; retry in %s", e.RetryAfter)
}

func (e *LimitedError) Unwrap() error { return ErrRateLimited }

// Seconds rounds RetryAfter up to whole seconds, never below one.
func (e *LimitedError) Seconds() int {
	return max(int(math.Ceil(e.RetryAfter.Seconds())), 1)
}
