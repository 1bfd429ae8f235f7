package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryRateLimiter keeps a token bucket per key in process memory.
type MemoryRateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{}
}

// Allow refills limit tokens per window with a burst of limit.
func (r *MemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return false, fmt.Errorf("invalid rate limit %d per %s", limit, window)
	}

	bucketKey := fmt.Sprintf("%s|%d|%s", key, limit, window)
	val, ok := r.limiters.Load(bucketKey)
	if !ok {
		every := rate.Every(window / time.Duration(limit))
		val, _ = r.limiters.LoadOrStore(bucketKey, rate.NewLimiter(every, limit))
	}
	return val.(*rate.Limiter).Allow(), nil
}
