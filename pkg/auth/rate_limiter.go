package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter provides rate limiting functionality
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// TokenBucketLimiter implements token bucket rate limiting. Each key starts
// with burst tokens and regains one every refillRate.
type TokenBucketLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	burst      int
	refillRate time.Duration
	idle       time.Duration
	now        func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewTokenBucketLimiter creates a new token bucket rate limiter
func NewTokenBucketLimiter(burst int, refillRate time.Duration) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		buckets:    make(map[string]*bucket),
		burst:      burst,
		refillRate: refillRate,
		idle:       time.Hour,
		now:        time.Now,
	}
}

// NewPerMinuteLimiter allows requestsPerMinute sustained with bursts of burst.
func NewPerMinuteLimiter(requestsPerMinute, burst int) *TokenBucketLimiter {
	if burst <= 0 {
		burst = requestsPerMinute
	}
	return NewTokenBucketLimiter(burst, time.Minute/time.Duration(requestsPerMinute))
}

// Allow checks if a request is allowed
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(l.refillRate), l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	return b.limiter.AllowN(now, 1), nil
}

// Reset resets the rate limit for a key
func (l *TokenBucketLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
	return nil
}

// Cleanup drops buckets idle for longer than an hour until ctx is done.
func (l *TokenBucketLimiter) Cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *TokenBucketLimiter) sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idle {
			delete(l.buckets, key)
		}
	}
}

// Len returns the number of tracked keys.
func (l *TokenBucketLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
