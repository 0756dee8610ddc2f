package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/transfer-verification-engine/internal/domain/shared"
)

type counter struct {
	hits      int
	expiresAt time.Time
}

// MemoryLimiter keeps counters in process memory. It is used when Redis is
// disabled, which limits the gateway to a single replica.
type MemoryLimiter struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
}

// NewMemoryLimiter creates an empty in-process limiter
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		counters: make(map[string]*counter),
		now:      time.Now,
	}
}

// live returns the key's counter, dropping it once expired. Callers hold mu.
func (l *MemoryLimiter) live(key string) *counter {
	c, ok := l.counters[key]
	if !ok {
		return nil
	}
	if !l.now().Before(c.expiresAt) {
		delete(l.counters, key)
		return nil
	}
	return c
}

func (l *MemoryLimiter) Check(_ context.Context, key string, maxAttempts int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.live(key)
	if c == nil || c.hits < maxAttempts {
		return nil
	}
	return l.tooMany(key, c)
}

func (l *MemoryLimiter) Reserve(_ context.Context, key string, maxAttempts int, cooldown time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.live(key)
	if c == nil {
		c = &counter{expiresAt: l.now().Add(cooldown)}
		l.counters[key] = c
	}
	if c.hits >= maxAttempts {
		return l.tooMany(key, c)
	}
	c.hits++
	return nil
}

func (l *MemoryLimiter) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.live(key)
	if c == nil {
		return nil
	}
	c.hits--
	if c.hits <= 0 {
		delete(l.counters, key)
	}
	return nil
}

// tooMany builds the lockout error. Callers hold mu.
func (l *MemoryLimiter) tooMany(key string, c *counter) error {
	retryAfter := c.expiresAt.Sub(l.now())
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return &shared.TooManyAttemptsError{Key: key, RetryAfter: retryAfter}
}

func (l *MemoryLimiter) Clear(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.counters, key)
	return nil
}
