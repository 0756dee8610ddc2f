// Package ratelimit counts failed attempts per key and locks the key out
// once a ceiling is reached, until the key's cool-down elapses.
package ratelimit

import (
	"context"
	"time"
)

// Limiter tracks attempts per key.
//
// Check rejects with *shared.TooManyAttemptsError when the key already holds
// maxAttempts attempts. Reserve records one attempt and rejects in the same
// step when that attempt would exceed maxAttempts, so concurrent callers can
// never overshoot the ceiling; the first attempt starts the key's cool-down
// window. Release hands back an attempt that turned out not to count, and
// Clear forgets the key.
type Limiter interface {
	Check(ctx context.Context, key string, maxAttempts int) error
	Reserve(ctx context.Context, key string, maxAttempts int, cooldown time.Duration) error
	Release(ctx context.Context, key string) error
	Clear(ctx context.Context, key string) error
}
