package pnw

import (
	"context"
	"sync"
	"time"
)

// DefaultRateLimitBuffer is the remaining-request budget below which
// calls pause until the provider's limit window resets.
const DefaultRateLimitBuffer = 10

// Limiter tracks the request budget reported by the provider and gates
// outgoing calls when the budget runs low. State is overwritten from each
// response's rate limit headers; nothing is accumulated locally.
type Limiter struct {
	mu        sync.Mutex
	remaining int
	limit     int
	resetAt   time.Time
	buffer    int
}

// NewLimiter creates a limiter that pauses once the remaining budget
// drops to the given buffer. A non-positive buffer falls back to the default.
func NewLimiter(buffer int) *Limiter {
	if buffer <= 0 {
		buffer = DefaultRateLimitBuffer
	}

	return &Limiter{
		remaining: -1,
		buffer:    buffer,
	}
}

// Update overwrites the limiter state with the latest response metadata.
func (l *Limiter) Update(remaining, limit int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.remaining = remaining
	l.limit = limit
	l.resetAt = resetAt
}

// WaitIfNeeded blocks until it is safe to make another request. The limiter
// only waits when the remaining budget is at or below the buffer and the
// reset time is known; with no reset time it returns immediately even if the
// budget looks exhausted. Returns the context error if cancelled while waiting.
func (l *Limiter) WaitIfNeeded(ctx context.Context) error {
	l.mu.Lock()
	remaining := l.remaining
	resetAt := l.resetAt
	l.mu.Unlock()

	if remaining < 0 || remaining > l.buffer || resetAt.IsZero() {
		return nil
	}

	wait := time.Until(resetAt)
	if wait <= 0 {
		return nil
	}

	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CanMakeRequest reports whether a request could proceed without waiting.
func (l *Limiter) CanMakeRequest() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.remaining < 0 || l.remaining > l.buffer
}
