package providers

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps a token bucket limiter with 429 bookkeeping so callers
// can back off when a provider signals overload.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter

	totalConsumed int64
	last429Time   time.Time
	pausedUntil   time.Time
}

// LimiterStatus reports current limiter state.
type LimiterStatus struct {
	RequestsPerSecond float64   `json:"requests_per_second"`
	TotalConsumed     int64     `json:"total_consumed"`
	Last429Time       time.Time `json:"last_429_time,omitempty"`
	PausedUntil       time.Time `json:"paused_until,omitempty"`
}

// NewLimiter creates a limiter for the given request rate. Burst is one
// token: providers are paced rather than allowed to spike.
func NewLimiter(requestsPerSecond float64) *Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1.0
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Wait blocks until a token is available or the context is cancelled.
// A Record429 pause is honored before the token wait.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	pause := time.Until(l.pausedUntil)
	l.mu.Unlock()

	if pause > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	l.totalConsumed++
	l.mu.Unlock()
	return nil
}

// Allow reports whether a request may proceed without blocking.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	paused := time.Now().Before(l.pausedUntil)
	l.mu.Unlock()
	if paused {
		return false
	}

	if !l.limiter.Allow() {
		return false
	}

	l.mu.Lock()
	l.totalConsumed++
	l.mu.Unlock()
	return true
}

// Record429 should be called when a 429 error is received. Subsequent
// waits pause until retryAfter has elapsed.
func (l *Limiter) Record429(retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.last429Time = time.Now()
	if retryAfter > 0 {
		until := time.Now().Add(retryAfter)
		if until.After(l.pausedUntil) {
			l.pausedUntil = until
		}
	}
}

// Status returns current limiter status.
func (l *Limiter) Status() LimiterStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	return LimiterStatus{
		RequestsPerSecond: float64(l.limiter.Limit()),
		TotalConsumed:     l.totalConsumed,
		Last429Time:       l.last429Time,
		PausedUntil:       l.pausedUntil,
	}
}
