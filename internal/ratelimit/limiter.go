// Package ratelimit implements the process-wide admission-control gate:
// fixed-window counting per client key, in-memory and non-durable. A
// process restart or horizontal scale-out resets the counters; that is a
// documented limitation of the design, not something this package tries
// to paper over.
package ratelimit

import (
	"sync"
	"time"
)

// Clock abstracts time.Now so window expiry is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall-clock Clock used outside tests.
var SystemClock Clock = systemClock{}

// record tracks one client's window.
type record struct {
	count     int
	resetTime time.Time
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is advertised on denial. It is always the full window
	// length, not the time left in the current window; callers accept
	// this simplification.
	RetryAfter time.Duration
}

// Limiter is a fixed-window rate limiter keyed by client identity.
// Safe for concurrent use.
type Limiter struct {
	mu             sync.Mutex
	limit          int
	window         time.Duration
	sweepThreshold int
	clock          Clock
	records        map[string]*record
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock substitutes the time source, for tests.
func WithClock(c Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// WithSweepThreshold overrides the housekeeping threshold above which a
// request pays for an inline sweep of expired entries.
func WithSweepThreshold(n int) Option {
	return func(l *Limiter) { l.sweepThreshold = n }
}

// New creates a limiter admitting limit requests per key per window.
func New(limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		limit:          limit,
		window:         window,
		sweepThreshold: 1000,
		clock:          SystemClock,
		records:        make(map[string]*record),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the per-window capacity.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the window duration.
func (l *Limiter) Window() time.Duration { return l.window }

// Admit counts a request against key and decides whether it may proceed.
// The first request for a key, or the first after its window elapses,
// opens a fresh window.
func (l *Limiter) Admit(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()

	// Lazy, best-effort garbage collection: when the table has grown past
	// the threshold, the request that notices pays an O(n) sweep of
	// expired entries. There is no background timer.
	if len(l.records) > l.sweepThreshold {
		l.sweep(now)
	}

	rec, ok := l.records[key]
	if !ok || now.After(rec.resetTime) {
		l.records[key] = &record{count: 1, resetTime: now.Add(l.window)}
		return Decision{Allowed: true, Remaining: l.limit - 1, RetryAfter: l.window}
	}

	if rec.count >= l.limit {
		return Decision{Allowed: false, Remaining: 0, RetryAfter: l.window}
	}

	rec.count++
	return Decision{Allowed: true, Remaining: l.limit - rec.count, RetryAfter: l.window}
}

// Reset forgets a key's window entirely.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, key)
}

// Size returns the number of tracked keys (for monitoring and tests).
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// sweep deletes entries whose window has already expired. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	for key, rec := range l.records {
		if now.After(rec.resetTime) {
			delete(l.records, key)
		}
	}
}
