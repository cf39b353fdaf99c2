// Package ratelimit implements a process-local token bucket limiter keyed by
// route class and caller identity.
package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"threadline/internal/observability"

	"golang.org/x/time/rate"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the next token is available (denied) or when the
	// bucket is full again (allowed).
	ResetAt    time.Time
	RetryAfter time.Duration
}

type bucket struct {
	lim      *rate.Limiter
	lastUsed time.Time
}

// Limiter holds one bucket per (class, identity). Buckets are created on
// first use and dropped by Purge after sitting idle.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	classes map[string]Class
	idleTTL time.Duration
	now     func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithIdleTTL sets how long an untouched bucket survives Purge.
func WithIdleTTL(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.idleTTL = d
		}
	}
}

// New builds a limiter over classes. Missing classes fall back to
// DefaultClasses; a class without a "default" entry gets the built-in default.
func New(classes map[string]Class, opts ...Option) *Limiter {
	merged := make(map[string]Class, len(DefaultClasses)+len(classes))
	for name, c := range DefaultClasses {
		merged[name] = c
	}
	for name, c := range classes {
		if c.Capacity > 0 && c.Window > 0 {
			merged[name] = c
		}
	}

	l := &Limiter{
		buckets: make(map[string]*bucket),
		classes: merged,
		idleTTL: time.Hour,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ClassFor returns the limits applied to name.
func (l *Limiter) ClassFor(name string) Class {
	if c, ok := l.classes[name]; ok {
		return c
	}
	return l.classes[ClassDefault]
}

// Admit consumes one token from the bucket of (class, identity) if one is
// available.
func (l *Limiter) Admit(identity, class string) Decision {
	cfg := l.ClassFor(class)
	if _, ok := l.classes[class]; !ok {
		class = ClassDefault
	}
	capacity := float64(cfg.Capacity)
	perToken := cfg.Window / time.Duration(cfg.Capacity)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := class + "|" + identity
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(perToken), cfg.Capacity)}
		l.buckets[key] = b
		observability.RateLimitBuckets.Inc()
	}
	b.lastUsed = now

	d := Decision{Limit: cfg.Capacity}
	if b.lim.AllowN(now, 1) {
		tokens := b.lim.TokensAt(now)
		d.Allowed = true
		d.Remaining = max(int(math.Floor(tokens)), 0)
		d.ResetAt = now.Add(scale(perToken, capacity-tokens))
		observability.RateLimitDecisions.WithLabelValues(class, "allowed").Inc()
		return d
	}

	wait := scale(perToken, 1-b.lim.TokensAt(now))
	d.ResetAt = now.Add(wait)
	d.RetryAfter = time.Duration(math.Ceil(wait.Seconds())) * time.Second
	if d.RetryAfter < time.Second {
		d.RetryAfter = time.Second
	}
	observability.RateLimitDecisions.WithLabelValues(class, "denied").Inc()
	return d
}

func scale(d time.Duration, f float64) time.Duration {
	return time.Duration(math.Ceil(float64(d) * f))
}

// Purge drops buckets untouched since now-idleTTL and returns how many were removed.
func (l *Limiter) Purge(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastUsed) >= l.idleTTL {
			delete(l.buckets, key)
			removed++
		}
	}
	observability.RateLimitBuckets.Sub(float64(removed))
	return removed
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// StartJanitor purges idle buckets every interval until ctx is done.
func (l *Limiter) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.idleTTL / 4
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := l.Purge(l.now()); n > 0 {
					observability.Logger.Debug("Purged idle rate limit buckets", slog.Int("count", n))
				}
			}
		}
	}()
}
