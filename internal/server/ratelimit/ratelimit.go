// Package ratelimit provides per-client token bucket rate limiting for the
// generation API surface.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Buckets untouched for this long are evicted by the cleanup loop.
const idleEviction = time.Hour

// bucket is a token bucket that refills continuously. It holds one tier's
// budget for one client and is guarded by the owning Limiter's mutex.
type bucket struct {
	tokens   float64
	capacity float64
	rate     float64 // tokens per second
	refilled time.Time
	lastUsed time.Time
}

// take refills for the elapsed time, then consumes one token if available.
// Returns the decision, the whole tokens left, and when the bucket is full
// again.
func (b *bucket) take(now time.Time) (allowed bool, remaining int, reset time.Time) {
	elapsed := now.Sub(b.refilled).Seconds()
	b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.rate)
	b.refilled = now
	b.lastUsed = now

	if b.tokens >= 1 {
		b.tokens--
		allowed = true
	}

	reset = now
	if b.tokens < b.capacity {
		deficit := b.capacity - b.tokens
		reset = now.Add(time.Duration(deficit / b.rate * float64(time.Second)))
	}
	return allowed, int(b.tokens), reset
}

// Info describes the outcome of one rate limit check.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter keeps one token bucket per client and endpoint tier.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	cfg     *Config
	ticker  *time.Ticker
	stop    chan struct{}
}

// NewLimiter creates a limiter for the given configuration. A nil config
// falls back to the environment-driven defaults.
func NewLimiter(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = LoadConfig()
	}

	l := &Limiter{
		buckets: make(map[string]*bucket),
		cfg:     cfg,
	}

	if cfg.Enabled && cfg.CleanupInterval > 0 {
		l.ticker = time.NewTicker(cfg.CleanupInterval)
		l.stop = make(chan struct{})
		go l.evictLoop()
	}

	return l
}

// Allow checks whether a request from clientID against path/method fits its
// tier's budget. An unlimited tier (health checks, disabled limiter) reports
// Allowed with a zero Limit.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.cfg.Enabled {
		return true, Info{Allowed: true}
	}

	tier := l.cfg.tierFor(path, method)
	if tier.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	// One bucket per client and tier: polling /status/a and /status/b share
	// the same budget.
	key := clientID + ":" + method + " " + tier.Path
	now := time.Now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		burst := tier.Burst
		if burst <= 0 {
			burst = tier.Limit
		}
		b = &bucket{
			tokens:   float64(burst),
			capacity: float64(burst),
			rate:     float64(tier.Limit) / tier.Window.Seconds(),
			refilled: now,
		}
		l.buckets[key] = b
	}
	allowed, remaining, reset := b.take(now)
	l.mu.Unlock()

	info := Info{
		Allowed:   allowed,
		Limit:     tier.Limit,
		Remaining: remaining,
		ResetTime: reset,
	}
	if !allowed {
		if retry := time.Until(reset); retry > 0 {
			info.RetryAfter = retry
		}
	}
	return allowed, info
}

func (l *Limiter) evictLoop() {
	for {
		select {
		case <-l.ticker.C:
			l.evict(time.Now().Add(-idleEviction))
		case <-l.stop:
			return
		}
	}
}

// evict drops buckets not used since the cutoff.
func (l *Limiter) evict(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		if b.lastUsed.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop halts the eviction loop.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
	if l.stop != nil {
		close(l.stop)
	}
}
