// Package ratelimit provides per-client rate limiting on top of golang.org/x/time/rate.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled bool
	// DefaultRate is requests per second for endpoints without an override.
	DefaultRate     float64
	DefaultBurst    int
	CleanupInterval time.Duration
	// IdleTTL is how long an unused client bucket is kept.
	IdleTTL         time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

type bucket struct {
	limiter  *rate.Limiter
	limit    int
	lastSeen time.Time
}

// Limiter keeps one token bucket per client, endpoint and method.
type Limiter struct {
	config      *Config
	now         func() time.Time
	mu          sync.Mutex
	buckets     map[string]*bucket
	cleanupStop chan struct{}
	stopOnce    sync.Once
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter creates a new rate limiter with the given configuration.
func NewLimiter(config *Config, opts ...Option) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultRate:     10,
			DefaultBurst:    20,
			CleanupInterval: 5 * time.Minute,
		}
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = time.Hour
	}

	l := &Limiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(l)
	}

	if config.Enabled && config.CleanupInterval > 0 {
		l.cleanupStop = make(chan struct{})
		go l.cleanup(config.CleanupInterval)
	}
	return l
}

// Allow reports whether a request from clientID may proceed.
func (l *Limiter) Allow(clientID, endpoint, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{}
	}

	limit, burst, every := l.policy(endpoint, method)
	if limit == rate.Inf {
		return true, Info{Allowed: true}
	}

	now := l.now()
	b := l.bucketFor(clientID+":"+endpoint+":"+method, limit, burst, every, now)

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, Info{Limit: b.limit}
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, Info{
			Limit:      b.limit,
			Remaining:  0,
			ResetTime:  now.Add(delay),
			RetryAfter: delay,
		}
	}

	tokens := b.limiter.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}
	missing := float64(burst) - tokens
	reset := now
	if missing > 0 {
		reset = now.Add(time.Duration(missing / float64(limit) * float64(time.Second)))
	}
	return true, Info{
		Allowed:   true,
		Limit:     b.limit,
		Remaining: remaining,
		ResetTime: reset,
	}
}

// policy resolves the refill rate, burst and advertised limit for a request.
func (l *Limiter) policy(endpoint, method string) (rate.Limit, int, int) {
	if cfg, ok := MatchEndpoint(l.config.EndpointConfigs, method, endpoint); ok {
		if cfg.Limit <= 0 || cfg.Window <= 0 {
			return rate.Inf, 0, 0
		}
		burst := cfg.Burst
		if burst <= 0 {
			burst = cfg.Limit
		}
		return rate.Limit(float64(cfg.Limit) / cfg.Window.Seconds()), burst, cfg.Limit
	}

	if l.config.DefaultRate <= 0 {
		return rate.Inf, 0, 0
	}
	burst := l.config.DefaultBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.Limit(l.config.DefaultRate), burst, burst
}

func (l *Limiter) bucketFor(key string, limit rate.Limit, burst, advertised int, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(limit, burst), limit: advertised}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

func (l *Limiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanupBuckets()
		case <-l.cleanupStop:
			return
		}
	}
}

// cleanupBuckets removes buckets idle for longer than IdleTTL.
func (l *Limiter) cleanupBuckets() {
	cutoff := l.now().Add(-l.config.IdleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop stops the cleanup goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		if l.cleanupStop != nil {
			close(l.cleanupStop)
		}
	})
}
