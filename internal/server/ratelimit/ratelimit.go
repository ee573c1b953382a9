// Package ratelimit provides per-client rate limiting built on token buckets
// from golang.org/x/time/rate.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	RPS             float64       // Sustained requests per second per client
	Burst           int           // Bucket capacity; defaults to ceil(RPS)
	CleanupInterval time.Duration // How often idle clients are pruned
	IdleTTL         time.Duration // Clients idle longer than this are forgotten
	Exempt          map[string]bool
}

// DefaultConfig returns a configuration allowing rps requests per second
// with the given burst. /health is never limited.
func DefaultConfig(rps float64, burst int) Config {
	return Config{
		Enabled:         rps > 0,
		RPS:             rps,
		Burst:           burst,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Exempt:          map[string]bool{"/health": true},
	}
}

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter manages one token bucket per client.
type Limiter struct {
	config        Config
	mu            sync.Mutex
	clients       map[string]*client
	now           func() time.Time
	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
	stopOnce      sync.Once
}

// NewLimiter creates a new rate limiter and starts its cleanup goroutine
// when enabled. Call Stop to release it.
func NewLimiter(config Config) *Limiter {
	if config.Burst <= 0 {
		config.Burst = int(math.Ceil(config.RPS))
		if config.Burst < 1 {
			config.Burst = 1
		}
	}

	l := &Limiter{
		config:  config,
		clients: make(map[string]*client),
		now:     time.Now,
	}

	if config.Enabled && config.CleanupInterval > 0 {
		l.cleanupTicker = time.NewTicker(config.CleanupInterval)
		l.cleanupStop = make(chan struct{})
		go l.cleanup()
	}

	return l
}

// Allow reports whether a request from clientID to path may proceed.
func (l *Limiter) Allow(clientID, path string) (bool, Info) {
	if !l.config.Enabled || l.config.Exempt[path] {
		return true, Info{Allowed: true}
	}

	now := l.now()

	l.mu.Lock()
	c, ok := l.clients[clientID]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(l.config.RPS), l.config.Burst)}
		l.clients[clientID] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	allowed := c.limiter.AllowN(now, 1)
	tokens := c.limiter.TokensAt(now)

	info := Info{
		Allowed:   allowed,
		Limit:     l.config.Burst,
		Remaining: max(0, int(tokens)),
	}
	if !allowed {
		missing := 1 - tokens
		info.RetryAfter = time.Duration(math.Ceil(missing / l.config.RPS * float64(time.Second)))
	}
	return allowed, info
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// cleanup removes idle clients to prevent memory leaks.
func (l *Limiter) cleanup() {
	for {
		select {
		case <-l.cleanupTicker.C:
			l.pruneIdle(l.now().Add(-l.config.IdleTTL))
		case <-l.cleanupStop:
			return
		}
	}
}

// pruneIdle forgets clients not seen since cutoff.
func (l *Limiter) pruneIdle(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, id)
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		if l.cleanupTicker != nil {
			l.cleanupTicker.Stop()
		}
		if l.cleanupStop != nil {
			close(l.cleanupStop)
		}
	})
}
