// Package ratelimit provides per-key rate limiting. The demo application
// uses it to throttle login attempts per client address.
package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the rate limiting configuration.
type Config struct {
	RPS             float64       // Sustained requests per second per key
	Burst           int           // Burst size per key
	CleanupInterval time.Duration // How often to clean up idle limiters
}

// DefaultConfig provides sensible defaults for login throttling.
var DefaultConfig = Config{
	RPS:             5,
	Burst:           10,
	CleanupInterval: time.Hour,
}

// entry holds a rate limiter and tracks its last usage. lastUsed is atomic
// so concurrent Allow calls for the same key can touch it without holding
// the map's write lock.
type entry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // unix nanoseconds
}

// Limiter manages per-key rate limiting.
type Limiter struct {
	entries map[string]*entry
	mu      sync.RWMutex
	config  Config

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a limiter and starts its background cleanup goroutine.
func New(config Config) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		config:  config,
		stopCh:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// Allow reports whether a request for the given key is within limits.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

func (l *Limiter) get(key string) *rate.Limiter {
	// Fast path: existing limiter under read lock.
	l.mu.RLock()
	e, exists := l.entries[key]
	l.mu.RUnlock()
	if exists {
		e.lastUsed.Store(time.Now().UnixNano())
		return e.limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock.
	if e, exists = l.entries[key]; exists {
		e.lastUsed.Store(time.Now().UnixNano())
		return e.limiter
	}

	e = &entry{limiter: rate.NewLimiter(rate.Limit(l.config.RPS), l.config.Burst)}
	e.lastUsed.Store(time.Now().UnixNano())
	l.entries[key] = e
	return e.limiter
}

// Cleanup removes limiters idle for longer than the cleanup interval.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.config.CleanupInterval).UnixNano()
	for key, e := range l.entries {
		if e.lastUsed.Load() < cutoff {
			delete(l.entries, key)
		}
	}
}

func (l *Limiter) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine and waits for it to finish.
func (l *Limiter) Stop() {
	close(l.stopCh)
	l.wg.Wait()
}

// Len returns the number of active limiters, for tests and monitoring.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
