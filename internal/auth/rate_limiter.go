package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is wrapped by every error CheckLimit returns.
var ErrRateLimited = errors.New("too many attempts")

// RateLimitError reports how long the caller must wait before the oldest
// attempt leaves the window.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many attempts, try again in %v", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// RateLimiter tracks attempts per key (client IP) for the login and
// signup endpoints. A background goroutine drops stale keys and the map
// never grows beyond maxEntries.
type RateLimiter struct {
	mu         sync.Mutex
	attempts   map[string][]time.Time
	maxAge     time.Duration
	maxEntries int
	now        func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
func NewRateLimiter(cleanupInterval, maxAge time.Duration, maxEntries int) *RateLimiter {
	rl := &RateLimiter{
		attempts:   make(map[string][]time.Time),
		maxAge:     maxAge,
		maxEntries: maxEntries,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	go rl.cleanupLoop(cleanupInterval)
	return rl
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.Cleanup(rl.maxAge)
		case <-rl.stop:
			return
		}
	}
}

// WithClock replaces the limiter's time source. Used in tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.now = now
	return rl
}

// Stop halts the cleanup loop. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.attempts)
}

// CheckLimit records an attempt for key and fails with a *RateLimitError
// once maxAttempts attempts fall inside window. Rejected attempts are not
// recorded.
func (rl *RateLimiter) CheckLimit(key string, maxAttempts int, window time.Duration) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	var recent []time.Time
	for _, t := range rl.attempts[key] {
		if now.Sub(t) < window {
			recent = append(recent, t)
		}
	}

	if len(recent) >= maxAttempts {
		rl.attempts[key] = recent
		return &RateLimitError{RetryAfter: window - now.Sub(recent[0])}
	}

	if _, tracked := rl.attempts[key]; !tracked && rl.maxEntries > 0 && len(rl.attempts) >= rl.maxEntries {
		rl.evictOldestLocked()
	}

	rl.attempts[key] = append(recent, now)
	return nil
}

// evictOldestLocked removes the key whose latest attempt is oldest.
func (rl *RateLimiter) evictOldestLocked() {
	var (
		oldestKey  string
		oldestTime time.Time
	)
	for key, attempts := range rl.attempts {
		if len(attempts) == 0 {
			oldestKey = key
			break
		}
		last := attempts[len(attempts)-1]
		if oldestKey == "" || last.Before(oldestTime) {
			oldestKey, oldestTime = key, last
		}
	}
	delete(rl.attempts, oldestKey)
}

// ResetLimit clears the rate limit for a key
func (rl *RateLimiter) ResetLimit(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, key)
}

// Cleanup removes attempts older than maxAge and drops empty keys.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, attempts := range rl.attempts {
		var recent []time.Time
		for _, t := range attempts {
			if now.Sub(t) < maxAge {
				recent = append(recent, t)
			}
		}

		if len(recent) == 0 {
			delete(rl.attempts, key)
		} else {
			rl.attempts[key] = recent
		}
	}
}
