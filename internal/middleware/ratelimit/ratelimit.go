// Package ratelimit throttles chat commands per user with a fixed one-minute window.
package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"
)

// Limiter provides rate limiting functionality
type Limiter struct {
	mu           sync.Mutex
	users        map[int64]*userInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	now          func() time.Time
	rejected     int64

	// Configuration
	commandsPerMinute int
	cleanupInterval   time.Duration
}

type userInfo struct {
	windowStart time.Time
	lastCommand time.Time
	commands    int
}

// Config holds rate limiter configuration
type Config struct {
	CommandsPerMinute int
	CleanupInterval   time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		CommandsPerMinute: 30,
		CleanupInterval:   5 * time.Minute,
	}
}

// NewLimiter creates a new rate limiter and starts its cleanup goroutine.
func NewLimiter(config Config) *Limiter {
	rl := newLimiter(config, time.Now)
	go rl.startCleanup()
	return rl
}

func newLimiter(config Config, now func() time.Time) *Limiter {
	if config.CommandsPerMinute <= 0 {
		config.CommandsPerMinute = DefaultConfig().CommandsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}
	return &Limiter{
		users:             make(map[int64]*userInfo),
		stopCleanup:       make(chan struct{}),
		now:               now,
		commandsPerMinute: config.CommandsPerMinute,
		cleanupInterval:   config.CleanupInterval,
	}
}

// Allow reports whether userID may run another command in the current window.
func (rl *Limiter) Allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u, exists := rl.users[userID]
	if !exists || now.Sub(u.windowStart) >= time.Minute {
		rl.users[userID] = &userInfo{windowStart: now, lastCommand: now, commands: 1}
		return true
	}

	u.lastCommand = now
	if u.commands >= rl.commandsPerMinute {
		atomic.AddInt64(&rl.rejected, 1)
		return false
	}
	u.commands++
	return true
}

// startCleanup runs periodic cleanup to remove stale user entries
func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes users idle for more than 10 minutes.
func (rl *Limiter) cleanupStaleEntries() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	cutoff := rl.now().Add(-10 * time.Minute)
	for id, u := range rl.users {
		if u.lastCommand.Before(cutoff) {
			delete(rl.users, id)
			removed++
		}
	}
	return removed
}

// ActiveUsers returns the number of currently tracked users
func (rl *Limiter) ActiveUsers() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.users)
}

// Stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	Rejected    int64
	ActiveUsers int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		Rejected:    atomic.LoadInt64(&rl.rejected),
		ActiveUsers: int64(rl.ActiveUsers()),
	}
}
