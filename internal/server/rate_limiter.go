// Package server implements a fixed-window event counter for per-connection
// throttling that protects the hub from abuse. A fixed window keeps state at
// O(1) per connection; the burst tolerance at window boundaries is acceptable
// for a low-stakes chat relay.
package server

import (
	"sync"
	"time"
)

type rateLimiter struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
	window      time.Duration
	max         int
	now         func() time.Time
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Second
	}

	return &rateLimiter{
		window: window,
		max:    max,
		now:    time.Now,
	}
}

// allow counts one event against the current window and reports whether it is
// within the cap. A fresh window always admits its first event.
func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.windowStart) > rl.window {
		rl.count = 1
		rl.windowStart = now
		return true
	}

	rl.count++
	return rl.count <= rl.max
}
