// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package presenter

import (
	"sync"
	"time"
)

// FrameRateLimiter delays presents so that they do not exceed a target
// rate. When the display refresh rate is known and the target is at or
// above it, the limiter stays idle and vsync paces presentation.
type FrameRateLimiter struct {
	mu          sync.Mutex
	target      float64
	refreshRate float64
	interval    time.Duration
	next        time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewFrameRateLimiter returns a disabled limiter.
func NewFrameRateLimiter() *FrameRateLimiter {
	return &FrameRateLimiter{now: time.Now, sleep: time.Sleep}
}

// SetTarget sets the maximum frame rate. Zero or negative disables it.
func (l *FrameRateLimiter) SetTarget(hz float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.target = hz
	l.update()
}

// SetRefreshRate records the display refresh rate; zero means unknown.
func (l *FrameRateLimiter) SetRefreshRate(hz float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refreshRate = hz
	l.update()
}

// Interval returns the enforced minimum time between presents, or zero
// when the limiter is idle.
func (l *FrameRateLimiter) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.interval
}

func (l *FrameRateLimiter) update() {
	l.interval = 0
	if l.target <= 0 {
		return
	}
	if l.refreshRate > 0 && l.target >= l.refreshRate {
		return
	}
	l.interval = time.Duration(float64(time.Second) / l.target)
}

// Delay blocks until the next present may proceed.
func (l *FrameRateLimiter) Delay() {
	l.mu.Lock()
	interval := l.interval
	if interval == 0 {
		l.next = time.Time{}
		l.mu.Unlock()
		return
	}
	now := l.now()
	wait := l.next.Sub(now)
	if wait <= 0 || l.next.IsZero() {
		// Running behind: restart the schedule instead of bursting.
		l.next = now.Add(interval)
		l.mu.Unlock()
		return
	}
	l.next = l.next.Add(interval)
	sleep := l.sleep
	l.mu.Unlock()

	sleep(wait)
}
