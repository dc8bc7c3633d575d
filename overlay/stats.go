// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package overlay

import (
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/swapchain/window"
)

// statsSmoothing is the weight of the newest sample in the frame time
// average.
const statsSmoothing = 0.1

// FrameStats is a point-in-time view of Stats.
type FrameStats struct {
	Frames      uint64
	LastFrameID uint64
	FrameTime   time.Duration
}

// FPS returns the frame rate implied by FrameTime, or 0 before the second
// frame.
func (s FrameStats) FPS() float64 {
	if s.FrameTime <= 0 {
		return 0
	}
	return float64(time.Second) / float64(s.FrameTime)
}

// Stats counts presented frames and keeps a smoothed frame time. It draws
// nothing itself; a HUD reads it through Stats.
type Stats struct {
	now func() time.Time

	mu     sync.Mutex
	stats  FrameStats
	last   time.Time
	avg    float64
	primed bool
}

// NewStats returns an empty frame counter.
func NewStats() *Stats {
	return &Stats{now: time.Now}
}

// Render implements Overlay.
func (s *Stats) Render(window.Handle, hal.CommandEncoder, Target) error { return nil }

// Update implements Updater.
func (s *Stats) Update(frameID uint64) {
	t := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Frames++
	s.stats.LastFrameID = frameID
	if !s.last.IsZero() {
		dt := float64(t.Sub(s.last))
		if !s.primed {
			s.avg = dt
			s.primed = true
		} else {
			s.avg += statsSmoothing * (dt - s.avg)
		}
		s.stats.FrameTime = time.Duration(s.avg)
	}
	s.last = t
}

// Stats returns the current counters.
func (s *Stats) Stats() FrameStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
