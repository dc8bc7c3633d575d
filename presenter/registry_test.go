// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package presenter

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
)

func TestNewDefaultBackend(t *testing.T) {
	p, err := New("", newNoopTarget(t))
	if err != nil {
		t.Fatalf("New(\"\") = %v", err)
	}
	if _, ok := p.(*HAL); !ok {
		t.Errorf("New(\"\") returned %T, want *HAL", p)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New("missing", newNoopTarget(t))
	if !errors.Is(err, ErrBackendNotFound) {
		t.Errorf("New(missing) = %v, want ErrBackendNotFound", err)
	}
}

func TestRegisterBackend(t *testing.T) {
	called := false
	Register("test", func(Target) (Presenter, error) {
		called = true
		return nil, errors.New("unavailable")
	})
	t.Cleanup(func() { Unregister("test") })

	if !slices.Contains(Backends(), "test") {
		t.Errorf("Backends() = %v, want it to contain test", Backends())
	}
	if _, err := New("test", Target{}); err == nil {
		t.Error("New(test) succeeded, want factory error")
	}
	if !called {
		t.Error("registered factory was not called")
	}
}

func TestPresentStatus(t *testing.T) {
	s := NewPresentStatus()
	if got := s.Wait(); got != gputypes.SurfaceStatusGood {
		t.Errorf("Wait() on fresh status = %v, want Good", got)
	}

	s.Reset()
	go func() {
		time.Sleep(5 * time.Millisecond)
		s.Set(gputypes.SurfaceStatusOutdated)
	}()
	if got := s.Wait(); got != gputypes.SurfaceStatusOutdated {
		t.Errorf("Wait() = %v, want Outdated", got)
	}

	s.Clear()
	if got := s.Wait(); got != gputypes.SurfaceStatusGood {
		t.Errorf("Wait() after Clear = %v, want Good", got)
	}
}

func TestFrameRateLimiterInterval(t *testing.T) {
	tests := []struct {
		name         string
		target, rate float64
		wantZero     bool
		wantInterval time.Duration
	}{
		{name: "disabled", target: 0, wantZero: true},
		{name: "unknown refresh", target: 50, wantInterval: 20 * time.Millisecond},
		{name: "below refresh", target: 30, rate: 60, wantInterval: time.Second / 30},
		{name: "at refresh", target: 60, rate: 60, wantZero: true},
		{name: "above refresh", target: 144, rate: 60, wantZero: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewFrameRateLimiter()
			l.SetRefreshRate(tt.rate)
			l.SetTarget(tt.target)
			got := l.Interval()
			if tt.wantZero {
				if got != 0 {
					t.Errorf("Interval() = %v, want 0", got)
				}
				return
			}
			if got != tt.wantInterval {
				t.Errorf("Interval() = %v, want %v", got, tt.wantInterval)
			}
		})
	}
}

func TestFrameRateLimiterDelay(t *testing.T) {
	l := NewFrameRateLimiter()
	base := time.Unix(0, 0)
	now := base
	var slept []time.Duration
	l.now = func() time.Time { return now }
	l.sleep = func(d time.Duration) { slept = append(slept, d); now = now.Add(d) }

	l.SetTarget(100) // 10ms

	l.Delay() // first present schedules, no sleep
	now = now.Add(4 * time.Millisecond)
	l.Delay() // 6ms early
	if len(slept) != 1 || slept[0] != 6*time.Millisecond {
		t.Fatalf("slept %v, want [6ms]", slept)
	}

	now = now.Add(50 * time.Millisecond)
	l.Delay() // behind schedule, no sleep
	if len(slept) != 1 {
		t.Errorf("slept %v after falling behind, want no extra sleep", slept)
	}
}
