// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package latency

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrSemaphoreFull is returned by Release when the release would push the
// count above the semaphore maximum.
var ErrSemaphoreFull = errors.New("latency: semaphore count would exceed maximum")

// Semaphore is a bounded counting semaphore. Producers Acquire a slot
// before starting a frame; completion of a frame Releases one.
//
// It is the Go counterpart of a frame latency waitable object: the
// application waits on it, the swap chain releases it.
type Semaphore struct {
	tokens chan struct{}
	// mu serializes releases so the capacity check and the sends are atomic
	// with respect to each other. Acquire only ever removes tokens.
	mu sync.Mutex
}

// NewSemaphore creates a semaphore holding initial tokens out of max.
func NewSemaphore(initial, max int) (*Semaphore, error) {
	if max <= 0 {
		return nil, fmt.Errorf("latency: invalid semaphore maximum %d", max)
	}
	if initial < 0 || initial > max {
		return nil, fmt.Errorf("latency: initial count %d out of range [0, %d]", initial, max)
	}
	s := &Semaphore{tokens: make(chan struct{}, max)}
	for range initial {
		s.tokens <- struct{}{}
	}
	return s, nil
}

// Acquire takes one token, blocking until one is available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case <-s.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes one token if one is available without blocking.
func (s *Semaphore) TryAcquire() bool {
	select {
	case <-s.tokens:
		return true
	default:
		return false
	}
}

// Release returns n tokens. If that would exceed the maximum, nothing is
// released and ErrSemaphoreFull is returned.
func (s *Semaphore) Release(n int) error {
	if n <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tokens)+n > cap(s.tokens) {
		return ErrSemaphoreFull
	}
	for range n {
		s.tokens <- struct{}{}
	}
	return nil
}

// Count returns the number of tokens currently available.
func (s *Semaphore) Count() int { return len(s.tokens) }

// Max returns the semaphore maximum.
func (s *Semaphore) Max() int { return cap(s.tokens) }
