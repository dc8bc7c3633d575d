// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package presenter

import (
	"sync"

	"github.com/gogpu/gputypes"
)

// PresentStatus is the result slot of an in-flight present.
//
// The controller calls Reset before handing a present to the command-stream
// thread, the command-stream thread calls Set once the present completed,
// and Wait blocks the controller until then.
type PresentStatus struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending bool
	result  gputypes.SurfaceStatus
}

// NewPresentStatus returns a status that is not pending and reports Good.
func NewPresentStatus() *PresentStatus {
	s := &PresentStatus{result: gputypes.SurfaceStatusGood}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Reset marks a present as in flight.
func (s *PresentStatus) Reset() {
	s.mu.Lock()
	s.pending = true
	s.mu.Unlock()
}

// Set records the result of the in-flight present and wakes waiters.
func (s *PresentStatus) Set(result gputypes.SurfaceStatus) {
	s.mu.Lock()
	s.pending = false
	s.result = result
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Wait blocks until no present is in flight and returns the last result.
func (s *PresentStatus) Wait() gputypes.SurfaceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.pending {
		s.cond.Wait()
	}
	return s.result
}

// Clear forgets the last result without waiting. Used after the surface
// was recreated.
func (s *PresentStatus) Clear() {
	s.mu.Lock()
	s.result = gputypes.SurfaceStatusGood
	s.mu.Unlock()
}
