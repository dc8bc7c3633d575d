// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package latency

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrClosed is returned by Wait when the fence is closed before the
// requested value is reached.
var ErrClosed = errors.New("latency: fence closed")

// action is a one-shot callback bound to a fence value.
type action struct {
	value uint64
	fn    func()
}

// Fence is a monotonically signaled counter with completion actions.
//
// Wait blocks until the counter reaches a value. SetCallback registers a
// function that runs exactly once, on the fence's worker goroutine, after
// the counter reaches the given value. Actions run in value order.
type Fence struct {
	mu      sync.Mutex
	value   uint64
	changed chan struct{}
	pending []action
	due     []action
	closed  bool

	wake chan struct{}
	done chan struct{}
}

// NewFence creates a fence with the given initial value and starts its
// worker. Call Close to stop the worker.
func NewFence(initial uint64) *Fence {
	f := &Fence{
		value:   initial,
		changed: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go f.run()
	return f
}

// Value returns the current fence value.
func (f *Fence) Value() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Signal advances the fence to v. Values lower than the current one are
// ignored, so the fence never moves backwards.
func (f *Fence) Signal(v uint64) {
	f.mu.Lock()
	if f.closed || v <= f.value {
		f.mu.Unlock()
		return
	}
	f.value = v
	close(f.changed)
	f.changed = make(chan struct{})
	f.collectLocked()
	f.mu.Unlock()
	f.notify()
}

// Wait blocks until the fence value is at least v, the context is done,
// or the fence is closed.
func (f *Fence) Wait(ctx context.Context, v uint64) error {
	for {
		f.mu.Lock()
		if f.value >= v {
			f.mu.Unlock()
			return nil
		}
		if f.closed {
			f.mu.Unlock()
			return ErrClosed
		}
		ch := f.changed
		f.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SetCallback registers fn to run once the fence reaches v. If the fence
// already reached v, fn is scheduled immediately. Callbacks registered on
// a closed fence are dropped.
func (f *Fence) SetCallback(v uint64, fn func()) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	a := action{value: v, fn: fn}
	if v <= f.value {
		f.due = append(f.due, a)
		f.mu.Unlock()
		f.notify()
		return
	}
	i := sort.Search(len(f.pending), func(i int) bool { return f.pending[i].value > v })
	f.pending = append(f.pending, action{})
	copy(f.pending[i+1:], f.pending[i:])
	f.pending[i] = a
	f.mu.Unlock()
}

// Pending returns the number of registered actions that have not run yet.
func (f *Fence) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending) + len(f.due)
}

// Close stops the worker after it drained every action that was already
// due. Actions bound to values never reached are discarded. Blocked
// waiters return ErrClosed.
func (f *Fence) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		<-f.done
		return
	}
	f.closed = true
	f.pending = nil
	close(f.changed)
	f.changed = make(chan struct{})
	f.mu.Unlock()
	f.notify()
	<-f.done
}

// collectLocked moves every pending action whose value was reached onto
// the due list. Must be called with f.mu held.
func (f *Fence) collectLocked() {
	n := 0
	for n < len(f.pending) && f.pending[n].value <= f.value {
		n++
	}
	if n == 0 {
		return
	}
	f.due = append(f.due, f.pending[:n]...)
	f.pending = append(f.pending[:0], f.pending[n:]...)
}

func (f *Fence) notify() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *Fence) run() {
	defer close(f.done)
	for range f.wake {
		f.mu.Lock()
		due := f.due
		f.due = nil
		closed := f.closed
		f.mu.Unlock()

		for _, a := range due {
			a.fn()
		}
		if closed {
			return
		}
	}
}
