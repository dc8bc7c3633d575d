// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package capture tracks the per-frame state of a geometry capture side
// channel that observes the swap chain.
//
// A [Tracker] is installed with swapchain.WithFrameObserver. The swap chain
// notifies it at the start of every Present, before anything blocks, and
// whenever the surface descriptor changes. Both notifications are forwarded
// to a [Sink] on the command-stream goroutine so they stay ordered with the
// frame's GPU submissions.
package capture

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/swapchain"
	"github.com/gogpu/swapchain/cs"
)

// Sink is the backend of a capture pipeline.
type Sink interface {
	// EndFrame closes the current capture frame.
	EndFrame()

	// ResetResolution tells the backend the presentation extent changed.
	ResetResolution(width, height uint32)
}

// Tracker counts draw calls of the current frame and forwards frame
// boundaries to a sink.
type Tracker struct {
	sink   Sink
	thread *cs.Thread
	logger *slog.Logger

	drawCallID atomic.Uint32
	injected   atomic.Bool
	frames     atomic.Uint64

	mu       sync.Mutex
	desc     swapchain.Desc
	haveDesc bool
}

// NewTracker returns a tracker forwarding to sink. When thread is nil the
// sink is called inline.
func NewTracker(sink Sink, thread *cs.Thread) *Tracker {
	return &Tracker{
		sink:   sink,
		thread: thread,
		logger: swapchain.Logger(),
	}
}

// NotifyEndOfFrame implements swapchain.FrameObserver. It must be called
// from the thread that presents.
func (t *Tracker) NotifyEndOfFrame() {
	sink := t.sink
	t.emit(func() { sink.EndFrame() }, false)

	t.injected.Store(false)
	t.drawCallID.Store(0)
	t.frames.Add(1)
}

// ResetSurface implements swapchain.SurfaceResetter. Descriptors equal to
// the last one seen are ignored.
func (t *Tracker) ResetSurface(desc swapchain.Desc) {
	t.mu.Lock()
	if t.haveDesc && t.desc == desc {
		t.mu.Unlock()
		return
	}
	t.desc = desc
	t.haveDesc = true
	t.mu.Unlock()

	sink := t.sink
	w, h := desc.Width, desc.Height
	t.emit(func() { sink.ResetResolution(w, h) }, true)
}

func (t *Tracker) emit(cmd cs.Command, flush bool) {
	if t.sink == nil {
		return
	}
	if t.thread == nil {
		cmd()
		return
	}
	t.thread.Emit(cmd)
	if !flush {
		return
	}
	if err := t.thread.Flush(); err != nil {
		t.logger.Warn("capture: flush command stream", "err", err)
	}
}

// OnDrawCall returns the index of the next draw call in the current frame.
func (t *Tracker) OnDrawCall() uint32 {
	return t.drawCallID.Add(1) - 1
}

// TriggerInject reports whether the caller is the first to inject the
// capture this frame.
func (t *Tracker) TriggerInject() bool {
	return t.injected.CompareAndSwap(false, true)
}

// DrawCalls returns the number of draw calls seen in the current frame.
func (t *Tracker) DrawCalls() uint32 { return t.drawCallID.Load() }

// Frames returns the number of frames that ended.
func (t *Tracker) Frames() uint64 { return t.frames.Load() }

var (
	_ swapchain.FrameObserver   = (*Tracker)(nil)
	_ swapchain.SurfaceResetter = (*Tracker)(nil)
)
