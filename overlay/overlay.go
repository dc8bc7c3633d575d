// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package overlay defines the boundary between the swap chain and the
// content it composites on top of each presented image, such as a HUD or
// a debug UI.
//
// Overlays record into the same command encoder as the back buffer blit.
// Render failures are logged by [List] and never fail a present.
package overlay

import (
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/swapchain/window"
)

// Target is the presentation image an overlay draws into.
type Target struct {
	Texture       hal.Texture
	View          hal.TextureView
	Format        gputypes.TextureFormat
	Width, Height uint32
}

// Overlay records its content into the acquired image.
type Overlay interface {
	Render(win window.Handle, enc hal.CommandEncoder, t Target) error
}

// Updater is implemented by overlays that track per-frame state. Update
// runs on the command-stream goroutine once per presented frame.
type Updater interface {
	Update(frameID uint64)
}

// List is an ordered set of overlays.
type List struct {
	logger *slog.Logger

	mu    sync.Mutex
	items []Overlay
}

// NewList returns an empty list. A nil logger discards output.
func NewList(logger *slog.Logger) *List {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &List{logger: logger}
}

// Add appends o. Overlays render in insertion order.
func (l *List) Add(o Overlay) {
	if o == nil {
		return
	}
	l.mu.Lock()
	l.items = append(l.items, o)
	l.mu.Unlock()
}

// Len returns the number of overlays.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Snapshot returns a copy of the overlay slice, safe to hand to another
// goroutine.
func (l *List) Snapshot() []Overlay {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Overlay, len(l.items))
	copy(out, l.items)
	return out
}

// Render draws every overlay. Errors are logged and skipped.
func (l *List) Render(win window.Handle, enc hal.CommandEncoder, t Target) {
	for _, o := range l.Snapshot() {
		if err := o.Render(win, enc, t); err != nil {
			l.logger.Warn("overlay: render failed", "window", win, "err", err)
		}
	}
}

// Update runs Update on every overlay in items that implements Updater.
func Update(items []Overlay, frameID uint64) {
	for _, o := range items {
		if u, ok := o.(Updater); ok {
			u.Update(frameID)
		}
	}
}

// HandleMessage forwards msg to every overlay that handles window
// messages. It reports whether any of them consumed it.
func (l *List) HandleMessage(msg window.Message) bool {
	consumed := false
	for _, o := range l.Snapshot() {
		if h, ok := o.(window.Handler); ok && h.HandleMessage(msg) {
			consumed = true
		}
	}
	return consumed
}

// MenuOpen reports whether any overlay has its menu open.
func (l *List) MenuOpen() bool {
	for _, o := range l.Snapshot() {
		if m, ok := o.(window.MenuStater); ok && m.MenuOpen() {
			return true
		}
	}
	return false
}

var (
	_ window.Handler    = (*List)(nil)
	_ window.MenuStater = (*List)(nil)
)
