// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package backbuffer manages the logical back buffer an application renders
// into and the per-image views of the presentation surface.
//
// The back buffer is exclusively owned by its [Manager]; the swap chain
// blits it into whichever surface image the presenter hands out. [Views]
// tracks one view slot per surface image and is resized whenever the
// presenter is recreated.
package backbuffer

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNotCreated is returned when the back buffer is used before Create.
var ErrNotCreated = errors.New("backbuffer: not created")

// Config describes the back buffer to allocate.
type Config struct {
	Width, Height uint32
	Format        gputypes.TextureFormat
	SampleCount   uint32

	// Usage is the usage requested by the application. The usages needed
	// to clear and blit the buffer are always added.
	Usage gputypes.TextureUsage

	// DiscardOnPresent marks contents as undefined after each present.
	// Discard clears such buffers once they were presented.
	DiscardOnPresent bool
}

// requiredUsage is added to every back buffer: it is cleared through a
// render pass and read by the blitter through a copy or a sampled view.
const requiredUsage = gputypes.TextureUsageRenderAttachment |
	gputypes.TextureUsageCopySrc |
	gputypes.TextureUsageTextureBinding

// Manager owns the back buffer texture and its sampled view.
type Manager struct {
	device hal.Device
	queue  hal.Queue

	cfg     Config
	texture hal.Texture
	view    hal.TextureView
	// generation increases every time the back buffer is recreated.
	generation uint64
}

// NewManager returns a manager with no back buffer allocated.
func NewManager(device hal.Device, queue hal.Queue) *Manager {
	return &Manager{device: device, queue: queue}
}

// Create destroys the current back buffer, if any, and allocates a new one
// for cfg. The new buffer is cleared to transparent black before Create
// returns, so the first presented frame never shows stale memory.
func (m *Manager) Create(cfg Config) error {
	m.Destroy()

	cfg.Width = max(cfg.Width, 1)
	cfg.Height = max(cfg.Height, 1)
	cfg.SampleCount = max(cfg.SampleCount, 1)

	tex, err := m.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "swapchain_backbuffer",
		Size:          hal.Extent3D{Width: cfg.Width, Height: cfg.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   cfg.SampleCount,
		Dimension:     gputypes.TextureDimension2D,
		Format:        cfg.Format,
		Usage:         cfg.Usage | requiredUsage,
	})
	if err != nil {
		return fmt.Errorf("backbuffer: create texture: %w", err)
	}

	view, err := m.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           "swapchain_backbuffer_view",
		Format:          cfg.Format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		m.device.DestroyTexture(tex)
		return fmt.Errorf("backbuffer: create view: %w", err)
	}

	m.cfg = cfg
	m.texture = tex
	m.view = view
	m.generation++

	if err := m.clear(); err != nil {
		m.Destroy()
		return err
	}
	return nil
}

// clear records a one-shot render pass that clears the back buffer to
// transparent black and waits for it to finish.
func (m *Manager) clear() error {
	encoder, err := m.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "swapchain_backbuffer_clear",
	})
	if err != nil {
		return fmt.Errorf("backbuffer: create encoder: %w", err)
	}
	if err := encoder.BeginEncoding("swapchain_backbuffer_clear"); err != nil {
		return fmt.Errorf("backbuffer: begin encoding: %w", err)
	}

	m.recordClear(encoder)

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("backbuffer: end encoding: %w", err)
	}
	defer m.device.FreeCommandBuffer(cmdBuf)

	if _, err := m.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return fmt.Errorf("backbuffer: submit clear: %w", err)
	}
	if err := m.device.WaitIdle(); err != nil {
		return fmt.Errorf("backbuffer: wait for clear: %w", err)
	}
	return nil
}

func (m *Manager) recordClear(enc hal.CommandEncoder) {
	pass := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "swapchain_backbuffer_clear",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       m.view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	pass.End()
}

// Discard records a clear of a presented back buffer on enc when its
// contents are discarded on present. It reports whether a clear was
// recorded.
func (m *Manager) Discard(enc hal.CommandEncoder) bool {
	if m.view == nil || !m.cfg.DiscardOnPresent {
		return false
	}
	m.recordClear(enc)
	return true
}

// Texture returns the back buffer texture, or nil before Create.
func (m *Manager) Texture() hal.Texture { return m.texture }

// View returns the sampled view of the back buffer, or nil before Create.
func (m *Manager) View() hal.TextureView { return m.view }

// Config returns the configuration of the current back buffer.
func (m *Manager) Config() Config { return m.cfg }

// Generation returns how many times the back buffer has been created.
func (m *Manager) Generation() uint64 { return m.generation }

// Destroy releases the back buffer. Safe to call multiple times.
func (m *Manager) Destroy() {
	if m.view != nil {
		m.device.DestroyTextureView(m.view)
		m.view = nil
	}
	if m.texture != nil {
		m.device.DestroyTexture(m.texture)
		m.texture = nil
	}
}
