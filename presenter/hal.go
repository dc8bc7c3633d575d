// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package presenter

import (
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Target bundles the GPU objects a presenter is built from.
type Target struct {
	Device  hal.Device
	Queue   hal.Queue
	Surface hal.Surface

	// Adapter is used to query surface capabilities. When nil, the first
	// requested format and present mode are used as is.
	Adapter hal.Adapter
}

// HAL presents through a gogpu/wgpu hal.Surface.
type HAL struct {
	target Target

	mu         sync.Mutex
	info       Info
	configured bool
	exclusive  bool
	fullscreen FullscreenMode
	next       uint32

	limiter *FrameRateLimiter
}

var _ Presenter = (*HAL)(nil)

// NewHAL creates a presenter for the target surface. The surface is not
// configured until the first Recreate.
func NewHAL(t Target) (*HAL, error) {
	if t.Device == nil || t.Queue == nil || t.Surface == nil {
		return nil, errors.New("presenter: device, queue and surface are required")
	}
	return &HAL{
		target:  t,
		limiter: NewFrameRateLimiter(),
	}, nil
}

// Info returns the current surface configuration.
func (p *HAL) Info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info
}

// HasSurface reports whether the surface is configured.
func (p *HAL) HasSurface() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.configured
}

// Recreate reconfigures the surface for desc. The previous configuration
// is dropped first. A zero extent, as reported for minimized windows,
// leaves the surface unconfigured.
func (p *HAL) Recreate(desc Desc) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.configured {
		p.target.Surface.Unconfigure(p.target.Device)
		p.configured = false
	}
	p.next = 0
	p.fullscreen = desc.FullscreenMode

	if desc.Width == 0 || desc.Height == 0 {
		p.info = Info{}
		slogger().Debug("presenter: zero extent, surface left unconfigured")
		return nil
	}

	format, mode, err := p.negotiate(desc)
	if err != nil {
		return err
	}

	imageCount := max(desc.ImageCount, 1)
	err = p.target.Surface.Configure(p.target.Device, &hal.SurfaceConfiguration{
		Width:       desc.Width,
		Height:      desc.Height,
		Format:      format,
		Usage:       gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopyDst,
		PresentMode: mode,
		AlphaMode:   gputypes.CompositeAlphaModeOpaque,
	})
	if err != nil {
		return fmt.Errorf("presenter: configure surface: %w", err)
	}

	p.configured = true
	p.info = Info{
		ImageCount:  imageCount,
		Format:      format,
		Width:       desc.Width,
		Height:      desc.Height,
		PresentMode: mode,
	}
	slogger().Debug("presenter: surface configured",
		"width", desc.Width, "height", desc.Height,
		"format", format, "mode", mode, "images", imageCount)
	return nil
}

// negotiate picks the first requested format and present mode that the
// adapter reports as supported.
func (p *HAL) negotiate(desc Desc) (gputypes.TextureFormat, gputypes.PresentMode, error) {
	if len(desc.Formats) == 0 {
		return gputypes.TextureFormatUndefined, 0, ErrNoSupportedFormat
	}
	format := desc.Formats[0]
	mode := gputypes.PresentModeFifo
	if len(desc.PresentModes) > 0 {
		mode = desc.PresentModes[0]
	}
	if p.target.Adapter == nil {
		return format, mode, nil
	}

	caps := p.target.Adapter.SurfaceCapabilities(p.target.Surface)
	if caps == nil {
		return format, mode, nil
	}

	format = gputypes.TextureFormatUndefined
	for _, f := range desc.Formats {
		if slices.Contains(caps.Formats, f) {
			format = f
			break
		}
	}
	if format == gputypes.TextureFormatUndefined {
		return format, 0, fmt.Errorf("%w: requested %v", ErrNoSupportedFormat, desc.Formats)
	}

	// FIFO is always available, so fall back to it.
	mode = gputypes.PresentModeFifo
	for _, m := range desc.PresentModes {
		if slices.Contains(caps.PresentModes, m) {
			mode = m
			break
		}
	}
	return format, mode, nil
}

// Acquire returns the next presentable texture. A suboptimal texture is
// discarded and reported as Suboptimal so the caller recreates the
// surface before drawing into it.
func (p *HAL) Acquire() (Sync, uint32, gputypes.SurfaceStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.configured {
		return Sync{}, 0, gputypes.SurfaceStatusOutdated
	}

	acquired, err := p.target.Surface.AcquireTexture(nil)
	if err != nil {
		status := StatusOf(err)
		slogger().Debug("presenter: acquire failed", "err", err, "status", status)
		return Sync{}, 0, status
	}
	if acquired.Suboptimal {
		p.target.Surface.DiscardTexture(acquired.Texture)
		return Sync{}, 0, gputypes.SurfaceStatusSuboptimal
	}

	index := p.next
	p.next = (p.next + 1) % p.info.ImageCount
	return Sync{Texture: acquired.Texture, Index: index}, index, gputypes.SurfaceStatusGood
}

// Present queues the texture in sync for display.
func (p *HAL) Present(sync Sync, damage []image.Rectangle) gputypes.SurfaceStatus {
	if sync.Texture == nil {
		return gputypes.SurfaceStatusUnknown
	}
	p.limiter.Delay()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.configured {
		p.target.Surface.DiscardTexture(sync.Texture)
		return gputypes.SurfaceStatusOutdated
	}
	if err := p.target.Queue.Present(p.target.Surface, sync.Texture, damage); err != nil {
		status := StatusOf(err)
		slogger().Debug("presenter: present failed", "err", err, "status", status)
		return status
	}
	return gputypes.SurfaceStatusGood
}

// Discard hands an acquired texture back to the surface unpresented. The
// image index is handed out again if nothing was acquired since.
func (p *HAL) Discard(sync Sync) {
	if sync.Texture == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target.Surface.DiscardTexture(sync.Texture)
	if p.info.ImageCount != 0 && (sync.Index+1)%p.info.ImageCount == p.next {
		p.next = sync.Index
	}
}

// SetFrameRateLimit caps presentation at hz frames per second.
func (p *HAL) SetFrameRateLimit(hz float64) { p.limiter.SetTarget(hz) }

// SetFrameRateLimiterRefreshRate records the display refresh rate.
func (p *HAL) SetFrameRateLimiterRefreshRate(hz float64) { p.limiter.SetRefreshRate(hz) }

// AcquireExclusive marks the surface as owning the output. The hal layer
// has no exclusive-mode entry point, so only the state is tracked; it is
// refused when the surface was configured without mode switching.
func (p *HAL) AcquireExclusive() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fullscreen != FullscreenAllowed {
		return nil
	}
	if !p.exclusive {
		p.exclusive = true
		slogger().Info("presenter: exclusive fullscreen acquired")
	}
	return nil
}

// ReleaseExclusive gives up exclusive ownership of the output.
func (p *HAL) ReleaseExclusive() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exclusive {
		p.exclusive = false
		slogger().Info("presenter: exclusive fullscreen released")
	}
	return nil
}

// Exclusive reports whether exclusive fullscreen is held.
func (p *HAL) Exclusive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exclusive
}

// Destroy unconfigures the surface. The surface itself belongs to the
// caller.
func (p *HAL) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.configured {
		p.target.Surface.Unconfigure(p.target.Device)
		p.configured = false
	}
	p.info = Info{}
}

// StatusOf maps hal surface errors onto a surface status.
func StatusOf(err error) gputypes.SurfaceStatus {
	switch {
	case err == nil:
		return gputypes.SurfaceStatusGood
	case errors.Is(err, hal.ErrSurfaceOutdated), errors.Is(err, hal.ErrZeroArea):
		return gputypes.SurfaceStatusOutdated
	case errors.Is(err, hal.ErrSurfaceLost), errors.Is(err, hal.ErrDeviceLost):
		return gputypes.SurfaceStatusLost
	case errors.Is(err, hal.ErrTimeout), errors.Is(err, hal.ErrNotReady):
		return gputypes.SurfaceStatusTimeout
	default:
		return gputypes.SurfaceStatusUnknown
	}
}
