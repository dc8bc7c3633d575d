// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package presenter owns the native presentation surface and its images.
//
// The swap chain controller drives a [Presenter] through a narrow contract:
// recreate the surface for a descriptor, acquire the next image, present it,
// and report image count and format. [HAL] implements the contract on top of
// a gogpu/wgpu hal.Surface; other backends can be added through the
// registry in this package.
package presenter

import (
	"errors"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Sentinel errors returned by presenters.
var (
	// ErrNoSupportedFormat is returned when none of the requested formats is
	// supported by the surface.
	ErrNoSupportedFormat = errors.New("presenter: no supported surface format")

	// ErrNoSurface is returned when an operation needs a configured surface.
	ErrNoSurface = errors.New("presenter: surface not configured")

	// ErrBackendNotFound is returned by New for an unregistered backend name.
	ErrBackendNotFound = errors.New("presenter: backend not found")
)

// FullscreenMode controls whether the presenter may use exclusive
// fullscreen for the surface.
type FullscreenMode uint8

const (
	// FullscreenDisallowed keeps the surface composited.
	FullscreenDisallowed FullscreenMode = iota
	// FullscreenAllowed lets the presenter take exclusive ownership of the
	// output when requested.
	FullscreenAllowed
)

// Desc describes the surface configuration requested from a presenter.
// Formats and PresentModes are listed in order of preference.
type Desc struct {
	Width, Height  uint32
	ImageCount     uint32
	Formats        []gputypes.TextureFormat
	PresentModes   []gputypes.PresentMode
	FullscreenMode FullscreenMode
}

// Info reports the configuration the presenter actually settled on.
type Info struct {
	ImageCount    uint32
	Format        gputypes.TextureFormat
	Width, Height uint32
	PresentMode   gputypes.PresentMode
}

// Sync carries the per-image synchronization state returned by Acquire.
// It is consumed by exactly one Present call and must not be reused.
type Sync struct {
	Texture hal.SurfaceTexture
	Index   uint32
}

// Presenter is the surface owner consumed by the swap chain.
type Presenter interface {
	// Info returns the current surface configuration.
	Info() Info

	// HasSurface reports whether a surface is configured and presentable.
	HasSurface() bool

	// Recreate reconfigures the surface. A zero extent leaves the presenter
	// without a surface, which is not an error.
	Recreate(desc Desc) error

	// Acquire returns the next presentable image.
	Acquire() (Sync, uint32, gputypes.SurfaceStatus)

	// Present queues the acquired image for display.
	Present(sync Sync, damage []image.Rectangle) gputypes.SurfaceStatus

	// Discard returns an acquired image that will not be presented.
	Discard(sync Sync)

	// SetFrameRateLimit caps presentation at hz frames per second.
	// Zero disables the limiter.
	SetFrameRateLimit(hz float64)

	// SetFrameRateLimiterRefreshRate tells the limiter the refresh rate of
	// the display, or zero when unknown.
	SetFrameRateLimiterRefreshRate(hz float64)

	// AcquireExclusive and ReleaseExclusive toggle exclusive fullscreen.
	AcquireExclusive() error
	ReleaseExclusive() error

	// Destroy releases the surface configuration.
	Destroy()
}

// Failed reports whether status requires the surface to be recreated
// before the next acquire.
func Failed(status gputypes.SurfaceStatus) bool {
	return status != gputypes.SurfaceStatusGood
}
