package swapchain

import (
	"image"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/blit"
)

// MaxBufferCount is the largest buffer count and frame latency a swap
// chain accepts.
const MaxBufferCount = 16

// MaxSyncInterval is the largest sync interval accepted by Present.
const MaxSyncInterval = 4

// Usage lists how the application uses the back buffer.
type Usage uint32

// Back buffer usages.
const (
	UsageRenderTarget Usage = 1 << iota
	UsageShaderInput
	UsageUnorderedAccess
)

// textureUsage maps back buffer usages onto texture usages.
func (u Usage) textureUsage() gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u&UsageRenderTarget != 0 {
		out |= gputypes.TextureUsageRenderAttachment
	}
	if u&UsageShaderInput != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u&UsageUnorderedAccess != 0 {
		out |= gputypes.TextureUsageStorageBinding
	}
	return out
}

// SwapEffect selects what happens to the back buffer after a present.
type SwapEffect uint8

// Swap effects.
const (
	SwapEffectDiscard SwapEffect = iota
	SwapEffectSequential
	SwapEffectFlipSequential
	SwapEffectFlipDiscard
)

// discards reports whether the back buffer contents are undefined after
// a present.
func (e SwapEffect) discards() bool {
	return e == SwapEffectDiscard || e == SwapEffectFlipDiscard
}

// Flags are swap chain creation flags.
type Flags uint32

// Swap chain flags.
const (
	// FlagGDICompatible keeps the back buffer readable through GDI.
	FlagGDICompatible Flags = 1 << iota
	// FlagFrameLatencyWaitable creates the waitable frame latency
	// semaphore returned by GetFrameLatencyWaitHandle.
	FlagFrameLatencyWaitable
	// FlagAllowModeSwitch allows exclusive fullscreen.
	FlagAllowModeSwitch
)

// Desc describes the swap chain surface. Descriptors are compared as a
// whole to detect configuration changes.
type Desc struct {
	// Width and Height of the back buffer. Zero takes the extent of the
	// window client area.
	Width, Height uint32
	Format        gputypes.TextureFormat
	// BufferCount is the number of application buffers. The presenter
	// gets one image more unless configured otherwise.
	BufferCount uint32
	Usage       Usage
	SwapEffect  SwapEffect
	Flags       Flags
	// SampleCount of the back buffer. Zero means one.
	SampleCount uint32
}

func (d Desc) validate() error {
	if d.Format == gputypes.TextureFormatUndefined {
		return invalidArgf("undefined format")
	}
	if d.BufferCount == 0 || d.BufferCount > MaxBufferCount {
		return invalidArgf("buffer count %d out of range [1, %d]", d.BufferCount, MaxBufferCount)
	}
	return nil
}

// drifted reports whether moving from d to next requires the presenter's
// surface to be recreated.
func (d Desc) drifted(next Desc) bool {
	return d.Format != next.Format ||
		d.Width != next.Width ||
		d.Height != next.Height ||
		d.BufferCount != next.BufferCount ||
		d.Flags != next.Flags
}

// PresentFlags modify a single Present call.
type PresentFlags uint32

// Present flags.
const (
	// PresentTest only reports whether presenting would succeed.
	PresentTest PresentFlags = 1 << iota
	// PresentDoNotWait skips frame latency throttling for this call.
	PresentDoNotWait
	// PresentAllowTearing is accepted for compatibility. Tearing is
	// governed by the sync interval and the tear-free option.
	PresentAllowTearing
)

// PresentParams carries optional per-present data.
type PresentParams struct {
	// DirtyRects are forwarded to the presenter as damage. Empty means
	// the whole surface changed.
	DirtyRects []image.Rectangle
}

// DisplayMode is the display mode reported by NotifyDisplayModeChange.
type DisplayMode struct {
	Width, Height uint32
	Format        gputypes.TextureFormat
	// RefreshNum / RefreshDen is the refresh rate in Hz.
	RefreshNum, RefreshDen uint32
}

// RefreshRate returns the refresh rate in Hz, or zero if unknown.
func (m DisplayMode) RefreshRate() float64 {
	if m.RefreshDen == 0 {
		return 0
	}
	return float64(m.RefreshNum) / float64(m.RefreshDen)
}

// GammaPoint is one control point of a gamma ramp.
type GammaPoint = blit.GammaPoint

// MaxGammaPoints is the largest number of gamma control points.
const MaxGammaPoints = blit.MaxGammaPoints
