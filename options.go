package swapchain

import (
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/swapchain/config"
	"github.com/gogpu/swapchain/cs"
	"github.com/gogpu/swapchain/overlay"
	"github.com/gogpu/swapchain/presenter"
	"github.com/gogpu/swapchain/window"
)

// Option configures a SwapChain during creation.
//
// Example:
//
//	sc, err := swapchain.New(device, queue, hwnd, desc,
//	    swapchain.WithSurface(surface, adapter),
//	    swapchain.WithConfig(cfg),
//	)
type Option func(*options)

type options struct {
	cfg              config.Config
	factory          presenter.Factory
	surface          hal.Surface
	adapter          hal.Adapter
	overlays         []overlay.Overlay
	observer         FrameObserver
	registry         *window.Registry
	provider         gpucontext.WindowProvider
	thread           *cs.Thread
	deviceMaxLatency uint32
	logger           *slog.Logger
}

// defaultDeviceMaxLatency is the device frame latency used when the
// application did not request a waitable swap chain.
const defaultDeviceMaxLatency = 3

func defaultOptions() options {
	return options{
		cfg:              *config.Default(),
		deviceMaxLatency: defaultDeviceMaxLatency,
	}
}

// WithConfig sets the environment-derived options. See config.Load.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		if cfg != nil {
			o.cfg = *cfg
		}
	}
}

// WithPresenterFactory replaces the registered presenter backends with f.
func WithPresenterFactory(f presenter.Factory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// WithSurface sets the surface presented to. The adapter is used to query
// surface capabilities and may be nil.
func WithSurface(surface hal.Surface, adapter hal.Adapter) Option {
	return func(o *options) {
		o.surface = surface
		o.adapter = adapter
	}
}

// WithOverlay adds an overlay composited on top of every presented image.
func WithOverlay(ov overlay.Overlay) Option {
	return func(o *options) {
		if ov != nil {
			o.overlays = append(o.overlays, ov)
		}
	}
}

// WithFrameObserver installs the observer notified at the start of every
// Present. If it also implements SurfaceResetter, it is told about
// descriptor changes.
func WithFrameObserver(obs FrameObserver) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithWindowRegistry sets the registry used to hook the window. Swap
// chains presenting to windows of the same process should share one.
func WithWindowRegistry(r *window.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithWindowProvider sets the source of the window extent used when the
// descriptor has a zero width or height.
func WithWindowProvider(p gpucontext.WindowProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithCommandStream shares an existing command-stream thread, typically
// the one of the device's immediate context. The swap chain does not close
// a shared thread.
func WithCommandStream(t *cs.Thread) Option {
	return func(o *options) {
		o.thread = t
	}
}

// WithDeviceMaxLatency sets the frame latency of the device, used when the
// swap chain is not latency-waitable. Values outside [1, MaxBufferCount]
// are ignored.
func WithDeviceMaxLatency(n uint32) Option {
	return func(o *options) {
		if n >= 1 && n <= MaxBufferCount {
			o.deviceMaxLatency = n
		}
	}
}

// WithLogger sets the logger of this swap chain. It defaults to Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
