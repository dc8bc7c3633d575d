package swapchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/swapchain/backbuffer"
	"github.com/gogpu/swapchain/blit"
	"github.com/gogpu/swapchain/config"
	"github.com/gogpu/swapchain/cs"
	"github.com/gogpu/swapchain/latency"
	"github.com/gogpu/swapchain/overlay"
	"github.com/gogpu/swapchain/presenter"
	"github.com/gogpu/swapchain/window"
)

// FrameObserver is notified at the very start of every Present, before
// the swap chain blocks on anything.
type FrameObserver interface {
	NotifyEndOfFrame()
}

// SurfaceResetter is an optional FrameObserver capability. ResetSurface is
// called with the descriptor at creation and after every ChangeProperties.
type SurfaceResetter interface {
	ResetSurface(desc Desc)
}

// defaultFrameLatency is the initial latency of a waitable swap chain.
const defaultFrameLatency = 1

// SwapChain presents a back buffer to a window surface.
//
// One goroutine calls Present; GPU submission and the presenter's present
// run on a command-stream goroutine in the order Present was called. The
// remaining methods are safe for concurrent use.
type SwapChain struct {
	win    window.Handle
	cfg    config.Config
	logger *slog.Logger

	dev        *device
	thread     *cs.Thread
	ownThread  bool
	fence      *latency.Fence
	sem        *latency.Semaphore
	status     *presenter.PresentStatus
	backbuffer *backbuffer.Manager
	views      *backbuffer.Views
	blitter    *blit.Blitter
	overlays   *overlay.List
	stats      *overlay.Stats
	hud        *overlay.HUD
	observer   FrameObserver
	registry   *window.Registry
	fullscreen *window.Fullscreen
	provider   gpucontext.WindowProvider

	factory presenter.Factory
	target  presenter.Target
	backend string

	// pmu guards presenter, which window messages may reach from another
	// goroutine through the exclusive fullscreen callbacks.
	pmu       sync.Mutex
	presenter presenter.Presenter

	mu               sync.Mutex
	desc             Desc
	dirty            bool
	vsync            bool
	frameID          uint64
	frameLatency     uint32
	frameLatencyCap  uint32
	deviceMaxLatency uint32
	refreshRate      float64
	closed           bool
}

// New creates a swap chain presenting to win.
//
// Unless surface creation is deferred by the configuration, the presenter
// is created right away through WithPresenterFactory, or through the
// presenter registry for the surface given by WithSurface.
func New(dev hal.Device, queue hal.Queue, win window.Handle, desc Desc, opts ...Option) (*SwapChain, error) {
	if dev == nil || queue == nil {
		return nil, invalidArgf("device and queue are required")
	}
	queue = newLockedQueue(queue)
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	logger := o.logger
	if logger == nil {
		logger = Logger()
	}

	s := &SwapChain{
		win:              win,
		cfg:              o.cfg,
		logger:           logger,
		observer:         o.observer,
		registry:         o.registry,
		provider:         o.provider,
		factory:          o.factory,
		target:           presenter.Target{Device: dev, Queue: queue, Surface: o.surface, Adapter: o.adapter},
		backend:          o.cfg.PresenterBackend,
		frameLatency:     defaultFrameLatency,
		frameLatencyCap:  uint32(o.cfg.MaxFrameLatency),
		deviceMaxLatency: o.deviceMaxLatency,
	}
	if s.registry == nil {
		if sys, err := window.NativeSystem(); err == nil {
			s.registry = window.NewRegistry(sys)
		} else {
			logger.Debug("swapchain: no window system, window hooks disabled", "err", err)
		}
	}
	if s.registry != nil && s.cfg.BridgeActive {
		s.registry.SetBridged(true)
	}

	if err := s.resolveExtent(&desc); err != nil {
		return nil, err
	}
	if err := desc.validate(); err != nil {
		return nil, err
	}
	s.desc = desc

	s.fence = latency.NewFence(0)
	if desc.Flags&FlagFrameLatencyWaitable != 0 {
		sem, err := latency.NewSemaphore(int(s.frameLatency), MaxBufferCount)
		if err != nil {
			s.fence.Close()
			return nil, fmt.Errorf("swapchain: frame latency semaphore: %w", err)
		}
		s.sem = sem
	}

	s.thread = o.thread
	if s.thread == nil {
		s.thread = cs.NewThread(logger)
		s.ownThread = true
	}
	s.dev = newDevice(dev, queue, s.fence)
	s.status = presenter.NewPresentStatus()
	s.views = backbuffer.NewViews(dev)
	s.blitter = blit.New(dev, queue)

	s.overlays = overlay.NewList(logger)
	for _, ov := range o.overlays {
		s.overlays.Add(ov)
	}
	if s.cfg.EnableOverlayStats || s.cfg.EnableHUD {
		s.stats = overlay.NewStats()
		s.overlays.Add(s.stats)
	}
	if s.cfg.EnableHUD {
		hud, err := overlay.NewHUD(dev, queue, s.stats, s.cfg.HUDSize)
		if err != nil {
			s.release()
			return nil, fmt.Errorf("swapchain: %w", err)
		}
		s.hud = hud
		s.overlays.Add(hud)
	}

	if !s.cfg.DeferSurfaceCreation {
		if err := s.createPresenter(); err != nil {
			s.release()
			return nil, err
		}
	}

	s.backbuffer = backbuffer.NewManager(dev, queue)
	if err := s.createBackBuffer(); err != nil {
		s.release()
		return nil, err
	}

	if s.registry != nil {
		s.fullscreen = window.NewFullscreen(s.registry, win, s, s.overlays)
		if err := s.registry.Hook(win, s, s.overlays); err != nil {
			logger.Warn("swapchain: hook window procedure", "window", win, "err", err)
		}
	}
	if r, ok := s.observer.(SurfaceResetter); ok {
		r.ResetSurface(s.desc)
	}

	logger.Info("swapchain: created",
		"window", win, "width", desc.Width, "height", desc.Height,
		"format", desc.Format, "buffers", desc.BufferCount)
	return s, nil
}

// resolveExtent fills a zero width or height from the window.
func (s *SwapChain) resolveExtent(desc *Desc) error {
	if desc.Width != 0 && desc.Height != 0 {
		return nil
	}
	var w, h uint32
	switch {
	case s.provider != nil:
		pw, ph := s.provider.Size()
		sf := s.provider.ScaleFactor()
		if sf <= 0 {
			sf = 1
		}
		w = uint32(math.Round(float64(pw) * sf))
		h = uint32(math.Round(float64(ph) * sf))
	case s.registry != nil:
		r, err := s.registry.System().Rect(s.win)
		if err != nil {
			return fmt.Errorf("%w: window extent: %w", ErrInvalidArgument, err)
		}
		w, h = uint32(max(r.Width(), 0)), uint32(max(r.Height(), 0))
	default:
		return invalidArgf("zero extent and no window to take it from")
	}
	if desc.Width == 0 {
		desc.Width = w
	}
	if desc.Height == 0 {
		desc.Height = h
	}
	return nil
}

// createPresenter creates the presenter and configures its surface.
func (s *SwapChain) createPresenter() error {
	var (
		p   presenter.Presenter
		err error
	)
	if s.factory != nil {
		p, err = s.factory(s.target)
	} else {
		p, err = presenter.New(s.backend, s.target)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRecreateFailed, err)
	}

	if err := p.Recreate(s.presenterDesc(false)); err != nil {
		p.Destroy()
		return fmt.Errorf("%w: %w", ErrRecreateFailed, err)
	}
	p.SetFrameRateLimit(float64(s.cfg.MaxFrameRate))
	p.SetFrameRateLimiterRefreshRate(s.refreshRate)

	s.pmu.Lock()
	s.presenter = p
	s.pmu.Unlock()

	s.createImageViews()
	return nil
}

// currentPresenter returns the presenter, or nil before it was created.
func (s *SwapChain) currentPresenter() presenter.Presenter {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	return s.presenter
}

// recreate rebuilds the presenter's surface. It waits for the last present
// and for the GPU so no presentation image is in use.
func (s *SwapChain) recreate(vsync bool) error {
	s.thread.Synchronize()
	s.status.Wait()
	if err := s.dev.waitIdle(); err != nil {
		s.logger.Warn("swapchain: wait for idle before recreate", "err", err)
	}
	s.status.Clear()

	p := s.currentPresenter()
	if err := p.Recreate(s.presenterDesc(vsync)); err != nil {
		s.logger.Error("swapchain: failed to recreate surface", "err", err)
		return fmt.Errorf("%w: %w", ErrRecreateFailed, err)
	}
	s.blitter.ReleaseStale()
	s.createImageViews()
	s.logger.Debug("swapchain: surface recreated", "vsync", vsync)
	return nil
}

// createImageViews resizes the view array to the presenter's image count.
func (s *SwapChain) createImageViews() {
	info := s.currentPresenter().Info()
	s.views.Rebuild(info.ImageCount, info.Format)
}

// createBackBuffer replaces the back buffer for the current descriptor.
func (s *SwapChain) createBackBuffer() error {
	err := s.backbuffer.Create(backbuffer.Config{
		Width:            s.desc.Width,
		Height:           s.desc.Height,
		Format:           s.desc.Format,
		SampleCount:      s.desc.SampleCount,
		Usage:            s.desc.Usage.textureUsage(),
		DiscardOnPresent: s.desc.SwapEffect.discards(),
	})
	if err != nil {
		return fmt.Errorf("swapchain: %w", err)
	}
	return nil
}

// GetDesc returns the surface descriptor.
func (s *SwapChain) GetDesc() Desc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

// ChangeProperties replaces the surface descriptor. The back buffer is
// rebuilt right away; the presenter's surface is recreated by the next
// Present if format, extent, buffer count or flags changed. If the new back
// buffer cannot be allocated the previous descriptor stays in effect.
func (s *SwapChain) ChangeProperties(desc Desc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.resolveExtent(&desc); err != nil {
		return err
	}
	if err := desc.validate(); err != nil {
		return err
	}

	prevDesc, prevDirty := s.desc, s.dirty
	if s.desc.drifted(desc) {
		s.dirty = true
	}
	s.desc = desc

	// The blitter may still read the old back buffer.
	s.thread.Synchronize()
	s.status.Wait()
	if err := s.dev.waitIdle(); err != nil {
		s.logger.Warn("swapchain: wait for idle before resize", "err", err)
	}
	if err := s.createBackBuffer(); err != nil {
		s.desc, s.dirty = prevDesc, prevDirty
		if rerr := s.createBackBuffer(); rerr != nil {
			s.logger.Error("swapchain: restore back buffer", "err", rerr)
		}
		return err
	}
	if r, ok := s.observer.(SurfaceResetter); ok {
		r.ResetSurface(desc)
	}
	return nil
}

// IsDirty reports whether the next Present recreates the surface.
func (s *SwapChain) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// FrameID returns the id of the last presented frame.
func (s *SwapChain) FrameID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameID
}

// BackBuffer returns the texture and view the application renders into.
// They change after ChangeProperties.
func (s *SwapChain) BackBuffer() (hal.Texture, hal.TextureView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backbuffer.Texture(), s.backbuffer.View()
}

// ImageViewCount returns the number of per-image views, which equals the
// presenter's image count.
func (s *SwapChain) ImageViewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views.Len()
}

// Stats returns the frame statistics, or false when the statistics
// overlay is disabled.
func (s *SwapChain) Stats() (overlay.FrameStats, bool) {
	if s.stats == nil {
		return overlay.FrameStats{}, false
	}
	return s.stats.Stats(), true
}

// Close waits for pending presents and the GPU, then releases every
// resource and unhooks the window.
func (s *SwapChain) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.thread.Synchronize()
	s.status.Wait()
	var errs []error
	if err := s.dev.waitIdle(); err != nil {
		errs = append(errs, fmt.Errorf("swapchain: wait for idle: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := s.fence.Wait(ctx, s.frameID); err != nil {
		errs = append(errs, fmt.Errorf("swapchain: wait for frame %d: %w", s.frameID, err))
	}

	if s.registry != nil {
		s.registry.Unhook(s.win)
	}
	s.release()
	return errors.Join(errs...)
}

// release destroys everything New created. Fields that were never set are
// skipped.
func (s *SwapChain) release() {
	if s.thread != nil && s.ownThread {
		s.thread.Close()
	}
	if s.dev != nil {
		s.dev.close()
	}
	if p := s.currentPresenter(); p != nil {
		p.Destroy()
	}
	if s.views != nil {
		s.views.Destroy()
	}
	if s.blitter != nil {
		s.blitter.Destroy()
	}
	if s.hud != nil {
		s.hud.Destroy()
	}
	if s.backbuffer != nil {
		s.backbuffer.Destroy()
	}
	s.fence.Close()
}
