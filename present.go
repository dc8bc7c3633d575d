package swapchain

import (
	"fmt"
	"image"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/swapchain/backbuffer"
	"github.com/gogpu/swapchain/blit"
	"github.com/gogpu/swapchain/overlay"
	"github.com/gogpu/swapchain/presenter"
)

// Present shows the back buffer.
//
// syncInterval is the number of vertical blanks to wait; zero presents
// without vsync. Each interval above one presents the same image again.
// With PresentTest nothing is presented and the result only reports
// whether presenting would succeed.
//
// Present returns nil, ErrOccluded when the surface is not presentable
// right now, ErrDeviceReset when the device is lost, or another error on
// failure. ResultOf classifies the error.
func (s *SwapChain) Present(syncInterval uint32, flags PresentFlags, params *PresentParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if s.observer != nil {
		s.observer.NotifyEndOfFrame()
	}

	if syncInterval > MaxSyncInterval {
		return invalidArgf("sync interval %d exceeds %d", syncInterval, MaxSyncInterval)
	}
	if s.cfg.SyncInterval >= 0 {
		syncInterval = uint32(s.cfg.SyncInterval)
	}

	if flags&PresentTest == 0 {
		vsync := syncInterval != 0
		if vsync != s.vsync {
			s.dirty = true
		}
		s.vsync = vsync
	}

	if s.cfg.ForceVsyncOff {
		if p := s.currentPresenter(); p != nil {
			p.SetFrameRateLimit(0)
			p.SetFrameRateLimiterRefreshRate(0)
		}
		syncInterval = 0
		s.vsync = false
		if s.cfg.ForceVsyncOffClearsDirty {
			s.dirty = false
		}
	}

	if s.currentPresenter() == nil {
		if err := s.createPresenter(); err != nil {
			return err
		}
	}
	p := s.currentPresenter()

	if !p.HasSurface() {
		if err := s.recreate(s.vsync); err != nil {
			return err
		}
		s.dirty = false
	}

	var result error
	if !p.HasSurface() {
		result = ErrOccluded
	}
	if err := s.dev.status(); err != nil {
		result = err
	}
	if flags&PresentTest != 0 || result != nil {
		return result
	}

	if s.dirty {
		s.dirty = false
		if err := s.recreate(s.vsync); err != nil {
			return err
		}
	}

	var damage []image.Rectangle
	if params != nil {
		damage = slices.Clone(params.DirtyRects)
	}
	return s.presentImage(syncInterval, flags, damage)
}

// presentImage runs the acquire, record and submit cycle once per sync
// interval and throttles the caller afterwards.
func (s *SwapChain) presentImage(syncInterval uint32, flags PresentFlags, damage []image.Rectangle) error {
	if s.backbuffer.Texture() == nil {
		return fmt.Errorf("swapchain: present: %w", backbuffer.ErrNotCreated)
	}

	s.frameID++
	frameID := s.frameID

	// A frame that never reaches its last submission still has to retire,
	// or waits for it would never return.
	retired := false
	defer func() {
		if !retired {
			s.dev.retireAt(0, frameID)
		}
	}()

	for i := range max(syncInterval, 1) {
		if err := s.synchronizePresent(); err != nil {
			return err
		}

		p := s.currentPresenter()
		if !p.HasSurface() {
			return ErrOccluded
		}

		sync, index, err := s.acquire(p)
		if err != nil {
			return err
		}

		last := i+1 >= syncInterval
		cmd, err := s.record(p, sync, index, frameID, last)
		if err != nil {
			p.Discard(sync)
			return fmt.Errorf("swapchain: record present: %w", err)
		}

		s.submitPresent(p, cmd, sync, i, frameID, last, damage)
		retired = retired || last
	}

	s.syncFrameLatency(flags)
	return nil
}

// synchronizePresent waits for the previous present and recreates the
// surface if it failed. Blitter resources replaced by frames the GPU has
// finished are released here.
func (s *SwapChain) synchronizePresent() error {
	s.thread.Synchronize()
	status := s.status.Wait()
	s.blitter.ReleaseRetired(s.fence.Value())
	if presenter.Failed(status) {
		s.logger.Debug("swapchain: previous present failed", "status", status)
		return s.recreate(s.vsync)
	}
	return nil
}

// acquire returns the next presentation image. A failed acquire recreates
// the surface and is tried once more; a second failure reports the
// surface as occluded.
func (s *SwapChain) acquire(p presenter.Presenter) (presenter.Sync, uint32, error) {
	sync, index, status := p.Acquire()
	if status == gputypes.SurfaceStatusGood {
		return sync, index, nil
	}
	s.logger.Debug("swapchain: acquire failed, recreating surface", "status", status)

	if err := s.recreate(s.vsync); err != nil {
		return presenter.Sync{}, 0, err
	}
	if !p.HasSurface() {
		return presenter.Sync{}, 0, ErrOccluded
	}
	sync, index, status = p.Acquire()
	if status != gputypes.SurfaceStatusGood {
		s.logger.Debug("swapchain: acquire failed again", "status", status)
		return presenter.Sync{}, 0, ErrOccluded
	}
	return sync, index, nil
}

// record blits the back buffer into the acquired image and composites the
// overlays on top. The last iteration of a frame also clears a back buffer
// whose contents are discarded on present.
func (s *SwapChain) record(p presenter.Presenter, sync presenter.Sync, index uint32,
	frameID uint64, last bool) (hal.CommandBuffer, error) {
	info := p.Info()
	s.blitter.SetFrame(frameID)
	view, err := s.views.Bind(index, sync.Texture)
	if err != nil {
		return nil, err
	}

	enc, err := s.target.Device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "swapchain_present",
	})
	if err != nil {
		return nil, err
	}
	if err := enc.BeginEncoding("swapchain_present"); err != nil {
		return nil, err
	}

	bb := s.backbuffer.Config()
	src := blit.Image{
		Texture: s.backbuffer.Texture(),
		View:    s.backbuffer.View(),
		Width:   bb.Width,
		Height:  bb.Height,
		Format:  bb.Format,
	}
	dst := blit.Image{
		Texture: sync.Texture,
		View:    view,
		Width:   info.Width,
		Height:  info.Height,
		Format:  info.Format,
	}
	if err := s.blitter.Blit(enc, src, dst); err != nil {
		enc.DiscardEncoding()
		return nil, err
	}
	s.overlays.Render(s.win, enc, overlay.Target{
		Texture: sync.Texture,
		View:    view,
		Format:  info.Format,
		Width:   info.Width,
		Height:  info.Height,
	})
	if last {
		s.backbuffer.Discard(enc)
	}

	return enc.EndEncoding()
}

// submitPresent hands the recorded frame to the command-stream thread.
// Everything the command needs is captured by value here, so it sees the
// state of this call even if it runs after the next one started.
func (s *SwapChain) submitPresent(p presenter.Presenter, cmd hal.CommandBuffer, sync presenter.Sync,
	iteration uint32, frameID uint64, last bool, damage []image.Rectangle) {
	s.status.Reset()

	var (
		dev    = s.dev
		status = s.status
		logger = s.logger
		items  = s.overlays.Snapshot()
		signal uint64
	)
	if last {
		signal = frameID
	}

	s.thread.Emit(func() {
		submission, err := dev.submit(cmd)
		if err != nil {
			logger.Error("swapchain: present submission failed", "frame", frameID, "err", err)
		}

		if iteration == 0 {
			overlay.Update(items, frameID)
		}

		status.Set(p.Present(sync, damage))
		dev.retireAt(submission, signal, cmd)
	})
	if err := s.thread.Flush(); err != nil {
		logger.Error("swapchain: flush present", "frame", frameID, "err", err)
		status.Set(gputypes.SurfaceStatusUnknown)
	}
}
