package swapchain

import (
	"errors"
	"fmt"

	"github.com/gogpu/swapchain/window"
)

// EnterFullscreenMode makes the window cover its monitor and asks the
// presenter for exclusive access to the output. In bridged mode the remote
// host owns the window and only the window procedure is hooked.
func (s *SwapChain) EnterFullscreenMode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.fullscreen == nil {
		return fmt.Errorf("swapchain: enter fullscreen: %w", window.ErrUnsupported)
	}

	if err := s.fullscreen.Enter(); err != nil {
		return fmt.Errorf("swapchain: enter fullscreen: %w", err)
	}
	if err := s.AcquireFullscreenExclusive(); err != nil {
		return fmt.Errorf("swapchain: enter fullscreen: %w", err)
	}
	return nil
}

// LeaveFullscreenMode restores the window placement saved by
// EnterFullscreenMode and gives up exclusive access. It fails with
// ErrWindowInvalid if the window was destroyed.
func (s *SwapChain) LeaveFullscreenMode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.fullscreen == nil {
		return fmt.Errorf("swapchain: leave fullscreen: %w", window.ErrUnsupported)
	}

	if err := s.fullscreen.Leave(); err != nil {
		if errors.Is(err, window.ErrInvalidWindow) {
			return fmt.Errorf("%w: %w", ErrWindowInvalid, err)
		}
		return fmt.Errorf("swapchain: leave fullscreen: %w", err)
	}

	// Back on the desktop mode, whose refresh rate is not known.
	s.refreshRate = 0
	if p := s.currentPresenter(); p != nil {
		p.SetFrameRateLimiterRefreshRate(0)
	}
	if err := s.ReleaseFullscreenExclusive(); err != nil {
		return fmt.Errorf("swapchain: leave fullscreen: %w", err)
	}
	return nil
}

// FullscreenState returns the state of the fullscreen transition.
func (s *SwapChain) FullscreenState() window.State {
	if s.fullscreen == nil {
		return window.StateWindowed
	}
	return s.fullscreen.State()
}

// AcquireFullscreenExclusive implements window.Owner. It is a no-op before
// the presenter exists.
func (s *SwapChain) AcquireFullscreenExclusive() error {
	if p := s.currentPresenter(); p != nil {
		return p.AcquireExclusive()
	}
	return nil
}

// ReleaseFullscreenExclusive implements window.Owner.
func (s *SwapChain) ReleaseFullscreenExclusive() error {
	if p := s.currentPresenter(); p != nil {
		return p.ReleaseExclusive()
	}
	return nil
}

// NotifyDisplayModeChange tells the frame rate limiter about the display
// mode. Display modes mean nothing to windowed swap chains, so a windowed
// change or a nil mode resets the refresh rate to unknown.
func (s *SwapChain) NotifyDisplayModeChange(windowed bool, mode *DisplayMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if windowed || mode == nil {
		s.refreshRate = 0
	} else {
		s.refreshRate = mode.RefreshRate()
	}
	if p := s.currentPresenter(); p != nil {
		p.SetFrameRateLimiterRefreshRate(s.refreshRate)
	}
}

var _ window.Owner = (*SwapChain)(nil)
