package window

import (
	"fmt"
	"sync"
)

// State is a fullscreen transition state.
type State uint8

// Fullscreen states.
const (
	StateWindowed State = iota
	StateEntering
	StateFullscreen
	StateLeaving
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateWindowed:
		return "Windowed"
	case StateEntering:
		return "Entering"
	case StateFullscreen:
		return "Fullscreen"
	case StateLeaving:
		return "Leaving"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Placement is the window state saved on entering fullscreen.
type Placement struct {
	Style   Style
	ExStyle ExStyle
	Rect    Rect
}

// Fullscreen moves one window in and out of fullscreen.
//
// Entering hooks the window procedure, strips the decoration and covers
// the monitor with a topmost window. Leaving unhooks, restores the saved
// styles unless the application changed them in the meantime, and moves
// the window back to its saved rectangle. In bridged mode the remote host
// owns the window and only the hook is touched.
type Fullscreen struct {
	reg     *Registry
	sys     System
	h       Handle
	owner   Owner
	handler Handler

	mu    sync.Mutex
	state State
	saved Placement
}

// NewFullscreen returns the state machine for window h.
func NewFullscreen(reg *Registry, h Handle, owner Owner, handler Handler) *Fullscreen {
	return &Fullscreen{
		reg:     reg,
		sys:     reg.System(),
		h:       h,
		owner:   owner,
		handler: handler,
	}
}

// State returns the current state.
func (f *Fullscreen) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Placement returns the placement saved by the last Enter.
func (f *Fullscreen) Placement() Placement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved
}

func (f *Fullscreen) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Enter switches the window to fullscreen. Entering while already
// fullscreen does nothing.
func (f *Fullscreen) Enter() error {
	f.mu.Lock()
	if f.state != StateWindowed {
		f.mu.Unlock()
		return nil
	}
	f.state = StateEntering
	f.mu.Unlock()

	saved, err := f.enter()
	if err != nil {
		f.setState(StateWindowed)
		return err
	}

	f.mu.Lock()
	f.saved = saved
	f.state = StateFullscreen
	f.mu.Unlock()
	slogger().Info("window: entered fullscreen", "window", f.h)
	return nil
}

func (f *Fullscreen) enter() (Placement, error) {
	var saved Placement
	rect, err := f.sys.Rect(f.h)
	if err != nil {
		return saved, fmt.Errorf("window: enter fullscreen: %w", err)
	}
	saved.Rect = rect

	if err := f.reg.Hook(f.h, f.owner, f.handler); err != nil {
		return saved, fmt.Errorf("window: enter fullscreen: hook: %w", err)
	}
	if f.reg.Bridged() {
		return saved, nil
	}

	restore := f.reg.Filter(f.h)
	defer restore()

	style, ex, err := f.sys.Style(f.h)
	if err != nil {
		return saved, fmt.Errorf("window: enter fullscreen: %w", err)
	}
	saved.Style, saved.ExStyle = style, ex

	if err := f.sys.SetStyle(f.h, style&^StyleOverlappedWindow, ex&^ExStyleOverlappedWindow); err != nil {
		return saved, fmt.Errorf("window: enter fullscreen: %w", err)
	}
	mon, err := f.sys.MonitorRect(f.h)
	if err != nil {
		return saved, fmt.Errorf("window: enter fullscreen: %w", err)
	}
	err = f.sys.SetPos(f.h, Topmost, mon,
		PosFrameChanged|PosShowWindow|PosNoActivate|PosAsyncWindowPos)
	if err != nil {
		return saved, fmt.Errorf("window: enter fullscreen: %w", err)
	}
	return saved, nil
}

// Leave returns the window to its saved placement. It fails with
// ErrInvalidWindow if the window was destroyed. A failure to restore the
// display mode is logged and does not stop the rest of the transition.
func (f *Fullscreen) Leave() error {
	if !f.sys.IsWindow(f.h) {
		return ErrInvalidWindow
	}

	f.mu.Lock()
	if f.state != StateFullscreen {
		f.mu.Unlock()
		return nil
	}
	f.state = StateLeaving
	saved := f.saved
	f.mu.Unlock()

	defer f.setState(StateWindowed)

	if err := f.sys.RestoreDisplayMode(f.h); err != nil {
		slogger().Warn("window: leave fullscreen: failed to restore display mode", "window", f.h, "err", err)
	}

	f.reg.Unhook(f.h)

	if !f.reg.Bridged() {
		if err := f.restorePlacement(saved); err != nil {
			return err
		}
	}
	slogger().Info("window: left fullscreen", "window", f.h)
	return nil
}

func (f *Fullscreen) restorePlacement(saved Placement) error {
	style, ex, err := f.sys.Style(f.h)
	if err != nil {
		return fmt.Errorf("window: leave fullscreen: %w", err)
	}
	curStyle := style &^ StyleVisible
	curEx := ex &^ ExStyleTopmost
	if curStyle == saved.Style&^(StyleVisible|StyleOverlappedWindow) &&
		curEx == saved.ExStyle&^(ExStyleTopmost|ExStyleOverlappedWindow) {
		if err := f.sys.SetStyle(f.h, saved.Style, saved.ExStyle); err != nil {
			return fmt.Errorf("window: leave fullscreen: %w", err)
		}
	} else {
		slogger().Debug("window: style changed while fullscreen, keeping it", "window", f.h)
	}

	err = f.sys.SetPos(f.h, 0, saved.Rect,
		PosFrameChanged|PosNoZOrder|PosNoActivate|PosAsyncWindowPos)
	if err != nil {
		return fmt.Errorf("window: leave fullscreen: %w", err)
	}
	return nil
}
