package swapchain

import (
	"errors"
	"testing"

	"github.com/gogpu/swapchain/window"
)

func TestFullscreenEnterLeave(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())

	if err := sc.EnterFullscreenMode(); err != nil {
		t.Fatalf("EnterFullscreenMode() = %v", err)
	}
	if got := sc.FullscreenState(); got != window.StateFullscreen {
		t.Errorf("FullscreenState() = %v, want Fullscreen", got)
	}
	if rect, _ := env.sys.Rect(env.win); rect != testDesktop {
		t.Errorf("fullscreen rect = %+v, want %+v", rect, testDesktop)
	}
	if exclusive, _ := env.fake.fullscreen(); !exclusive {
		t.Error("presenter not switched to exclusive mode")
	}

	sc.NotifyDisplayModeChange(false, &DisplayMode{Width: 1920, Height: 1080, RefreshNum: 120000, RefreshDen: 1000})
	if _, refresh := env.fake.fullscreen(); refresh != 120 {
		t.Errorf("refresh rate = %v, want 120", refresh)
	}

	if err := sc.LeaveFullscreenMode(); err != nil {
		t.Fatalf("LeaveFullscreenMode() = %v", err)
	}
	if got := sc.FullscreenState(); got != window.StateWindowed {
		t.Errorf("FullscreenState() = %v, want Windowed", got)
	}
	rect, _ := env.sys.Rect(env.win)
	style, ex, _ := env.sys.Style(env.win)
	if rect != testRect || style != testStyle || ex != testExStyle {
		t.Errorf("restored rect=%+v style=%#x ex=%#x, want %+v %#x %#x",
			rect, style, ex, testRect, testStyle, testExStyle)
	}
	exclusive, refresh := env.fake.fullscreen()
	if exclusive {
		t.Error("presenter still exclusive")
	}
	if refresh != 0 {
		t.Errorf("refresh rate after leaving = %v, want 0", refresh)
	}
}

func TestLeaveFullscreenDestroyedWindow(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())

	if err := sc.EnterFullscreenMode(); err != nil {
		t.Fatalf("EnterFullscreenMode() = %v", err)
	}
	env.sys.DestroyWindow(env.win)
	if err := sc.LeaveFullscreenMode(); !errors.Is(err, ErrWindowInvalid) {
		t.Errorf("LeaveFullscreenMode() = %v, want ErrWindowInvalid", err)
	}
}

func TestNotifyDisplayModeChange(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())

	mode := &DisplayMode{RefreshNum: 60, RefreshDen: 1}
	sc.NotifyDisplayModeChange(false, mode)
	if _, refresh := env.fake.fullscreen(); refresh != 60 {
		t.Errorf("refresh rate = %v, want 60", refresh)
	}
	sc.NotifyDisplayModeChange(true, mode)
	if _, refresh := env.fake.fullscreen(); refresh != 0 {
		t.Errorf("windowed refresh rate = %v, want 0", refresh)
	}
	sc.NotifyDisplayModeChange(false, nil)
	if _, refresh := env.fake.fullscreen(); refresh != 0 {
		t.Errorf("refresh rate without mode = %v, want 0", refresh)
	}
}

func TestDisplayModeRefreshRate(t *testing.T) {
	if got := (DisplayMode{RefreshNum: 59940, RefreshDen: 1000}).RefreshRate(); got != 59.94 {
		t.Errorf("RefreshRate() = %v, want 59.94", got)
	}
	if got := (DisplayMode{RefreshNum: 60}).RefreshRate(); got != 0 {
		t.Errorf("RefreshRate() with zero denominator = %v, want 0", got)
	}
}
