//go:build windows

package window

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modUser32 = windows.NewLazySystemDLL("user32.dll")

	procIsWindow                = modUser32.NewProc("IsWindow")
	procIsWindowUnicode         = modUser32.NewProc("IsWindowUnicode")
	procGetWindowRect           = modUser32.NewProc("GetWindowRect")
	procGetDesktopWindow        = modUser32.NewProc("GetDesktopWindow")
	procMonitorFromWindow       = modUser32.NewProc("MonitorFromWindow")
	procGetMonitorInfoW         = modUser32.NewProc("GetMonitorInfoW")
	procGetWindowLongPtrW       = modUser32.NewProc("GetWindowLongPtrW")
	procGetWindowLongPtrA       = modUser32.NewProc("GetWindowLongPtrA")
	procSetWindowLongPtrW       = modUser32.NewProc("SetWindowLongPtrW")
	procSetWindowLongPtrA       = modUser32.NewProc("SetWindowLongPtrA")
	procSetWindowPos            = modUser32.NewProc("SetWindowPos")
	procGetWindow               = modUser32.NewProc("GetWindow")
	procCallWindowProcW         = modUser32.NewProc("CallWindowProcW")
	procCallWindowProcA         = modUser32.NewProc("CallWindowProcA")
	procDefWindowProcW          = modUser32.NewProc("DefWindowProcW")
	procChangeDisplaySettingsEx = modUser32.NewProc("ChangeDisplaySettingsExW")
)

const (
	gwlpWndProc = ^uintptr(3)  // GWLP_WNDPROC (-4)
	gwlStyle    = ^uintptr(15) // GWL_STYLE (-16)
	gwlExStyle  = ^uintptr(19) // GWL_EXSTYLE (-20)

	gwHwndPrev              = 3
	monitorDefaultToNearest = 2
	dispChangeSuccessful    = 0
	cchDeviceName           = 32
)

type nativeRect struct {
	Left, Top, Right, Bottom int32
}

type monitorInfoEx struct {
	Size    uint32
	Monitor nativeRect
	Work    nativeRect
	Flags   uint32
	Device  [cchDeviceName]uint16
}

type nativeWindowPos struct {
	Hwnd        uintptr
	InsertAfter uintptr
	X, Y        int32
	CX, CY      int32
	Flags       uint32
}

type nativeHook struct {
	proc    Proc
	prev    uintptr
	unicode bool
}

var (
	hooksMu sync.Mutex
	hooks   = make(map[Handle]*nativeHook)

	wndProcOnce     sync.Once
	wndProcCallback uintptr
)

func nativeWndProc(hwnd, msg, wParam, lParam uintptr) uintptr {
	h := Handle(hwnd)
	hooksMu.Lock()
	hk := hooks[h]
	hooksMu.Unlock()
	if hk == nil {
		r, _, _ := procDefWindowProcW.Call(hwnd, msg, wParam, lParam)
		return r
	}
	m := Message{Window: h, Msg: Msg(msg), WParam: wParam, LParam: lParam}
	if (m.Msg == MsgWindowPosChanging || m.Msg == MsgWindowPosChanged) && lParam != 0 {
		np := (*nativeWindowPos)(unsafe.Pointer(lParam))
		m.Pos = &WindowPos{
			Window:      Handle(np.Hwnd),
			InsertAfter: Handle(np.InsertAfter),
			X:           np.X,
			Y:           np.Y,
			CX:          np.CX,
			CY:          np.CY,
			Flags:       PosFlag(np.Flags),
		}
	}
	return hk.proc(m)
}

// win32 is the Win32 System.
type win32 struct{}

// NativeSystem returns the Win32 windowing system.
func NativeSystem() (System, error) {
	if err := modUser32.Load(); err != nil {
		return nil, fmt.Errorf("window: load user32: %w", err)
	}
	wndProcOnce.Do(func() {
		wndProcCallback = windows.NewCallback(nativeWndProc)
	})
	return win32{}, nil
}

func (win32) IsWindow(h Handle) bool {
	r, _, _ := procIsWindow.Call(uintptr(h))
	return r != 0
}

func (win32) IsUnicode(h Handle) bool {
	r, _, _ := procIsWindowUnicode.Call(uintptr(h))
	return r != 0
}

func windowRect(h uintptr) (Rect, error) {
	var rc nativeRect
	r, _, err := procGetWindowRect.Call(h, uintptr(unsafe.Pointer(&rc)))
	if r == 0 {
		return Rect{}, fmt.Errorf("window: GetWindowRect: %w", err)
	}
	return Rect(rc), nil
}

func (win32) Rect(h Handle) (Rect, error) { return windowRect(uintptr(h)) }

func (win32) DesktopRect() Rect {
	d, _, _ := procGetDesktopWindow.Call()
	r, _ := windowRect(d)
	return r
}

func monitorInfo(h Handle) (monitorInfoEx, error) {
	mi := monitorInfoEx{}
	mi.Size = uint32(unsafe.Sizeof(mi))
	mon, _, _ := procMonitorFromWindow.Call(uintptr(h), monitorDefaultToNearest)
	if mon == 0 {
		return mi, ErrInvalidWindow
	}
	r, _, err := procGetMonitorInfoW.Call(mon, uintptr(unsafe.Pointer(&mi)))
	if r == 0 {
		return mi, fmt.Errorf("window: GetMonitorInfo: %w", err)
	}
	return mi, nil
}

func (win32) MonitorRect(h Handle) (Rect, error) {
	mi, err := monitorInfo(h)
	if err != nil {
		return Rect{}, err
	}
	return Rect(mi.Monitor), nil
}

func getLong(h Handle, index uintptr, unicode bool) uintptr {
	p := procGetWindowLongPtrA
	if unicode {
		p = procGetWindowLongPtrW
	}
	r, _, _ := p.Call(uintptr(h), index)
	return r
}

func setLong(h Handle, index, value uintptr, unicode bool) uintptr {
	p := procSetWindowLongPtrA
	if unicode {
		p = procSetWindowLongPtrW
	}
	r, _, _ := p.Call(uintptr(h), index, value)
	return r
}

func (w win32) Style(h Handle) (Style, ExStyle, error) {
	if !w.IsWindow(h) {
		return 0, 0, ErrInvalidWindow
	}
	return Style(getLong(h, gwlStyle, true)), ExStyle(getLong(h, gwlExStyle, true)), nil
}

func (w win32) SetStyle(h Handle, style Style, ex ExStyle) error {
	if !w.IsWindow(h) {
		return ErrInvalidWindow
	}
	setLong(h, gwlStyle, uintptr(style), true)
	setLong(h, gwlExStyle, uintptr(ex), true)
	return nil
}

func (win32) SetPos(h Handle, insertAfter Handle, r Rect, flags PosFlag) error {
	ok, _, err := procSetWindowPos.Call(
		uintptr(h), uintptr(insertAfter),
		uintptr(r.Left), uintptr(r.Top), uintptr(r.Width()), uintptr(r.Height()),
		uintptr(flags))
	if ok == 0 {
		return fmt.Errorf("window: SetWindowPos: %w", err)
	}
	return nil
}

func (win32) PrevInZOrder(h Handle) Handle {
	r, _, _ := procGetWindow.Call(uintptr(h), gwHwndPrev)
	return Handle(r)
}

func (w win32) InstallProc(h Handle, proc Proc) (bool, error) {
	if !w.IsWindow(h) {
		return false, ErrInvalidWindow
	}
	unicode := w.IsUnicode(h)
	prev := setLong(h, gwlpWndProc, wndProcCallback, unicode)

	hooksMu.Lock()
	hooks[h] = &nativeHook{proc: proc, prev: prev, unicode: unicode}
	hooksMu.Unlock()
	return prev != 0, nil
}

func (win32) RestoreProc(h Handle) error {
	hooksMu.Lock()
	hk, ok := hooks[h]
	delete(hooks, h)
	hooksMu.Unlock()
	if !ok {
		return nil
	}
	if getLong(h, gwlpWndProc, hk.unicode) == wndProcCallback {
		setLong(h, gwlpWndProc, hk.prev, hk.unicode)
	}
	return nil
}

func (win32) CallOriginal(msg Message) uintptr {
	hooksMu.Lock()
	hk := hooks[msg.Window]
	hooksMu.Unlock()
	if hk == nil || hk.prev == 0 {
		return 0
	}
	p := procCallWindowProcA
	if hk.unicode {
		p = procCallWindowProcW
	}
	r, _, _ := p.Call(hk.prev, uintptr(msg.Window), uintptr(msg.Msg), msg.WParam, msg.LParam)
	return r
}

func (win32) RestoreDisplayMode(h Handle) error {
	mi, err := monitorInfo(h)
	if err != nil {
		return err
	}
	r, _, _ := procChangeDisplaySettingsEx.Call(
		uintptr(unsafe.Pointer(&mi.Device[0])), 0, 0, 0, 0)
	if int32(r) != dispChangeSuccessful {
		return fmt.Errorf("window: ChangeDisplaySettingsEx returned %d", int32(r))
	}
	return nil
}
