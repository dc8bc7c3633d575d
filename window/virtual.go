package window

import (
	"slices"
	"sync"
)

type virtualWindow struct {
	rect    Rect
	style   Style
	ex      ExStyle
	unicode bool
	orig    Proc
	hook    Proc
}

// Virtual is an in-memory windowing system. Windows are plain records;
// SetPos delivers MsgWindowPosChanging and MsgWindowPosChanged to the
// installed procedure the way a native system would.
type Virtual struct {
	mu       sync.Mutex
	desktop  Rect
	windows  map[Handle]*virtualWindow
	zorder   []Handle // front to back
	next     Handle
	modeErr  error
	modeRuns int
}

// NewVirtual returns a virtual system whose desktop and single monitor
// cover desktop.
func NewVirtual(desktop Rect) *Virtual {
	return &Virtual{
		desktop: desktop,
		windows: make(map[Handle]*virtualWindow),
		next:    0x10000,
	}
}

// CreateWindow adds a Unicode window on top of the z-order. proc is the
// window's own procedure and may be nil.
func (v *Virtual) CreateWindow(r Rect, style Style, ex ExStyle, proc Proc) Handle {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.next += 0x10
	h := v.next
	v.windows[h] = &virtualWindow{rect: r, style: style, ex: ex, unicode: true, orig: proc}
	v.zorder = append([]Handle{h}, v.zorder...)
	return h
}

// DestroyWindow removes h.
func (v *Virtual) DestroyWindow(h Handle) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.windows, h)
	v.zorder = slices.DeleteFunc(v.zorder, func(x Handle) bool { return x == h })
}

// SetUnicode sets the character set of h.
func (v *Virtual) SetUnicode(h Handle, unicode bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if w, ok := v.windows[h]; ok {
		w.unicode = unicode
	}
}

// SetDisplayModeError makes RestoreDisplayMode fail with err.
func (v *Virtual) SetDisplayModeError(err error) {
	v.mu.Lock()
	v.modeErr = err
	v.mu.Unlock()
}

// DisplayModeRestores returns how often RestoreDisplayMode was called.
func (v *Virtual) DisplayModeRestores() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.modeRuns
}

// Hooked reports whether a procedure is installed on h.
func (v *Virtual) Hooked(h Handle) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	w, ok := v.windows[h]
	return ok && w.hook != nil
}

// Send delivers msg to the installed procedure of its window, or to the
// window's own procedure when none is installed.
func (v *Virtual) Send(msg Message) uintptr {
	v.mu.Lock()
	w, ok := v.windows[msg.Window]
	var proc Proc
	if ok {
		proc = w.hook
		if proc == nil {
			proc = w.orig
		}
	}
	v.mu.Unlock()
	if proc == nil {
		return 0
	}
	return proc(msg)
}

// IsWindow implements System.
func (v *Virtual) IsWindow(h Handle) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.windows[h]
	return ok
}

// IsUnicode implements System.
func (v *Virtual) IsUnicode(h Handle) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	w, ok := v.windows[h]
	return ok && w.unicode
}

// Rect implements System.
func (v *Virtual) Rect(h Handle) (Rect, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	w, ok := v.windows[h]
	if !ok {
		return Rect{}, ErrInvalidWindow
	}
	return w.rect, nil
}

// DesktopRect implements System.
func (v *Virtual) DesktopRect() Rect {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.desktop
}

// MonitorRect implements System.
func (v *Virtual) MonitorRect(h Handle) (Rect, error) {
	if !v.IsWindow(h) {
		return Rect{}, ErrInvalidWindow
	}
	return v.DesktopRect(), nil
}

// Style implements System.
func (v *Virtual) Style(h Handle) (Style, ExStyle, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	w, ok := v.windows[h]
	if !ok {
		return 0, 0, ErrInvalidWindow
	}
	return w.style, w.ex, nil
}

// SetStyle implements System.
func (v *Virtual) SetStyle(h Handle, style Style, ex ExStyle) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	w, ok := v.windows[h]
	if !ok {
		return ErrInvalidWindow
	}
	w.style, w.ex = style, ex
	return nil
}

// SetPos implements System.
func (v *Virtual) SetPos(h Handle, insertAfter Handle, r Rect, flags PosFlag) error {
	pos := &WindowPos{
		Window:      h,
		InsertAfter: insertAfter,
		X:           r.Left,
		Y:           r.Top,
		CX:          r.Width(),
		CY:          r.Height(),
		Flags:       flags,
	}
	if !v.IsWindow(h) {
		return ErrInvalidWindow
	}
	v.Send(Message{Window: h, Msg: MsgWindowPosChanging, Pos: pos})

	v.mu.Lock()
	w, ok := v.windows[h]
	if !ok {
		v.mu.Unlock()
		return ErrInvalidWindow
	}
	if flags&PosNoMove == 0 {
		w.rect.Right += r.Left - w.rect.Left
		w.rect.Bottom += r.Top - w.rect.Top
		w.rect.Left, w.rect.Top = r.Left, r.Top
	}
	if flags&PosNoSize == 0 {
		w.rect.Right = w.rect.Left + r.Width()
		w.rect.Bottom = w.rect.Top + r.Height()
	}
	if flags&PosShowWindow != 0 {
		w.style |= StyleVisible
	}
	if flags&PosNoZOrder == 0 {
		v.restackLocked(h, insertAfter)
		if insertAfter == Topmost {
			w.ex |= ExStyleTopmost
		}
	}
	v.mu.Unlock()

	v.Send(Message{Window: h, Msg: MsgWindowPosChanged, Pos: pos})
	return nil
}

// restackLocked moves h directly below after, or to the front for
// Topmost and zero.
func (v *Virtual) restackLocked(h, after Handle) {
	v.zorder = slices.DeleteFunc(v.zorder, func(x Handle) bool { return x == h })
	i := 0
	if after != Topmost && after != 0 {
		if j := slices.Index(v.zorder, after); j >= 0 {
			i = j + 1
		}
	}
	v.zorder = slices.Insert(v.zorder, i, h)
}

// PrevInZOrder implements System.
func (v *Virtual) PrevInZOrder(h Handle) Handle {
	v.mu.Lock()
	defer v.mu.Unlock()
	i := slices.Index(v.zorder, h)
	if i <= 0 {
		return 0
	}
	return v.zorder[i-1]
}

// InstallProc implements System.
func (v *Virtual) InstallProc(h Handle, proc Proc) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	w, ok := v.windows[h]
	if !ok {
		return false, ErrInvalidWindow
	}
	w.hook = proc
	return w.orig != nil, nil
}

// RestoreProc implements System.
func (v *Virtual) RestoreProc(h Handle) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	w, ok := v.windows[h]
	if !ok {
		return ErrInvalidWindow
	}
	w.hook = nil
	return nil
}

// CallOriginal implements System.
func (v *Virtual) CallOriginal(msg Message) uintptr {
	v.mu.Lock()
	w, ok := v.windows[msg.Window]
	var proc Proc
	if ok {
		proc = w.orig
	}
	v.mu.Unlock()
	if proc == nil {
		return 0
	}
	return proc(msg)
}

// RestoreDisplayMode implements System.
func (v *Virtual) RestoreDisplayMode(h Handle) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.modeRuns++
	return v.modeErr
}

var _ System = (*Virtual)(nil)
