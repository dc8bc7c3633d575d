// Package window tracks the native window a swap chain presents into.
//
// It provides three pieces:
//
//   - [Registry] intercepts the window procedure of hooked windows, feeds
//     messages to an overlay handler and, in bridged mode, infers exclusive
//     fullscreen intent from activation, focus and z-order changes.
//   - [Fullscreen] is the enter/leave state machine that strips window
//     decoration, covers the monitor and restores the saved placement.
//   - [System] abstracts the windowing system. [Virtual] is an in-memory
//     implementation used by tests and headless runs; [NativeSystem]
//     returns the Win32 implementation on Windows.
package window

import (
	"errors"
	"log/slog"
)

// Sentinel errors.
var (
	// ErrInvalidWindow is returned for a handle that no longer refers to a
	// live window.
	ErrInvalidWindow = errors.New("window: invalid window handle")

	// ErrUnsupported is returned by NativeSystem on platforms without a
	// native implementation.
	ErrUnsupported = errors.New("window: native windowing not supported on this platform")
)

// Handle identifies a native window.
type Handle uintptr

// LogValue implements slog.LogValuer.
func (h Handle) LogValue() slog.Value {
	return slog.Uint64Value(uint64(h))
}

// Topmost is the insert-after handle that places a window above all
// non-topmost windows.
const Topmost = Handle(^uintptr(0))

// Rect is a screen rectangle in pixels. Right and Bottom are exclusive.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// Width returns the horizontal extent of r.
func (r Rect) Width() int32 { return r.Right - r.Left }

// Height returns the vertical extent of r.
func (r Rect) Height() int32 { return r.Bottom - r.Top }

// Style holds window style bits.
type Style uint32

// Window style bits used by the fullscreen transition.
const (
	StyleVisible          Style = 0x10000000
	StyleOverlappedWindow Style = 0x00CF0000
)

// ExStyle holds extended window style bits.
type ExStyle uint32

// Extended window style bits used by the fullscreen transition.
const (
	ExStyleTopmost          ExStyle = 0x00000008
	ExStyleOverlappedWindow ExStyle = 0x00000300
)

// PosFlag controls SetPos.
type PosFlag uint32

// SetPos flags.
const (
	PosNoSize         PosFlag = 0x0001
	PosNoMove         PosFlag = 0x0002
	PosNoZOrder       PosFlag = 0x0004
	PosNoActivate     PosFlag = 0x0010
	PosFrameChanged   PosFlag = 0x0020
	PosShowWindow     PosFlag = 0x0040
	PosAsyncWindowPos PosFlag = 0x4000
)

// Msg is a window message identifier.
type Msg uint32

// Messages inspected by the registry.
const (
	MsgSize              Msg = 0x0005
	MsgSetFocus          Msg = 0x0007
	MsgKillFocus         Msg = 0x0008
	MsgActivateApp       Msg = 0x001C
	MsgWindowPosChanging Msg = 0x0046
	MsgWindowPosChanged  Msg = 0x0047
	MsgNCDestroy         Msg = 0x0082
	MsgChar              Msg = 0x0102
	MsgEnterMenuLoop     Msg = 0x0211
	MsgExitMenuLoop      Msg = 0x0212
)

// WindowPos is the payload of MsgWindowPosChanging and MsgWindowPosChanged.
type WindowPos struct {
	Window      Handle
	InsertAfter Handle
	X, Y        int32
	CX, CY      int32
	Flags       PosFlag
}

// Message is one window message. Pos is set for the window position
// messages.
type Message struct {
	Window Handle
	Msg    Msg
	WParam uintptr
	LParam uintptr
	Pos    *WindowPos
}

// Proc is a window procedure.
type Proc func(Message) uintptr

// System is the windowing system the registry and the fullscreen state
// machine operate on.
type System interface {
	IsWindow(h Handle) bool
	IsUnicode(h Handle) bool

	// Rect returns the window rectangle in screen coordinates.
	Rect(h Handle) (Rect, error)
	// DesktopRect returns the rectangle of the desktop window.
	DesktopRect() Rect
	// MonitorRect returns the rectangle of the monitor showing h.
	MonitorRect(h Handle) (Rect, error)

	Style(h Handle) (Style, ExStyle, error)
	SetStyle(h Handle, style Style, ex ExStyle) error
	SetPos(h Handle, insertAfter Handle, r Rect, flags PosFlag) error

	// PrevInZOrder returns the window directly above h, or 0.
	PrevInZOrder(h Handle) Handle

	// InstallProc replaces the window procedure of h with proc and reports
	// whether the window had a procedure of its own.
	InstallProc(h Handle, proc Proc) (hadProc bool, err error)
	// RestoreProc puts back the procedure replaced by InstallProc if proc
	// is still installed.
	RestoreProc(h Handle) error
	// CallOriginal forwards msg to the procedure replaced by InstallProc.
	CallOriginal(msg Message) uintptr

	// RestoreDisplayMode resets the display mode of the monitor showing h.
	RestoreDisplayMode(h Handle) error
}
