package window

import "sync"

// Owner receives exclusive fullscreen requests inferred from window
// messages.
type Owner interface {
	AcquireFullscreenExclusive() error
	ReleaseFullscreenExclusive() error
}

// Handler sees every message of a hooked window before anything else.
// The return value reports whether the handler consumed the message. The
// original procedure receives the message regardless; a fallback channel
// only receives unconsumed ones.
type Handler interface {
	HandleMessage(msg Message) bool
}

// MenuStater is implemented by handlers whose menu state must be published
// to a fallback channel when one is initialized.
type MenuStater interface {
	MenuOpen() bool
}

// Fallback is the out-of-process message channel used when a hooked window
// has no native window procedure. Init starts replaying received messages
// into proc. Forward hands back the messages no handler consumed, so the
// host applies its default processing, as the original procedure would.
type Fallback interface {
	Init(h Handle, proc Proc) error
	SendMenuState(h Handle, open bool) error
	Forward(msg Message) error
}

// entry is the per-window hook record.
type entry struct {
	unicode bool
	filter  bool
	hadProc bool
	owner   Owner
	handler Handler
	// fallback serves windows without a native procedure once initialized.
	fallback Fallback
}

// Registry maps hooked windows to their owners. One registry is shared by
// every swap chain that presents to windows of the same System.
type Registry struct {
	sys System

	mu       sync.Mutex
	entries  map[Handle]*entry
	bridged  bool
	fallback Fallback
}

// NewRegistry returns an empty registry for sys.
func NewRegistry(sys System) *Registry {
	return &Registry{
		sys:     sys,
		entries: make(map[Handle]*entry),
	}
}

// System returns the windowing system the registry hooks into.
func (r *Registry) System() System { return r.sys }

// SetBridged enables message-driven exclusive fullscreen inference, used
// when a remote host owns the window.
func (r *Registry) SetBridged(bridged bool) {
	r.mu.Lock()
	r.bridged = bridged
	r.mu.Unlock()
}

// Bridged reports whether bridged mode is active.
func (r *Registry) Bridged() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bridged
}

// SetFallback sets the channel initialized for windows without a native
// window procedure.
func (r *Registry) SetFallback(fb Fallback) {
	r.mu.Lock()
	r.fallback = fb
	r.mu.Unlock()
}

// Hook installs the registry's window procedure on h, replacing any
// previous hook for the same window.
func (r *Registry) Hook(h Handle, owner Owner, handler Handler) error {
	r.mu.Lock()
	r.unhookLocked(h)

	e := &entry{
		unicode: r.sys.IsUnicode(h),
		owner:   owner,
		handler: handler,
	}
	hadProc, err := r.sys.InstallProc(h, r.Dispatch)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	e.hadProc = hadProc
	r.entries[h] = e
	fb := r.fallback
	r.mu.Unlock()

	if hadProc {
		return nil
	}

	slogger().Info("window: no window procedure, initializing fallback channel", "window", h)
	if fb == nil {
		slogger().Error("window: no fallback channel configured, exclusive fullscreen and input may not work", "window", h)
		return nil
	}
	if err := fb.Init(h, r.Dispatch); err != nil {
		slogger().Error("window: unable to init fallback channel, exclusive fullscreen and input may not work",
			"window", h, "err", err)
		return nil
	}
	r.mu.Lock()
	if cur, ok := r.entries[h]; ok && cur == e {
		e.fallback = fb
	}
	r.mu.Unlock()

	open := false
	if ms, ok := handler.(MenuStater); ok {
		open = ms.MenuOpen()
	}
	if err := fb.SendMenuState(h, open); err != nil {
		slogger().Warn("window: send initial menu state", "window", h, "err", err)
	}
	return nil
}

// Unhook restores the original window procedure of h and forgets it.
func (r *Registry) Unhook(h Handle) {
	r.mu.Lock()
	r.unhookLocked(h)
	r.mu.Unlock()
}

func (r *Registry) unhookLocked(h Handle) {
	if _, ok := r.entries[h]; !ok {
		return
	}
	if err := r.sys.RestoreProc(h); err != nil {
		slogger().Warn("window: restore window procedure", "window", h, "err", err)
	}
	delete(r.entries, h)
}

// Hooked reports whether h is hooked.
func (r *Registry) Hooked(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[h]
	return ok
}

// Filter suppresses fullscreen inference for h until the returned function
// is called, which restores the previous filter state. It is a no-op for
// windows that are not hooked.
func (r *Registry) Filter(h Handle) (restore func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[h]
	if !ok {
		return func() {}
	}
	prev := e.filter
	e.filter = true
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.entries[h]; ok && cur == e {
			e.filter = prev
		}
	}
}

// Dispatch is the window procedure installed by Hook.
func (r *Registry) Dispatch(msg Message) uintptr {
	r.mu.Lock()
	e, ok := r.entries[msg.Window]
	var snap entry
	if ok {
		snap = *e
	}
	bridged := r.bridged
	r.mu.Unlock()
	if !ok {
		return 0
	}

	if msg.Msg == MsgChar && !snap.unicode {
		msg.WParam = decodeANSIChar(msg.WParam)
	}
	handled := false
	if snap.handler != nil {
		handled = snap.handler.HandleMessage(msg)
	}

	if bridged && !snap.filter && snap.owner != nil && !r.coversDesktop(msg.Window) {
		r.applyExclusive(snap.owner, r.inferExclusive(msg), msg.Window)
	}

	if snap.hadProc {
		return r.sys.CallOriginal(msg)
	}
	if snap.fallback != nil && !handled {
		if err := snap.fallback.Forward(msg); err != nil {
			slogger().Debug("window: forward message to fallback", "window", msg.Window, "msg", msg.Msg, "err", err)
		}
	}
	return 0
}

func (r *Registry) coversDesktop(h Handle) bool {
	rect, err := r.sys.Rect(h)
	if err != nil {
		return false
	}
	return rect == r.sys.DesktopRect()
}

type exclusiveIntent uint8

const (
	intentUnchanged exclusiveIntent = iota
	intentAcquire
	intentRelease
)

// inferExclusive derives exclusive fullscreen intent from msg.
func (r *Registry) inferExclusive(msg Message) exclusiveIntent {
	switch msg.Msg {
	case MsgActivateApp:
		if msg.WParam != 0 {
			return intentAcquire
		}
		return intentRelease
	case MsgWindowPosChanging, MsgWindowPosChanged:
		pos := msg.Pos
		if pos == nil || pos.Flags&PosNoZOrder != 0 {
			return intentUnchanged
		}
		target := pos.Window
		if target == 0 {
			target = msg.Window
		}
		if r.sys.PrevInZOrder(target) != pos.InsertAfter {
			return intentRelease
		}
	case MsgExitMenuLoop, MsgSetFocus:
		return intentAcquire
	case MsgEnterMenuLoop, MsgNCDestroy, MsgKillFocus:
		return intentRelease
	}
	return intentUnchanged
}

func (r *Registry) applyExclusive(o Owner, intent exclusiveIntent, h Handle) {
	var err error
	switch intent {
	case intentAcquire:
		slogger().Debug("window: exclusive fullscreen acquire", "window", h)
		err = o.AcquireFullscreenExclusive()
	case intentRelease:
		slogger().Debug("window: exclusive fullscreen release", "window", h)
		err = o.ReleaseFullscreenExclusive()
	default:
		return
	}
	if err != nil {
		slogger().Warn("window: exclusive fullscreen transition", "window", h, "err", err)
	}
}
