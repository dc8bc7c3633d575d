// Package bridge carries window messages between a remote host that owns
// the application window and the swap chain that presents into it.
//
// When a hooked window has no native window procedure, the window registry
// falls back to a [Channel]: the swap chain announces itself with a hello
// envelope, publishes its menu state, and the host replays the window's
// messages back as message envelopes.
package bridge

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/gogpu/swapchain/window"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind identifies an envelope.
type Kind string

// Envelope kinds.
const (
	KindHello     Kind = "hello"
	KindMenuState Kind = "menu_state"
	KindMessage   Kind = "message"
)

// Pos is the wire form of window.WindowPos.
type Pos struct {
	Window      uint64 `json:"window,omitempty"`
	InsertAfter uint64 `json:"insert_after"`
	X           int32  `json:"x"`
	Y           int32  `json:"y"`
	CX          int32  `json:"cx"`
	CY          int32  `json:"cy"`
	Flags       uint32 `json:"flags"`
}

// Envelope is one bridge frame.
type Envelope struct {
	Kind     Kind   `json:"kind"`
	Window   uint64 `json:"window"`
	Msg      uint32 `json:"msg,omitempty"`
	WParam   uint64 `json:"wparam,omitempty"`
	LParam   uint64 `json:"lparam,omitempty"`
	Pos      *Pos   `json:"pos,omitempty"`
	MenuOpen bool   `json:"menu_open,omitempty"`
}

// MessageEnvelope wraps msg for the wire.
func MessageEnvelope(msg window.Message) Envelope {
	e := Envelope{
		Kind:   KindMessage,
		Window: uint64(msg.Window),
		Msg:    uint32(msg.Msg),
		WParam: uint64(msg.WParam),
		LParam: uint64(msg.LParam),
	}
	if p := msg.Pos; p != nil {
		e.Pos = &Pos{
			Window:      uint64(p.Window),
			InsertAfter: uint64(p.InsertAfter),
			X:           p.X,
			Y:           p.Y,
			CX:          p.CX,
			CY:          p.CY,
			Flags:       uint32(p.Flags),
		}
	}
	return e
}

// Message converts a message envelope back to a window message.
func (e Envelope) Message() window.Message {
	msg := window.Message{
		Window: window.Handle(e.Window),
		Msg:    window.Msg(e.Msg),
		WParam: uintptr(e.WParam),
		LParam: uintptr(e.LParam),
	}
	if p := e.Pos; p != nil {
		msg.Pos = &window.WindowPos{
			Window:      window.Handle(p.Window),
			InsertAfter: window.Handle(p.InsertAfter),
			X:           p.X,
			Y:           p.Y,
			CX:          p.CX,
			CY:          p.CY,
			Flags:       window.PosFlag(p.Flags),
		}
	}
	return msg
}

// Marshal encodes e.
func Marshal(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal decodes an envelope.
func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(data, &e)
	return e, err
}
