package bridge

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gogpu/swapchain/window"
)

func receiveAll(tr Transport) <-chan Envelope {
	out := make(chan Envelope, 16)
	go func() {
		defer close(out)
		for {
			e, err := tr.Receive()
			if err != nil {
				return
			}
			out <- e
		}
	}()
	return out
}

func next(t *testing.T, ch <-chan Envelope) Envelope {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatal("transport closed before an envelope arrived")
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an envelope")
	}
	return Envelope{}
}

func TestEnvelopeMessage(t *testing.T) {
	msg := window.Message{
		Window: 0x1234,
		Msg:    window.MsgWindowPosChanging,
		WParam: 1,
		LParam: 2,
		Pos: &window.WindowPos{
			Window:      0x1234,
			InsertAfter: window.Topmost,
			X:           -10,
			Y:           20,
			CX:          1920,
			CY:          1080,
			Flags:       window.PosNoZOrder | window.PosShowWindow,
		},
	}
	data, err := Marshal(MessageEnvelope(msg))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"kind":"message"`) {
		t.Errorf("encoded envelope %s has no message kind", data)
	}
	e, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	got := e.Message()
	if got.Window != msg.Window || got.Msg != msg.Msg || got.WParam != 1 || got.LParam != 2 {
		t.Errorf("Message() = %+v", got)
	}
	if got.Pos == nil || *got.Pos != *msg.Pos {
		t.Errorf("Pos = %+v, want %+v", got.Pos, msg.Pos)
	}

	if _, err := Unmarshal([]byte("{not json")); err == nil {
		t.Error("Unmarshal(garbage) succeeded")
	}
}

func TestChannelHandshakeAndReplay(t *testing.T) {
	local, remote := net.Pipe()
	ch := NewChannel(NewStreamTransport(local))
	host := NewStreamTransport(remote)
	defer host.Close()
	fromSwapChain := receiveAll(host)

	msgs := make(chan window.Message, 4)
	err := ch.Init(7, func(m window.Message) uintptr {
		msgs <- m
		return 0
	})
	if err != nil {
		t.Fatalf("Init() = %v", err)
	}

	hello := next(t, fromSwapChain)
	if hello.Kind != KindHello || hello.Window != 7 {
		t.Errorf("first envelope = %+v, want hello for window 7", hello)
	}

	if err := ch.SendMenuState(7, true); err != nil {
		t.Fatal(err)
	}
	menu := next(t, fromSwapChain)
	if menu.Kind != KindMenuState || !menu.MenuOpen {
		t.Errorf("menu envelope = %+v", menu)
	}

	// Envelopes the channel does not replay are skipped.
	if err := host.Send(Envelope{Kind: KindHello, Window: 7}); err != nil {
		t.Fatal(err)
	}
	if err := host.Send(MessageEnvelope(window.Message{Window: 8, Msg: window.MsgSize})); err != nil {
		t.Fatal(err)
	}
	if err := host.Send(MessageEnvelope(window.Message{Window: 7, Msg: window.MsgSetFocus})); err != nil {
		t.Fatal(err)
	}
	select {
	case m := <-msgs:
		if m.Window != 7 || m.Msg != window.MsgSetFocus {
			t.Errorf("replayed %+v, want SetFocus for window 7", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not replayed")
	}

	if err := ch.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if ch.Err() != nil {
		t.Errorf("Err() after Close = %v", ch.Err())
	}
	if err := ch.SendMenuState(7, false); !errors.Is(err, ErrClosed) {
		t.Errorf("SendMenuState after Close = %v, want ErrClosed", err)
	}
	if err := ch.Init(9, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Init after Close = %v, want ErrClosed", err)
	}
}

func TestChannelReturnsUnhandledMessages(t *testing.T) {
	local, remote := net.Pipe()
	ch := NewChannel(NewStreamTransport(local))
	defer ch.Close()
	host := NewStreamTransport(remote)
	defer host.Close()
	fromSwapChain := receiveAll(host)

	sys := window.NewVirtual(window.Rect{Right: 1920, Bottom: 1080})
	h := sys.CreateWindow(window.Rect{Right: 640, Bottom: 480}, 0, 0, nil)
	reg := window.NewRegistry(sys)
	reg.SetFallback(ch)
	if err := reg.Hook(h, nil, nil); err != nil {
		t.Fatal(err)
	}
	if e := next(t, fromSwapChain); e.Kind != KindHello {
		t.Fatalf("first envelope = %+v, want hello", e)
	}
	if e := next(t, fromSwapChain); e.Kind != KindMenuState || e.MenuOpen {
		t.Fatalf("second envelope = %+v, want closed menu state", e)
	}

	if err := host.Send(MessageEnvelope(window.Message{Window: h, Msg: window.MsgSize, LParam: 5})); err != nil {
		t.Fatal(err)
	}
	e := next(t, fromSwapChain)
	if e.Kind != KindMessage {
		t.Fatalf("envelope = %+v, want the message back", e)
	}
	if m := e.Message(); m.Window != h || m.Msg != window.MsgSize || m.LParam != 5 {
		t.Errorf("returned %+v", m)
	}
}

func TestChannelHostHangup(t *testing.T) {
	local, remote := net.Pipe()
	ch := NewChannel(NewStreamTransport(local))
	host := NewStreamTransport(remote)
	fromSwapChain := receiveAll(host)

	if err := ch.Init(1, func(window.Message) uintptr { return 0 }); err != nil {
		t.Fatal(err)
	}
	next(t, fromSwapChain)
	host.Close()

	select {
	case <-ch.done:
	case <-time.After(2 * time.Second):
		t.Fatal("replay loop did not stop on hangup")
	}
	if ch.Err() != nil {
		t.Errorf("Err() = %v, want nil for an orderly hangup", ch.Err())
	}
	_ = ch.Close()
}

func TestStreamTransportEOF(t *testing.T) {
	local, remote := net.Pipe()
	tr := NewStreamTransport(local)
	remote.Close()
	if _, err := tr.Receive(); !errors.Is(err, io.EOF) {
		t.Errorf("Receive() after hangup = %v, want io.EOF", err)
	}
}

func TestWebSocketTransport(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		host := NewWebSocketTransport(conn)
		defer host.Close()
		for {
			e, err := host.Receive()
			if err != nil {
				return
			}
			if e.Kind == KindHello {
				reply := MessageEnvelope(window.Message{Window: window.Handle(e.Window), Msg: window.MsgActivateApp, WParam: 1})
				if err := host.Send(reply); err != nil {
					return
				}
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tr, err := DialWebSocket(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("DialWebSocket() = %v", err)
	}

	ch := NewChannel(tr)
	got := make(chan window.Message, 1)
	if err := ch.Init(42, func(m window.Message) uintptr {
		got <- m
		return 0
	}); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-got:
		if m.Window != 42 || m.Msg != window.MsgActivateApp || m.WParam != 1 {
			t.Errorf("replayed %+v", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message replayed over websocket")
	}
	if err := ch.Forward(window.Message{Window: 42, Msg: window.MsgSize}); err != nil {
		t.Errorf("Forward() = %v", err)
	}
	_ = ch.Close()
}

func TestDialMissingHost(t *testing.T) {
	if _, err := Dial(DefaultAddress+".missing", 100*time.Millisecond); err == nil {
		t.Error("Dial() to a missing host succeeded")
	}
}
