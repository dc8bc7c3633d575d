package bridge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport moves envelopes to and from the remote host.
type Transport interface {
	Send(e Envelope) error
	Receive() (Envelope, error)
	Close() error
}

// maxLine bounds a single newline-delimited envelope.
const maxLine = 64 << 10

// StreamTransport frames envelopes as JSON lines over a byte stream such
// as a named pipe or a unix socket.
type StreamTransport struct {
	rwc io.ReadWriteCloser

	wmu     sync.Mutex
	scanner *bufio.Scanner
}

// NewStreamTransport wraps rwc.
func NewStreamTransport(rwc io.ReadWriteCloser) *StreamTransport {
	sc := bufio.NewScanner(rwc)
	sc.Buffer(make([]byte, 0, 4096), maxLine)
	return &StreamTransport{
		rwc:     rwc,
		scanner: sc,
	}
}

// Send implements Transport. Safe for concurrent use.
func (t *StreamTransport) Send(e Envelope) error {
	data, err := Marshal(e)
	if err != nil {
		return fmt.Errorf("bridge: encode %s: %w", e.Kind, err)
	}
	data = append(data, '\n')

	t.wmu.Lock()
	defer t.wmu.Unlock()
	if _, err := t.rwc.Write(data); err != nil {
		return fmt.Errorf("bridge: send %s: %w", e.Kind, err)
	}
	return nil
}

// Receive implements Transport. It must be called from one goroutine.
func (t *StreamTransport) Receive() (Envelope, error) {
	for t.scanner.Scan() {
		line := t.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		e, err := Unmarshal(line)
		if err != nil {
			return Envelope{}, fmt.Errorf("bridge: decode: %w", err)
		}
		return e, nil
	}
	if err := t.scanner.Err(); err != nil {
		return Envelope{}, fmt.Errorf("bridge: receive: %w", err)
	}
	return Envelope{}, io.EOF
}

// Close implements Transport.
func (t *StreamTransport) Close() error {
	return t.rwc.Close()
}

// writeWait bounds a single websocket write.
const writeWait = 10 * time.Second

// WebSocketTransport carries one envelope per text message.
type WebSocketTransport struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

// NewWebSocketTransport wraps an established connection.
func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	return &WebSocketTransport{conn: conn}
}

// DialWebSocket connects to a bridge host at url.
func DialWebSocket(ctx context.Context, url string) (*WebSocketTransport, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("bridge: dial %s: %w", url, err)
	}
	return NewWebSocketTransport(conn), nil
}

// Send implements Transport. Safe for concurrent use.
func (t *WebSocketTransport) Send(e Envelope) error {
	data, err := Marshal(e)
	if err != nil {
		return fmt.Errorf("bridge: encode %s: %w", e.Kind, err)
	}
	t.wmu.Lock()
	defer t.wmu.Unlock()
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("bridge: send %s: %w", e.Kind, err)
	}
	return nil
}

// Receive implements Transport. A normal close from the host is reported
// as io.EOF.
func (t *WebSocketTransport) Receive() (Envelope, error) {
	for {
		typ, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return Envelope{}, io.EOF
			}
			return Envelope{}, fmt.Errorf("bridge: receive: %w", err)
		}
		if typ != websocket.TextMessage {
			continue
		}
		e, err := Unmarshal(data)
		if err != nil {
			return Envelope{}, fmt.Errorf("bridge: decode: %w", err)
		}
		return e, nil
	}
}

// Close sends a close frame and closes the connection.
func (t *WebSocketTransport) Close() error {
	t.wmu.Lock()
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	t.wmu.Unlock()
	return t.conn.Close()
}
