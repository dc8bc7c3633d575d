package bridge

import (
	"errors"
	"io"
	"sync"

	"github.com/gogpu/swapchain/window"
)

// ErrClosed is returned by a closed channel.
var ErrClosed = errors.New("bridge: channel closed")

// Channel is the fallback message channel for windows without a native
// window procedure. It implements window.Fallback.
type Channel struct {
	t Transport

	mu      sync.Mutex
	procs   map[window.Handle]window.Proc
	started bool
	closed  bool
	err     error
	done    chan struct{}
}

// NewChannel returns a channel over t. Nothing is sent until Init.
func NewChannel(t Transport) *Channel {
	return &Channel{
		t:     t,
		procs: make(map[window.Handle]window.Proc),
		done:  make(chan struct{}),
	}
}

// Init announces h to the host and starts replaying the host's messages
// for h into proc.
func (c *Channel) Init(h window.Handle, proc window.Proc) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.procs[h] = proc
	start := !c.started
	c.started = true
	c.mu.Unlock()

	if err := c.t.Send(Envelope{Kind: KindHello, Window: uint64(h)}); err != nil {
		c.mu.Lock()
		delete(c.procs, h)
		c.mu.Unlock()
		return err
	}
	if start {
		go c.replay()
	}
	slogger().Info("bridge: channel initialized", "window", h)
	return nil
}

// SendMenuState publishes whether the overlay menu of h is open.
func (c *Channel) SendMenuState(h window.Handle, open bool) error {
	if c.isClosed() {
		return ErrClosed
	}
	return c.t.Send(Envelope{Kind: KindMenuState, Window: uint64(h), MenuOpen: open})
}

// Forward sends msg to the host.
func (c *Channel) Forward(msg window.Message) error {
	if c.isClosed() {
		return ErrClosed
	}
	return c.t.Send(MessageEnvelope(msg))
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// replay dispatches message envelopes until the transport fails.
func (c *Channel) replay() {
	defer close(c.done)
	for {
		e, err := c.t.Receive()
		if err != nil {
			c.mu.Lock()
			if !c.closed && !errors.Is(err, io.EOF) {
				c.err = err
				slogger().Warn("bridge: receive failed", "err", err)
			}
			c.mu.Unlock()
			return
		}
		if e.Kind != KindMessage {
			slogger().Debug("bridge: ignoring envelope", "kind", e.Kind)
			continue
		}
		msg := e.Message()
		c.mu.Lock()
		proc := c.procs[msg.Window]
		c.mu.Unlock()
		if proc == nil {
			slogger().Debug("bridge: message for unknown window", "window", msg.Window)
			continue
		}
		proc(msg)
	}
}

// Err returns the error that stopped the replay loop, if any.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close closes the transport and waits for the replay loop to stop.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	c.mu.Unlock()

	err := c.t.Close()
	if started {
		<-c.done
	}
	return err
}

var _ window.Fallback = (*Channel)(nil)
