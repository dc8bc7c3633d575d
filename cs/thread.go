// Package cs implements the command-stream thread: a single background
// goroutine that executes submission work in the order it was issued.
//
// The foreground thread records commands with Emit and hands them over in
// chunks with Flush. Commands must capture everything they need by value;
// they run after the foreground has moved on to the next frame.
package cs

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrClosed is returned when work is handed to a closed thread.
var ErrClosed = errors.New("cs: thread closed")

// Command is a unit of work executed on the command-stream goroutine.
type Command func()

// Thread serializes commands onto one goroutine.
type Thread struct {
	logger *slog.Logger

	// chunk is only touched by the foreground thread.
	chunk []Command

	mu       sync.Mutex
	cond     *sync.Cond
	queue    [][]Command
	flushed  uint64
	executed uint64
	commands uint64
	closed   bool

	done chan struct{}
}

// NewThread starts a command-stream goroutine. A nil logger discards
// output.
func NewThread(logger *slog.Logger) *Thread {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	t := &Thread{
		logger: logger,
		done:   make(chan struct{}),
	}
	t.cond = sync.NewCond(&t.mu)
	go t.run()
	return t
}

// Emit appends a command to the current chunk. The command does not run
// until the chunk is flushed.
func (t *Thread) Emit(cmd Command) {
	if cmd == nil {
		return
	}
	t.chunk = append(t.chunk, cmd)
}

// Flush hands the current chunk to the worker. Chunks execute in flush
// order.
func (t *Thread) Flush() error {
	if len(t.chunk) == 0 {
		return nil
	}
	chunk := t.chunk
	t.chunk = nil

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.queue = append(t.queue, chunk)
	t.flushed++
	t.cond.Broadcast()
	return nil
}

// Synchronize flushes the current chunk and blocks until every chunk
// flushed so far has executed.
func (t *Thread) Synchronize() {
	_ = t.Flush()

	t.mu.Lock()
	defer t.mu.Unlock()
	target := t.flushed
	for t.executed < target {
		t.cond.Wait()
	}
}

// Executed returns the number of commands that have finished running.
func (t *Thread) Executed() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commands
}

// Close runs everything already flushed, discards unflushed commands and
// stops the worker. It is safe to call more than once.
func (t *Thread) Close() {
	t.chunk = nil
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		t.cond.Broadcast()
	}
	t.mu.Unlock()
	<-t.done
}

func (t *Thread) run() {
	defer close(t.done)
	for {
		t.mu.Lock()
		for len(t.queue) == 0 && !t.closed {
			t.cond.Wait()
		}
		if len(t.queue) == 0 {
			t.mu.Unlock()
			return
		}
		chunk := t.queue[0]
		t.queue[0] = nil
		t.queue = t.queue[1:]
		t.mu.Unlock()

		for _, cmd := range chunk {
			t.exec(cmd)
		}

		t.mu.Lock()
		t.executed++
		t.commands += uint64(len(chunk))
		t.cond.Broadcast()
		t.mu.Unlock()
	}
}

// exec runs one command. A panic is logged and the worker keeps running.
func (t *Thread) exec(cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("cs: command panicked", "err", fmt.Sprint(r))
		}
	}()
	cmd()
}
