package swapchain

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/swapchain/latency"
)

// Bounds of the retire loop's polling interval.
const (
	retirePollMin = 50 * time.Microsecond
	retirePollMax = 2 * time.Millisecond
)

// retirement is a submission whose completion advances the latency fence.
type retirement struct {
	submission uint64
	frameID    uint64
	buffers    []hal.CommandBuffer
}

// device submits presentation work and signals the latency fence once
// the GPU retired it.
type device struct {
	dev   hal.Device
	queue hal.Queue
	fence *latency.Fence

	lost   atomic.Bool
	retire chan retirement
	done   chan struct{}
}

// lockedQueue serializes a hal.Queue shared by the foreground, the
// command-stream goroutine and the retire loop. hal leaves queue thread
// safety to the backend.
type lockedQueue struct {
	hal.Queue
	mu sync.Mutex
}

func newLockedQueue(q hal.Queue) *lockedQueue {
	if lq, ok := q.(*lockedQueue); ok {
		return lq
	}
	return &lockedQueue{Queue: q}
}

func (q *lockedQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.Queue.Submit(cmds)
}

func (q *lockedQueue) PollCompleted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.Queue.PollCompleted()
}

func (q *lockedQueue) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.Queue.WriteBuffer(buffer, offset, data)
}

func (q *lockedQueue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.Queue.WriteTexture(dst, data, layout, size)
}

func (q *lockedQueue) Present(surface hal.Surface, texture hal.SurfaceTexture, damage []image.Rectangle) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.Queue.Present(surface, texture, damage)
}

func newDevice(dev hal.Device, queue hal.Queue, fence *latency.Fence) *device {
	d := &device{
		dev:    dev,
		queue:  queue,
		fence:  fence,
		retire: make(chan retirement, MaxBufferCount),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// submit hands cmd to the queue and returns its submission index.
func (d *device) submit(cmd hal.CommandBuffer) (uint64, error) {
	index, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		if errors.Is(err, hal.ErrDeviceLost) {
			d.lost.Store(true)
		}
		return 0, fmt.Errorf("swapchain: submit: %w", err)
	}
	return index, nil
}

// retireAt frees buffers and signals frameID on the latency fence once
// submission completed. A zero submission retires immediately and a zero
// frameID signals nothing.
func (d *device) retireAt(submission, frameID uint64, buffers ...hal.CommandBuffer) {
	d.retire <- retirement{submission: submission, frameID: frameID, buffers: buffers}
}

// status reports whether the device is still usable.
func (d *device) status() error {
	if d.lost.Load() {
		return ErrDeviceReset
	}
	return nil
}

// waitIdle blocks until the GPU finished all submitted work.
func (d *device) waitIdle() error {
	if err := d.dev.WaitIdle(); err != nil {
		if errors.Is(err, hal.ErrDeviceLost) {
			d.lost.Store(true)
		}
		return err
	}
	return nil
}

func (d *device) run() {
	defer close(d.done)
	for r := range d.retire {
		poll := retirePollMin
		for r.submission > d.queue.PollCompleted() && !d.lost.Load() {
			time.Sleep(poll)
			poll = min(poll*2, retirePollMax)
		}
		for _, b := range r.buffers {
			d.dev.FreeCommandBuffer(b)
		}
		if r.frameID != 0 {
			d.fence.Signal(r.frameID)
		}
	}
}

// close stops the retire loop after every queued retirement ran.
func (d *device) close() {
	close(d.retire)
	<-d.done
}
