package swapchain

import (
	"context"
	"time"

	"github.com/gogpu/swapchain/latency"
)

// closeTimeout bounds how long Close waits for the last frame to retire.
const closeTimeout = 5 * time.Second

// SetFrameLatency sets the maximum number of frames in flight. It fails
// with ErrInvalidArgument for zero or values above MaxBufferCount.
//
// Lowering the latency never takes slots away from the wait handle, so
// producers already waiting under the old latency are not stranded.
func (s *SwapChain) SetFrameLatency(n uint32) error {
	if n == 0 || n > MaxBufferCount {
		return invalidArgf("frame latency %d out of range [1, %d]", n, MaxBufferCount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.sem != nil && n > s.frameLatency {
		if err := s.sem.Release(int(n - s.frameLatency)); err != nil {
			s.logger.Warn("swapchain: release frame latency slots", "err", err)
		}
	}
	s.frameLatency = n
	return nil
}

// GetFrameLatency returns the latency set by SetFrameLatency.
func (s *SwapChain) GetFrameLatency() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLatency
}

// GetFrameLatencyWaitHandle returns the semaphore released once for every
// retired frame, or nil unless the swap chain was created with
// FlagFrameLatencyWaitable. Acquire it before rendering a frame.
func (s *SwapChain) GetFrameLatencyWaitHandle() *latency.Semaphore {
	return s.sem
}

// actualFrameLatency is the number of frames Present lets run ahead of
// the GPU.
func (s *SwapChain) actualFrameLatency() uint32 {
	n := s.frameLatency
	if s.desc.Flags&FlagFrameLatencyWaitable == 0 {
		n = s.deviceMaxLatency
	}
	if s.frameLatencyCap > 0 {
		n = min(n, s.frameLatencyCap)
	}
	return min(n, s.desc.BufferCount+1)
}

// syncFrameLatency blocks until at most actualFrameLatency frames are in
// flight, then arranges for the wait handle to be released when the frame
// just submitted retires.
func (s *SwapChain) syncFrameLatency(flags PresentFlags) {
	if flags&PresentDoNotWait == 0 {
		target := s.frameID - min(uint64(s.actualFrameLatency()), s.frameID)
		if err := s.fence.Wait(context.Background(), target); err != nil {
			s.logger.Warn("swapchain: frame latency wait", "frame", s.frameID, "err", err)
		}
	}

	if s.sem != nil {
		sem, logger := s.sem, s.logger
		s.fence.SetCallback(s.frameID, func() {
			if err := sem.Release(1); err != nil {
				logger.Debug("swapchain: frame latency semaphore full", "err", err)
			}
		})
	}
}
