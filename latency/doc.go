// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package latency provides the primitives that bound the number of frames
// in flight between the CPU and the GPU.
//
// A [Fence] is signaled with increasing frame ids as frames retire on the
// GPU. Producers block on it with Wait, and one-shot completion actions are
// attached with SetCallback and executed by the fence's worker goroutine.
//
// A [Semaphore] is the waitable object handed to applications that opt
// into frame latency waiting: one token is released per retired frame.
//
//	fence := latency.NewFence(0)
//	defer fence.Close()
//
//	fence.SetCallback(frameID, func() { _ = sem.Release(1) })
//	_ = fence.Wait(ctx, frameID-maxLatency)
package latency
