// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package capture

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/swapchain"
	"github.com/gogpu/swapchain/cs"
	"github.com/gogpu/swapchain/window"
)

type event struct {
	kind string
	w, h uint32
}

type recordingSink struct {
	mu     sync.Mutex
	events []event
}

func (s *recordingSink) EndFrame() {
	s.mu.Lock()
	s.events = append(s.events, event{kind: "end"})
	s.mu.Unlock()
}

func (s *recordingSink) ResetResolution(w, h uint32) {
	s.mu.Lock()
	s.events = append(s.events, event{kind: "reset", w: w, h: h})
	s.mu.Unlock()
}

func (s *recordingSink) snapshot() []event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event(nil), s.events...)
}

func TestTrackerEndOfFrameResetsCounters(t *testing.T) {
	sink := &recordingSink{}
	tr := NewTracker(sink, nil)

	for want := uint32(0); want < 3; want++ {
		if got := tr.OnDrawCall(); got != want {
			t.Errorf("OnDrawCall() = %d, want %d", got, want)
		}
	}
	if !tr.TriggerInject() {
		t.Error("first TriggerInject() = false")
	}
	if tr.TriggerInject() {
		t.Error("second TriggerInject() in the same frame = true")
	}

	tr.NotifyEndOfFrame()
	if tr.DrawCalls() != 0 {
		t.Errorf("DrawCalls() after end of frame = %d, want 0", tr.DrawCalls())
	}
	if !tr.TriggerInject() {
		t.Error("TriggerInject() not re-armed by end of frame")
	}
	if tr.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", tr.Frames())
	}
	if events := sink.snapshot(); len(events) != 1 || events[0].kind != "end" {
		t.Errorf("events = %+v, want one end of frame", events)
	}
}

func TestTrackerResetSurfaceIgnoresDuplicates(t *testing.T) {
	sink := &recordingSink{}
	tr := NewTracker(sink, nil)

	desc := swapchain.Desc{Width: 640, Height: 480, Format: gputypes.TextureFormatRGBA8Unorm, BufferCount: 2}
	tr.ResetSurface(desc)
	tr.ResetSurface(desc)
	desc.Width = 800
	tr.ResetSurface(desc)

	events := sink.snapshot()
	if len(events) != 2 {
		t.Fatalf("events = %+v, want 2 resets", events)
	}
	if events[1] != (event{kind: "reset", w: 800, h: 480}) {
		t.Errorf("second reset = %+v", events[1])
	}
}

func TestTrackerOnCommandStream(t *testing.T) {
	thread := cs.NewThread(nil)
	defer thread.Close()

	sink := &recordingSink{}
	tr := NewTracker(sink, thread)

	tr.NotifyEndOfFrame()
	if len(sink.snapshot()) != 0 {
		t.Error("end of frame ran before the chunk was flushed")
	}
	tr.ResetSurface(swapchain.Desc{Width: 320, Height: 200})
	thread.Synchronize()

	events := sink.snapshot()
	if len(events) != 2 || events[0].kind != "end" || events[1].kind != "reset" {
		t.Errorf("events = %+v, want end of frame then reset", events)
	}
}

func TestTrackerNilSink(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.NotifyEndOfFrame()
	tr.ResetSurface(swapchain.Desc{Width: 1, Height: 1})
	if tr.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", tr.Frames())
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := &LogSink{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	s.EndFrame()
	s.ResetResolution(1024, 768)
	out := buf.String()
	if !strings.Contains(out, "frame=1") || !strings.Contains(out, "width=1024") {
		t.Errorf("unexpected log output: %s", out)
	}

	var silent LogSink
	silent.EndFrame()
}

func TestTrackerWithSwapChain(t *testing.T) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	defer instance.Destroy()
	surface, err := instance.CreateSurface(0, 0)
	if err != nil {
		t.Fatalf("CreateSurface failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(surface)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer openDev.Device.Destroy()

	sys := window.NewVirtual(window.Rect{Right: 1920, Bottom: 1080})
	win := sys.CreateWindow(window.Rect{Right: 640, Bottom: 480}, window.StyleOverlappedWindow, 0, nil)

	thread := cs.NewThread(nil)
	defer thread.Close()
	sink := &recordingSink{}
	tr := NewTracker(sink, thread)

	sc, err := swapchain.New(openDev.Device, openDev.Queue, win, swapchain.Desc{
		Format:      gputypes.TextureFormatBGRA8Unorm,
		BufferCount: 2,
		Usage:       swapchain.UsageRenderTarget,
	},
		swapchain.WithSurface(surface, adapters[0].Adapter),
		swapchain.WithWindowRegistry(window.NewRegistry(sys)),
		swapchain.WithCommandStream(thread),
		swapchain.WithFrameObserver(tr),
	)
	if err != nil {
		t.Fatalf("swapchain.New() = %v", err)
	}

	for range 3 {
		tr.OnDrawCall()
		if err := sc.Present(1, 0, nil); err != nil {
			t.Fatalf("Present() = %v", err)
		}
	}
	if err := sc.ChangeProperties(swapchain.Desc{
		Width:       800,
		Height:      600,
		Format:      gputypes.TextureFormatBGRA8Unorm,
		BufferCount: 2,
		Usage:       swapchain.UsageRenderTarget,
	}); err != nil {
		t.Fatalf("ChangeProperties() = %v", err)
	}
	if err := sc.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	thread.Synchronize()

	want := []event{
		{kind: "reset", w: 640, h: 480},
		{kind: "end"}, {kind: "end"}, {kind: "end"},
		{kind: "reset", w: 800, h: 600},
	}
	got := sink.snapshot()
	if len(got) != len(want) {
		t.Fatalf("events = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if tr.Frames() != 3 || tr.DrawCalls() != 0 {
		t.Errorf("Frames()=%d DrawCalls()=%d, want 3 and 0", tr.Frames(), tr.DrawCalls())
	}
}
