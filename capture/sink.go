// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package capture

import "log/slog"

// LogSink reports capture events to a logger. Useful when no capture
// backend is attached.
type LogSink struct {
	Logger *slog.Logger

	frames uint64
}

// EndFrame implements Sink.
func (s *LogSink) EndFrame() {
	s.frames++
	s.logger().Debug("capture: end of frame", "frame", s.frames)
}

// ResetResolution implements Sink.
func (s *LogSink) ResetResolution(width, height uint32) {
	s.logger().Info("capture: resolution reset", "width", width, "height", height)
}

func (s *LogSink) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}
