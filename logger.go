package swapchain

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/swapchain/bridge"
	"github.com/gogpu/swapchain/presenter"
	"github.com/gogpu/swapchain/window"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for swapchain and its sub-packages
// (presenter, window, bridge). By default nothing is logged. Pass nil to
// restore silent output.
//
// Log levels used:
//   - [slog.LevelDebug]: per-frame diagnostics (recreate reasons, acquire retries)
//   - [slog.LevelInfo]: lifecycle events (presenter created, fullscreen entered)
//   - [slog.LevelWarn]: non-fatal failures (display mode restore, overlay errors)
//   - [slog.LevelError]: surface recreation failures
//
// Example:
//
//	swapchain.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	presenter.SetLogger(l)
	window.SetLogger(l)
	bridge.SetLogger(l)
}

// Logger returns the current logger. Packages layered on top of swapchain
// call this to share its configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
