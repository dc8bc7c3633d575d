// Package swapchain presents rendered frames to a window and paces the
// application against the GPU.
//
// # Overview
//
// A SwapChain owns a back buffer the application renders into. Present
// copies it into the next presentation image of a window surface, applying
// an optional gamma curve, composites overlays on top and queues the image
// for display. Presentation images come from a [presenter.Presenter], by
// default the HAL presenter over a wgpu surface.
//
// GPU submission and the present call run on a command-stream goroutine
// ([cs.Thread]) so Present returns as soon as the frame is recorded.
// Completion of every frame advances a [latency.Fence]; Present blocks
// until no more than the configured number of frames are in flight.
//
// # Quick Start
//
//	sc, err := swapchain.New(device, queue, hwnd, swapchain.Desc{
//	    Format:      gputypes.TextureFormatBGRA8Unorm,
//	    BufferCount: 2,
//	}, swapchain.WithSurface(surface, adapter))
//	if err != nil {
//	    return err
//	}
//	defer sc.Close()
//
//	for running {
//	    tex, view := sc.BackBuffer()
//	    render(tex, view)
//	    if err := sc.Present(1, 0, nil); err != nil {
//	        switch swapchain.ResultOf(err) {
//	        case swapchain.ResultOccluded:
//	            // Minimized; keep going.
//	        case swapchain.ResultDeviceReset:
//	            return err
//	        }
//	    }
//	}
//
// # Frame Latency
//
// Without FlagFrameLatencyWaitable, Present throttles against the device's
// maximum frame latency. With it, the latency is set by SetFrameLatency and
// GetFrameLatencyWaitHandle returns a semaphore that is released once for
// every retired frame, so the application can wait before it starts
// rendering instead of inside Present.
//
// # Surface Recreation
//
// The surface is recreated lazily. ChangeProperties, switching between
// vsync and no vsync, a failed present and a failed acquire all mark the
// surface for recreation on the next Present. Frame ids keep increasing
// across recreations.
//
// # Fullscreen
//
// EnterFullscreenMode strips the window decoration and covers the monitor;
// LeaveFullscreenMode restores the saved styles and rectangle. The window
// procedure is hooked through a [window.Registry] so overlays see input and
// activation changes reach the presenter's exclusive mode. When
// config.Config.BridgeActive is set, the window belongs to a remote host
// and only the hook is installed.
//
// # Logging
//
// The package is silent by default. SetLogger installs a [log/slog]
// logger for this package and its subpackages.
package swapchain
