// Command swapdemo drives a swap chain on the noop GPU backend and a
// virtual window, printing the result of every present.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/spf13/cobra"

	"github.com/gogpu/swapchain"
	"github.com/gogpu/swapchain/bridge"
	"github.com/gogpu/swapchain/capture"
	"github.com/gogpu/swapchain/config"
	"github.com/gogpu/swapchain/window"
)

var (
	cfgFile    string
	verbose    bool
	frames     int
	width      int
	height     int
	vsync      uint32
	bridgeAddr string
)

var rootCmd = &cobra.Command{
	Use:   "swapdemo",
	Short: "Swap chain presentation demo",
	Long:  `swapdemo presents frames through a swap chain on the noop GPU backend and a virtual window.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Present a number of frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		fmt.Printf("%+v\n", *cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./swapchain.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	runCmd.Flags().IntVar(&frames, "frames", 120, "number of frames to present")
	runCmd.Flags().IntVar(&width, "width", 800, "window width")
	runCmd.Flags().IntVar(&height, "height", 600, "window height")
	runCmd.Flags().Uint32Var(&vsync, "vsync", 1, "sync interval passed to Present")
	runCmd.Flags().StringVar(&bridgeAddr, "bridge", "", "address of a remote window host, e.g. "+bridge.DefaultAddress)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	swapchain.SetLogger(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	defer instance.Destroy()
	surface, err := instance.CreateSurface(0, 0)
	if err != nil {
		return fmt.Errorf("create surface: %w", err)
	}
	adapters := instance.EnumerateAdapters(surface)
	if len(adapters) == 0 {
		return fmt.Errorf("no adapter")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer openDev.Device.Destroy()

	sys := window.NewVirtual(window.Rect{Right: 1920, Bottom: 1080})
	reg := window.NewRegistry(sys)

	// A bridged window has no local window procedure; its messages arrive
	// over the bridge channel.
	var proc window.Proc = func(window.Message) uintptr { return 0 }
	if bridgeAddr != "" {
		tr, err := bridge.Dial(bridgeAddr, 2*time.Second)
		if err != nil {
			return fmt.Errorf("dial bridge: %w", err)
		}
		ch := bridge.NewChannel(tr)
		defer ch.Close()
		reg.SetFallback(ch)
		cfg.BridgeActive = true
		proc = nil
	}
	win := sys.CreateWindow(window.Rect{Left: 100, Top: 100, Right: int32(100 + width), Bottom: int32(100 + height)},
		window.StyleOverlappedWindow|window.StyleVisible, window.ExStyleOverlappedWindow, proc)

	tracker := capture.NewTracker(&capture.LogSink{Logger: logger}, nil)
	sc, err := swapchain.New(openDev.Device, openDev.Queue, win, swapchain.Desc{
		Format:      gputypes.TextureFormatBGRA8Unorm,
		BufferCount: 2,
		Usage:       swapchain.UsageRenderTarget,
		SwapEffect:  swapchain.SwapEffectFlipDiscard,
		Flags:       swapchain.FlagFrameLatencyWaitable | swapchain.FlagAllowModeSwitch,
	},
		swapchain.WithConfig(cfg),
		swapchain.WithSurface(surface, adapters[0].Adapter),
		swapchain.WithWindowRegistry(reg),
		swapchain.WithFrameObserver(tracker),
		swapchain.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("create swap chain: %w", err)
	}
	defer sc.Close()

	if err := sc.SetFrameLatency(2); err != nil {
		return err
	}
	wait := sc.GetFrameLatencyWaitHandle()

	for i := range frames {
		if err := wait.Acquire(ctx); err != nil {
			return err
		}

		switch i {
		case frames / 4:
			if err := sc.EnterFullscreenMode(); err != nil {
				logger.Warn("enter fullscreen", "err", err)
			}
		case frames / 2:
			desc := sc.GetDesc()
			desc.Width, desc.Height = desc.Width/2, desc.Height/2
			if err := sc.ChangeProperties(desc); err != nil {
				return err
			}
		case 3 * frames / 4:
			if err := sc.LeaveFullscreenMode(); err != nil {
				logger.Warn("leave fullscreen", "err", err)
			}
		}

		err := sc.Present(vsync, 0, nil)
		fmt.Printf("frame %d: %v\n", sc.FrameID(), swapchain.ResultOf(err))
		if err != nil {
			if swapchain.ResultOf(err) == swapchain.ResultDeviceReset {
				return err
			}
			// Nothing retires for a failed present.
			_ = wait.Release(1)
		}
	}

	if stats, ok := sc.Stats(); ok {
		fmt.Printf("%d frames, %.1f fps\n", stats.Frames, stats.FPS())
	}
	return nil
}
