// Package config loads the environment-derived swap chain options.
//
// Values come from, in increasing priority: built-in defaults, an optional
// YAML file (swapchain.yaml in the working directory unless a path is
// given), and SWAPCHAIN_* environment variables.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "SWAPCHAIN"

// Hard limits shared with the swap chain.
const (
	MaxSyncInterval    = 4
	MaxFrameLatencyCap = 16
)

// Tristate is an auto/on/off option.
type Tristate string

// Tristate values.
const (
	Auto Tristate = "auto"
	On   Tristate = "on"
	Off  Tristate = "off"
)

// Config holds the swap chain options read from the environment.
type Config struct {
	// SyncInterval overrides the interval passed to Present. -1 keeps the
	// application value.
	SyncInterval int `mapstructure:"sync_interval"`

	// TearFree selects present modes: on avoids tearing modes, off prefers
	// them, auto lets vsync decide.
	TearFree Tristate `mapstructure:"tear_free"`

	// MaxFrameRate caps presentation in frames per second. 0 disables it.
	MaxFrameRate int `mapstructure:"max_frame_rate"`

	// NumBackBuffers overrides the number of presentation images.
	// 0 uses the buffer count of the swap chain plus one.
	NumBackBuffers int `mapstructure:"num_back_buffers"`

	// MaxFrameLatency caps the frame latency. 0 leaves it uncapped.
	MaxFrameLatency int `mapstructure:"max_frame_latency"`

	// DeferSurfaceCreation postpones presenter creation to the first
	// present.
	DeferSurfaceCreation bool `mapstructure:"defer_surface_creation"`

	// BridgeActive marks that a remote host owns the window.
	BridgeActive bool `mapstructure:"bridge_active"`

	// ForceVsyncOff disables vsync and frame pacing on every present.
	ForceVsyncOff bool `mapstructure:"force_vsync_off"`

	// ForceVsyncOffClearsDirty makes a forced vsync-off present drop a
	// pending surface recreation.
	ForceVsyncOffClearsDirty bool `mapstructure:"force_vsync_off_clears_dirty"`

	// EnableOverlayStats installs the frame statistics overlay.
	EnableOverlayStats bool `mapstructure:"enable_overlay_stats"`

	// EnableHUD draws the frame statistics into every presented image.
	// It implies EnableOverlayStats.
	EnableHUD bool `mapstructure:"enable_hud"`

	// HUDSize is the HUD text size in points.
	HUDSize float64 `mapstructure:"hud_size"`

	// PresenterBackend names the presenter backend. Empty picks the best
	// registered one.
	PresenterBackend string `mapstructure:"presenter_backend"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SyncInterval:             -1,
		TearFree:                 Auto,
		ForceVsyncOffClearsDirty: true,
		HUDSize:                  14,
	}
}

// Load reads the configuration. cfgFile may be empty, in which case a
// missing swapchain.yaml is not an error.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("swapchain")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Unmarshal only sees environment variables for known keys.
	v.SetDefault("sync_interval", cfg.SyncInterval)
	v.SetDefault("tear_free", string(cfg.TearFree))
	v.SetDefault("max_frame_rate", cfg.MaxFrameRate)
	v.SetDefault("num_back_buffers", cfg.NumBackBuffers)
	v.SetDefault("max_frame_latency", cfg.MaxFrameLatency)
	v.SetDefault("defer_surface_creation", cfg.DeferSurfaceCreation)
	v.SetDefault("bridge_active", cfg.BridgeActive)
	v.SetDefault("force_vsync_off", cfg.ForceVsyncOff)
	v.SetDefault("force_vsync_off_clears_dirty", cfg.ForceVsyncOffClearsDirty)
	v.SetDefault("enable_overlay_stats", cfg.EnableOverlayStats)
	v.SetDefault("enable_hud", cfg.EnableHUD)
	v.SetDefault("hud_size", cfg.HUDSize)
	v.SetDefault("presenter_backend", cfg.PresenterBackend)

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option ranges.
func (c *Config) Validate() error {
	switch c.TearFree {
	case Auto, On, Off:
	default:
		return fmt.Errorf("config: tear_free %q: want auto, on or off", c.TearFree)
	}
	if c.SyncInterval < -1 || c.SyncInterval > MaxSyncInterval {
		return fmt.Errorf("config: sync_interval %d out of range [-1, %d]", c.SyncInterval, MaxSyncInterval)
	}
	if c.MaxFrameLatency < 0 || c.MaxFrameLatency > MaxFrameLatencyCap {
		return fmt.Errorf("config: max_frame_latency %d out of range [0, %d]", c.MaxFrameLatency, MaxFrameLatencyCap)
	}
	if c.NumBackBuffers < 0 {
		return fmt.Errorf("config: num_back_buffers %d is negative", c.NumBackBuffers)
	}
	if c.MaxFrameRate < 0 {
		return fmt.Errorf("config: max_frame_rate %d is negative", c.MaxFrameRate)
	}
	if c.EnableHUD && c.HUDSize <= 0 {
		return fmt.Errorf("config: hud_size %v must be positive", c.HUDSize)
	}
	return nil
}
