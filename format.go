package swapchain

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/config"
	"github.com/gogpu/swapchain/presenter"
)

// pickFormats returns the surface formats to request for a back buffer
// format, most preferred first.
func pickFormats(format gputypes.TextureFormat) []gputypes.TextureFormat {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm:
		return []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm}
	case gputypes.TextureFormatRGBA8UnormSrgb, gputypes.TextureFormatBGRA8UnormSrgb:
		return []gputypes.TextureFormat{gputypes.TextureFormatRGBA8UnormSrgb, gputypes.TextureFormatBGRA8UnormSrgb}
	case gputypes.TextureFormatRGB10A2Unorm:
		return []gputypes.TextureFormat{gputypes.TextureFormatRGB10A2Unorm}
	case gputypes.TextureFormatRGBA16Float:
		return []gputypes.TextureFormat{gputypes.TextureFormatRGBA16Float}
	default:
		Logger().Warn("swapchain: unexpected back buffer format", "format", format)
		return []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm}
	}
}

// pickPresentModes returns the present modes to request, most preferred
// first. Relaxed FIFO may tear, so it is only offered when tear-free
// presentation is explicitly off.
func pickPresentModes(vsync bool, tearFree config.Tristate) []gputypes.PresentMode {
	if vsync {
		if tearFree == config.Off {
			return []gputypes.PresentMode{gputypes.PresentModeFifoRelaxed, gputypes.PresentModeFifo}
		}
		return []gputypes.PresentMode{gputypes.PresentModeFifo}
	}
	if tearFree != config.On {
		return []gputypes.PresentMode{gputypes.PresentModeImmediate, gputypes.PresentModeMailbox}
	}
	return []gputypes.PresentMode{gputypes.PresentModeMailbox}
}

// pickImageCount returns the number of presentation images.
func pickImageCount(preferred uint32, cfg *config.Config) uint32 {
	if cfg.NumBackBuffers > 0 {
		return uint32(cfg.NumBackBuffers)
	}
	return preferred
}

func pickFullscreenMode(flags Flags) presenter.FullscreenMode {
	if flags&FlagAllowModeSwitch != 0 {
		return presenter.FullscreenAllowed
	}
	return presenter.FullscreenDisallowed
}

// presenterDesc builds the presenter configuration for the current
// descriptor.
func (s *SwapChain) presenterDesc(vsync bool) presenter.Desc {
	return presenter.Desc{
		Width:          s.desc.Width,
		Height:         s.desc.Height,
		ImageCount:     pickImageCount(s.desc.BufferCount+1, &s.cfg),
		Formats:        pickFormats(s.desc.Format),
		PresentModes:   pickPresentModes(vsync, s.cfg.TearFree),
		FullscreenMode: pickFullscreenMode(s.desc.Flags),
	}
}
