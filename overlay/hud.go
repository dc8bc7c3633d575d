// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/swapchain/window"
)

// ErrUnsupportedFormat is returned by HUD.Render for presentation formats
// it cannot copy into.
var ErrUnsupportedFormat = errors.New("overlay: unsupported target format")

const (
	hudMargin  = 8
	hudPadding = 4
	// Row pitch alignment of texture uploads.
	hudRowAlign = 256
)

var hudBackground = color.RGBA{A: 0xB0}

// HUD draws the frame statistics of a Stats into the top-left corner of
// every presented image.
//
// Text is rasterized on the CPU with the Go Regular font, uploaded into a
// staging texture and copied into the presentation image, so the HUD needs
// no pipeline of its own.
type HUD struct {
	device hal.Device
	queue  hal.Queue
	stats  *Stats
	face   font.Face

	mu      sync.Mutex
	texture hal.Texture
	format  gputypes.TextureFormat
	w, h    uint32
	text    string
	pixels  *image.RGBA
}

// NewHUD returns a HUD showing stats with text of the given size in points.
func NewHUD(device hal.Device, queue hal.Queue, stats *Stats, size float64) (*HUD, error) {
	if stats == nil {
		return nil, errors.New("overlay: HUD needs frame statistics")
	}
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("overlay: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("overlay: create face: %w", err)
	}
	return &HUD{device: device, queue: queue, stats: stats, face: face}, nil
}

// Text returns the line the HUD shows for s.
func (h *HUD) Text(s FrameStats) string {
	return fmt.Sprintf("frame %d  %.1f fps", s.LastFrameID, s.FPS())
}

// Render implements Overlay.
func (h *HUD) Render(_ window.Handle, enc hal.CommandEncoder, t Target) error {
	swap, ok := channelOrder(t.Format)
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, t.Format)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	text := h.Text(h.stats.Stats())
	w, ht := h.measure(text)
	if w+hudMargin > t.Width || ht+hudMargin > t.Height {
		return nil
	}
	if err := h.ensureTexture(w, ht, t.Format); err != nil {
		return err
	}
	if text != h.text || h.pixels == nil {
		h.rasterize(text, swap)
		err := h.queue.WriteTexture(
			&hal.ImageCopyTexture{Texture: h.texture, Aspect: gputypes.TextureAspectAll},
			h.pixels.Pix,
			&hal.ImageDataLayout{BytesPerRow: uint32(h.pixels.Stride), RowsPerImage: ht},
			&hal.Extent3D{Width: w, Height: ht, DepthOrArrayLayers: 1},
		)
		if err != nil {
			return fmt.Errorf("overlay: upload HUD: %w", err)
		}
		h.text = text
	}

	enc.CopyTextureToTexture(h.texture, t.Texture, []hal.TextureCopy{{
		SrcBase: hal.ImageCopyTexture{Texture: h.texture, Aspect: gputypes.TextureAspectAll},
		DstBase: hal.ImageCopyTexture{
			Texture: t.Texture,
			Origin:  hal.Origin3D{X: hudMargin, Y: hudMargin},
			Aspect:  gputypes.TextureAspectAll,
		},
		Size: hal.Extent3D{Width: w, Height: ht, DepthOrArrayLayers: 1},
	}})
	return nil
}

// measure returns the padded extent of text. The width is rounded up to
// whole glyph cells of 8 pixels so the staging texture is not recreated
// for every change of the frame rate digits.
func (h *HUD) measure(text string) (w, ht uint32) {
	adv := font.MeasureString(h.face, text).Ceil()
	m := h.face.Metrics()
	w = uint32((adv+2*hudPadding+7)/8) * 8
	ht = uint32((m.Ascent + m.Descent).Ceil() + 2*hudPadding)
	return w, ht
}

func (h *HUD) ensureTexture(w, ht uint32, format gputypes.TextureFormat) error {
	if h.texture != nil && h.w == w && h.h == ht && h.format == format {
		return nil
	}
	h.destroyTexture()
	tex, err := h.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "swapchain_hud",
		Size:          hal.Extent3D{Width: w, Height: ht, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("overlay: create HUD texture: %w", err)
	}
	stride := (int(w)*4 + hudRowAlign - 1) / hudRowAlign * hudRowAlign
	h.texture, h.format, h.w, h.h = tex, format, w, ht
	h.pixels = &image.RGBA{
		Pix:    make([]uint8, stride*int(ht)),
		Stride: stride,
		Rect:   image.Rect(0, 0, int(w), int(ht)),
	}
	h.text = ""
	return nil
}

// rasterize draws text into the staging pixels. With swap set the red and
// blue channels are exchanged for BGRA targets.
func (h *HUD) rasterize(text string, swap bool) {
	img := h.pixels
	draw.Draw(img, img.Bounds(), image.NewUniform(hudBackground), image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: h.face,
		Dot: fixed.Point26_6{
			X: fixed.I(hudPadding),
			Y: fixed.I(hudPadding) + h.face.Metrics().Ascent,
		},
	}
	d.DrawString(text)

	if !swap {
		return
	}
	for y := range img.Rect.Dy() {
		row := img.Pix[y*img.Stride : y*img.Stride+img.Rect.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			row[x], row[x+2] = row[x+2], row[x]
		}
	}
}

// channelOrder reports whether format is an 8-bit four channel format the
// HUD can copy into and whether it is stored blue first.
func channelOrder(format gputypes.TextureFormat) (swap, ok bool) {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
		return false, true
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		return true, true
	default:
		return false, false
	}
}

func (h *HUD) destroyTexture() {
	if h.texture != nil {
		h.device.DestroyTexture(h.texture)
		h.texture = nil
	}
}

// Destroy releases the staging texture and the font face.
func (h *HUD) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroyTexture()
	h.pixels = nil
	if h.face != nil {
		_ = h.face.Close()
	}
}

var _ Overlay = (*HUD)(nil)
