// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backbuffer

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

type viewSlot struct {
	texture hal.Texture
	view    hal.TextureView
}

// Views holds one render-target view per presentation image.
//
// Surface textures only become known when they are acquired, so a slot is
// filled lazily by Bind and reused while the presenter keeps handing out
// the same texture for that index.
type Views struct {
	device hal.Device
	format gputypes.TextureFormat
	slots  []viewSlot
}

// NewViews returns an empty view array.
func NewViews(device hal.Device) *Views {
	return &Views{device: device}
}

// Rebuild drops every view and resizes the array to imageCount slots of
// the given format.
func (v *Views) Rebuild(imageCount uint32, format gputypes.TextureFormat) {
	v.Destroy()
	v.format = format
	v.slots = make([]viewSlot, imageCount)
}

// Len returns the number of view slots. It always equals the image count
// passed to the last Rebuild.
func (v *Views) Len() int { return len(v.slots) }

// Format returns the view format.
func (v *Views) Format() gputypes.TextureFormat { return v.format }

// Bind returns the view for image index, creating it when the slot is
// empty or holds a view of a different texture.
func (v *Views) Bind(index uint32, tex hal.Texture) (hal.TextureView, error) {
	if int(index) >= len(v.slots) {
		return nil, fmt.Errorf("backbuffer: image index %d out of range [0, %d)", index, len(v.slots))
	}
	slot := &v.slots[index]
	if slot.view != nil && slot.texture == tex {
		return slot.view, nil
	}
	if slot.view != nil {
		v.device.DestroyTextureView(slot.view)
		slot.view = nil
	}

	view, err := v.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           fmt.Sprintf("swapchain_image_%d", index),
		Format:          v.format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("backbuffer: create image view %d: %w", index, err)
	}
	slot.texture = tex
	slot.view = view
	return view, nil
}

// Destroy releases every view; the slot count is kept.
func (v *Views) Destroy() {
	for i := range v.slots {
		if v.slots[i].view != nil {
			v.device.DestroyTextureView(v.slots[i].view)
		}
		v.slots[i] = viewSlot{}
	}
}
