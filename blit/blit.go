// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package blit copies the swap chain back buffer into an acquired surface
// image.
//
// When extent and format match and no gamma ramp is installed, the blit is
// a plain texture copy. Otherwise a full-screen triangle samples the back
// buffer and maps it through a gamma lookup texture.
package blit

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoTarget is returned when a blit is recorded without a destination.
var ErrNoTarget = errors.New("blit: missing source or target")

// Image describes one side of a blit.
type Image struct {
	Texture       hal.Texture
	View          hal.TextureView
	Width, Height uint32
	Format        gputypes.TextureFormat
}

// Blitter records back buffer to surface image transfers.
type Blitter struct {
	device hal.Device
	queue  hal.Queue

	shader     hal.ShaderModule
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	sampler    hal.Sampler
	pipelines  map[gputypes.TextureFormat]hal.RenderPipeline

	lut       hal.Texture
	lutView   hal.TextureView
	lutPoints int
	// lutIdentity is set while the LUT holds the identity ramp.
	lutIdentity bool
	custom      bool

	bindGroup hal.BindGroup
	bgSource  hal.TextureView
	bgLUT     hal.TextureView

	// frame is the id of the frame recorded next.
	frame uint64
	// stale holds objects replaced while frames may still read them.
	stale []retired
}

// retired is a replaced object that frames up to after may still read.
type retired struct {
	after   uint64
	release func()
}

// New returns a blitter. GPU objects are created on first use.
func New(device hal.Device, queue hal.Queue) *Blitter {
	return &Blitter{
		device:    device,
		queue:     queue,
		pipelines: make(map[gputypes.TextureFormat]hal.RenderPipeline),
	}
}

// HasGammaRamp reports whether a custom gamma ramp is installed.
func (b *Blitter) HasGammaRamp() bool { return b.custom }

// SetGammaRamp installs a gamma ramp. An empty ramp restores the identity
// mapping and re-enables the copy path.
func (b *Blitter) SetGammaRamp(points []GammaPoint) error {
	if err := validateRamp(points); err != nil {
		return err
	}
	if len(points) == 0 {
		b.custom = false
		return nil
	}
	if err := b.uploadLUT(points); err != nil {
		return err
	}
	b.custom = true
	b.lutIdentity = false
	return nil
}

// uploadLUT writes points into the lookup texture, replacing the texture
// when the point count changed.
func (b *Blitter) uploadLUT(points []GammaPoint) error {
	n := uint32(len(points))
	if b.lut == nil || b.lutPoints != len(points) {
		tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
			Label:         "swapchain_gamma_lut",
			Size:          hal.Extent3D{Width: n, Height: 1, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        gputypes.TextureFormatRGBA16Unorm,
			Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("blit: create gamma texture: %w", err)
		}
		view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:           "swapchain_gamma_lut_view",
			Format:          gputypes.TextureFormatRGBA16Unorm,
			Dimension:       gputypes.TextureViewDimension2D,
			Aspect:          gputypes.TextureAspectAll,
			MipLevelCount:   1,
			ArrayLayerCount: 1,
		})
		if err != nil {
			b.device.DestroyTexture(tex)
			return fmt.Errorf("blit: create gamma view: %w", err)
		}
		if b.lut != nil {
			oldTex, oldView := b.lut, b.lutView
			b.retire(func() {
				b.device.DestroyTextureView(oldView)
				b.device.DestroyTexture(oldTex)
			})
		}
		b.lut, b.lutView, b.lutPoints = tex, view, len(points)
	}

	err := b.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: b.lut},
		encodeGammaLUT(points),
		&hal.ImageDataLayout{BytesPerRow: n * gammaTexelSize, RowsPerImage: 1},
		&hal.Extent3D{Width: n, Height: 1, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("blit: upload gamma ramp: %w", err)
	}
	return nil
}

// NeedsDraw reports whether blitting src into dst needs the render
// pipeline rather than a texture copy.
func (b *Blitter) NeedsDraw(src, dst Image) bool {
	return b.custom ||
		src.Width != dst.Width ||
		src.Height != dst.Height ||
		src.Format != dst.Format
}

// Blit records the transfer of src into dst on enc.
func (b *Blitter) Blit(enc hal.CommandEncoder, src, dst Image) error {
	if src.Texture == nil || dst.Texture == nil {
		return ErrNoTarget
	}
	if !b.NeedsDraw(src, dst) {
		enc.CopyTextureToTexture(src.Texture, dst.Texture, []hal.TextureCopy{{
			SrcBase: hal.ImageCopyTexture{Texture: src.Texture, Aspect: gputypes.TextureAspectAll},
			DstBase: hal.ImageCopyTexture{Texture: dst.Texture, Aspect: gputypes.TextureAspectAll},
			Size:    hal.Extent3D{Width: dst.Width, Height: dst.Height, DepthOrArrayLayers: 1},
		}})
		return nil
	}
	return b.draw(enc, src, dst)
}

func (b *Blitter) draw(enc hal.CommandEncoder, src, dst Image) error {
	if src.View == nil || dst.View == nil {
		return ErrNoTarget
	}
	pipeline, err := b.pipeline(dst.Format)
	if err != nil {
		return err
	}
	if !b.custom && !b.lutIdentity {
		if err := b.uploadLUT(identityRamp); err != nil {
			return err
		}
		b.lutIdentity = true
	}
	bg, err := b.bind(src.View)
	if err != nil {
		return err
	}

	pass := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "swapchain_blit",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       dst.View,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
	return nil
}

// bind returns the bind group for the source view and the current LUT,
// creating it when either changed.
func (b *Blitter) bind(src hal.TextureView) (hal.BindGroup, error) {
	if b.bindGroup != nil && b.bgSource == src && b.bgLUT == b.lutView {
		return b.bindGroup, nil
	}
	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "swapchain_blit_bind",
		Layout: b.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: src.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: b.sampler.NativeHandle()}},
			{Binding: 2, Resource: gputypes.TextureViewBinding{TextureView: b.lutView.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("blit: create bind group: %w", err)
	}
	if b.bindGroup != nil {
		old := b.bindGroup
		b.retire(func() { b.device.DestroyBindGroup(old) })
	}
	b.bindGroup, b.bgSource, b.bgLUT = bg, src, b.lutView
	return bg, nil
}

// pipeline returns the render pipeline for the target format, creating
// the shared shader, layouts and sampler on first use.
func (b *Blitter) pipeline(format gputypes.TextureFormat) (hal.RenderPipeline, error) {
	if p, ok := b.pipelines[format]; ok {
		return p, nil
	}
	if b.shader == nil {
		if err := b.createShared(); err != nil {
			b.destroyShared()
			return nil, err
		}
	}

	p, err := b.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "swapchain_blit_pipeline",
		Layout: b.pipeLayout,
		Vertex: hal.VertexState{
			Module:     b.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     b.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("blit: create pipeline for %v: %w", format, err)
	}
	b.pipelines[format] = p
	return p, nil
}

func (b *Blitter) createShared() error {
	spirv, err := compileSPIRV(blitShaderSource)
	if err != nil {
		return err
	}
	shader, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "swapchain_blit_shader",
		Source: hal.ShaderSource{WGSL: blitShaderSource, SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("blit: create shader module: %w", err)
	}
	b.shader = shader

	// Bind group layout:
	//   Binding 0: back buffer (texture_2d, fragment)
	//   Binding 1: sampler (fragment)
	//   Binding 2: gamma LUT (texture_2d, fragment)
	layout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "swapchain_blit_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("blit: create bind group layout: %w", err)
	}
	b.layout = layout

	pipeLayout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "swapchain_blit_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{b.layout},
	})
	if err != nil {
		return fmt.Errorf("blit: create pipeline layout: %w", err)
	}
	b.pipeLayout = pipeLayout

	sampler, err := b.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "swapchain_blit_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("blit: create sampler: %w", err)
	}
	b.sampler = sampler
	return nil
}

// SetFrame sets the id of the frame recorded next. Objects replaced from
// then on are kept until that frame retired.
func (b *Blitter) SetFrame(id uint64) { b.frame = id }

// Pending reports how many replaced objects are still awaiting release.
func (b *Blitter) Pending() int { return len(b.stale) }

func (b *Blitter) retire(release func()) {
	b.stale = append(b.stale, retired{after: b.frame, release: release})
}

// ReleaseRetired destroys the replaced objects no frame after completed
// can read.
func (b *Blitter) ReleaseRetired(completed uint64) {
	kept := b.stale[:0]
	for _, r := range b.stale {
		if r.after <= completed {
			r.release()
			continue
		}
		kept = append(kept, r)
	}
	clear(b.stale[len(kept):])
	b.stale = kept
}

// ReleaseStale destroys every replaced object. The caller must ensure the
// GPU no longer uses them.
func (b *Blitter) ReleaseStale() {
	for _, r := range b.stale {
		r.release()
	}
	b.stale = nil
}

// Destroy releases all GPU resources held by the blitter. Safe to call
// multiple times.
func (b *Blitter) Destroy() {
	b.ReleaseStale()
	if b.bindGroup != nil {
		b.device.DestroyBindGroup(b.bindGroup)
		b.bindGroup, b.bgSource, b.bgLUT = nil, nil, nil
	}
	if b.lutView != nil {
		b.device.DestroyTextureView(b.lutView)
		b.lutView = nil
	}
	if b.lut != nil {
		b.device.DestroyTexture(b.lut)
		b.lut = nil
		b.lutPoints = 0
		b.lutIdentity = false
	}
	for f, p := range b.pipelines {
		b.device.DestroyRenderPipeline(p)
		delete(b.pipelines, f)
	}
	b.destroyShared()
	b.custom = false
}

func (b *Blitter) destroyShared() {
	if b.sampler != nil {
		b.device.DestroySampler(b.sampler)
		b.sampler = nil
	}
	if b.pipeLayout != nil {
		b.device.DestroyPipelineLayout(b.pipeLayout)
		b.pipeLayout = nil
	}
	if b.layout != nil {
		b.device.DestroyBindGroupLayout(b.layout)
		b.layout = nil
	}
	if b.shader != nil {
		b.device.DestroyShaderModule(b.shader)
		b.shader = nil
	}
}
