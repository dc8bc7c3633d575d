// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package blit

import (
	"fmt"

	"github.com/gogpu/naga"
)

// blitShaderSource draws a full-screen triangle sampling the back buffer
// and maps each color channel through the gamma lookup texture. The LUT
// is sampled at texel centers so that an n-point ramp interpolates
// linearly between control points.
const blitShaderSource = `
@group(0) @binding(0) var src_tex: texture_2d<f32>;
@group(0) @binding(1) var src_sampler: sampler;
@group(0) @binding(2) var gamma_lut: texture_2d<f32>;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> VertexOutput {
    var out: VertexOutput;
    let uv = vec2<f32>(f32((idx << 1u) & 2u), f32(idx & 2u));
    out.position = vec4<f32>(uv.x * 2.0 - 1.0, 1.0 - uv.y * 2.0, 0.0, 1.0);
    out.uv = uv;
    return out;
}

fn lut_coord(v: f32, n: f32) -> vec2<f32> {
    let x = clamp(v, 0.0, 1.0) * (n - 1.0) + 0.5;
    return vec2<f32>(x / n, 0.5);
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let color = textureSampleLevel(src_tex, src_sampler, in.uv, 0.0);
    let n = f32(textureDimensions(gamma_lut).x);
    let r = textureSampleLevel(gamma_lut, src_sampler, lut_coord(color.r, n), 0.0).r;
    let g = textureSampleLevel(gamma_lut, src_sampler, lut_coord(color.g, n), 0.0).g;
    let b = textureSampleLevel(gamma_lut, src_sampler, lut_coord(color.b, n), 0.0).b;
    return vec4<f32>(r, g, b, color.a);
}
`

// compileSPIRV compiles WGSL source to SPIR-V words.
func compileSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("blit: compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvCode, nil
}
