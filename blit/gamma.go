// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package blit

import (
	"encoding/binary"
	"fmt"
)

// MaxGammaPoints is the largest gamma ramp accepted by SetGammaRamp.
const MaxGammaPoints = 1025

// GammaPoint is one control point of a gamma ramp in 16-bit unsigned
// normalized units.
type GammaPoint struct {
	R, G, B uint16
}

// gammaTexelSize is the size of one RGBA16Unorm texel.
const gammaTexelSize = 8

// encodeGammaLUT packs points into RGBA16Unorm texels with opaque alpha.
func encodeGammaLUT(points []GammaPoint) []byte {
	data := make([]byte, len(points)*gammaTexelSize)
	for i, p := range points {
		o := i * gammaTexelSize
		binary.LittleEndian.PutUint16(data[o:], p.R)
		binary.LittleEndian.PutUint16(data[o+2:], p.G)
		binary.LittleEndian.PutUint16(data[o+4:], p.B)
		binary.LittleEndian.PutUint16(data[o+6:], 0xFFFF)
	}
	return data
}

// identityRamp is the two-point ramp used when no gamma curve is set.
var identityRamp = []GammaPoint{{0, 0, 0}, {0xFFFF, 0xFFFF, 0xFFFF}}

func validateRamp(points []GammaPoint) error {
	if len(points) > MaxGammaPoints {
		return fmt.Errorf("blit: gamma ramp has %d points, maximum is %d", len(points), MaxGammaPoints)
	}
	if len(points) == 1 {
		return fmt.Errorf("blit: gamma ramp needs at least 2 points")
	}
	return nil
}
