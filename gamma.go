package swapchain

import (
	"fmt"
	"math"
)

// identityGammaPoint is the value of point i of an n-point linear ramp.
func identityGammaPoint(i, n int) uint16 {
	return uint16(math.Round(65535 * float64(i) / float64(n-1)))
}

// isIdentityRamp reports whether points is the linear ramp. Ramps with
// fewer than two points are treated as identity.
func isIdentityRamp(points []GammaPoint) bool {
	n := len(points)
	if n < 2 {
		return true
	}
	for i, p := range points {
		v := identityGammaPoint(i, n)
		if p.R != v || p.G != v || p.B != v {
			return false
		}
	}
	return true
}

// SetGammaControl installs a gamma ramp of up to MaxGammaPoints points.
// A linear ramp removes any installed curve, so presents go back to a
// plain copy.
func (s *SwapChain) SetGammaControl(points []GammaPoint) error {
	if len(points) > MaxGammaPoints {
		return invalidArgf("%d gamma points exceed %d", len(points), MaxGammaPoints)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if isIdentityRamp(points) {
		return s.blitter.SetGammaRamp(nil)
	}
	if err := s.blitter.SetGammaRamp(points); err != nil {
		return fmt.Errorf("swapchain: %w", err)
	}
	return nil
}

// HasGammaRamp reports whether a custom gamma curve is installed.
func (s *SwapChain) HasGammaRamp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blitter.HasGammaRamp()
}
