package swapchain

import (
	"errors"
	"testing"
)

func identityRamp(n int) []GammaPoint {
	points := make([]GammaPoint, n)
	for i := range points {
		v := identityGammaPoint(i, n)
		points[i] = GammaPoint{R: v, G: v, B: v}
	}
	return points
}

func TestIsIdentityRamp(t *testing.T) {
	for _, n := range []int{0, 1, 2, 256, MaxGammaPoints} {
		if !isIdentityRamp(identityRamp(n)) {
			t.Errorf("%d-point linear ramp not recognized as identity", n)
		}
	}

	ramp := identityRamp(256)
	ramp[17].G++
	if isIdentityRamp(ramp) {
		t.Error("ramp with one perturbed point recognized as identity")
	}
}

func TestSetGammaControl(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())

	if err := sc.SetGammaControl(identityRamp(256)); err != nil {
		t.Fatalf("SetGammaControl(identity) = %v", err)
	}
	if sc.HasGammaRamp() {
		t.Error("identity ramp installed a gamma curve")
	}

	ramp := identityRamp(256)
	ramp[100].R--
	if err := sc.SetGammaControl(ramp); err != nil {
		t.Fatalf("SetGammaControl(custom) = %v", err)
	}
	if !sc.HasGammaRamp() {
		t.Error("custom ramp not installed")
	}
	if err := sc.Present(0, 0, nil); err != nil {
		t.Fatalf("Present() with gamma = %v", err)
	}

	if err := sc.SetGammaControl(identityRamp(MaxGammaPoints)); err != nil {
		t.Fatalf("SetGammaControl(identity) = %v", err)
	}
	if sc.HasGammaRamp() {
		t.Error("identity ramp did not remove the gamma curve")
	}
}

func TestSetGammaControlTooManyPoints(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())

	err := sc.SetGammaControl(make([]GammaPoint, MaxGammaPoints+1))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetGammaControl(%d points) = %v, want ErrInvalidArgument", MaxGammaPoints+1, err)
	}
}

func TestPresentReleasesReplacedGammaResources(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())

	custom := func(n int) []GammaPoint {
		ramp := identityRamp(n)
		ramp[10].R--
		return ramp
	}
	if err := sc.SetGammaControl(custom(256)); err != nil {
		t.Fatalf("SetGammaControl() = %v", err)
	}
	if err := sc.Present(0, 0, nil); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	waitFence(t, sc, 1)

	if err := sc.SetGammaControl(custom(300)); err != nil {
		t.Fatalf("SetGammaControl() = %v", err)
	}
	if n := sc.blitter.Pending(); n != 1 {
		t.Fatalf("replaced objects = %d, want the old LUT", n)
	}
	recreates, _, _ := env.fake.counts()

	for frame := uint64(2); frame <= 3; frame++ {
		if err := sc.Present(0, 0, nil); err != nil {
			t.Fatalf("Present() = %v", err)
		}
		waitFence(t, sc, frame)
	}
	if err := sc.Present(0, 0, nil); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	if n := sc.blitter.Pending(); n != 0 {
		t.Errorf("replaced objects = %d after their frames retired, want 0", n)
	}
	if got, _, _ := env.fake.counts(); got != recreates {
		t.Errorf("Recreate calls = %d, want %d", got, recreates)
	}
}
