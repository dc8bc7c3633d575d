package swapchain

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/swapchain/backbuffer"
	"github.com/gogpu/swapchain/blit"
	"github.com/gogpu/swapchain/config"
)

func waitFence(t *testing.T, sc *SwapChain, v uint64) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sc.fence.Wait(ctx, v); err != nil {
		t.Fatalf("frame %d never retired: %v", v, err)
	}
}

func TestPresentFrameIDs(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())

	for i := 1; i <= 3; i++ {
		if err := sc.Present(1, 0, nil); err != nil {
			t.Fatalf("Present() #%d = %v", i, err)
		}
		if got := sc.FrameID(); got != uint64(i) {
			t.Errorf("FrameID() = %d, want %d", got, i)
		}
	}
	sc.thread.Synchronize()
	if _, _, presents := env.fake.counts(); presents != 3 {
		t.Errorf("presents = %d, want 3", presents)
	}
	waitFence(t, sc, 3)
}

func TestPresentRepeatsPerSyncInterval(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())

	if err := sc.Present(3, 0, nil); err != nil {
		t.Fatalf("Present(3) = %v", err)
	}
	sc.thread.Synchronize()
	_, acquires, presents := env.fake.counts()
	if acquires != 3 || presents != 3 {
		t.Errorf("acquires=%d presents=%d, want 3 each", acquires, presents)
	}
	if got := sc.FrameID(); got != 1 {
		t.Errorf("FrameID() = %d, want 1", got)
	}
	waitFence(t, sc, 1)
}

func TestPresentSyncIntervalOverride(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc(), WithConfig(configWith(func(c *config.Config) {
		c.SyncInterval = 2
	})))

	if err := sc.Present(0, 0, nil); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	sc.thread.Synchronize()
	if _, _, presents := env.fake.counts(); presents != 2 {
		t.Errorf("presents = %d, want 2", presents)
	}
}

func TestPresentRejectsSyncInterval(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())
	if err := sc.Present(MaxSyncInterval+1, 0, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Present(%d) = %v, want ErrInvalidArgument", MaxSyncInterval+1, err)
	}
	if sc.FrameID() != 0 {
		t.Error("rejected Present advanced the frame id")
	}
}

func TestPresentTestFlag(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())

	if err := sc.Present(1, PresentTest, nil); err != nil {
		t.Fatalf("Present(test) = %v", err)
	}
	if sc.FrameID() != 0 {
		t.Error("test present advanced the frame id")
	}
	if sc.IsDirty() {
		t.Error("test present changed the vsync state")
	}
	if _, acquires, _ := env.fake.counts(); acquires != 0 {
		t.Errorf("test present acquired %d images", acquires)
	}
}

func TestPresentVsyncToggleRecreates(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())

	if err := sc.Present(0, 0, nil); err != nil {
		t.Fatalf("Present(0) = %v", err)
	}
	if recreates, _, _ := env.fake.counts(); recreates != 1 {
		t.Fatalf("Recreate calls = %d, want 1", recreates)
	}

	if err := sc.Present(1, 0, nil); err != nil {
		t.Fatalf("Present(1) = %v", err)
	}
	if recreates, _, _ := env.fake.counts(); recreates != 2 {
		t.Errorf("Recreate calls = %d, want 2", recreates)
	}
	if got := env.fake.lastDesc.PresentModes[0]; got != gputypes.PresentModeFifo {
		t.Errorf("present mode = %v, want Fifo", got)
	}

	if err := sc.Present(2, 0, nil); err != nil {
		t.Fatalf("Present(2) = %v", err)
	}
	if recreates, _, _ := env.fake.counts(); recreates != 2 {
		t.Errorf("changing between vsync intervals recreated the surface")
	}
}

func TestPresentAcquireRetry(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())
	env.fake.script([]gputypes.SurfaceStatus{gputypes.SurfaceStatusOutdated}, nil)

	if err := sc.Present(0, 0, nil); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	sc.thread.Synchronize()
	recreates, acquires, presents := env.fake.counts()
	if recreates != 2 || acquires != 2 || presents != 1 {
		t.Errorf("recreates=%d acquires=%d presents=%d, want 2/2/1", recreates, acquires, presents)
	}
}

func TestPresentAcquireFailsTwice(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())
	if err := sc.Present(0, 0, nil); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	sc.thread.Synchronize()
	executed := sc.thread.Executed()

	env.fake.script([]gputypes.SurfaceStatus{
		gputypes.SurfaceStatusLost,
		gputypes.SurfaceStatusLost,
	}, nil)
	err := sc.Present(0, 0, nil)
	if !errors.Is(err, ErrOccluded) {
		t.Fatalf("Present() = %v, want ErrOccluded", err)
	}
	if ResultOf(err) != ResultOccluded {
		t.Errorf("ResultOf() = %v, want Occluded", ResultOf(err))
	}

	sc.thread.Synchronize()
	if got := sc.thread.Executed(); got != executed {
		t.Errorf("commands executed = %d, want %d", got, executed)
	}
	if _, _, presents := env.fake.counts(); presents != 1 {
		t.Errorf("presents = %d, want 1", presents)
	}
	// The abandoned frame still retires.
	waitFence(t, sc, 2)

	if err := sc.Present(0, 0, nil); err != nil {
		t.Errorf("Present() after recovery = %v", err)
	}
}

func TestPresentFailureRecreatesNextFrame(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())
	env.fake.script(nil, []gputypes.SurfaceStatus{gputypes.SurfaceStatusOutdated})

	if err := sc.Present(0, 0, nil); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	if err := sc.Present(0, 0, nil); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	if recreates, _, _ := env.fake.counts(); recreates != 2 {
		t.Errorf("Recreate calls = %d, want 2", recreates)
	}
}

func TestPresentWithoutSurfaceIsOccluded(t *testing.T) {
	env := newTestEnv(t)
	env.fake.noSurface = true
	sc := env.open(t, testDesc())

	err := sc.Present(1, 0, nil)
	if !errors.Is(err, ErrOccluded) {
		t.Fatalf("Present() = %v, want ErrOccluded", err)
	}
	if sc.FrameID() != 0 {
		t.Error("occluded present advanced the frame id")
	}
	if err := sc.Present(1, PresentTest, nil); !errors.Is(err, ErrOccluded) {
		t.Errorf("Present(test) = %v, want ErrOccluded", err)
	}
}

func TestPresentDeviceReset(t *testing.T) {
	env := newTestEnv(t)
	q := &lostQueue{Queue: env.queue}
	env.queue = q
	sc := env.open(t, testDesc())
	q.lost.Store(true)

	if err := sc.Present(0, 0, nil); err != nil {
		t.Fatalf("first Present() = %v", err)
	}
	sc.thread.Synchronize()

	err := sc.Present(0, 0, nil)
	if !errors.Is(err, ErrDeviceReset) {
		t.Fatalf("Present() = %v, want ErrDeviceReset", err)
	}
	if ResultOf(err) != ResultDeviceReset {
		t.Errorf("ResultOf() = %v", ResultOf(err))
	}
	if err := sc.Present(0, PresentTest, nil); !errors.Is(err, ErrDeviceReset) {
		t.Errorf("Present(test) = %v, want ErrDeviceReset", err)
	}
}

func TestPresentForwardsDirtyRects(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())

	rects := []image.Rectangle{image.Rect(0, 0, 16, 16)}
	if err := sc.Present(0, 0, &PresentParams{DirtyRects: rects}); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	rects[0] = image.Rect(1, 1, 2, 2)
	sc.thread.Synchronize()

	damage := env.fake.lastDamage()
	if len(damage) != 1 || damage[0] != image.Rect(0, 0, 16, 16) {
		t.Errorf("damage = %v, want the rectangles as passed to Present", damage)
	}
}

func TestForceVsyncOff(t *testing.T) {
	resize := func(t *testing.T, sc *SwapChain) {
		t.Helper()
		desc := testDesc()
		desc.Width = 800
		if err := sc.ChangeProperties(desc); err != nil {
			t.Fatalf("ChangeProperties() = %v", err)
		}
	}

	t.Run("clears dirty", func(t *testing.T) {
		env := newTestEnv(t)
		sc := env.open(t, testDesc(), WithConfig(configWith(func(c *config.Config) {
			c.ForceVsyncOff = true
			c.MaxFrameRate = 60
		})))
		if got := env.fake.frameLimit(); got != 60 {
			t.Fatalf("frame rate limit = %v, want 60", got)
		}

		resize(t, sc)
		if err := sc.Present(1, 0, nil); err != nil {
			t.Fatalf("Present() = %v", err)
		}
		sc.thread.Synchronize()
		recreates, _, presents := env.fake.counts()
		if recreates != 1 {
			t.Errorf("Recreate calls = %d, want 1", recreates)
		}
		if presents != 1 {
			t.Errorf("presents = %d, want 1 with vsync forced off", presents)
		}
		if got := env.fake.frameLimit(); got != 0 {
			t.Errorf("frame rate limit = %v, want 0", got)
		}
		if sc.IsDirty() {
			t.Error("surface still dirty")
		}
	})

	t.Run("keeps dirty", func(t *testing.T) {
		env := newTestEnv(t)
		sc := env.open(t, testDesc(), WithConfig(configWith(func(c *config.Config) {
			c.ForceVsyncOff = true
			c.ForceVsyncOffClearsDirty = false
		})))

		resize(t, sc)
		if err := sc.Present(0, 0, nil); err != nil {
			t.Fatalf("Present() = %v", err)
		}
		if recreates, _, _ := env.fake.counts(); recreates != 2 {
			t.Errorf("Recreate calls = %d, want 2", recreates)
		}
		if got := env.fake.lastDesc.Width; got != 800 {
			t.Errorf("presenter width = %d, want 800", got)
		}
	})
}

func TestPresentDiscardsUnrecordedImage(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())
	env.fake.setBlank(true)

	for i := 1; i <= 3; i++ {
		err := sc.Present(0, 0, nil)
		if !errors.Is(err, blit.ErrNoTarget) {
			t.Fatalf("Present() #%d = %v, want ErrNoTarget", i, err)
		}
	}
	sc.thread.Synchronize()
	_, acquires, presents := env.fake.counts()
	if acquires != 3 || presents != 0 {
		t.Errorf("acquires=%d presents=%d, want 3/0", acquires, presents)
	}
	if got := env.fake.discarded(); got != acquires {
		t.Errorf("discarded = %d, want every acquired image (%d)", got, acquires)
	}
	waitFence(t, sc, 3)

	env.fake.setBlank(false)
	if err := sc.Present(0, 0, nil); err != nil {
		t.Errorf("Present() after recovery = %v", err)
	}
}

func TestPresentWithoutBackBuffer(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())
	sc.backbuffer.Destroy()

	err := sc.Present(1, 0, nil)
	if !errors.Is(err, backbuffer.ErrNotCreated) {
		t.Fatalf("Present() = %v, want ErrNotCreated", err)
	}
	if _, acquires, _ := env.fake.counts(); acquires != 0 {
		t.Errorf("acquires = %d, want 0", acquires)
	}
	if got := sc.FrameID(); got != 0 {
		t.Errorf("FrameID() = %d, want 0", got)
	}
}

func TestPresentSyncIntervalFailsAfterFirstImage(t *testing.T) {
	env := newTestEnv(t)
	sc := env.open(t, testDesc())
	if err := sc.Present(1, 0, nil); err != nil {
		t.Fatalf("Present() = %v", err)
	}
	sc.thread.Synchronize()
	_, _, before := env.fake.counts()

	env.fake.script([]gputypes.SurfaceStatus{
		gputypes.SurfaceStatusGood,
		gputypes.SurfaceStatusLost,
		gputypes.SurfaceStatusLost,
	}, nil)
	err := sc.Present(2, 0, nil)
	if !errors.Is(err, ErrOccluded) {
		t.Fatalf("Present(2) = %v, want ErrOccluded", err)
	}

	// The first image of the frame was already on its way.
	sc.thread.Synchronize()
	if _, _, presents := env.fake.counts(); presents != before+1 {
		t.Errorf("presents = %d, want %d", presents, before+1)
	}
	if got := sc.FrameID(); got != 2 {
		t.Errorf("FrameID() = %d, want 2", got)
	}
	waitFence(t, sc, 2)
}

func TestPresentClearsDiscardedBackBuffer(t *testing.T) {
	tests := []struct {
		name   string
		effect SwapEffect
		want   int32
	}{
		{"flip discard", SwapEffectFlipDiscard, 1},
		{"flip sequential", SwapEffectFlipSequential, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			dev := &passDevice{Device: env.dev}
			env.dev = dev
			desc := testDesc()
			desc.SwapEffect = tt.effect
			sc := env.open(t, desc)

			before := dev.passes.Load()
			if err := sc.Present(2, 0, nil); err != nil {
				t.Fatalf("Present(2) = %v", err)
			}
			if got := dev.passes.Load() - before; got != tt.want {
				t.Errorf("render passes = %d, want %d", got, tt.want)
			}
		})
	}
}
