package view

import (
	"errors"
	"math"
	"testing"

	"volpaint/pkg/config"
	"volpaint/pkg/event"
	"volpaint/pkg/volume"
)

func newTestState(dims [3]int, times, volumes int) *State {
	st := New(config.DefaultConfig(), nil)
	st.SetExtents(dims, times, volumes)
	return st
}

func TestNewFollowsOrientationDefault(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.View.OrientationDefault = config.OrientationVertical
	if got := New(cfg, nil).Plane; got != Axial {
		t.Errorf("Vertical default: expected axial, got %v", got)
	}

	cfg.View.OrientationDefault = config.OrientationHorizontal
	if got := New(cfg, nil).Plane; got != Coronal {
		t.Errorf("Horizontal default: expected coronal, got %v", got)
	}
}

func TestDepthAxisPerPlane(t *testing.T) {
	cases := []struct {
		plane Plane
		axis  volume.Axis
	}{
		{Axial, volume.AxisZ},
		{Sagittal, volume.AxisX},
		{Coronal, volume.AxisY},
	}
	for _, c := range cases {
		if got := c.plane.DepthAxis(); got != c.axis {
			t.Errorf("%v: expected depth axis %v, got %v", c.plane, c.axis, got)
		}
	}
}

func TestSetPlaneReclampsSlice(t *testing.T) {
	// 100x100x10: slice 50 is valid while depth is X, out of range once
	// depth becomes Z, so the cursor re-centers at extent/2.
	st := newTestState([3]int{100, 100, 10}, 1, 1)
	if err := st.SetPlane(Sagittal); err != nil {
		t.Fatalf("SetPlane failed: %v", err)
	}
	st.SetSlice(50)

	if err := st.SetPlane(Axial); err != nil {
		t.Fatalf("SetPlane failed: %v", err)
	}
	if st.Slice != 5 {
		t.Errorf("Out-of-range slice should re-center at extent/2 = 5, got %d", st.Slice)
	}

	// A cursor still in range survives the switch untouched.
	st.SetSlice(3)
	if err := st.SetPlane(Coronal); err != nil {
		t.Fatalf("SetPlane failed: %v", err)
	}
	if st.Slice != 3 {
		t.Errorf("In-range slice should survive plane switch, got %d", st.Slice)
	}
}

func TestSetPlaneLeavesTimeAndVolume(t *testing.T) {
	st := newTestState([3]int{10, 10, 10}, 5, 4)
	st.SetTime(3)
	st.SetVolume(2)
	if err := st.SetPlane(Sagittal); err != nil {
		t.Fatalf("SetPlane failed: %v", err)
	}
	if st.Time != 3 || st.Volume != 2 {
		t.Errorf("Plane switch must not move time/volume, got t=%d v=%d", st.Time, st.Volume)
	}
}

func TestSetPlaneRejectsInvalid(t *testing.T) {
	st := newTestState([3]int{4, 4, 4}, 1, 1)
	err := st.SetPlane(Plane(7))
	var pre *volume.PreconditionError
	if !errors.As(err, &pre) {
		t.Errorf("Expected PreconditionError for invalid plane, got %v", err)
	}
	if st.Plane != Axial {
		t.Errorf("Failed SetPlane must leave the orientation unchanged, got %v", st.Plane)
	}
}

func TestCursorsSaturate(t *testing.T) {
	st := newTestState([3]int{8, 8, 8}, 3, 2)

	st.SetSlice(0)
	if st.Slice != 1 {
		t.Errorf("Slice below range should clamp to 1, got %d", st.Slice)
	}
	st.SetSlice(99)
	if st.Slice != 8 {
		t.Errorf("Slice above range should clamp to 8, got %d", st.Slice)
	}

	st.SetTime(-4)
	if st.Time != 1 {
		t.Errorf("Time below range should clamp to 1, got %d", st.Time)
	}
	st.SetVolume(9)
	if st.Volume != 1 {
		t.Errorf("Volume above range should clamp to 1, got %d", st.Volume)
	}
}

func TestCommands(t *testing.T) {
	st := newTestState([3]int{8, 8, 8}, 50, 30)

	st.Apply(CmdSliceUp, false)
	st.Apply(CmdSliceUp, true) // fast never applies to slices
	if st.Slice != 3 {
		t.Errorf("Two slice-up commands: expected slice 3, got %d", st.Slice)
	}

	st.Apply(CmdTimeUp, true)
	if st.Time != 11 {
		t.Errorf("Fast time-up: expected time 11, got %d", st.Time)
	}
	st.Apply(CmdTimeDown, false)
	if st.Time != 10 {
		t.Errorf("Time-down: expected time 10, got %d", st.Time)
	}

	st.Apply(CmdVolumeUp, true)
	st.Apply(CmdVolumeUp, true)
	st.Apply(CmdVolumeUp, true)
	if st.Volume != 29 {
		t.Errorf("Fast volume-up should saturate at 29, got %d", st.Volume)
	}

	wasVisible := st.MaskVisible
	st.Apply(CmdToggleMask, false)
	if st.MaskVisible == wasVisible {
		t.Error("CmdToggleMask should flip overlay visibility")
	}
	st.Apply(CmdToggleMontage, false)
	if !st.Montage {
		t.Error("CmdToggleMontage should enable montage mode")
	}
}

func TestRedrawNotifications(t *testing.T) {
	bus := event.NewBus()
	st := New(config.DefaultConfig(), bus)
	st.SetExtents([3]int{10, 10, 10}, 5, 3)

	redraws := 0
	bus.Subscribe(event.NewSlice, func(interface{}) { redraws++ })

	// Each redraw-triggering mutation publishes exactly once.
	st.SetSlice(4)
	st.SetTime(2)
	if err := st.SetPlane(Sagittal); err != nil {
		t.Fatalf("SetPlane failed: %v", err)
	}
	st.Apply(CmdSliceUp, false)
	if redraws != 4 {
		t.Fatalf("Expected 4 newSlice notifications, got %d", redraws)
	}

	st.Apply(CmdToggleMask, false)
	st.Apply(CmdToggleMontage, false)
	st.SetRange(10, 50)
	st.SetVolume(2)
	if redraws != 8 {
		t.Errorf("Expected 8 newSlice notifications, got %d", redraws)
	}
}

func TestNoOpMutationsStaySilent(t *testing.T) {
	bus := event.NewBus()
	st := New(config.DefaultConfig(), bus)
	st.SetExtents([3]int{10, 10, 10}, 1, 1)
	st.SetSlice(5)

	redraws := 0
	bus.Subscribe(event.NewSlice, func(interface{}) { redraws++ })

	st.SetSlice(5)          // already there
	st.SetSlice(99)         // clamps to 10
	st.SetSlice(42)         // clamps to 10 again, no change
	st.SetTime(1)           // already there
	if err := st.SetPlane(Axial); err != nil { // already axial, slice in range
		t.Fatalf("SetPlane failed: %v", err)
	}

	if redraws != 1 {
		t.Errorf("Expected only the clamp-to-10 move to notify, got %d", redraws)
	}
}

func TestSetRangeWindowLevel(t *testing.T) {
	st := newTestState([3]int{4, 4, 4}, 1, 1)

	st.SetRange(10, 50)
	if st.Window != 40 || st.Level != 30 {
		t.Errorf("Expected window 40 level 30, got %v/%v", st.Window, st.Level)
	}
	if st.Lo() != 10 || st.Hi() != 50 {
		t.Errorf("Expected [10,50], got [%v,%v]", st.Lo(), st.Hi())
	}

	// Degenerate pair: widened, never a zero or negative window.
	st.SetRange(7, 7)
	if st.Window <= 0 {
		t.Errorf("Degenerate range must widen the window, got %v", st.Window)
	}
	if st.Lo() >= st.Hi() {
		t.Errorf("Expected lo < hi after widening, got [%v,%v]", st.Lo(), st.Hi())
	}
}

func TestSetSpacingSubstitutesInvalid(t *testing.T) {
	st := newTestState([3]int{4, 4, 4}, 1, 1)
	st.SetSpacing([3]float64{0.5, math.NaN(), -2})
	want := [3]float64{0.5, 1, 1}
	if st.Spacing != want {
		t.Errorf("Expected spacing %v, got %v", want, st.Spacing)
	}
}

func TestPlaneAspectPermutation(t *testing.T) {
	st := newTestState([3]int{4, 4, 4}, 1, 1)
	st.SetSpacing([3]float64{2, 3, 5})

	st.SetPlane(Axial)
	if sx, sy := st.PlaneAspect(); sx != 2 || sy != 3 {
		t.Errorf("Axial aspect: expected (2,3), got (%v,%v)", sx, sy)
	}
	st.SetPlane(Sagittal)
	if sx, sy := st.PlaneAspect(); sx != 5 || sy != 3 {
		t.Errorf("Sagittal aspect: expected (5,3), got (%v,%v)", sx, sy)
	}
	st.SetPlane(Coronal)
	if sx, sy := st.PlaneAspect(); sx != 2 || sy != 5 {
		t.Errorf("Coronal aspect: expected (2,5), got (%v,%v)", sx, sy)
	}
}
