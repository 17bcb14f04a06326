package mask

import (
	"errors"
	"testing"
	"time"

	"volpaint/pkg/event"
	"volpaint/pkg/volume"
)

// testClock is an advanceable time source so coalescing-window tests
// never sleep.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time        { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(dims [3]int) (*Store, *testClock) {
	store := NewStore(dims, 10, time.Second, nil)
	clock := &testClock{t: time.Unix(1000, 0)}
	store.SetClock(clock.now)
	return store, clock
}

// patchAt returns a full-mask patch with a single voxel set.
func patchAt(dims [3]int, x, y, z int) []bool {
	patch := make([]bool, dims[0]*dims[1]*dims[2])
	patch[(z*dims[1]+y)*dims[0]+x] = true
	return patch
}

func TestLockInvariantProtectsOtherLabels(t *testing.T) {
	dims := [3]int{8, 8, 4}
	store, clock := newTestStore(dims)

	// Paint label 1 over the left half, then label 2 over everything
	// with the lock on: label 1 must be bit-identical afterward.
	left := make([]bool, 8*8*4)
	for z := 0; z < 4; z++ {
		for y := 0; y < 8; y++ {
			for x := 0; x < 4; x++ {
				left[(z*8+y)*8+x] = true
			}
		}
	}
	if err := store.SetSelection(left, false); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}
	before := store.Labels()
	clock.advance(2 * time.Second)

	if err := store.SetSelectedLabel(2); err != nil {
		t.Fatalf("SetSelectedLabel failed: %v", err)
	}
	store.SetLockOthers(true)
	all := make([]bool, len(left))
	for i := range all {
		all[i] = true
	}
	if err := store.SetSelection(all, false); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}

	after := store.Labels()
	for i := range after {
		if before[i] != 0 && before[i] != 2 {
			if after[i] != before[i] {
				t.Fatalf("Voxel %d: locked label %d was overwritten to %d", i, before[i], after[i])
			}
		}
		if before[i] == 0 && after[i] != 2 {
			t.Fatalf("Voxel %d: free voxel should now hold label 2, got %d", i, after[i])
		}
	}
}

func TestReplaceInvariantClearsOldFootprint(t *testing.T) {
	dims := [3]int{6, 6, 2}
	store, clock := newTestStore(dims)

	if err := store.SetSelection(patchAt(dims, 1, 1, 0), false); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}
	clock.advance(2 * time.Second)

	// Repainting with combine=false must leave no residue of the
	// label's previous footprint.
	if err := store.SetSelection(patchAt(dims, 4, 4, 1), false); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}

	labels := store.Labels()
	for i, l := range labels {
		want := uint16(0)
		if i == (1*6+4)*6+4 {
			want = 1
		}
		if l != want {
			t.Errorf("Voxel %d: expected %d, got %d", i, want, l)
		}
	}
}

func TestCombineUnionsFootprints(t *testing.T) {
	dims := [3]int{6, 6, 1}
	store, _ := newTestStore(dims)

	if err := store.SetSelection(patchAt(dims, 1, 1, 0), false); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}
	if err := store.SetSelection(patchAt(dims, 2, 2, 0), true); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}

	if store.LabelAt(1, 1, 0) != 1 || store.LabelAt(2, 2, 0) != 1 {
		t.Errorf("combine=true should union footprints, got %d and %d",
			store.LabelAt(1, 1, 0), store.LabelAt(2, 2, 0))
	}
}

// TestLockSelectedLabelInteraction pins down the edge case where a
// voxel painted with one label is repainted after switching the
// selected label: the lock decides the outcome.
func TestLockSelectedLabelInteraction(t *testing.T) {
	dims := [3]int{64, 64, 10}
	store, clock := newTestStore(dims)
	store.SetLockOthers(true)

	if err := store.SetSelectedLabel(2); err != nil {
		t.Fatalf("SetSelectedLabel failed: %v", err)
	}
	if err := store.SetSelection(patchAt(dims, 32, 32, 5), false); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}
	if got := store.LabelAt(32, 32, 5); got != 2 {
		t.Fatalf("Expected label 2 at painted voxel, got %d", got)
	}
	for z := 0; z < 10; z++ {
		for y := 0; y < 64; y++ {
			for x := 0; x < 64; x++ {
				if x == 32 && y == 32 && z == 5 {
					continue
				}
				if store.LabelAt(x, y, z) != 0 {
					t.Fatalf("Voxel (%d,%d,%d) should be 0, got %d", x, y, z, store.LabelAt(x, y, z))
				}
			}
		}
	}
	clock.advance(2 * time.Second)

	// Locked: switching to label 3 and repainting the same voxel is
	// rejected, since the voxel holds a different label.
	if err := store.SetSelectedLabel(3); err != nil {
		t.Fatalf("SetSelectedLabel failed: %v", err)
	}
	if err := store.SetSelection(patchAt(dims, 32, 32, 5), false); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}
	if got := store.LabelAt(32, 32, 5); got != 2 {
		t.Errorf("Locked write over label 2 should be rejected, voxel now %d", got)
	}

	// Unlocked: the same write is a destructive overwrite.
	store.SetLockOthers(false)
	if err := store.SetSelection(patchAt(dims, 32, 32, 5), false); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}
	if got := store.LabelAt(32, 32, 5); got != 3 {
		t.Errorf("Unlocked write should overwrite, expected 3, got %d", got)
	}
}

func TestUndoRoundTrip(t *testing.T) {
	dims := [3]int{4, 4, 2}
	store, clock := newTestStore(dims)

	var states [][]uint16
	states = append(states, store.Labels()) // M0, all zero
	for i := 0; i < 3; i++ {
		if err := store.SetSelection(patchAt(dims, i, i, 0), true); err != nil {
			t.Fatalf("SetSelection %d failed: %v", i, err)
		}
		states = append(states, store.Labels())
		clock.advance(2 * time.Second)
	}

	// One undo restores the state after the 2nd edit.
	if !store.Undo() {
		t.Fatal("Undo should succeed with history available")
	}
	if !equalLabels(store.Labels(), states[2]) {
		t.Error("One undo should restore the mask after the 2nd edit")
	}

	// Two more restore M0.
	store.Undo()
	store.Undo()
	if !equalLabels(store.Labels(), states[0]) {
		t.Error("Three undos should restore the initial mask")
	}

	// Exhausted history: no-op, and the flag turns off.
	if store.CanUndo() {
		t.Error("CanUndo should be false after history is exhausted")
	}
	if store.Undo() {
		t.Error("Undo on exhausted history should be a no-op")
	}
	if !equalLabels(store.Labels(), states[0]) {
		t.Error("No-op undo must leave the mask unchanged")
	}
}

func TestUndoCoalescesRapidEdits(t *testing.T) {
	dims := [3]int{8, 8, 1}
	store, clock := newTestStore(dims)

	// Simulate a brush drag: many edits inside the 1s window.
	for i := 0; i < 5; i++ {
		if err := store.SetSelection(patchAt(dims, i, 0, 0), true); err != nil {
			t.Fatalf("SetSelection %d failed: %v", i, err)
		}
		clock.advance(10 * time.Millisecond)
	}

	// The whole drag is one undo step back to the pristine mask.
	if !store.Undo() {
		t.Fatal("Undo should succeed")
	}
	for i, l := range store.Labels() {
		if l != 0 {
			t.Fatalf("Voxel %d: expected coalesced undo to restore zero mask, got %d", i, l)
		}
	}
	if store.CanUndo() {
		t.Error("A coalesced drag should consume exactly one undo step")
	}
}

func TestUndoAfterThreePaintsRestoresSecond(t *testing.T) {
	dims := [3]int{4, 4, 1}
	store, clock := newTestStore(dims)

	paint := func(x int) {
		if err := store.SetSelection(patchAt(dims, x, 0, 0), true); err != nil {
			t.Fatalf("paint failed: %v", err)
		}
		clock.advance(2 * time.Second)
	}
	paint(0)
	paint(1)
	after2 := store.Labels()
	paint(2)

	store.Undo()
	if !equalLabels(store.Labels(), after2) {
		t.Error("Undo after 3 paints should restore the mask after the 2nd exactly")
	}
}

func TestReplaceLabelsShapeMismatchResets(t *testing.T) {
	dims := [3]int{4, 4, 1}
	store, _ := newTestStore(dims)
	if err := store.SetSelection(patchAt(dims, 1, 1, 0), false); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}

	err := store.ReplaceLabels(make([]uint16, 5))
	var shape *volume.ShapeError
	if !errors.As(err, &shape) {
		t.Errorf("Expected ShapeError for mismatched labels, got %v", err)
	}
	for i, l := range store.Labels() {
		if l != 0 {
			t.Fatalf("Voxel %d: mismatch should re-zero the mask, got %d", i, l)
		}
	}

	// Matching shape replaces outright.
	labels := make([]uint16, 16)
	labels[3] = 7
	if err := store.ReplaceLabels(labels); err != nil {
		t.Fatalf("ReplaceLabels failed: %v", err)
	}
	if store.Labels()[3] != 7 {
		t.Error("ReplaceLabels with matching shape should install the labels")
	}
}

func TestSliceSelectionRoundTrip(t *testing.T) {
	dims := [3]int{4, 5, 6}
	store, clock := newTestStore(dims)

	w, h := volume.PlaneDims(dims, volume.AxisY)
	patch := make([]bool, w*h)
	patch[2*w+1] = true // plane (1,2): x=1, z=2
	if err := store.SetSliceSelection(volume.AxisY, 3, patch, false); err != nil {
		t.Fatalf("SetSliceSelection failed: %v", err)
	}

	if got := store.LabelAt(1, 2, 2); got != 1 {
		t.Errorf("Expected label 1 at (1,2,2), got %d", got)
	}

	sel := store.SliceSelection(volume.AxisY, 3)
	if !sel[2*w+1] {
		t.Error("SliceSelection should read back the painted pixel")
	}
	clock.advance(2 * time.Second)

	// combine=false clears the label on that slice only.
	if err := store.SetSliceSelection(volume.AxisY, 3, make([]bool, w*h), false); err != nil {
		t.Fatalf("SetSliceSelection failed: %v", err)
	}
	if got := store.LabelAt(1, 2, 2); got != 0 {
		t.Errorf("Replacing slice write should clear the slice footprint, got %d", got)
	}
}

func TestSliceWritePreservesOtherSlices(t *testing.T) {
	dims := [3]int{4, 4, 4}
	store, clock := newTestStore(dims)

	if err := store.SetSelection(patchAt(dims, 1, 1, 0), false); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}
	clock.advance(2 * time.Second)

	// A replacing write on slice z=3 must not clear the label on z=0.
	w, h := volume.PlaneDims(dims, volume.AxisZ)
	patch := make([]bool, w*h)
	patch[0] = true
	if err := store.SetSliceSelection(volume.AxisZ, 3, patch, false); err != nil {
		t.Fatalf("SetSliceSelection failed: %v", err)
	}

	if got := store.LabelAt(1, 1, 0); got != 1 {
		t.Errorf("Slice-local replace cleared another slice: got %d", got)
	}
	if got := store.LabelAt(0, 0, 2); got != 1 {
		t.Errorf("Expected painted voxel on slice 3, got %d", got)
	}
}

func TestChangeNotificationSkippedWhenUnchanged(t *testing.T) {
	dims := [3]int{4, 4, 1}
	bus := event.NewBus()
	store := NewStore(dims, 10, time.Second, bus)
	clock := &testClock{t: time.Unix(1000, 0)}
	store.SetClock(clock.now)

	changes := 0
	bus.Subscribe(event.MaskChanged, func(interface{}) { changes++ })

	patch := patchAt(dims, 1, 1, 0)
	if err := store.SetSelection(patch, false); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}
	if changes != 1 {
		t.Fatalf("Expected 1 maskChanged notification, got %d", changes)
	}

	// Identical edit: no voxel changes, no notification, no undo push.
	if err := store.SetSelection(patch, false); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}
	if changes != 1 {
		t.Errorf("Unchanged edit must not notify, got %d notifications", changes)
	}
}

func TestClearLabel(t *testing.T) {
	dims := [3]int{4, 4, 1}
	store, clock := newTestStore(dims)

	if err := store.SetSelection(patchAt(dims, 0, 0, 0), false); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}
	clock.advance(2 * time.Second)
	if err := store.SetSelectedLabel(2); err != nil {
		t.Fatalf("SetSelectedLabel failed: %v", err)
	}
	if err := store.SetSelection(patchAt(dims, 1, 1, 0), false); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}
	clock.advance(2 * time.Second)

	store.ClearLabel(1)
	if store.LabelAt(0, 0, 0) != 0 {
		t.Error("ClearLabel(1) should zero label-1 voxels")
	}
	if store.LabelAt(1, 1, 0) != 2 {
		t.Error("ClearLabel(1) must not touch label 2")
	}
}

func TestSelectedLabelZeroRejected(t *testing.T) {
	store, _ := newTestStore([3]int{2, 2, 1})
	err := store.SetSelectedLabel(0)
	var pre *volume.PreconditionError
	if !errors.As(err, &pre) {
		t.Errorf("Expected PreconditionError selecting label 0, got %v", err)
	}
}

func TestColorTable(t *testing.T) {
	table := DefaultColorTable(64)

	if _, ok := table.Color(0); ok {
		t.Error("Label 0 must map to no overlay")
	}
	if _, ok := table.Color(1); !ok {
		t.Error("Label 1 should have a color")
	}

	// The seven fixed entries plus the generated tail are pairwise
	// distinct near the front of the table.
	seen := map[RGB]bool{}
	for l := uint16(1); l <= 16; l++ {
		c, ok := table.Color(l)
		if !ok {
			t.Fatalf("Label %d should have a color", l)
		}
		if seen[c] {
			t.Errorf("Label %d reuses color %+v", l, c)
		}
		seen[c] = true
	}
}
