// Package mask implements the multi-label segmentation mask: a single
// dense label array sharing the spatial shape of the active volume,
// with a selected label, a lock policy protecting other labels, a
// bounded undo history of full-mask snapshots, and a label color table.
//
// All edits funnel through the selected-label/lock primitive so the
// editing tools, however elaborate, inherit the same invariants:
// locked labels are never overwritten, and replacing a label's
// footprint leaves no residue of its previous extent.
package mask

import (
	"fmt"
	"time"

	"volpaint/pkg/event"
	"volpaint/pkg/volume"
)

// Store owns the label array and its editing state.
type Store struct {
	labels []uint16
	dims   [3]int

	selected   uint16
	lockOthers bool
	colors     ColorTable

	hist     *history
	coalesce time.Duration
	lastPush time.Time
	pushed   bool

	bus *event.Bus
	now func() time.Time
}

// NewStore creates a zero-filled mask with the given spatial shape.
// undoDepth bounds the snapshot ring and coalesce is the window within
// which consecutive edits collapse into one undo step. A nil bus
// disables notifications.
func NewStore(dims [3]int, undoDepth int, coalesce time.Duration, bus *event.Bus) *Store {
	n := dims[0] * dims[1] * dims[2]
	if n < 0 {
		n = 0
	}
	return &Store{
		labels:   make([]uint16, n),
		dims:     dims,
		selected: 1,
		colors:   DefaultColorTable(64),
		hist:     newHistory(undoDepth),
		coalesce: coalesce,
		bus:      bus,
		now:      time.Now,
	}
}

// SetClock replaces the store's time source. Tests use this to drive
// the undo coalescing window without sleeping.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Dims returns the spatial shape of the mask.
func (s *Store) Dims() [3]int { return s.dims }

// SelectedLabel returns the label edits currently paint with.
func (s *Store) SelectedLabel() uint16 { return s.selected }

// SetSelectedLabel changes the painting label. Label 0 is the
// background and not a paintable label; selecting it is a caller bug.
func (s *Store) SetSelectedLabel(id uint16) error {
	if id == 0 {
		return &volume.PreconditionError{Op: "mask.SetSelectedLabel", Msg: "label 0 is background"}
	}
	s.selected = id
	return nil
}

// LockOthers reports whether voxels holding other labels are protected
// from being overwritten by edits.
func (s *Store) LockOthers() bool { return s.lockOthers }

// SetLockOthers toggles the protection of other labels.
func (s *Store) SetLockOthers(lock bool) { s.lockOthers = lock }

// Colors returns the label color table.
func (s *Store) Colors() ColorTable { return s.colors }

// SetColors replaces the label color table.
func (s *Store) SetColors(t ColorTable) { s.colors = t }

// Labels returns a copy of the raw label array. Voxel-exact: this is
// the surface a persistence layer saves from.
func (s *Store) Labels() []uint16 {
	cp := make([]uint16, len(s.labels))
	copy(cp, s.labels)
	return cp
}

// LabelAt returns the label at 0-based voxel coordinates.
func (s *Store) LabelAt(x, y, z int) uint16 {
	return s.labels[(z*s.dims[1]+y)*s.dims[0]+x]
}

// Selection returns mask==selectedLabel as a boolean array.
func (s *Store) Selection() []bool {
	sel := make([]bool, len(s.labels))
	for i, v := range s.labels {
		sel[i] = v == s.selected
	}
	return sel
}

// Empty reports whether no voxel holds the selected label.
func (s *Store) Empty() bool {
	for _, v := range s.labels {
		if v == s.selected {
			return false
		}
	}
	return true
}

// SetSelection paints the selected label wherever patch is true,
// honoring the lock policy. patch must cover the whole mask. With
// combine false the selected label's previous footprint is cleared
// first, so repainting a label from scratch is well defined; with
// combine true the patch unions with the existing footprint.
//
// Lock policy: with lockOthers set, only background voxels accept the
// label; voxels holding other labels are untouched. With lockOthers
// clear, every patch voxel is forced to the selected label.
func (s *Store) SetSelection(patch []bool, combine bool) error {
	if len(patch) != len(s.labels) {
		return &volume.PreconditionError{
			Op:  "mask.SetSelection",
			Msg: fmt.Sprintf("patch has %d voxels, mask has %d", len(patch), len(s.labels)),
		}
	}
	next := s.applyPatch(s.labels, patch, nil, combine)
	s.commit(next)
	return nil
}

// ReplaceLabels replaces the full mask outright, the bulk-load path a
// persistence layer restores through. A label array whose length does
// not match the mask's spatial shape re-zeros the mask instead of
// leaving a silent mismatch; the returned ShapeError reports that the
// reset happened and is informational, not fatal.
func (s *Store) ReplaceLabels(labels []uint16) error {
	if len(labels) != len(s.labels) {
		s.commit(make([]uint16, s.dims[0]*s.dims[1]*s.dims[2]))
		return &volume.ShapeError{Op: "mask.ReplaceLabels", Want: s.dims, Got: [3]int{len(labels), 1, 1}}
	}
	next := make([]uint16, len(labels))
	copy(next, labels)
	s.commit(next)
	return nil
}

// Reset re-zeros the mask to a new spatial shape. Called when the
// loaded volume changes shape; the undo history is cleared since its
// snapshots no longer share the mask's shape.
func (s *Store) Reset(dims [3]int) {
	s.dims = dims
	s.labels = make([]uint16, dims[0]*dims[1]*dims[2])
	s.hist = newHistory(s.hist.depth)
	s.pushed = false
	if s.bus != nil {
		s.bus.Publish(event.MaskChanged, nil)
	}
}

// SliceSelection returns mask==selectedLabel on the 2-D slice at
// 1-based depth index slice1 along axis, in plane order.
func (s *Store) SliceSelection(axis volume.Axis, slice1 int) []bool {
	w, h := volume.PlaneDims(s.dims, axis)
	sidx := clampInt(slice1, 1, s.dims[int(axis)]) - 1
	sel := make([]bool, w*h)
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			x, y, z := volume.PlaneVoxel(axis, sidx, px, py)
			sel[py*w+px] = s.labels[(z*s.dims[1]+y)*s.dims[0]+x] == s.selected
		}
	}
	return sel
}

// SliceLabels returns the raw labels on the slice at 1-based depth
// index slice1 along axis, in plane order.
func (s *Store) SliceLabels(axis volume.Axis, slice1 int) []uint16 {
	w, h := volume.PlaneDims(s.dims, axis)
	sidx := clampInt(slice1, 1, s.dims[int(axis)]) - 1
	out := make([]uint16, w*h)
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			x, y, z := volume.PlaneVoxel(axis, sidx, px, py)
			out[py*w+px] = s.labels[(z*s.dims[1]+y)*s.dims[0]+x]
		}
	}
	return out
}

// SetSliceSelection writes a 2-D boolean patch into the mask at the
// slice at 1-based depth index slice1 along axis, under the same
// lock/selected-label semantics as SetSelection. With combine false the
// selected label is cleared on that slice only before painting.
func (s *Store) SetSliceSelection(axis volume.Axis, slice1 int, patch []bool, combine bool) error {
	w, h := volume.PlaneDims(s.dims, axis)
	if len(patch) != w*h {
		return &volume.PreconditionError{
			Op:  "mask.SetSliceSelection",
			Msg: fmt.Sprintf("patch has %d pixels, slice has %d", len(patch), w*h),
		}
	}
	sidx := clampInt(slice1, 1, s.dims[int(axis)]) - 1

	// Expand the 2-D patch into full-mask coordinates and restrict the
	// combine=false clearing to this slice.
	full := make([]bool, len(s.labels))
	inSlice := make([]bool, len(s.labels))
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			x, y, z := volume.PlaneVoxel(axis, sidx, px, py)
			idx := (z*s.dims[1]+y)*s.dims[0] + x
			inSlice[idx] = true
			full[idx] = patch[py*w+px]
		}
	}
	next := s.applyPatch(s.labels, full, inSlice, combine)
	s.commit(next)
	return nil
}

// ClearLabel zeroes every voxel holding the given label.
func (s *Store) ClearLabel(id uint16) {
	next := make([]uint16, len(s.labels))
	copy(next, s.labels)
	for i, v := range next {
		if v == id {
			next[i] = 0
		}
	}
	s.commit(next)
}

// CanUndo reports whether an undo step is available.
func (s *Store) CanUndo() bool { return s.hist.len() > 0 }

// Undo restores the most recent snapshot. With the history exhausted it
// is a no-op; CanUndo turns false so the UI can disable the affordance.
func (s *Store) Undo() bool {
	snap, ok := s.hist.pop()
	if !ok {
		return false
	}
	s.labels = snap
	// The next edit starts a fresh coalescing window; an edit right
	// after an undo must be undoable on its own.
	s.pushed = false
	if s.bus != nil {
		s.bus.Publish(event.MaskUndone, nil)
	}
	return true
}

// applyPatch computes the label array that results from painting patch
// with the selected label. scope, when non-nil, restricts the
// combine=false clearing to the voxels where scope is true (used for
// slice-local writes). The input array is never modified.
func (s *Store) applyPatch(old []uint16, patch, scope []bool, combine bool) []uint16 {
	next := make([]uint16, len(old))
	copy(next, old)

	if !combine {
		for i, v := range next {
			if v == s.selected && (scope == nil || scope[i]) {
				next[i] = 0
			}
		}
	}
	for i, p := range patch {
		if !p {
			continue
		}
		if s.lockOthers {
			if next[i] == 0 {
				next[i] = s.selected
			}
		} else {
			next[i] = s.selected
		}
	}
	return next
}

// commit installs a new label array, snapshotting the previous state
// into the undo ring and notifying subscribers. A commit that changes
// nothing is skipped entirely, which is what keeps multi-view
// synchronization loops from ringing forever.
func (s *Store) commit(next []uint16) {
	if equalLabels(s.labels, next) {
		return
	}

	now := s.now()
	if !s.pushed || now.Sub(s.lastPush) >= s.coalesce {
		snap := make([]uint16, len(s.labels))
		copy(snap, s.labels)
		s.hist.push(snap)
		s.lastPush = now
		s.pushed = true
	}

	s.labels = next
	if s.bus != nil {
		s.bus.Publish(event.MaskChanged, nil)
	}
}

func equalLabels(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
