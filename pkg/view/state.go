// Package view holds the per-view display state: orientation, cursor
// indices, window/level, zoom, montage and RGB modes. A State is a
// plain value the renderer reads; the interaction layer mutates it
// through narrowly scoped methods and semantic commands, never through
// toolkit callbacks.
package view

import (
	"math"

	"volpaint/internal/models"
	"volpaint/pkg/config"
	"volpaint/pkg/event"
	"volpaint/pkg/volume"
)

// Plane names the view orientation: which spatial axis is depth.
type Plane int

const (
	// Axial slices perpendicular to Z.
	Axial Plane = iota
	// Sagittal slices perpendicular to X.
	Sagittal
	// Coronal slices perpendicular to Y.
	Coronal
)

// Valid reports whether p is one of the three orientations.
func (p Plane) Valid() bool { return p >= Axial && p <= Coronal }

// DepthAxis returns the spatial axis p treats as depth.
func (p Plane) DepthAxis() volume.Axis {
	switch p {
	case Sagittal:
		return volume.AxisX
	case Coronal:
		return volume.AxisY
	default:
		return volume.AxisZ
	}
}

func (p Plane) String() string {
	switch p {
	case Axial:
		return "axial"
	case Sagittal:
		return "sagittal"
	case Coronal:
		return "coronal"
	}
	return "invalid"
}

// RGBMode selects multi-channel display composition.
type RGBMode struct {
	// Enabled turns RGB composition on.
	Enabled bool
	// Axis selects which array axis supplies the three channels.
	Axis volume.RGBAxis
	// Channels are the 1-based indices along that axis.
	Channels [3]int
}

// Kernel selects the resampling kernel for display upsampling.
type Kernel int

const (
	KernelNearest Kernel = iota
	KernelBilinear
)

// State is the mutable display state of one view. Multiple synchronized
// views each own a State while sharing one mask store; the observer bus
// keeps them consistent.
type State struct {
	// Plane is the current orientation. Always exactly one of the
	// three; transitions are idempotent.
	Plane Plane

	// Slice and Time are 1-based cursors; Volume is the 0-based index
	// into the stack.
	Slice  int
	Time   int
	Volume int

	// Window and Level express the display clip range as width and
	// center. Lo/Hi convert to the equivalent [lo,hi] pair.
	Window float64
	Level  float64

	// View is the zoom/pan rectangle in image coordinates. A zero
	// rectangle means "fit the whole plane".
	View models.Rect2

	// Montage tiles a grid of depth slices instead of a single one.
	Montage bool

	// Gamma is the display gamma, always positive.
	Gamma float64

	// MaskVisible toggles the label overlay.
	MaskVisible bool

	// Upsample enables the fixed 2x intensity upsampling and
	// ResampleKernel selects its kernel. The mask overlay is never
	// resampled with anything but nearest.
	Upsample       bool
	ResampleKernel Kernel

	// RGB is the multi-channel composition mode.
	RGB RGBMode

	// DecorrStretch and HistAlign are the independent multi-channel
	// contrast toggles. Both only apply to planes with 3 channels.
	DecorrStretch bool
	HistAlign     bool

	// Spacing is the physical voxel size along X, Y, Z.
	Spacing [3]float64

	// ScrollAction is what the wheel does, from configuration.
	ScrollAction string

	extents [3]int
	times   int
	volumes int

	bus *event.Bus
}

// New creates a State from configuration with a unit-cube dataset; call
// SetExtents once volumes are loaded. Redraw-triggering mutations
// publish a newSlice notification on bus; a nil bus disables
// notifications.
func New(cfg *config.Config, bus *event.Bus) *State {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	plane := Axial
	if cfg.View.OrientationDefault == config.OrientationHorizontal {
		plane = Coronal
	}
	return &State{
		bus: bus,
		Plane:        plane,
		Slice:        1,
		Time:         1,
		Window:       1,
		Level:        0.5,
		Gamma:        cfg.View.Gamma,
		MaskVisible:  true,
		Spacing:      [3]float64{1, 1, 1},
		ScrollAction: cfg.View.ScrollWheelAction,
		extents:      [3]int{1, 1, 1},
		times:        1,
		volumes:      1,
	}
}

// SetExtents tells the state the loaded dataset's spatial shape, time
// extent and volume count, and reclamps every cursor against them.
func (st *State) SetExtents(dims [3]int, times, volumes int) {
	st.extents = dims
	st.times = maxInt(times, 1)
	st.volumes = maxInt(volumes, 1)
	st.Slice = clampInt(st.Slice, 1, st.depthExtent())
	st.Time = clampInt(st.Time, 1, st.times)
	st.Volume = clampInt(st.Volume, 0, st.volumes-1)
}

// notify publishes a newSlice notification. Called after every mutation
// that changes what the renderer would draw; no-op mutations stay
// silent so synchronized views cannot ring.
func (st *State) notify() {
	if st.bus != nil {
		st.bus.Publish(event.NewSlice, nil)
	}
}

// Extents returns the spatial shape the state clamps against.
func (st *State) Extents() [3]int { return st.extents }

func (st *State) depthExtent() int {
	return maxInt(st.extents[int(st.Plane.DepthAxis())], 1)
}

// SetPlane switches the view orientation. The slice cursor is reclamped
// to the new depth extent and re-centered at extent/2 when it falls out
// of range; time and volume cursors are untouched. An invalid plane is
// a caller bug.
func (st *State) SetPlane(p Plane) error {
	if !p.Valid() {
		return &volume.PreconditionError{Op: "view.SetPlane", Msg: "invalid orientation"}
	}
	changed := st.Plane != p
	st.Plane = p
	ext := st.depthExtent()
	if st.Slice < 1 || st.Slice > ext {
		st.Slice = maxInt(ext/2, 1)
		changed = true
	}
	if changed {
		st.notify()
	}
	return nil
}

// SetSlice moves the slice cursor, clamped to [1, extent]. Never
// rejects, never wraps.
func (st *State) SetSlice(i int) {
	next := clampInt(i, 1, st.depthExtent())
	if next != st.Slice {
		st.Slice = next
		st.notify()
	}
}

// SetTime moves the time cursor, clamped to [1, times].
func (st *State) SetTime(i int) {
	next := clampInt(i, 1, st.times)
	if next != st.Time {
		st.Time = next
		st.notify()
	}
}

// SetVolume moves the volume cursor, clamped to [0, volumes-1].
func (st *State) SetVolume(i int) {
	next := clampInt(i, 0, st.volumes-1)
	if next != st.Volume {
		st.Volume = next
		st.notify()
	}
}

// Lo returns the lower display clip bound.
func (st *State) Lo() float64 { return st.Level - st.Window/2 }

// Hi returns the upper display clip bound.
func (st *State) Hi() float64 { return st.Level + st.Window/2 }

// SetRange sets window/level from a [lo,hi] clip pair. A degenerate
// pair (lo >= hi) is widened to keep the window positive.
func (st *State) SetRange(lo, hi float64) {
	if hi <= lo {
		hi = lo + 1
	}
	window := hi - lo
	level := (hi + lo) / 2
	if window != st.Window || level != st.Level {
		st.Window = window
		st.Level = level
		st.notify()
	}
}

// AdoptVolumeDisplay copies a volume's saved display range into the
// view, the half of per-volume display memory that lives here. Called
// by the controller after a volume switch.
func (st *State) AdoptVolumeDisplay(v *volume.Volume) {
	if v == nil {
		return
	}
	st.SetRange(v.RangeLo, v.RangeHi)
}

// SetSpacing installs per-axis physical voxel sizes. Entries that are
// not finite and positive are numerically invalid geometry; they are
// substituted with unit spacing rather than aborting the view.
func (st *State) SetSpacing(sp [3]float64) {
	for i, v := range sp {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			sp[i] = 1
		}
	}
	if sp != st.Spacing {
		st.Spacing = sp
		st.notify()
	}
}

// PlaneAspect returns the physical pixel spacing of the current plane's
// horizontal and vertical axes, reindexed by the orientation's axis
// permutation.
func (st *State) PlaneAspect() (sx, sy float64) {
	switch st.Plane.DepthAxis() {
	case volume.AxisX:
		return st.Spacing[2], st.Spacing[1]
	case volume.AxisY:
		return st.Spacing[0], st.Spacing[2]
	default:
		return st.Spacing[0], st.Spacing[1]
	}
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

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
