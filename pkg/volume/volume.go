// Package volume implements the stack of loaded N-dimensional image
// buffers and 2-D plane extraction from them. A Volume holds up to five
// dimensions (X, Y, Z, time, channel) as a flat float64 array in
// row-major order with X fastest, the same layout the rest of the
// viewer uses for slices and masks. Each Volume carries its own display
// settings (intensity range, opacity, colormap) so switching between
// volumes restores the settings that volume was last shown with.
package volume

import "fmt"

// Axis identifies one of the three spatial axes. The current view
// plane chooses one of them as the depth ("slice") axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// String returns the lowercase axis name.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// Valid reports whether a names one of the three spatial axes.
func (a Axis) Valid() bool { return a >= AxisX && a <= AxisZ }

// Volume is one loaded image buffer plus its display settings.
// The shape is immutable once constructed; contents change only through
// the Stack's explicit add/replace region operations.
type Volume struct {
	// Data is the sample buffer in row-major order, X fastest:
	// index = (((c*T + t)*Z + z)*H + y)*W + x.
	Data []float64

	// Dims are the extents along X, Y, Z, time and channel. Axes the
	// volume does not use have extent 1.
	Dims [5]int

	// RangeLo and RangeHi are the display intensity clip range for
	// this volume. RangeLo < RangeHi always holds after construction.
	RangeLo, RangeHi float64

	// Opacity in [0,1] weights this volume when the presentation layer
	// blends volumes. The core carries it per volume so switching
	// volumes restores it, but does not composite with it.
	Opacity float64

	// Colormap names the colormap the presentation layer applies to
	// this volume. Carried for per-volume display memory, like Opacity.
	Colormap string

	// Label is an optional display name.
	Label string
}

// NewVolume constructs a Volume over data with the given extents.
// Extents must be positive and their product must equal len(data);
// anything else is a caller bug and returns a PreconditionError.
// Display settings start at a full-range grayscale default; SetVolumes
// replaces the range with an outlier-trimmed estimate unless the caller
// supplies one.
func NewVolume(data []float64, dims [5]int) (*Volume, error) {
	n := 1
	for i, d := range dims {
		if d < 1 {
			return nil, &PreconditionError{
				Op:  "volume.NewVolume",
				Msg: fmt.Sprintf("dimension %d has non-positive extent %d", i, d),
			}
		}
		n *= d
	}
	if n != len(data) {
		return nil, &PreconditionError{
			Op:  "volume.NewVolume",
			Msg: fmt.Sprintf("dims %v imply %d samples but data has %d", dims, n, len(data)),
		}
	}
	return &Volume{
		Data:     data,
		Dims:     dims,
		RangeLo:  0,
		RangeHi:  1,
		Opacity:  1,
		Colormap: "gray",
	}, nil
}

// SpatialDims returns the X, Y, Z extents.
func (v *Volume) SpatialDims() [3]int {
	return [3]int{v.Dims[0], v.Dims[1], v.Dims[2]}
}

// Extent returns the spatial extent along the given axis.
func (v *Volume) Extent(axis Axis) int {
	return v.Dims[int(axis)]
}

// Times returns the extent along the time axis.
func (v *Volume) Times() int { return v.Dims[3] }

// Channels returns the extent along the channel axis.
func (v *Volume) Channels() int { return v.Dims[4] }

// index returns the flat offset of a voxel. All coordinates 0-based
// and assumed in range.
func (v *Volume) index(x, y, z, t, c int) int {
	w, h, d := v.Dims[0], v.Dims[1], v.Dims[2]
	return (((c*v.Dims[3]+t)*d+z)*h+y)*w + x
}

// At returns the sample at the given 0-based coordinates.
func (v *Volume) At(x, y, z, t, c int) float64 {
	return v.Data[v.index(x, y, z, t, c)]
}

// PlaneDims returns the width and height of the 2-D plane orthogonal to
// the given depth axis for a spatial shape. The plane coordinate
// conventions match plane extraction throughout the viewer:
//
//	depth Z: plane (x, y), width = Nx, height = Ny
//	depth X: plane (z, y), width = Nz, height = Ny
//	depth Y: plane (x, z), width = Nx, height = Nz
func PlaneDims(dims [3]int, axis Axis) (w, h int) {
	switch axis {
	case AxisX:
		return dims[2], dims[1]
	case AxisY:
		return dims[0], dims[2]
	default:
		return dims[0], dims[1]
	}
}

// PlaneVoxel maps plane coordinates (px, py) on the slice at 0-based
// depth index s along axis to volume coordinates (x, y, z).
func PlaneVoxel(axis Axis, s, px, py int) (x, y, z int) {
	switch axis {
	case AxisX:
		return s, py, px
	case AxisY:
		return px, s, py
	default:
		return px, py, s
	}
}

// clamp limits v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
