package volume

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"volpaint/internal/models"
	"volpaint/pkg/event"
)

// Default display-range trimming: the range estimate ignores the
// extreme 5% tails so a handful of hot pixels cannot dominate the
// contrast, and looks at no more than rangeSampleLimit samples.
const (
	rangeTrimFraction = 0.05
	rangeSampleLimit  = 5000
)

// RGBAxis selects which array axis supplies the three display channels
// when the viewer composes an RGB slice.
type RGBAxis int

const (
	// RGBFromDepth reads the three channels at three depth indices
	// along the current slice axis (channel-as-3rd-dimension).
	RGBFromDepth RGBAxis = iota

	// RGBFromTime reads them at three time indices (channel-as-4th).
	RGBFromTime

	// RGBFromChannel reads them at three channel indices
	// (channel-as-5th).
	RGBFromChannel
)

// RGBParams selects the source axis and the three indices along it for
// RGB composition. Indices are 1-based like slice and time cursors and
// are clamped into range per channel.
type RGBParams struct {
	Axis     RGBAxis
	Channels [3]int
}

// Stack owns the ordered list of loaded volumes and the notion of the
// current one. All slice extraction for display goes through it.
type Stack struct {
	volumes []*Volume
	current int
	bus     *event.Bus
}

// NewStack creates an empty stack publishing on bus. A nil bus is
// allowed and disables notifications.
func NewStack(bus *event.Bus) *Stack {
	return &Stack{bus: bus}
}

// NumVolumes returns the number of loaded volumes.
func (s *Stack) NumVolumes() int { return len(s.volumes) }

// CurrentIndex returns the 0-based index of the current volume.
func (s *Stack) CurrentIndex() int { return s.current }

// Current returns the current volume, or nil when the stack is empty.
func (s *Stack) Current() *Volume {
	if len(s.volumes) == 0 {
		return nil
	}
	return s.volumes[s.current]
}

// Volume returns the volume at 0-based index i, clamped into range.
func (s *Stack) Volume(i int) *Volume {
	if len(s.volumes) == 0 {
		return nil
	}
	return s.volumes[clamp(i, 0, len(s.volumes)-1)]
}

// SetCurrent makes the volume at 0-based index i current. The index is
// clamped, never rejected. Each volume keeps its own display settings,
// so switching back to a volume restores the range, opacity and
// colormap it was last shown with.
func (s *Stack) SetCurrent(i int) {
	if len(s.volumes) == 0 {
		return
	}
	s.current = clamp(i, 0, len(s.volumes)-1)
}

// SetVolumes replaces the stack contents. Volumes whose spatial extents
// are smaller than the largest bounding shape are zero-padded up to it;
// heterogeneous spatial shapes are reconciled, not rejected. ranges may
// be nil or shorter than vols; each volume without an explicit range
// gets an outlier-trimmed estimate from its own samples. Publishes a
// newImage notification when done.
func (s *Stack) SetVolumes(vols []*Volume, ranges [][2]float64) error {
	if len(vols) == 0 {
		return &PreconditionError{Op: "volume.SetVolumes", Msg: "no volumes supplied"}
	}

	// Find the spatial bounding shape across the stack.
	var bound [3]int
	for _, v := range vols {
		for i := 0; i < 3; i++ {
			if v.Dims[i] > bound[i] {
				bound[i] = v.Dims[i]
			}
		}
	}

	for i, v := range vols {
		if v.SpatialDims() != bound {
			vols[i] = padToShape(v, bound)
		}
		if i < len(ranges) && ranges[i][0] < ranges[i][1] {
			vols[i].RangeLo = ranges[i][0]
			vols[i].RangeHi = ranges[i][1]
		} else {
			vols[i].RangeLo, vols[i].RangeHi = trimmedRange(vols[i].Data)
		}
	}

	s.volumes = vols
	s.current = clamp(s.current, 0, len(vols)-1)
	if s.bus != nil {
		s.bus.Publish(event.NewImage, len(vols))
	}
	return nil
}

// padToShape copies v into a zero-filled volume with the given spatial
// shape, preserving time and channel extents and display settings.
func padToShape(v *Volume, shape [3]int) *Volume {
	dims := [5]int{shape[0], shape[1], shape[2], v.Dims[3], v.Dims[4]}
	n := dims[0] * dims[1] * dims[2] * dims[3] * dims[4]
	out := &Volume{
		Data:     make([]float64, n),
		Dims:     dims,
		RangeLo:  v.RangeLo,
		RangeHi:  v.RangeHi,
		Opacity:  v.Opacity,
		Colormap: v.Colormap,
		Label:    v.Label,
	}
	for c := 0; c < v.Dims[4]; c++ {
		for t := 0; t < v.Dims[3]; t++ {
			for z := 0; z < v.Dims[2]; z++ {
				for y := 0; y < v.Dims[1]; y++ {
					src := v.index(0, y, z, t, c)
					dst := out.index(0, y, z, t, c)
					copy(out.Data[dst:dst+v.Dims[0]], v.Data[src:src+v.Dims[0]])
				}
			}
		}
	}
	return out
}

// trimmedRange estimates a display range from at most rangeSampleLimit
// evenly strided samples, excluding the extreme tails on both ends.
func trimmedRange(data []float64) (lo, hi float64) {
	if len(data) == 0 {
		return 0, 1
	}

	stride := sampleStride(len(data))
	sample := make([]float64, 0, rangeSampleLimit+1)
	for i := 0; i < len(data); i += stride {
		sample = append(sample, data[i])
	}
	sort.Float64s(sample)

	lo = stat.Quantile(rangeTrimFraction, stat.Empirical, sample, nil)
	hi = stat.Quantile(1-rangeTrimFraction, stat.Empirical, sample, nil)
	if lo >= hi {
		// Degenerate (near-constant) data: fall back to the full span,
		// widening a flat range so lo < hi always holds.
		lo = floats.Min(sample)
		hi = floats.Max(sample)
		if lo >= hi {
			hi = lo + 1
		}
	}
	return lo, hi
}

// sampleStride returns the smallest stride that keeps ceil(n/stride)
// within rangeSampleLimit.
func sampleStride(n int) int {
	if n <= rangeSampleLimit {
		return 1
	}
	return (n + rangeSampleLimit - 1) / rangeSampleLimit
}

// Slice extracts the 2-D intensity plane of the volume at 0-based index
// volIdx, perpendicular to axis, at 1-based depth index slice1 and
// 1-based time index time1, channel 0. Out-of-range depth indices clamp
// to [1, extent]; out-of-range time indices clamp to that volume's own
// last frame, so volumes with shorter time series than the rest of the
// stack simply hold their final frame. Returns the plane and its
// width and height.
func (s *Stack) Slice(volIdx int, axis Axis, slice1, time1 int) ([]float64, int, int) {
	return s.ChannelSlice(volIdx, axis, slice1, time1, 0)
}

// ChannelSlice is Slice with an explicit 0-based channel index, which
// is clamped to the volume's channel extent.
func (s *Stack) ChannelSlice(volIdx int, axis Axis, slice1, time1, ch int) ([]float64, int, int) {
	v := s.Volume(volIdx)
	if v == nil {
		return nil, 0, 0
	}
	if !axis.Valid() {
		axis = AxisZ
	}

	sidx := clamp(slice1, 1, v.Extent(axis)) - 1
	t := clamp(time1, 1, v.Times()) - 1
	c := clamp(ch, 0, v.Channels()-1)

	w, h := PlaneDims(v.SpatialDims(), axis)
	plane := make([]float64, w*h)
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			x, y, z := PlaneVoxel(axis, sidx, px, py)
			plane[py*w+px] = v.At(x, y, z, t, c)
		}
	}
	return plane, w, h
}

// RGBSlice gathers up to three planes for RGB composition, varying the
// index along the axis selected by rgb.Axis while holding the other
// cursors fixed. Each of the three indices is clamped independently,
// so a channel index past a short axis reuses that axis's last entry.
func (s *Stack) RGBSlice(volIdx int, axis Axis, slice1, time1 int, rgb RGBParams) ([3][]float64, int, int) {
	var planes [3][]float64
	var w, h int
	for i, idx := range rgb.Channels {
		switch rgb.Axis {
		case RGBFromDepth:
			planes[i], w, h = s.Slice(volIdx, axis, idx, time1)
		case RGBFromTime:
			planes[i], w, h = s.Slice(volIdx, axis, slice1, idx)
		default:
			planes[i], w, h = s.ChannelSlice(volIdx, axis, slice1, time1, idx-1)
		}
	}
	return planes, w, h
}

// AddImageValues adds data into the current volume's current-time slab
// over the given box. Out-of-bounds boxes and mismatched data lengths
// are caller bugs and fail with a PreconditionError; nothing is
// clamped or silently corrected here.
func (s *Stack) AddImageValues(box models.Box3, time1 int, data []float64) error {
	return s.writeRegion("volume.AddImageValues", box, time1, data, func(dst *float64, v float64) {
		*dst += v
	})
}

// ReplaceImageValues overwrites the current volume's current-time slab
// over the given box. Same contract as AddImageValues.
func (s *Stack) ReplaceImageValues(box models.Box3, time1 int, data []float64) error {
	return s.writeRegion("volume.ReplaceImageValues", box, time1, data, func(dst *float64, v float64) {
		*dst = v
	})
}

func (s *Stack) writeRegion(op string, box models.Box3, time1 int, data []float64, apply func(*float64, float64)) error {
	v := s.Current()
	if v == nil {
		return &PreconditionError{Op: op, Msg: "empty stack"}
	}
	if box.Empty() {
		return &PreconditionError{Op: op, Msg: "empty region"}
	}
	if box.X0 < 0 || box.Y0 < 0 || box.Z0 < 0 ||
		box.X1 > v.Dims[0] || box.Y1 > v.Dims[1] || box.Z1 > v.Dims[2] {
		return &PreconditionError{
			Op:  op,
			Msg: fmt.Sprintf("region %+v outside volume %v", box, v.SpatialDims()),
		}
	}
	if want := box.Dx() * box.Dy() * box.Dz(); want != len(data) {
		return &PreconditionError{
			Op:  op,
			Msg: fmt.Sprintf("region holds %d voxels but data has %d", want, len(data)),
		}
	}

	t := clamp(time1, 1, v.Times()) - 1
	i := 0
	for z := box.Z0; z < box.Z1; z++ {
		for y := box.Y0; y < box.Y1; y++ {
			for x := box.X0; x < box.X1; x++ {
				apply(&v.Data[v.index(x, y, z, t, 0)], data[i])
				i++
			}
		}
	}
	return nil
}
