// Package edit implements the mask-editing tools: brushes, region
// fills, polygon extraction, slice interpolation, 3-D smoothing and
// active-contour refinement. Every tool, however many slices it
// touches internally, ends in exactly one mask-store write, so each
// tool invocation is one undo step and one change notification.
//
// Tools with structural preconditions (interpolation, smoothing,
// refinement) expose Can* predicates the UI polls to enable or disable
// the affordance; invoking a tool whose precondition fails is a no-op,
// never an error.
package edit

import (
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"volpaint/internal/models"
	"volpaint/pkg/mask"
	"volpaint/pkg/view"
	"volpaint/pkg/volume"
)

// BrushMode selects the brush behavior.
type BrushMode int

const (
	// BrushPaint paints the full disk footprint.
	BrushPaint BrushMode = iota

	// BrushSmartBright thresholds the footprint's intensities and
	// paints only the bright sub-region.
	BrushSmartBright

	// BrushSmartDark paints only the dark sub-region.
	BrushSmartDark

	numBrushModes
)

// Editor applies localized edits to the mask store under the store's
// lock and selected-label policy.
type Editor struct {
	stack *volume.Stack
	store *mask.Store
	state *view.State

	// Brush is the active brush mode; CycleBrush steps through modes.
	Brush BrushMode

	// Refinement defaults, tunable rather than load-bearing.
	ContourIterations int
	ContourSmoothing  float64
	ContourBias       float64

	// SmoothThreshold is the re-binarization level after 3-D
	// smoothing. Kept just under one half to slightly favor dilation.
	SmoothThreshold float64

	// MinPolygonArea filters out components below this pixel count in
	// polygon extraction; MaxPolygonVertices caps decimation.
	MinPolygonArea     int
	MaxPolygonVertices int
}

// NewEditor creates an editor over the given stack, store and view.
func NewEditor(stack *volume.Stack, store *mask.Store, state *view.State) *Editor {
	return &Editor{
		stack:              stack,
		store:              store,
		state:              state,
		ContourIterations:  3,
		ContourSmoothing:   0.1,
		ContourBias:        0,
		SmoothThreshold:    0.45,
		MinPolygonArea:     15,
		MaxPolygonVertices: 16,
	}
}

// CycleBrush advances to the next brush mode, wrapping around.
func (e *Editor) CycleBrush() {
	e.Brush = (e.Brush + 1) % numBrushModes
}

// Stroke rasterizes a pointer path swept with a disk of the given
// radius onto the current slice and paints it per the active brush
// mode, unioned with the label's existing footprint on that slice.
func (e *Editor) Stroke(path []models.Point2, radius float64) error {
	axis := e.state.Plane.DepthAxis()
	w, h := volume.PlaneDims(e.store.Dims(), axis)
	patch := rasterStroke(w, h, path, radius)

	if e.Brush != BrushPaint {
		e.restrictToOtsuClass(patch, axis, e.Brush == BrushSmartDark)
	}
	return e.store.SetSliceSelection(axis, e.state.Slice, patch, true)
}

// restrictToOtsuClass clears patch pixels outside the bright (or dark)
// class of a two-class split of the intensities under the footprint.
func (e *Editor) restrictToOtsuClass(patch []bool, axis volume.Axis, dark bool) {
	plane, _, _ := e.stack.Slice(e.state.Volume, axis, e.state.Slice, e.state.Time)
	if len(plane) != len(patch) {
		return
	}
	var values []float64
	for i, p := range patch {
		if p {
			values = append(values, plane[i])
		}
	}
	if len(values) == 0 {
		return
	}
	thr := otsuThreshold(values)
	for i := range patch {
		if !patch[i] {
			continue
		}
		bright := plane[i] >= thr
		if bright == dark {
			patch[i] = false
		}
	}
}

// FillPolygon rasterizes a closed polygon onto the current slice. With
// combine false the label's previous footprint on the slice is
// replaced, the default for ROI tools.
func (e *Editor) FillPolygon(poly []models.Point2, combine bool) error {
	axis := e.state.Plane.DepthAxis()
	w, h := volume.PlaneDims(e.store.Dims(), axis)
	return e.store.SetSliceSelection(axis, e.state.Slice, rasterPolygon(w, h, poly), combine)
}

// FillEllipse fills the ellipse inscribed in rect on the current slice.
func (e *Editor) FillEllipse(rect models.Rect2, combine bool) error {
	axis := e.state.Plane.DepthAxis()
	w, h := volume.PlaneDims(e.store.Dims(), axis)
	return e.store.SetSliceSelection(axis, e.state.Slice, rasterEllipse(w, h, rect), combine)
}

// FillRect fills an axis-aligned rectangle on the current slice.
func (e *Editor) FillRect(rect models.Rect2, combine bool) error {
	axis := e.state.Plane.DepthAxis()
	w, h := volume.PlaneDims(e.store.Dims(), axis)
	return e.store.SetSliceSelection(axis, e.state.Slice, rasterRect(w, h, rect), combine)
}

// MaskPolygons extracts the boundary polygon of each connected
// component of the selected label on the current slice: 4-neighbor
// components, a minimum-area filter, and vertex decimation for long
// boundaries. The polygons are for interactive editing; writing back
// is explicit, via FillPolygon.
func (e *Editor) MaskPolygons() []models.Polygon2D {
	axis := e.state.Plane.DepthAxis()
	w, h := volume.PlaneDims(e.store.Dims(), axis)
	sel := e.store.SliceSelection(axis, e.state.Slice)

	var polys []models.Polygon2D
	for _, comp := range connectedComponents(sel, w, h) {
		if len(comp) < e.MinPolygonArea {
			continue
		}
		boundary := traceBoundary(comp, w, h)
		boundary = decimate(boundary, e.MaxPolygonVertices)
		polys = append(polys, models.Polygon2D{Vertices: boundary, Area: len(comp)})
	}
	return polys
}

// paintedDepths returns the 1-based depth indices along axis where the
// selected label has any voxels.
func (e *Editor) paintedDepths(axis volume.Axis) []int {
	extent := e.store.Dims()[int(axis)]
	var depths []int
	for d := 1; d <= extent; d++ {
		sel := e.store.SliceSelection(axis, d)
		for _, s := range sel {
			if s {
				depths = append(depths, d)
				break
			}
		}
	}
	return depths
}

// CanInterpolate reports whether slice interpolation has anything to
// do: at least two painted depths with at least one unpainted depth
// between them. A fully contiguous painted range disables the tool.
func (e *Editor) CanInterpolate() bool {
	depths := e.paintedDepths(e.state.Plane.DepthAxis())
	if len(depths) < 2 {
		return false
	}
	return depths[len(depths)-1]-depths[0]+1 > len(depths)
}

// InterpolateSlices fills the unpainted depth indices between painted
// ones by shape interpolation: each painted slice is converted to a
// signed distance field, the fields are interpolated across depth per
// pixel with a monotone cubic (pchip), and the zero level-set of the
// result becomes the interpolated shape. Depths outside the painted
// bounding range are left untouched. No-op (returning false) when the
// precondition is unmet.
func (e *Editor) InterpolateSlices() (bool, error) {
	if !e.CanInterpolate() {
		return false, nil
	}
	axis := e.state.Plane.DepthAxis()
	dims := e.store.Dims()
	w, h := volume.PlaneDims(dims, axis)
	depths := e.paintedDepths(axis)

	// Distance fields of the known slices, keyed by position in xs.
	xs := make([]float64, len(depths))
	fields := make([][]float64, len(depths))
	known := make(map[int]bool, len(depths))
	for i, d := range depths {
		xs[i] = float64(d)
		fields[i] = signedDistance(e.store.SliceSelection(axis, d), w, h)
		known[d] = true
	}

	// Start from the current selection so painted slices and depths
	// outside the bounding range pass through unchanged.
	patch := e.selectionVolume()

	ys := make([]float64, len(depths))
	var pchip interp.FritschButland
	for p := 0; p < w*h; p++ {
		for i := range fields {
			ys[i] = fields[i][p]
		}
		if err := pchip.Fit(xs, ys); err != nil {
			return false, err
		}
		for d := depths[0] + 1; d < depths[len(depths)-1]; d++ {
			if known[d] {
				continue
			}
			if pchip.Predict(float64(d)) < 0 {
				e.setPlaneVoxel(patch, axis, d, p, w)
			}
		}
	}

	return true, e.store.SetSelection(patch, false)
}

// CanSmooth reports whether 3-D smoothing applies: the selected label
// spans at least two depth indices with at least one depth-adjacent
// pair. A single isolated slice is not worth smoothing.
func (e *Editor) CanSmooth() bool {
	depths := e.paintedDepths(e.state.Plane.DepthAxis())
	if len(depths) < 2 {
		return false
	}
	for i := 1; i < len(depths); i++ {
		if depths[i] == depths[i-1]+1 {
			return true
		}
	}
	return false
}

// Smooth3D applies a 3x3x3 box smoothing to the selected label's
// binary mask and re-binarizes just under one half, a deliberate
// slight bias toward dilation. No-op when the precondition is unmet.
func (e *Editor) Smooth3D() (bool, error) {
	if !e.CanSmooth() {
		return false, nil
	}
	dims := e.store.Dims()
	sel := e.store.Selection()

	field := make([]float64, len(sel))
	for i, s := range sel {
		if s {
			field[i] = 1
		}
	}
	smoothed := boxSmooth3D(field, dims)

	patch := make([]bool, len(sel))
	for i, v := range smoothed {
		patch[i] = v > e.SmoothThreshold
	}
	return true, e.store.SetSelection(patch, false)
}

// CanRefine reports whether active-contour refinement applies: the
// selected label is non-empty somewhere.
func (e *Editor) CanRefine() bool {
	return !e.store.Empty()
}

// ActiveContour refines the selected label slice by slice along the
// current view plane with a few Chan-Vese iterations seeded by the
// existing mask: each iteration reassigns pixels to the inside or
// outside region by which region mean their intensity is closer to,
// then relaxes the boundary with a small curvature smoothing. Only
// depth indices that already contain painted voxels are refined.
// No-op when the label is empty everywhere.
func (e *Editor) ActiveContour() (bool, error) {
	if !e.CanRefine() {
		return false, nil
	}
	axis := e.state.Plane.DepthAxis()
	dims := e.store.Dims()
	w, h := volume.PlaneDims(dims, axis)
	depths := e.paintedDepths(axis)

	patch := e.selectionVolume()
	for _, d := range depths {
		plane, _, _ := e.stack.Slice(e.state.Volume, axis, d, e.state.Time)
		refined := e.chanVese(plane, e.store.SliceSelection(axis, d), w, h)
		for p, in := range refined {
			e.clearPlaneVoxel(patch, axis, d, p, w)
			if in {
				e.setPlaneVoxel(patch, axis, d, p, w)
			}
		}
	}
	return true, e.store.SetSelection(patch, false)
}

// chanVese runs the per-slice region competition.
func (e *Editor) chanVese(plane []float64, seed []bool, w, h int) []bool {
	cur := make([]bool, len(seed))
	copy(cur, seed)

	var inside, outside []float64
	for it := 0; it < e.ContourIterations; it++ {
		inside = inside[:0]
		outside = outside[:0]
		for i, in := range cur {
			if in {
				inside = append(inside, plane[i])
			} else {
				outside = append(outside, plane[i])
			}
		}
		if len(inside) == 0 || len(outside) == 0 {
			break
		}
		c1 := stat.Mean(inside, nil)
		c2 := stat.Mean(outside, nil)

		next := make([]float64, len(cur))
		for i, v := range plane {
			d1 := (v - c1) * (v - c1)
			d2 := (v - c2) * (v - c2)
			if d1+e.ContourBias < d2 {
				next[i] = 1
			}
		}
		// Curvature relaxation: blend each pixel with its 4-neighbor
		// mean and re-threshold.
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				sum, cnt := 0.0, 0.0
				for _, nb := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
					if nb[0] >= 0 && nb[0] < w && nb[1] >= 0 && nb[1] < h {
						sum += next[nb[1]*w+nb[0]]
						cnt++
					}
				}
				v := (1-e.ContourSmoothing)*next[i] + e.ContourSmoothing*sum/cnt
				cur[i] = v >= 0.5
			}
		}
	}
	return cur
}

// selectionVolume returns the selected label's current 3-D footprint.
func (e *Editor) selectionVolume() []bool {
	return e.store.Selection()
}

// setPlaneVoxel marks the voxel at plane offset p on the slice at
// 1-based depth d along axis.
func (e *Editor) setPlaneVoxel(patch []bool, axis volume.Axis, d, p, w int) {
	dims := e.store.Dims()
	x, y, z := volume.PlaneVoxel(axis, d-1, p%w, p/w)
	patch[(z*dims[1]+y)*dims[0]+x] = true
}

func (e *Editor) clearPlaneVoxel(patch []bool, axis volume.Axis, d, p, w int) {
	dims := e.store.Dims()
	x, y, z := volume.PlaneVoxel(axis, d-1, p%w, p/w)
	patch[(z*dims[1]+y)*dims[0]+x] = false
}

// boxSmooth3D applies a 3x3x3 mean filter with edge clamping.
func boxSmooth3D(field []float64, dims [3]int) []float64 {
	w, h, d := dims[0], dims[1], dims[2]
	out := make([]float64, len(field))
	for z := 0; z < d; z++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				sum, cnt := 0.0, 0.0
				for dz := -1; dz <= 1; dz++ {
					zz := z + dz
					if zz < 0 || zz >= d {
						continue
					}
					for dy := -1; dy <= 1; dy++ {
						yy := y + dy
						if yy < 0 || yy >= h {
							continue
						}
						for dx := -1; dx <= 1; dx++ {
							xx := x + dx
							if xx < 0 || xx >= w {
								continue
							}
							sum += field[(zz*h+yy)*w+xx]
							cnt++
						}
					}
				}
				out[(z*h+y)*w+x] = sum / cnt
			}
		}
	}
	return out
}
