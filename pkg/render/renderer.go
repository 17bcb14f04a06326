// Package render turns (volume stack, mask store, view state) into a
// displayable raster. Render is a pure computation: it reads shared
// state, produces a Frame, and has no side effects, so rendering the
// same inputs twice yields byte-identical frames. The Gate wraps it
// with the 100ms last-request-wins throttle the interactive loop
// relies on.
package render

import (
	"math"
	"time"

	"volpaint/pkg/mask"
	"volpaint/pkg/view"
	"volpaint/pkg/volume"
)

// Frame is one rendered raster plus its mask overlay, ready for the
// presentation layer to composite and blit.
type Frame struct {
	// Width and Height are the raster dimensions after tiling and
	// upsampling.
	Width, Height int

	// Channels is 1 for grayscale or 3 for RGB composition.
	Channels int

	// Pixels is the windowed, gamma-corrected intensity raster,
	// interleaved when Channels is 3.
	Pixels []uint8

	// Overlay is the per-pixel label color raster (3 bytes per pixel)
	// and Alpha the per-pixel overlay opacity: zero on background,
	// the global overlay alpha on labeled voxels. Both are nil when
	// OverlayEmpty is set.
	Overlay []uint8
	Alpha   []float64

	// OverlayEmpty reports that the mask plane had no labeled voxels
	// (or the overlay is hidden); compositing can be skipped outright.
	OverlayEmpty bool

	// TileRows and TileCols are the montage grid shape, 1x1 for a
	// single slice. The presentation layer corrects the display
	// aspect ratio by this factor.
	TileRows, TileCols int
}

// Renderer holds the overlay alpha setting and the gamma lookup-table
// cache. The cache only ever stores deterministic functions of its key,
// so reuse cannot change output.
type Renderer struct {
	// OverlayAlpha is the global overlay opacity for labeled voxels.
	OverlayAlpha float64

	luts map[lutKey]*[256]uint8
}

// NewRenderer creates a renderer with the given overlay alpha.
func NewRenderer(overlayAlpha float64) *Renderer {
	return &Renderer{
		OverlayAlpha: overlayAlpha,
		luts:         make(map[lutKey]*[256]uint8),
	}
}

// Render extracts the current plane (or montage grid), applies the
// display window, gamma and optional multi-channel contrast operations,
// attaches the mask overlay, and optionally upsamples the intensity
// raster. store may be nil for maskless display.
func (r *Renderer) Render(stack *volume.Stack, store *mask.Store, st *view.State) (*Frame, error) {
	vol := stack.Volume(st.Volume)
	if vol == nil {
		return nil, &volume.PreconditionError{Op: "render.Render", Msg: "empty volume stack"}
	}
	axis := st.Plane.DepthAxis()
	extent := vol.Extent(axis)

	// Decide the depth indices to draw: one slice, or a near-square
	// grid of N slices evenly spaced along the depth axis.
	indices := []int{st.Slice}
	rows, cols := 1, 1
	if st.Montage {
		n := st.Slice
		if n < 3 {
			n = 3
		}
		rows, cols = montageGrid(n)
		indices = montageIndices(n, extent)
	}

	// Gather the intensity tiles per channel.
	channels := 1
	if st.RGB.Enabled {
		channels = 3
	}
	var planeW, planeH int
	tiles := make([][3][]float64, len(indices))
	for i, idx := range indices {
		tiles[i], planeW, planeH = r.gather(stack, st, axis, idx, channels)
	}

	// Multi-channel contrast operations run on the float planes,
	// before the final display clip.
	if channels == 3 {
		for i := range tiles {
			if st.DecorrStretch {
				decorrelationStretch(&tiles[i])
			}
			if st.HistAlign {
				histogramAlign(&tiles[i])
			}
		}
	}

	width := planeW * cols
	height := planeH * rows
	frame := &Frame{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pixels:   make([]uint8, width*height*channels),
		TileRows: rows,
		TileCols: cols,
	}

	lo, hi := st.Lo(), st.Hi()
	lut := r.lookupTable(lo, hi, st.Gamma)
	for i := range tiles {
		tx := (i % cols) * planeW
		ty := (i / cols) * planeH
		for c := 0; c < channels; c++ {
			plane := tiles[i][c]
			for py := 0; py < planeH; py++ {
				for px := 0; px < planeW; px++ {
					g := lut[window(plane[py*planeW+px], lo, hi)]
					frame.Pixels[((ty+py)*width+(tx+px))*channels+c] = g
				}
			}
		}
	}

	r.attachOverlay(frame, store, st, axis, indices, planeW, planeH, cols)

	if st.Upsample {
		upsample2x(frame, st.ResampleKernel)
	}
	return frame, nil
}

// gather returns the channel planes for one depth index: a single
// grayscale plane replicated into slot 0, or three planes per the RGB
// selection.
func (r *Renderer) gather(stack *volume.Stack, st *view.State, axis volume.Axis, slice1, channels int) ([3][]float64, int, int) {
	if channels == 3 {
		return stack.RGBSlice(st.Volume, axis, slice1, st.Time, volume.RGBParams{
			Axis:     st.RGB.Axis,
			Channels: st.RGB.Channels,
		})
	}
	var planes [3][]float64
	var w, h int
	planes[0], w, h = stack.Slice(st.Volume, axis, slice1, st.Time)
	return planes, w, h
}

// attachOverlay fills the frame's overlay color and alpha rasters from
// the mask plane at the same coordinates, tiled identically to the
// intensity raster. An entirely unlabeled plane (or hidden overlay)
// short-circuits: no overlay buffers are allocated at all.
func (r *Renderer) attachOverlay(frame *Frame, store *mask.Store, st *view.State, axis volume.Axis, indices []int, planeW, planeH, cols int) {
	frame.OverlayEmpty = true
	if store == nil || !st.MaskVisible {
		return
	}

	labelTiles := make([][]uint16, len(indices))
	any := false
	for i, idx := range indices {
		labelTiles[i] = store.SliceLabels(axis, idx)
		if !any {
			for _, l := range labelTiles[i] {
				if l != 0 {
					any = true
					break
				}
			}
		}
	}
	if !any {
		return
	}

	frame.OverlayEmpty = false
	frame.Overlay = make([]uint8, frame.Width*frame.Height*3)
	frame.Alpha = make([]float64, frame.Width*frame.Height)
	colors := store.Colors()

	for i, labels := range labelTiles {
		tx := (i % cols) * planeW
		ty := (i / cols) * planeH
		for py := 0; py < planeH; py++ {
			for px := 0; px < planeW; px++ {
				c, ok := colors.Color(labels[py*planeW+px])
				if !ok {
					continue
				}
				at := (ty+py)*frame.Width + (tx + px)
				frame.Overlay[at*3] = c.R
				frame.Overlay[at*3+1] = c.G
				frame.Overlay[at*3+2] = c.B
				frame.Alpha[at] = r.OverlayAlpha
			}
		}
	}
}

func (r *Renderer) lookupTable(lo, hi, gamma float64) *[256]uint8 {
	key := lutKey{lo: lo, hi: hi, gamma: gamma}
	if lut, ok := r.luts[key]; ok {
		return lut
	}
	lut := buildLUT(gamma)
	r.luts[key] = lut
	return lut
}

// montageGrid returns the tile grid for n slices: a single row below
// eight tiles, otherwise rows = floor(sqrt(n)), cols = ceil(n/rows).
func montageGrid(n int) (rows, cols int) {
	if n < 8 {
		return 1, n
	}
	rows = int(math.Floor(math.Sqrt(float64(n))))
	cols = (n + rows - 1) / rows
	return rows, cols
}

// montageIndices returns n 1-based depth indices evenly spaced over
// [1, extent], endpoints included.
func montageIndices(n, extent int) []int {
	out := make([]int, n)
	for k := 0; k < n; k++ {
		idx := 1
		if n > 1 && extent > 1 {
			idx = 1 + int(math.Round(float64(k)*float64(extent-1)/float64(n-1)))
		}
		if idx < 1 {
			idx = 1
		}
		if idx > extent {
			idx = extent
		}
		out[k] = idx
	}
	return out
}

// upsample2x doubles the raster resolution. Only the intensity raster
// gets the selected kernel; the overlay and alpha always use nearest
// so label boundaries stay voxel-exact.
func upsample2x(f *Frame, kernel view.Kernel) {
	w2, h2 := f.Width*2, f.Height*2

	pixels := make([]uint8, w2*h2*f.Channels)
	for y := 0; y < h2; y++ {
		for x := 0; x < w2; x++ {
			for c := 0; c < f.Channels; c++ {
				var v uint8
				if kernel == view.KernelBilinear {
					v = bilinearAt(f, float64(x)/2, float64(y)/2, c)
				} else {
					v = f.Pixels[((y/2)*f.Width+(x/2))*f.Channels+c]
				}
				pixels[(y*w2+x)*f.Channels+c] = v
			}
		}
	}

	if !f.OverlayEmpty {
		overlay := make([]uint8, w2*h2*3)
		alpha := make([]float64, w2*h2)
		for y := 0; y < h2; y++ {
			for x := 0; x < w2; x++ {
				src := (y/2)*f.Width + (x / 2)
				dst := y*w2 + x
				overlay[dst*3] = f.Overlay[src*3]
				overlay[dst*3+1] = f.Overlay[src*3+1]
				overlay[dst*3+2] = f.Overlay[src*3+2]
				alpha[dst] = f.Alpha[src]
			}
		}
		f.Overlay = overlay
		f.Alpha = alpha
	}

	f.Pixels = pixels
	f.Width, f.Height = w2, h2
}

func bilinearAt(f *Frame, x, y float64, c int) uint8 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= f.Width {
		x1 = f.Width - 1
	}
	if y1 >= f.Height {
		y1 = f.Height - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)

	at := func(xx, yy int) float64 {
		return float64(f.Pixels[(yy*f.Width+xx)*f.Channels+c])
	}
	top := at(x0, y0)*(1-fx) + at(x1, y0)*fx
	bot := at(x0, y1)*(1-fx) + at(x1, y1)*fx
	v := top*(1-fy) + bot*fy
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}

// Gate throttles renders to at most one per interval. Requests inside
// the window are skipped rather than queued; the caller re-requests on
// its next event, so the last request always wins. The timestamp is
// explicit state on the gate, not a hidden static.
type Gate struct {
	renderer *Renderer
	interval time.Duration
	last     time.Time
	rendered bool
	now      func() time.Time
}

// NewGate wraps a renderer with a minimum render interval.
func NewGate(r *Renderer, interval time.Duration) *Gate {
	return &Gate{renderer: r, interval: interval, now: time.Now}
}

// SetClock replaces the gate's time source for tests.
func (g *Gate) SetClock(now func() time.Time) { g.now = now }

// Render renders unless a render already ran within the interval. The
// boolean reports whether a frame was produced; a skipped request
// returns (nil, false, nil).
func (g *Gate) Render(stack *volume.Stack, store *mask.Store, st *view.State) (*Frame, bool, error) {
	t := g.now()
	if g.rendered && t.Sub(g.last) < g.interval {
		return nil, false, nil
	}
	frame, err := g.renderer.Render(stack, store, st)
	if err != nil {
		return nil, false, err
	}
	g.last = t
	g.rendered = true
	return frame, true, nil
}
