package edit

import (
	"math"

	"volpaint/internal/models"
)

// rasterDisk sets patch pixels within radius of (cx, cy).
func rasterDisk(patch []bool, w, h int, cx, cy, radius float64) {
	r2 := radius * radius
	x0 := int(math.Floor(cx - radius))
	x1 := int(math.Ceil(cx + radius))
	y0 := int(math.Floor(cy - radius))
	y1 := int(math.Ceil(cy + radius))
	for y := y0; y <= y1; y++ {
		if y < 0 || y >= h {
			continue
		}
		for x := x0; x <= x1; x++ {
			if x < 0 || x >= w {
				continue
			}
			dx := float64(x) - cx
			dy := float64(y) - cy
			if dx*dx+dy*dy <= r2 {
				patch[y*w+x] = true
			}
		}
	}
}

// rasterStroke sweeps a disk along the pointer path, filling the gaps
// between successive samples so a fast drag leaves no dotted line.
func rasterStroke(w, h int, path []models.Point2, radius float64) []bool {
	patch := make([]bool, w*h)
	if len(path) == 0 {
		return patch
	}
	rasterDisk(patch, w, h, path[0].X, path[0].Y, radius)
	for i := 1; i < len(path); i++ {
		a, b := path[i-1], path[i]
		dist := math.Hypot(b.X-a.X, b.Y-a.Y)
		steps := int(math.Ceil(dist))
		for s := 1; s <= steps; s++ {
			t := float64(s) / float64(steps)
			rasterDisk(patch, w, h, a.X+(b.X-a.X)*t, a.Y+(b.Y-a.Y)*t, radius)
		}
	}
	return patch
}

// rasterPolygon fills a closed polygon by even-odd scanline crossing.
func rasterPolygon(w, h int, poly []models.Point2) []bool {
	patch := make([]bool, w*h)
	n := len(poly)
	if n < 3 {
		return patch
	}
	for y := 0; y < h; y++ {
		py := float64(y) + 0.5
		// Collect the x crossings of this scanline.
		var xs []float64
		for i := 0; i < n; i++ {
			a := poly[i]
			b := poly[(i+1)%n]
			if (a.Y <= py) == (b.Y <= py) {
				continue
			}
			t := (py - a.Y) / (b.Y - a.Y)
			xs = append(xs, a.X+(b.X-a.X)*t)
		}
		// Insertion sort; crossing counts are tiny.
		for i := 1; i < len(xs); i++ {
			for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
				xs[j], xs[j-1] = xs[j-1], xs[j]
			}
		}
		for i := 0; i+1 < len(xs); i += 2 {
			x0 := int(math.Ceil(xs[i] - 0.5))
			x1 := int(math.Floor(xs[i+1] - 0.5))
			for x := x0; x <= x1; x++ {
				if x >= 0 && x < w {
					patch[y*w+x] = true
				}
			}
		}
	}
	return patch
}

// rasterEllipse fills the ellipse inscribed in rect.
func rasterEllipse(w, h int, rect models.Rect2) []bool {
	patch := make([]bool, w*h)
	rx := rect.Dx() / 2
	ry := rect.Dy() / 2
	if rx <= 0 || ry <= 0 {
		return patch
	}
	cx := rect.X0 + rx
	cy := rect.Y0 + ry
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (float64(x) + 0.5 - cx) / rx
			dy := (float64(y) + 0.5 - cy) / ry
			if dx*dx+dy*dy <= 1 {
				patch[y*w+x] = true
			}
		}
	}
	return patch
}

// rasterRect fills an axis-aligned rectangle.
func rasterRect(w, h int, rect models.Rect2) []bool {
	patch := make([]bool, w*h)
	x0 := clampI(int(math.Ceil(rect.X0-0.5)), 0, w)
	x1 := clampI(int(math.Floor(rect.X1-0.5))+1, 0, w)
	y0 := clampI(int(math.Ceil(rect.Y0-0.5)), 0, h)
	y1 := clampI(int(math.Floor(rect.Y1-0.5))+1, 0, h)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			patch[y*w+x] = true
		}
	}
	return patch
}

// connectedComponents labels the true pixels of sel by 4-neighbor
// connectivity, returning the pixel index list of each component.
func connectedComponents(sel []bool, w, h int) [][]int {
	visited := make([]bool, len(sel))
	var comps [][]int
	var stack []int

	for start := range sel {
		if !sel[start] || visited[start] {
			continue
		}
		var comp []int
		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, idx)

			x, y := idx%w, idx/w
			for _, nb := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := nb[0], nb[1]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				nidx := ny*w + nx
				if sel[nidx] && !visited[nidx] {
					visited[nidx] = true
					stack = append(stack, nidx)
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps
}

// mooreDirs walks clockwise starting east.
var mooreDirs = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}

// traceBoundary extracts the outer boundary of one component by
// Moore-neighbor tracing, starting from its topmost-leftmost pixel.
func traceBoundary(comp []int, w, h int) []models.Point2 {
	in := make(map[int]bool, len(comp))
	start := comp[0]
	for _, idx := range comp {
		in[idx] = true
		if idx/w < start/w || (idx/w == start/w && idx%w < start%w) {
			start = idx
		}
	}

	sx, sy := start%w, start/w
	if len(comp) == 1 {
		return []models.Point2{{X: float64(sx), Y: float64(sy)}}
	}

	var boundary []models.Point2
	cx, cy := sx, sy
	dir := 6 // arrive travelling north so the first probe looks west of start
	for {
		boundary = append(boundary, models.Point2{X: float64(cx), Y: float64(cy)})
		found := false
		// Probe the 8-neighborhood clockwise, starting just past the
		// direction we came from.
		probe := (dir + 6) % 8
		for i := 0; i < 8; i++ {
			d := (probe + i) % 8
			nx := cx + mooreDirs[d][0]
			ny := cy + mooreDirs[d][1]
			if nx >= 0 && nx < w && ny >= 0 && ny < h && in[ny*w+nx] {
				cx, cy, dir = nx, ny, d
				found = true
				break
			}
		}
		if !found {
			break
		}
		if cx == sx && cy == sy {
			break
		}
		if len(boundary) > 4*len(comp)+8 {
			break
		}
	}
	return boundary
}

// decimate reduces a polygon to at most maxVertices by keeping evenly
// strided vertices.
func decimate(poly []models.Point2, maxVertices int) []models.Point2 {
	if len(poly) <= maxVertices {
		return poly
	}
	out := make([]models.Point2, 0, maxVertices)
	for i := 0; i < maxVertices; i++ {
		out = append(out, poly[i*len(poly)/maxVertices])
	}
	return out
}

// signedDistance computes a chamfer city-block signed distance field
// for a binary plane: negative inside the region, positive outside.
// Exact metrics are not needed here; the field only anchors shape
// interpolation between slices.
func signedDistance(sel []bool, w, h int) []float64 {
	const far = 1e9

	dist := func(inside bool) []float64 {
		d := make([]float64, w*h)
		for i := range d {
			if sel[i] == inside {
				d[i] = 0
			} else {
				d[i] = far
			}
		}
		// Forward pass.
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				if x > 0 && d[i-1]+1 < d[i] {
					d[i] = d[i-1] + 1
				}
				if y > 0 && d[i-w]+1 < d[i] {
					d[i] = d[i-w] + 1
				}
			}
		}
		// Backward pass.
		for y := h - 1; y >= 0; y-- {
			for x := w - 1; x >= 0; x-- {
				i := y*w + x
				if x < w-1 && d[i+1]+1 < d[i] {
					d[i] = d[i+1] + 1
				}
				if y < h-1 && d[i+w]+1 < d[i] {
					d[i] = d[i+w] + 1
				}
			}
		}
		return d
	}

	outside := dist(true)  // distance to the region, zero inside
	inside := dist(false)  // distance to the background, zero outside
	sd := make([]float64, w*h)
	for i := range sd {
		sd[i] = outside[i] - inside[i]
	}
	return sd
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
