package models

// Point2 is a 2-D point in plane (column, row) coordinates.
// Plane coordinates are 0-based; X runs along the plane width and
// Y along the plane height, regardless of the current view plane.
type Point2 struct {
	X, Y float64
}

// Box3 is an axis-aligned voxel box with inclusive minimum and
// exclusive maximum corners, in 0-based volume coordinates.
type Box3 struct {
	X0, Y0, Z0 int
	X1, Y1, Z1 int
}

// Dx returns the box extent along X.
func (b Box3) Dx() int { return b.X1 - b.X0 }

// Dy returns the box extent along Y.
func (b Box3) Dy() int { return b.Y1 - b.Y0 }

// Dz returns the box extent along Z.
func (b Box3) Dz() int { return b.Z1 - b.Z0 }

// Empty reports whether the box contains no voxels.
func (b Box3) Empty() bool {
	return b.X1 <= b.X0 || b.Y1 <= b.Y0 || b.Z1 <= b.Z0
}

// Rect2 is an axis-aligned 2-D rectangle in plane coordinates,
// inclusive minimum and exclusive maximum.
type Rect2 struct {
	X0, Y0 float64
	X1, Y1 float64
}

// Dx returns the rectangle width.
func (r Rect2) Dx() float64 { return r.X1 - r.X0 }

// Dy returns the rectangle height.
func (r Rect2) Dy() float64 { return r.Y1 - r.Y0 }

// Polygon2D is a closed polygon in plane coordinates. The last vertex
// connects implicitly back to the first.
type Polygon2D struct {
	// Vertices are the polygon corners in drawing order.
	Vertices []Point2

	// Area is the pixel count of the region this polygon was traced
	// from, when it was produced by boundary extraction. Zero for
	// polygons constructed by hand.
	Area int
}
