package render

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// lutKey identifies one window/gamma mapping. A lookup table is built
// once per distinct key and reused, so gamma costs one table build per
// setting change instead of a pow per pixel.
type lutKey struct {
	lo, hi, gamma float64
}

// buildLUT returns the 256-entry gamma table for a key.
func buildLUT(gamma float64) *[256]uint8 {
	var lut [256]uint8
	for i := 0; i < 256; i++ {
		v := math.Pow(float64(i)/255, gamma) * 255
		lut[i] = uint8(math.Round(math.Max(0, math.Min(255, v))))
	}
	return &lut
}

// window clips v to [lo, hi] and rescales to the 8-bit display depth.
func window(v, lo, hi float64) uint8 {
	if hi <= lo {
		return 0
	}
	if v <= lo {
		return 0
	}
	if v >= hi {
		return 255
	}
	return uint8((v - lo) / (hi - lo) * 255)
}

// decorrelationStretch exaggerates color differences in a 3-channel
// plane: the channels are rotated into their principal axes, each axis
// is scaled to a common spread, and the result rotated back. Applied
// before the final display clip, and only to planes with all three
// channels present.
func decorrelationStretch(planes *[3][]float64) {
	n := len(planes[0])
	if n == 0 || len(planes[1]) != n || len(planes[2]) != n {
		return
	}

	x := mat.NewDense(n, 3, nil)
	means := [3]float64{}
	for c := 0; c < 3; c++ {
		means[c] = stat.Mean(planes[c], nil)
		for i := 0; i < n; i++ {
			x.Set(i, c, planes[c][i]-means[c])
		}
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)

	var eig mat.EigenSym
	if !eig.Factorize(&cov, true) {
		return
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Target spread: the mean standard deviation across the principal
	// axes, so the overall brightness scale survives the stretch.
	target := 0.0
	for _, v := range vals {
		target += math.Sqrt(math.Max(v, 0))
	}
	target /= 3

	// scale = V * diag(target/sqrt(lambda)) * V^T
	var scale mat.Dense
	scale.CloneFrom(&vecs)
	for c := 0; c < 3; c++ {
		s := 0.0
		if vals[c] > 1e-12 {
			s = target / math.Sqrt(vals[c])
		}
		for r := 0; r < 3; r++ {
			scale.Set(r, c, scale.At(r, c)*s)
		}
	}
	var m mat.Dense
	m.Mul(&scale, vecs.T())

	var out mat.Dense
	out.Mul(x, m.T())
	for c := 0; c < 3; c++ {
		for i := 0; i < n; i++ {
			planes[c][i] = out.At(i, c) + means[c]
		}
	}
}

// histogramAlign matches the second and third channels' intensity
// distributions to the first channel's, via quantile mapping over a
// shared 256-bin discretization. Independent of the decorrelation
// stretch; both only apply to 3-channel planes.
func histogramAlign(planes *[3][]float64) {
	n := len(planes[0])
	if n == 0 || len(planes[1]) != n || len(planes[2]) != n {
		return
	}

	ref := make([]float64, n)
	copy(ref, planes[0])
	sort.Float64s(ref)

	for c := 1; c < 3; c++ {
		src := make([]float64, n)
		copy(src, planes[c])
		sort.Float64s(src)

		for i := 0; i < n; i++ {
			// Rank of the value in its own distribution, mapped to the
			// same rank in the reference distribution.
			r := sort.SearchFloat64s(src, planes[c][i])
			if r >= n {
				r = n - 1
			}
			planes[c][i] = ref[r]
		}
	}
}
