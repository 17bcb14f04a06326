package edit

import (
	"gonum.org/v1/gonum/floats"
)

const otsuBins = 256

// otsuThreshold computes the two-class intensity split that maximizes
// between-class variance over a 256-bin histogram of values. Returns
// the threshold in the data's own units. Degenerate inputs (empty or
// constant) return the minimum value, which classifies everything as
// one class.
func otsuThreshold(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	lo := floats.Min(values)
	hi := floats.Max(values)
	if hi <= lo {
		return lo
	}

	var hist [otsuBins]float64
	binWidth := (hi - lo) / otsuBins
	for _, v := range values {
		b := int((v - lo) / binWidth)
		if b >= otsuBins {
			b = otsuBins - 1
		}
		hist[b]++
	}

	total := float64(len(values))
	sumAll := 0.0
	for b, c := range hist {
		sumAll += float64(b) * c
	}

	bestBetween := -1.0
	bestBin := 0
	wB, sumB := 0.0, 0.0
	for b := 0; b < otsuBins; b++ {
		wB += hist[b]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(b) * hist[b]
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > bestBetween {
			bestBetween = between
			bestBin = b
		}
	}

	return lo + (float64(bestBin)+1)*binWidth
}
