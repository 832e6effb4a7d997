// Package mathx provides the shared numerical primitives of the analysis
// pipeline: robust statistics, least-squares polynomial fitting and
// finite-value guards.
package mathx

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Median computes the median of a slice, averaging the two middle
// elements when the length is even. Returns 0 for empty input.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// MADSigma estimates a robust standard deviation via the median absolute
// deviation, scaled by 1.4826 to be consistent with the Gaussian sigma.
// Non-finite values are ignored. Falls back to the sample standard
// deviation when the MAD is zero and more than one value remains, and to
// 1.0 when nothing usable is left.
func MADSigma(values []float64) float64 {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return 1.0
	}

	med := Median(finite)
	dev := make([]float64, len(finite))
	for i, v := range finite {
		dev[i] = math.Abs(v - med)
	}
	mad := Median(dev)
	if mad > 0 {
		return 1.4826 * mad
	}
	if len(finite) > 1 {
		return stat.StdDev(finite, nil)
	}
	return 1.0
}

// Mean returns the arithmetic mean, 0 for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// PopVariance returns the population variance (divides by n, not n-1),
// 0 for empty input.
func PopVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := stat.Mean(values, nil)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}

// PopStdDev returns the population standard deviation.
func PopStdDev(values []float64) float64 {
	return math.Sqrt(PopVariance(values))
}

// Finite maps NaN and infinities to zero so one bad sample cannot poison
// derived magnitudes.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
