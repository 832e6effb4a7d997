package mathx

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrFitFailed reports a numerically failed polynomial fit, typically a
// rank-deficient Vandermonde matrix from too few distinct x values.
// Callers fall back to unfitted values; the error is never fatal.
var ErrFitFailed = errors.New("polynomial fit failed")

// Polyfit fits a polynomial of the given degree by least squares and
// returns the coefficients highest power first (numpy polyfit order).
// Requires at least degree+1 points.
func Polyfit(xs, ys []float64, degree int) ([]float64, error) {
	if degree < 0 || len(xs) != len(ys) || len(xs) < degree+1 {
		return nil, ErrFitFailed
	}

	cols := degree + 1
	a := mat.NewDense(len(xs), cols, nil)
	for i, x := range xs {
		p := 1.0
		for j := cols - 1; j >= 0; j-- {
			a.Set(i, j, p)
			p *= x
		}
	}
	b := mat.NewVecDense(len(ys), ys)

	var qr mat.QR
	qr.Factorize(a)

	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFitFailed, err)
	}

	coef := make([]float64, cols)
	for j := 0; j < cols; j++ {
		coef[j] = sol.AtVec(j)
	}
	return coef, nil
}

// Polyval evaluates a polynomial given coefficients highest power first.
func Polyval(coef []float64, x float64) float64 {
	var y float64
	for _, c := range coef {
		y = y*x + c
	}
	return y
}

// RSquared computes the coefficient of determination of a fit over the
// given points. Returns 1.0 when the total sum of squares is zero.
func RSquared(coef, xs, ys []float64) float64 {
	if len(xs) == 0 {
		return 1.0
	}
	meanY := Mean(ys)

	var ssRes, ssTot float64
	for i, x := range xs {
		r := ys[i] - Polyval(coef, x)
		ssRes += r * r
		d := ys[i] - meanY
		ssTot += d * d
	}
	if ssTot <= 0 {
		return 1.0
	}
	return 1.0 - ssRes/ssTot
}
