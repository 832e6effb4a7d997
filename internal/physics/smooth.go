package physics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/impulse-data/trajectory.report/internal/mathx"
)

// smoothRecords fills the smoothed channels: Savitzky-Golay filtered
// position, then velocity and acceleration re-derived from the smoothed
// position. Any failure (too few points, ill-conditioned window fit)
// falls back to the unsmoothed values for the whole sequence.
func smoothRecords(records []Record, times, xm, ym []float64, window int) {
	unsmoothed := func() {
		for i := range records {
			records[i].XMSmooth = records[i].XM
			records[i].YMSmooth = records[i].YM
			records[i].VXSmooth = records[i].VX
			records[i].VYSmooth = records[i].VY
			records[i].AXSmooth = records[i].AX
			records[i].AYSmooth = records[i].AY
		}
	}

	if window < 3 || len(records) < window {
		unsmoothed()
		return
	}

	xs, errX := savitzkyGolay(xm, window)
	ys, errY := savitzkyGolay(ym, window)
	if errX != nil || errY != nil {
		unsmoothed()
		return
	}

	vxs := gradient(xs, times)
	vys := gradient(ys, times)
	axs := gradient(vxs, times)
	ays := gradient(vys, times)

	for i := range records {
		records[i].XMSmooth = xs[i]
		records[i].YMSmooth = ys[i]
		records[i].VXSmooth = vxs[i]
		records[i].VYSmooth = vys[i]
		records[i].AXSmooth = axs[i]
		records[i].AYSmooth = ays[i]
	}
}

// savitzkyGolay smooths a uniformly sampled series by fitting a local
// polynomial of order min(3, window-1) inside a sliding window and
// evaluating the fit at each point. The window is forced odd and clipped
// to the series length; windows at the boundaries shift inward rather
// than shrink.
func savitzkyGolay(values []float64, window int) ([]float64, error) {
	n := len(values)
	if window%2 == 0 {
		window++
	}
	if window > n {
		window = n
		if window%2 == 0 {
			window--
		}
	}
	if window < 3 {
		return nil, fmt.Errorf("%w: window %d too small", mathx.ErrFitFailed, window)
	}

	order := 3
	if order > window-1 {
		order = window - 1
	}
	half := window / 2

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		if lo+window > n {
			lo = n - window
		}

		a := mat.NewDense(window, order+1, nil)
		b := mat.NewVecDense(window, nil)
		for j := 0; j < window; j++ {
			x := float64(lo + j - i)
			p := 1.0
			for k := 0; k <= order; k++ {
				a.Set(j, k, p)
				p *= x
			}
			b.SetVec(j, values[lo+j])
		}

		var qr mat.QR
		qr.Factorize(a)
		var sol mat.VecDense
		if err := qr.SolveVecTo(&sol, false, b); err != nil {
			return nil, fmt.Errorf("%w: %v", mathx.ErrFitFailed, err)
		}
		// The constant term is the fit evaluated at the center point.
		out[i] = sol.AtVec(0)
	}
	return out, nil
}
