package mathx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedian(t *testing.T) {
	t.Parallel()

	t.Run("odd length picks middle", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 3.0, Median([]float64{5, 1, 3, 2, 4}))
	})

	t.Run("even length averages middle pair", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 15.0, Median([]float64{10, 20}))
		assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	})

	t.Run("empty input yields zero", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.0, Median(nil))
	})

	t.Run("does not mutate input", func(t *testing.T) {
		t.Parallel()
		in := []float64{3, 1, 2}
		Median(in)
		assert.Equal(t, []float64{3, 1, 2}, in)
	})
}

func TestMADSigma(t *testing.T) {
	t.Parallel()

	t.Run("scales MAD by 1.4826", func(t *testing.T) {
		t.Parallel()
		// median 3, abs deviations {2,1,0,1,97}, MAD 1
		assert.InDelta(t, 1.4826, MADSigma([]float64{1, 2, 3, 4, 100}), 1e-12)
	})

	t.Run("falls back to sample std when MAD is zero", func(t *testing.T) {
		t.Parallel()
		// all but one value equal: MAD is 0, sample std is not
		got := MADSigma([]float64{5, 5, 5, 5, 45})
		assert.InDelta(t, math.Sqrt(320), got, 1e-9)
	})

	t.Run("identical values yield zero via std fallback", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.0, MADSigma([]float64{7, 7, 7}))
	})

	t.Run("degenerate inputs yield one", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 1.0, MADSigma(nil))
		assert.Equal(t, 1.0, MADSigma([]float64{42}))
		assert.Equal(t, 1.0, MADSigma([]float64{math.NaN(), math.Inf(1)}))
	})

	t.Run("ignores non-finite values", func(t *testing.T) {
		t.Parallel()
		clean := MADSigma([]float64{1, 2, 3, 4, 100})
		withJunk := MADSigma([]float64{1, math.NaN(), 2, 3, math.Inf(-1), 4, 100})
		assert.Equal(t, clean, withJunk)
	})
}

func TestPopVariance(t *testing.T) {
	t.Parallel()

	// mean 3, squared deviations {4,1,0,1,4}, population variance 2
	assert.InDelta(t, 2.0, PopVariance([]float64{1, 2, 3, 4, 5}), 1e-12)
	assert.InDelta(t, math.Sqrt(2.0), PopStdDev([]float64{1, 2, 3, 4, 5}), 1e-12)
	assert.Equal(t, 0.0, PopVariance(nil))
}

func TestFinite(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.5, Finite(1.5))
	assert.Equal(t, 0.0, Finite(math.NaN()))
	assert.Equal(t, 0.0, Finite(math.Inf(1)))
	assert.Equal(t, 0.0, Finite(math.Inf(-1)))
}

func TestPolyfit(t *testing.T) {
	t.Parallel()

	t.Run("recovers exact quadratic", func(t *testing.T) {
		t.Parallel()
		xs := []float64{0, 1, 2, 3, 4, 5}
		ys := make([]float64, len(xs))
		for i, x := range xs {
			ys[i] = 2*x*x - 3*x + 1
		}

		coef, err := Polyfit(xs, ys, 2)
		require.NoError(t, err)
		require.Len(t, coef, 3)
		assert.InDelta(t, 2.0, coef[0], 1e-9)
		assert.InDelta(t, -3.0, coef[1], 1e-9)
		assert.InDelta(t, 1.0, coef[2], 1e-9)
	})

	t.Run("too few points fails", func(t *testing.T) {
		t.Parallel()
		_, err := Polyfit([]float64{1, 2}, []float64{1, 2}, 2)
		require.ErrorIs(t, err, ErrFitFailed)
	})

	t.Run("mismatched lengths fail", func(t *testing.T) {
		t.Parallel()
		_, err := Polyfit([]float64{1, 2, 3}, []float64{1, 2}, 1)
		require.ErrorIs(t, err, ErrFitFailed)
	})
}

func TestPolyval(t *testing.T) {
	t.Parallel()

	// 2x² - 3x + 1 at x=4
	assert.Equal(t, 21.0, Polyval([]float64{2, -3, 1}, 4))
	assert.Equal(t, 0.0, Polyval(nil, 4))
}

func TestRSquared(t *testing.T) {
	t.Parallel()

	t.Run("perfect fit is one", func(t *testing.T) {
		t.Parallel()
		xs := []float64{0, 1, 2, 3}
		ys := []float64{1, 0, 3, 10} // 2x²-3x+1
		assert.InDelta(t, 1.0, RSquared([]float64{2, -3, 1}, xs, ys), 1e-9)
	})

	t.Run("constant ys define R squared as one", func(t *testing.T) {
		t.Parallel()
		xs := []float64{0, 1, 2}
		ys := []float64{5, 5, 5}
		assert.Equal(t, 1.0, RSquared([]float64{0, 0, 5}, xs, ys))
	})

	t.Run("bad fit is below one", func(t *testing.T) {
		t.Parallel()
		xs := []float64{0, 1, 2, 3}
		ys := []float64{0, 3, -2, 5}
		assert.Less(t, RSquared([]float64{0, 0, 0}, xs, ys), 1.0)
	})
}
