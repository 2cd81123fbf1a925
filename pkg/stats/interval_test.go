package stats

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearSample(n int) (x, y, xErr, yErr []float64) {
	r := rand.New(rand.NewPCG(3, 5))
	x, y = make([]float64, n), make([]float64, n)
	xErr, yErr = make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		y[i] = 0.5*float64(i) + r.NormFloat64()*3
		xErr[i] = 0.5
		yErr[i] = 1.5
	}
	return x, y, xErr, yErr
}

func TestIntervalMonteCarlo(t *testing.T) {
	x, y, xErr, yErr := linearSample(30)
	ci, err := Interval(context.Background(), x, y, IntervalOptions{
		XErr: xErr, YErr: yErr, Samples: 500,
		Rand: rand.New(rand.NewPCG(1, 2)),
	})
	require.NoError(t, err)
	assert.Equal(t, MonteCarlo, ci.Method)
	assert.Equal(t, 500, ci.Samples)
	assert.GreaterOrEqual(t, ci.Lower, 0.0)
	assert.GreaterOrEqual(t, ci.Upper, 0.0)
	assert.Greater(t, ci.Lower+ci.Upper, 0.0)
	assert.Greater(t, ci.Median, 0.0)
	assert.LessOrEqual(t, ci.Median, 1.0)
}

func TestIntervalZeroNoiseCollapses(t *testing.T) {
	x, y, _, _ := linearSample(12)
	zero := make([]float64, len(x))
	ci, err := Interval(context.Background(), x, y, IntervalOptions{
		XErr: zero, YErr: zero, Samples: 50,
		Rand: rand.New(rand.NewPCG(1, 2)),
	})
	require.NoError(t, err)

	st, err := Tau(x, y, Uncensored())
	require.NoError(t, err)
	assert.Equal(t, 0.0, ci.Lower)
	assert.Equal(t, 0.0, ci.Upper)
	assert.InDelta(t, st.Tau, ci.Median, 1e-12)
}

func TestIntervalDeterministic(t *testing.T) {
	x, y, xErr, yErr := linearSample(25)
	c := NewCensors(nil, []bool{
		true, true, false, true, true, true, false, true, true, true,
		true, true, true, true, false, true, true, true, true, true,
		true, true, true, false, true,
	})
	for _, method := range []Method{MonteCarlo, Bootstrap} {
		t.Run(string(method), func(t *testing.T) {
			run := func(workers int) ConfidenceInterval {
				ci, err := Interval(context.Background(), x, y, IntervalOptions{
					XErr: xErr, YErr: yErr, Censors: c, Samples: 300, Method: method,
					Rand: rand.New(rand.NewPCG(42, 43)), Workers: workers,
				})
				require.NoError(t, err)
				return ci
			}
			first := run(1)
			assert.Equal(t, first, run(1))
			assert.Equal(t, first, run(4))
		})
	}
}

func TestIntervalBootstrapModes(t *testing.T) {
	x, y, _, _ := linearSample(40)
	for _, mode := range []BootstrapMode{BootstrapDistinct, BootstrapWeighted} {
		ci, err := Interval(context.Background(), x, y, IntervalOptions{
			Method: Bootstrap, Bootstrap: mode, Samples: 200, Confidence: 0.9,
			Rand: rand.New(rand.NewPCG(9, 9)),
		})
		require.NoError(t, err, mode)
		assert.GreaterOrEqual(t, ci.Lower, 0.0)
		assert.GreaterOrEqual(t, ci.Upper, 0.0)
	}
}

func TestDrawIndices(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 1))
	for trial := 0; trial < 200; trial++ {
		n := 1 + r.IntN(20)
		idx := DrawIndices(r, n, BootstrapDistinct)
		require.NotEmpty(t, idx)
		require.LessOrEqual(t, len(idx), n)
		seen := map[int]bool{}
		for k, i := range idx {
			require.GreaterOrEqual(t, i, 0)
			require.Less(t, i, n)
			require.False(t, seen[i], "index %d repeated", i)
			seen[i] = true
			if k > 0 {
				require.Less(t, idx[k-1], i)
			}
		}

		w := DrawIndices(r, n, BootstrapWeighted)
		require.Len(t, w, n)
	}
}

func TestIntervalPropagatesIterationFailure(t *testing.T) {
	// With two points a distinct draw collapses to a single index about half the time.
	_, err := Interval(context.Background(), []float64{1, 2}, []float64{1, 2}, IntervalOptions{
		Method: Bootstrap, Samples: 100, Rand: rand.New(rand.NewPCG(5, 6)),
	})
	var insufficient *InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Contains(t, err.Error(), "resample")

	_, err = Interval(context.Background(), []float64{1, 2}, []float64{1, 2}, IntervalOptions{
		Method: Bootstrap, Samples: 100, Workers: 3, Rand: rand.New(rand.NewPCG(5, 6)),
	})
	require.ErrorAs(t, err, &insufficient)
}

func TestIntervalValidation(t *testing.T) {
	x, y, xErr, yErr := linearSample(5)
	r := rand.New(rand.NewPCG(1, 1))
	ctx := context.Background()

	_, err := Interval(ctx, x, y, IntervalOptions{Rand: r})
	var missing *MissingParameterError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "x_err", missing.Param)

	_, err = Interval(ctx, x, y, IntervalOptions{XErr: xErr, Rand: r})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "y_err", missing.Param)

	_, err = Interval(ctx, x, y, IntervalOptions{XErr: xErr, YErr: yErr})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "rand", missing.Param)

	_, err = Interval(ctx, x, y, IntervalOptions{Method: "jackknife", Rand: r})
	var unsupported *UnsupportedMethodError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "jackknife", unsupported.Method)

	_, err = Interval(ctx, x, y, IntervalOptions{XErr: xErr[:3], YErr: yErr, Rand: r})
	var shape *ShapeMismatchError
	require.ErrorAs(t, err, &shape)
	assert.Equal(t, "x_err", shape.Field)

	_, err = Interval(ctx, x, y[:4], IntervalOptions{Method: Bootstrap, Rand: r})
	require.ErrorAs(t, err, &shape)

	_, err = Interval(ctx, x[:1], y[:1], IntervalOptions{Method: Bootstrap, Rand: r})
	var insufficient *InsufficientDataError
	require.ErrorAs(t, err, &insufficient)

	var invalid *InvalidParameterError
	_, err = Interval(ctx, x, y, IntervalOptions{Method: Bootstrap, Confidence: 1.2, Rand: r})
	require.ErrorAs(t, err, &invalid)
	_, err = Interval(ctx, x, y, IntervalOptions{Method: Bootstrap, Samples: -3, Rand: r})
	require.ErrorAs(t, err, &invalid)
	_, err = Interval(ctx, x, y, IntervalOptions{XErr: []float64{1, 1, -1, 1, 1}, YErr: yErr, Rand: r})
	require.ErrorAs(t, err, &invalid)
}

func TestIntervalCancelled(t *testing.T) {
	x, y, xErr, yErr := linearSample(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Interval(ctx, x, y, IntervalOptions{
		XErr: xErr, YErr: yErr, Samples: 10, Rand: rand.New(rand.NewPCG(1, 1)),
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MonteCarlo, m)

	m, err = ParseMethod(" Bootstrap ")
	require.NoError(t, err)
	assert.Equal(t, Bootstrap, m)

	_, err = ParseBootstrapMode("bagging")
	var unsupported *UnsupportedMethodError
	require.ErrorAs(t, err, &unsupported)
}
