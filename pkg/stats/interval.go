package stats

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Method selects how resampled datasets are produced.
type Method string

const (
	MonteCarlo Method = "montecarlo"
	Bootstrap  Method = "bootstrap"
)

// BootstrapMode selects how bootstrap index draws are used.
type BootstrapMode string

const (
	// BootstrapDistinct reduces each draw to its distinct indices, so every
	// subsample has at most n points and usually fewer.
	BootstrapDistinct BootstrapMode = "distinct"
	// BootstrapWeighted keeps repeated indices, the textbook bootstrap.
	BootstrapWeighted BootstrapMode = "weighted"
)

const (
	DefaultConfidence = 0.6826
	DefaultSamples    = 10000
)

// ParseMethod maps a method name to a Method. The empty string selects MonteCarlo.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MonteCarlo:
		return MonteCarlo, nil
	case Bootstrap:
		return Bootstrap, nil
	}
	return "", &UnsupportedMethodError{Method: s}
}

// ParseBootstrapMode maps a mode name to a BootstrapMode. The empty string selects BootstrapDistinct.
func ParseBootstrapMode(s string) (BootstrapMode, error) {
	switch BootstrapMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", BootstrapDistinct:
		return BootstrapDistinct, nil
	case BootstrapWeighted:
		return BootstrapWeighted, nil
	}
	return "", &UnsupportedMethodError{Method: "bootstrap mode " + s}
}

// IntervalOptions configures Interval. Zero values select the defaults.
type IntervalOptions struct {
	// XErr and YErr are per-point standard deviations, required by MonteCarlo.
	XErr, YErr []float64
	Censors    Censors
	// Confidence is the two-sided probability mass of the interval.
	Confidence float64
	Samples    int
	Method     Method
	Bootstrap  BootstrapMode
	// Rand drives every draw. Required.
	Rand *rand.Rand
	// Workers bounds the number of iterations evaluated concurrently.
	Workers int
}

// ConfidenceInterval summarises the resampled tau distribution. Lower and
// Upper are half-widths around Median, not endpoints.
type ConfidenceInterval struct {
	Lower   float64 `json:"lower"`
	Upper   float64 `json:"upper"`
	Median  float64 `json:"median"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Samples int     `json:"samples"`
	Method  Method  `json:"method"`
}

// Interval estimates the uncertainty of Tau by recomputing it on opts.Samples
// perturbed (MonteCarlo) or resampled (Bootstrap) copies of the data and
// taking quantiles at 0.5-c/2, 0.5 and 0.5+c/2 of the resulting values.
//
// One seed pair per iteration is drawn from opts.Rand in iteration order
// before any work starts, so the result for a given generator state does not
// depend on Workers. Any iteration failure aborts the call.
func Interval(ctx context.Context, x, y []float64, opts IntervalOptions) (ConfidenceInterval, error) {
	opts, err := opts.normalize()
	if err != nil {
		return ConfidenceInterval{}, err
	}
	n := len(x)
	if len(y) != n {
		return ConfidenceInterval{}, &ShapeMismatchError{Field: "y", Want: n, Got: len(y)}
	}
	if err := opts.Censors.validate(n); err != nil {
		return ConfidenceInterval{}, err
	}
	if n < 2 {
		return ConfidenceInterval{}, &InsufficientDataError{N: n}
	}
	if err := checkFinite("x", x); err != nil {
		return ConfidenceInterval{}, err
	}
	if err := checkFinite("y", y); err != nil {
		return ConfidenceInterval{}, err
	}
	if opts.Method == MonteCarlo {
		if err := checkErrors(n, opts.XErr, opts.YErr); err != nil {
			return ConfidenceInterval{}, err
		}
	}

	seeds := make([][2]uint64, opts.Samples)
	for i := range seeds {
		seeds[i] = [2]uint64{opts.Rand.Uint64(), opts.Rand.Uint64()}
	}

	taus := make([]float64, opts.Samples)
	draw := func(i int) error {
		r := rand.New(rand.NewPCG(seeds[i][0], seeds[i][1]))
		var (
			st  Statistic
			err error
		)
		switch opts.Method {
		case Bootstrap:
			st, err = bootstrapDraw(r, x, y, opts.Censors, opts.Bootstrap)
		default:
			st, err = monteCarloDraw(r, x, y, opts.XErr, opts.YErr, opts.Censors)
		}
		if err != nil {
			return fmt.Errorf("resample %d: %w", i, err)
		}
		taus[i] = st.Tau
		return nil
	}

	if opts.Workers <= 1 {
		for i := range taus {
			if err := ctx.Err(); err != nil {
				return ConfidenceInterval{}, err
			}
			if err := draw(i); err != nil {
				return ConfidenceInterval{}, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for i := range taus {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return draw(i)
			})
		}
		if err := g.Wait(); err != nil {
			return ConfidenceInterval{}, err
		}
		if err := ctx.Err(); err != nil {
			return ConfidenceInterval{}, err
		}
	}

	half := opts.Confidence / 2
	q := Quantiles(taus, 0.5-half, 0.5, 0.5+half)
	mean, std := stat.MeanStdDev(taus, nil)
	if opts.Samples < 2 {
		std = 0
	}
	return ConfidenceInterval{
		Lower:   math.Max(0, q[1]-q[0]),
		Upper:   math.Max(0, q[2]-q[1]),
		Median:  q[1],
		Mean:    mean,
		StdDev:  std,
		Samples: opts.Samples,
		Method:  opts.Method,
	}, nil
}

func (o IntervalOptions) normalize() (IntervalOptions, error) {
	method, err := ParseMethod(string(o.Method))
	if err != nil {
		return o, err
	}
	o.Method = method
	mode, err := ParseBootstrapMode(string(o.Bootstrap))
	if err != nil {
		return o, err
	}
	o.Bootstrap = mode
	if o.Confidence == 0 {
		o.Confidence = DefaultConfidence
	}
	if !(o.Confidence > 0 && o.Confidence < 1) {
		return o, &InvalidParameterError{Param: "confidence", Value: o.Confidence, Reason: "must be in (0, 1)"}
	}
	if o.Samples == 0 {
		o.Samples = DefaultSamples
	}
	if o.Samples < 0 {
		return o, &InvalidParameterError{Param: "samples", Value: o.Samples, Reason: "must be positive"}
	}
	if o.Rand == nil {
		return o, &MissingParameterError{Param: "rand", Method: o.Method}
	}
	if o.Method == MonteCarlo {
		if o.XErr == nil {
			return o, &MissingParameterError{Param: "x_err", Method: o.Method}
		}
		if o.YErr == nil {
			return o, &MissingParameterError{Param: "y_err", Method: o.Method}
		}
	}
	return o, nil
}

func checkErrors(n int, xErr, yErr []float64) error {
	for _, e := range []struct {
		field string
		v     []float64
	}{{"x_err", xErr}, {"y_err", yErr}} {
		if len(e.v) != n {
			return &ShapeMismatchError{Field: e.field, Want: n, Got: len(e.v)}
		}
		for i, s := range e.v {
			if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
				return &InvalidParameterError{Param: fmt.Sprintf("%s[%d]", e.field, i), Value: s, Reason: "must be finite and non-negative"}
			}
		}
	}
	return nil
}

func checkFinite(field string, v []float64) error {
	for i, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &InvalidParameterError{Param: fmt.Sprintf("%s[%d]", field, i), Value: f, Reason: "must be finite"}
		}
	}
	return nil
}

// monteCarloDraw adds independent Gaussian noise to every value. Censoring
// flags are kept as they are.
func monteCarloDraw(r *rand.Rand, x, y, xErr, yErr []float64, c Censors) (Statistic, error) {
	xs := make([]float64, len(x))
	ys := make([]float64, len(y))
	for i := range x {
		xs[i] = distuv.Normal{Mu: x[i], Sigma: xErr[i], Src: r}.Rand()
	}
	for i := range y {
		ys[i] = distuv.Normal{Mu: y[i], Sigma: yErr[i], Src: r}.Rand()
	}
	return Tau(xs, ys, c)
}

func bootstrapDraw(r *rand.Rand, x, y []float64, c Censors, mode BootstrapMode) (Statistic, error) {
	idx := DrawIndices(r, len(x), mode)
	xs := make([]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = y[j]
	}
	return Tau(xs, ys, c.Subset(idx))
}

// DrawIndices draws n indices uniformly from [0, n) with replacement. In
// BootstrapDistinct mode the draw is reduced to its sorted distinct values.
func DrawIndices(r *rand.Rand, n int, mode BootstrapMode) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = r.IntN(n)
	}
	if mode == BootstrapWeighted {
		return idx
	}
	slices.Sort(idx)
	return slices.Compact(idx)
}
