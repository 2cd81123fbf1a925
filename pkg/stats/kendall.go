package stats

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"
)

// Statistic is a censored Kendall tau with its asymptotic two-sided p-value.
type Statistic struct {
	Tau float64 `json:"tau"`
	P   float64 `json:"p"`
	N   int     `json:"n"`
}

// Tau computes Kendall's tau for paired data containing upper limits,
// following Akritas & Siebert (1996), MNRAS 278, 919. Pass Uncensored()
// when every value is a detection; the result is then the classical tau.
//
// Values are negated so that upper limits become right-censored: a limit
// only orders below a point whose negated value is larger.
func Tau(x, y []float64, c Censors) (Statistic, error) {
	n := len(x)
	if len(y) != n {
		return Statistic{}, &ShapeMismatchError{Field: "y", Want: n, Got: len(y)}
	}
	if err := c.validate(n); err != nil {
		return Statistic{}, err
	}
	if n < 2 {
		return Statistic{}, &InsufficientDataError{N: n}
	}
	if err := checkNaN("x", x); err != nil {
		return Statistic{}, err
	}
	if err := checkNaN("y", y); err != nil {
		return Statistic{}, err
	}

	sum := 0
	for j := 1; j < n; j++ {
		for i := 0; i < j; i++ {
			sum += concordance(x, c.x, i, j) * concordance(y, c.y, i, j)
		}
	}
	pairs := float64(n) * float64(n-1) / 2
	tau := float64(sum) / pairs

	// Null-hypothesis variance of tau; p = 1 - erf(|tau|/sqrt(2 var)).
	variance := 2 * float64(2*n+5) / (9 * float64(n) * float64(n-1))
	p := 2 * distuv.UnitNormal.Survival(math.Abs(tau)/math.Sqrt(variance))

	return Statistic{Tau: tau, P: p, N: n}, nil
}

// concordance returns +1, -1 or 0 for the ordering of points i and j in
// negated space. A censored point contributes nothing on the side where
// its true value is unknown.
func concordance(v []float64, detected []bool, i, j int) int {
	ti, tj := -v[i], -v[j]
	c := 0
	if ti < tj {
		c += weight(detected, i)
	}
	if tj < ti {
		c -= weight(detected, j)
	}
	return c
}

func checkNaN(field string, v []float64) error {
	for i, f := range v {
		if math.IsNaN(f) {
			return &InvalidParameterError{Param: field, Value: f, Reason: "NaN at index " + strconv.Itoa(i)}
		}
	}
	return nil
}
