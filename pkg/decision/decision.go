package decision

import (
	"github.com/yasi-python/censtau/pkg/stats"
)

type Input struct {
	Stat     stats.Statistic
	Interval *stats.ConfidenceInterval
	Alpha    float64
}

type Verdict string

const (
	VerdictNone      Verdict = "no_association"
	VerdictPositive  Verdict = "positive"
	VerdictNegative  Verdict = "negative"
	VerdictUncertain Verdict = "uncertain"
)

type Decision struct {
	Verdict              Verdict `json:"verdict"`
	Significant          bool    `json:"significant"`
	IntervalExcludesZero *bool   `json:"interval_excludes_zero,omitempty"`
	Reason               string  `json:"reason"`
}

// Evaluate classifies a tau estimate. The p-value decides significance; when
// an interval is supplied, tau-Lower..tau+Upper must also exclude zero.
func Evaluate(in Input) Decision {
	s := in.Stat
	sig := s.P < in.Alpha
	d := Decision{Significant: sig}

	if in.Interval != nil {
		lo := s.Tau - in.Interval.Lower
		hi := s.Tau + in.Interval.Upper
		excl := lo > 0 || hi < 0
		d.IntervalExcludesZero = &excl
		if sig && !excl {
			d.Verdict, d.Reason = VerdictUncertain, "interval_spans_zero"
			return d
		}
		if !sig && excl {
			d.Verdict, d.Reason = VerdictUncertain, "p_above_alpha"
			return d
		}
	}
	switch {
	case !sig:
		d.Verdict, d.Reason = VerdictNone, "p_above_alpha"
	case s.Tau > 0:
		d.Verdict, d.Reason = VerdictPositive, "significant"
	case s.Tau < 0:
		d.Verdict, d.Reason = VerdictNegative, "significant"
	default:
		d.Verdict, d.Reason = VerdictNone, "zero_tau"
	}
	return d
}
