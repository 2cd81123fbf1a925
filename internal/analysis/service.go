package analysis

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/yasi-python/censtau/pkg/config"
	"github.com/yasi-python/censtau/pkg/dataset"
	"github.com/yasi-python/censtau/pkg/decision"
	"github.com/yasi-python/censtau/pkg/logger"
	"github.com/yasi-python/censtau/pkg/metrics"
	"github.com/yasi-python/censtau/pkg/stats"
	"github.com/yasi-python/censtau/pkg/storage"
)

// ErrNoStore is returned by catalog operations when the service runs without a database.
var ErrNoStore = errors.New("dataset store not configured")

// Service runs estimators with configured defaults and owns the generator
// that seeds every interval request.
type Service struct {
	cfg *config.Config
	log *logger.Logger
	db  *storage.DB

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a Service. db may be nil for one-shot use.
func New(cfg *config.Config, log *logger.Logger, db *storage.DB) *Service {
	seed := cfg.Estimator.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Service{cfg: cfg, log: log, db: db, rng: newRand(seed)}
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// IntervalRequest overrides estimator defaults for one call.
type IntervalRequest struct {
	Method        string  `json:"method,omitempty"`
	BootstrapMode string  `json:"bootstrap_mode,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
	Samples       int     `json:"samples,omitempty"`
	Seed          *uint64 `json:"seed,omitempty"`
	Workers       int     `json:"workers,omitempty"`
}

// Report is the outcome of one analysis.
type Report struct {
	Dataset  string                    `json:"dataset,omitempty"`
	N        int                       `json:"n"`
	XLimits  int                       `json:"x_limits"`
	YLimits  int                       `json:"y_limits"`
	Tau      float64                   `json:"tau"`
	P        float64                   `json:"p"`
	Interval *stats.ConfidenceInterval `json:"interval,omitempty"`
	Decision decision.Decision         `json:"decision"`
}

func (s *Service) Tau(ds *dataset.Dataset) (*Report, error) {
	if err := s.checkSize(ds); err != nil {
		metrics.TauEvaluations.WithLabelValues("error").Inc()
		return nil, err
	}
	st, err := stats.Tau(ds.X, ds.Y, ds.Censors())
	if err != nil {
		metrics.TauEvaluations.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.TauEvaluations.WithLabelValues("ok").Inc()
	r := s.report(ds, st)
	r.Decision = decision.Evaluate(decision.Input{Stat: st, Alpha: s.cfg.Decision.Alpha})
	return r, nil
}

// Interval computes tau and its resampled confidence interval.
func (s *Service) Interval(ctx context.Context, ds *dataset.Dataset, req IntervalRequest) (*Report, error) {
	opts, err := s.options(ds, req)
	if err != nil {
		return nil, err
	}
	rep, err := s.Tau(ds)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ci, err := stats.Interval(ctx, ds.X, ds.Y, opts)
	elapsed := time.Since(start)
	method := string(opts.Method)
	if err != nil {
		metrics.IntervalRuns.WithLabelValues(method, "error").Inc()
		s.log.Warn("interval_failed", "dataset", ds.Name, "method", method, "err", err)
		return nil, err
	}
	metrics.IntervalRuns.WithLabelValues(method, "ok").Inc()
	metrics.IntervalDuration.WithLabelValues(method).Observe(elapsed.Seconds())
	metrics.ResampleDraws.WithLabelValues(method).Add(float64(ci.Samples))
	s.log.Info("interval_done", "dataset", ds.Name, "method", method, "samples", ci.Samples,
		"duration_ms", elapsed.Milliseconds())

	rep.Interval = &ci
	rep.Decision = decision.Evaluate(decision.Input{
		Stat:     stats.Statistic{Tau: rep.Tau, P: rep.P, N: rep.N},
		Interval: &ci,
		Alpha:    s.cfg.Decision.Alpha,
	})
	return rep, nil
}

func (s *Service) options(ds *dataset.Dataset, req IntervalRequest) (stats.IntervalOptions, error) {
	est := s.cfg.Estimator
	methodName := req.Method
	if methodName == "" {
		methodName = est.Method
	}
	method, err := stats.ParseMethod(methodName)
	if err != nil {
		return stats.IntervalOptions{}, err
	}
	modeName := req.BootstrapMode
	if modeName == "" {
		modeName = est.BootstrapMode
	}
	mode, err := stats.ParseBootstrapMode(modeName)
	if err != nil {
		return stats.IntervalOptions{}, err
	}
	opts := stats.IntervalOptions{
		XErr:       ds.XErr,
		YErr:       ds.YErr,
		Censors:    ds.Censors(),
		Confidence: est.Confidence,
		Samples:    est.Samples,
		Method:     method,
		Bootstrap:  mode,
		Workers:    est.Workers,
	}
	if req.Confidence != 0 {
		opts.Confidence = req.Confidence
	}
	if req.Samples != 0 {
		opts.Samples = req.Samples
	}
	if req.Workers > 0 {
		opts.Workers = req.Workers
	}
	if opts.Samples > s.cfg.API.MaxSamples {
		return opts, &stats.InvalidParameterError{Param: "samples", Value: opts.Samples, Reason: "exceeds configured maximum"}
	}
	if req.Seed != nil {
		opts.Rand = newRand(*req.Seed)
	} else {
		s.mu.Lock()
		opts.Rand = rand.New(rand.NewPCG(s.rng.Uint64(), s.rng.Uint64()))
		s.mu.Unlock()
	}
	return opts, nil
}

func (s *Service) checkSize(ds *dataset.Dataset) error {
	if ds.Len() > s.cfg.API.MaxPoints {
		return &stats.InvalidParameterError{Param: "n", Value: ds.Len(), Reason: "exceeds configured maximum"}
	}
	return nil
}

func (s *Service) report(ds *dataset.Dataset, st stats.Statistic) *Report {
	xl, yl := ds.Censors().Limits()
	return &Report{Dataset: ds.Name, N: st.N, XLimits: xl, YLimits: yl, Tau: st.Tau, P: st.P}
}
