package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TauEvaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "censtau_tau_evaluations_total", Help: "Censored tau requests by result",
	}, []string{"result"})
	IntervalRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "censtau_interval_runs_total", Help: "Interval estimations by method and result",
	}, []string{"method", "result"})
	IntervalDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "censtau_interval_duration_seconds",
		Help:    "Wall time of interval estimations",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"method"})
	ResampleDraws = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "censtau_resample_draws_total", Help: "Resampled datasets evaluated",
	}, []string{"method"})
	StoredDatasets = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "censtau_stored_datasets", Help: "Datasets in the catalog",
	})
)

func MustRegister() {
	prometheus.MustRegister(TauEvaluations, IntervalRuns, IntervalDuration, ResampleDraws, StoredDatasets)
}
