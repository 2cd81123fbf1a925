package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yasi-python/censtau/internal/analysis"
	"github.com/yasi-python/censtau/pkg/dataset"
	"github.com/yasi-python/censtau/pkg/stats"
	"github.com/yasi-python/censtau/pkg/storage"
)

const maxBodyBytes = 8 << 20

type Analyzer interface {
	Tau(ds *dataset.Dataset) (*analysis.Report, error)
	Interval(ctx context.Context, ds *dataset.Dataset, req analysis.IntervalRequest) (*analysis.Report, error)
	AnalyzeStored(ctx context.Context, name string, req analysis.IntervalRequest) (*analysis.Report, error)
	ListDatasets() ([]storage.Summary, error)
	GetDataset(name string) (*dataset.Dataset, error)
	PutDataset(ds dataset.Dataset) error
	DeleteDataset(name string) error
}

type Server struct {
	Svc         Analyzer
	MetricsPath string
	HealthzPath string
	reqInFlight atomic.Int64
}

func New(svc Analyzer, metricsPath, healthzPath string) *Server {
	return &Server{Svc: svc, MetricsPath: metricsPath, HealthzPath: healthzPath}
}

// intervalBody is a dataset plus optional estimator overrides.
type intervalBody struct {
	dataset.Dataset
	Options analysis.IntervalRequest `json:"options"`
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.HealthzPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle(s.MetricsPath, promhttp.Handler())

	mux.HandleFunc("POST /api/v1/tau", s.wrap(func(w http.ResponseWriter, r *http.Request) {
		var ds dataset.Dataset
		if !decode(w, r, &ds) {
			return
		}
		rep, err := s.Svc.Tau(&ds)
		if err != nil {
			sendErr(w, err)
			return
		}
		sendJSON(w, 200, rep)
	}))
	mux.HandleFunc("POST /api/v1/interval", s.wrap(func(w http.ResponseWriter, r *http.Request) {
		var body intervalBody
		if !decode(w, r, &body) {
			return
		}
		rep, err := s.Svc.Interval(r.Context(), &body.Dataset, body.Options)
		if err != nil {
			sendErr(w, err)
			return
		}
		sendJSON(w, 200, rep)
	}))
	mux.HandleFunc("GET /api/v1/datasets", s.wrap(func(w http.ResponseWriter, r *http.Request) {
		list, err := s.Svc.ListDatasets()
		if err != nil {
			sendErr(w, err)
			return
		}
		sendJSON(w, 200, list)
	}))
	mux.HandleFunc("GET /api/v1/datasets/{name}", s.wrap(func(w http.ResponseWriter, r *http.Request) {
		ds, err := s.Svc.GetDataset(r.PathValue("name"))
		if err != nil {
			sendErr(w, err)
			return
		}
		sendJSON(w, 200, ds)
	}))
	mux.HandleFunc("PUT /api/v1/datasets/{name}", s.wrap(func(w http.ResponseWriter, r *http.Request) {
		var ds dataset.Dataset
		if !decode(w, r, &ds) {
			return
		}
		ds.Name = r.PathValue("name")
		if err := s.Svc.PutDataset(ds); err != nil {
			sendErr(w, err)
			return
		}
		sendJSON(w, 200, okMsg("stored"))
	}))
	mux.HandleFunc("DELETE /api/v1/datasets/{name}", s.wrap(func(w http.ResponseWriter, r *http.Request) {
		if err := s.Svc.DeleteDataset(r.PathValue("name")); err != nil {
			sendErr(w, err)
			return
		}
		sendJSON(w, 200, okMsg("deleted"))
	}))
	mux.HandleFunc("POST /api/v1/datasets/{name}/interval", s.wrap(func(w http.ResponseWriter, r *http.Request) {
		var req analysis.IntervalRequest
		if r.ContentLength != 0 && !decode(w, r, &req) {
			return
		}
		rep, err := s.Svc.AnalyzeStored(r.Context(), r.PathValue("name"), req)
		if err != nil {
			sendErr(w, err)
			return
		}
		sendJSON(w, 200, rep)
	}))
	return mux
}

func (s *Server) wrap(h func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.reqInFlight.Add(1)
		defer s.reqInFlight.Add(-1)
		h(w, r)
	}
}

// InFlight reports the number of API requests being served.
func (s *Server) InFlight() int64 { return s.reqInFlight.Load() }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		sendJSON(w, 400, errMsg("bad_json: "+err.Error()))
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		shape        *stats.ShapeMismatchError
		insufficient *stats.InsufficientDataError
		missing      *stats.MissingParameterError
		unsupported  *stats.UnsupportedMethodError
		invalid      *stats.InvalidParameterError
	)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return 404
	case errors.Is(err, analysis.ErrNoStore):
		return 501
	case errors.Is(err, dataset.ErrInvalidName),
		errors.As(err, &shape), errors.As(err, &insufficient), errors.As(err, &missing),
		errors.As(err, &unsupported), errors.As(err, &invalid):
		return 400
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return 503
	}
	return 500
}

func sendErr(w http.ResponseWriter, err error) {
	sendJSON(w, statusFor(err), errMsg(err.Error()))
}

func sendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func okMsg(m string) map[string]any  { return map[string]any{"ok": true, "message": m} }
func errMsg(m string) map[string]any { return map[string]any{"ok": false, "error": m} }
