package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasi-python/censtau/internal/analysis"
	"github.com/yasi-python/censtau/pkg/config"
	"github.com/yasi-python/censtau/pkg/logger"
	"github.com/yasi-python/censtau/pkg/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Estimator.Samples = 100
	cfg.Estimator.Seed = 5
	db, err := storage.Open(filepath.Join(t.TempDir(), "db.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	srv := New(analysis.New(cfg, logger.Nop(), db), cfg.Service.MetricsPath, cfg.Service.HealthzPath)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body == "" {
		req.Body = http.NoBody
		req.ContentLength = 0
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestTauEndpoint(t *testing.T) {
	ts := newTestServer(t)
	code, out := do(t, ts, "POST", "/api/v1/tau", `{"x":[1,2,3,4,5],"y":[2,1,4,3,5]}`)
	require.Equal(t, 200, code)
	assert.InDelta(t, 0.6, out["tau"], 1e-12)
	assert.EqualValues(t, 5, out["n"])

	code, out = do(t, ts, "POST", "/api/v1/tau", `{"x":[1,2,3],"y":[1,2]}`)
	assert.Equal(t, 400, code)
	assert.Contains(t, out["error"], "shape mismatch")

	code, _ = do(t, ts, "POST", "/api/v1/tau", `{"x":[1],"y":[1]}`)
	assert.Equal(t, 400, code)

	code, out = do(t, ts, "POST", "/api/v1/tau", `{"x":[1,2],"y":[1,2],"z":1}`)
	assert.Equal(t, 400, code)
	assert.Contains(t, out["error"], "bad_json")
}

func TestIntervalEndpoint(t *testing.T) {
	ts := newTestServer(t)
	body := `{"x":[1,2,3,4,5,6,7,8],"y":[1,3,2,5,4,6,8,7],
		"x_err":[0.5,0.5,0.5,0.5,0.5,0.5,0.5,0.5],"y_err":[0.5,0.5,0.5,0.5,0.5,0.5,0.5,0.5],
		"y_detected":[true,true,false,true,true,true,true,true],
		"options":{"samples":64,"seed":3}}`
	code, out := do(t, ts, "POST", "/api/v1/interval", body)
	require.Equal(t, 200, code, out)
	ci, ok := out["interval"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 64, ci["samples"])
	assert.Equal(t, "montecarlo", ci["method"])
	assert.GreaterOrEqual(t, ci["lower"], 0.0)
	assert.GreaterOrEqual(t, ci["upper"], 0.0)

	code, again := do(t, ts, "POST", "/api/v1/interval", body)
	require.Equal(t, 200, code)
	assert.Equal(t, out, again)

	code, out = do(t, ts, "POST", "/api/v1/interval", `{"x":[1,2,3],"y":[1,2,3]}`)
	assert.Equal(t, 400, code)
	assert.Contains(t, out["error"], "x_err")

	code, out = do(t, ts, "POST", "/api/v1/interval", `{"x":[1,2,3],"y":[1,2,3],"options":{"method":"jackknife"}}`)
	assert.Equal(t, 400, code)
	assert.Contains(t, out["error"], "unsupported method")
}

func TestDatasetEndpoints(t *testing.T) {
	ts := newTestServer(t)

	code, _ := do(t, ts, "PUT", "/api/v1/datasets/quasars", `{"x":[1,2,3,4,5,6],"y":[2,1,4,3,6,5]}`)
	require.Equal(t, 200, code)

	resp, err := http.Get(ts.URL + "/api/v1/datasets")
	require.NoError(t, err)
	var list []storage.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list, 1)
	assert.Equal(t, "quasars", list[0].Name)
	assert.Equal(t, 6, list[0].N)

	code, out := do(t, ts, "GET", "/api/v1/datasets/quasars", "")
	require.Equal(t, 200, code)
	assert.Equal(t, "quasars", out["name"])

	code, out = do(t, ts, "POST", "/api/v1/datasets/quasars/interval", `{"method":"bootstrap","bootstrap_mode":"weighted","samples":50,"seed":1}`)
	require.Equal(t, 200, code, out)
	assert.Equal(t, "quasars", out["dataset"])

	code, out = do(t, ts, "POST", "/api/v1/datasets/quasars/interval", "")
	require.Equal(t, 400, code)
	assert.Contains(t, out["error"], "missing parameter")

	code, _ = do(t, ts, "PUT", "/api/v1/datasets/bad%20name", `{"x":[1,2],"y":[1,2]}`)
	assert.Equal(t, 400, code)

	code, _ = do(t, ts, "DELETE", "/api/v1/datasets/quasars", "")
	require.Equal(t, 200, code)
	code, _ = do(t, ts, "GET", "/api/v1/datasets/quasars", "")
	assert.Equal(t, 404, code)
}

func TestHealthzAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
