package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "censtau.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
service:
  log_level: debug
estimator:
  method: bootstrap
  samples: 2000
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.Service.LogLevel)
	assert.Equal(t, ":8080", c.Service.HTTPListen)
	assert.Equal(t, "bootstrap", c.Estimator.Method)
	assert.Equal(t, "distinct", c.Estimator.BootstrapMode)
	assert.Equal(t, 2000, c.Estimator.Samples)
	assert.Equal(t, 0.6826, c.Estimator.Confidence)
	assert.Equal(t, 1, c.Estimator.Workers)
	assert.Equal(t, 0.05, c.Decision.Alpha)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CENSTAU_SEED", "1234")
	t.Setenv("CENSTAU_WORKERS", "6")
	t.Setenv("CENSTAU_DATA_DIR", "/var/lib/censtau")
	c, err := Load(writeConfig(t, "estimator:\n  seed: 9\n"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), c.Estimator.Seed)
	assert.Equal(t, 6, c.Estimator.Workers)
	assert.Equal(t, "/var/lib/censtau", c.Service.DataDir)

	t.Setenv("CENSTAU_SEED", "-1")
	_, err = Load(writeConfig(t, ""))
	require.ErrorContains(t, err, "CENSTAU_SEED")
}

func TestLoadRejectsInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"method":     "estimator:\n  method: jackknife\n",
		"mode":       "estimator:\n  bootstrap_mode: bagging\n",
		"confidence": "estimator:\n  confidence: 1.5\n",
		"alpha":      "decision:\n  alpha: 2\n",
		"level":      "service:\n  log_level: loud\n",
		"yaml":       "service: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	d := Default()
	require.NoError(t, d.Validate())
	assert.Equal(t, 10000, d.Estimator.Samples)
	assert.Equal(t, "montecarlo", d.Estimator.Method)
}
