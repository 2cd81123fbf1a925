package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("warn", &buf)
	l.Info("skipped")
	l.Warn("interval_failed", "method", "bootstrap", "err", errors.New("boom"), 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "interval_failed", entry["msg"])
	assert.Equal(t, "bootstrap", entry["method"])
	assert.Equal(t, "boom", entry["err"])
	assert.NotEmpty(t, entry["ts"])
}

func TestLoggerUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("chatty", &buf)
	l.Debug("hidden")
	l.Info("shown")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}
