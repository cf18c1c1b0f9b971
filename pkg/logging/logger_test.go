package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug", "json")

	logger.Info("cleaned table",
		Component("cleaning"),
		Int("rows", 1470),
		Float("rate", 0.16),
		Duration("took", 2*time.Second),
		Strings("dropped", []string{"EmployeeCount"}),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "cleaned table", entry["message"])
	assert.Equal(t, "cleaning", entry["component"])
	assert.Equal(t, float64(1470), entry["rows"])
	assert.Equal(t, 0.16, entry["rate"])
	assert.Equal(t, "attrition-risk", entry["service"])
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Debug("hidden")
	assert.Zero(t, buf.Len())

	logger.Error("training failed", errors.New("boom"), String("run_id", "abc"))
	out := buf.String()
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"run_id":"abc"`)
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json").With(Component("api"))

	logger.Info("request")
	assert.Contains(t, buf.String(), `"component":"api"`)
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "console").Info("hello", String("k", "v"))

	out := buf.String()
	assert.True(t, strings.Contains(out, "hello"))
	assert.False(t, strings.HasPrefix(out, "{"))
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error("ignored", errors.New("x"))
	})
}
