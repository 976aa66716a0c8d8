package cmdlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"personalens/internal/logging"
	"personalens/internal/metrics"
)

func TestRunLogsAndCounts(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	t.Cleanup(func() { logging.SetOutput(nil) })

	runs := counterValue(t, metrics.CommandRuns.WithLabelValues("cmdlog_test"))
	errs := counterValue(t, metrics.CommandErrors.WithLabelValues("cmdlog_test"))

	require.NoError(t, Run("cmdlog_test", func() error { return nil }))
	boom := errors.New("boom")
	require.ErrorIs(t, Run("cmdlog_test", func() error { return boom }), boom)

	require.Equal(t, runs+2, counterValue(t, metrics.CommandRuns.WithLabelValues("cmdlog_test")))
	require.Equal(t, errs+1, counterValue(t, metrics.CommandErrors.WithLabelValues("cmdlog_test")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var last struct {
		Level   string         `json:"level"`
		Message string         `json:"message"`
		Fields  map[string]any `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &last))
	require.Equal(t, "error", last.Level)
	require.Equal(t, "cmdlog_test_error", last.Message)
	require.Equal(t, "boom", last.Fields["error"])
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
