package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics("")
	b := NewMetrics("")

	a.SwapsCreated.WithLabelValues("BTC-ETH").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.SwapsCreated.WithLabelValues("BTC-ETH")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SwapsCreated.WithLabelValues("BTC-ETH")))
}

func TestRecordCommand(t *testing.T) {
	m := NewMetrics("test")

	m.RecordCommand("swap", nil)
	m.RecordCommand("swap", errors.New("nope"))
	m.RecordCommand("swap", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("swap", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("swap", "error")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordCommand("swap", nil) })
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := NewMetrics("coinkong")
	m.SwapsFinished.WithLabelValues("completed").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `coinkong_swaps_finished_total{status="completed"} 1`)
}
