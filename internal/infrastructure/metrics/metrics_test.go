package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStats(t *testing.T) {
	// Arrange
	m := New(prometheus.NewRegistry())

	// Act
	m.RecordStats(map[string]int{
		"trans_match":         3,
		"order_unmatch":       2,
		"misc_charge":         1,
		"adjust_itemized_tax": 2,
		"budget_exceeded":     1,
		"new_tag":             4,
		"retag":               0,
	})

	// Assert
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Stats.WithLabelValues("trans_match")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Stats.WithLabelValues("new_tag")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Matches.WithLabelValues("transaction_matched")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Matches.WithLabelValues("order_unmatched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Repairs.WithLabelValues("misc_charge")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Repairs.WithLabelValues("adjust_itemized_tax")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BudgetExceeded))
	assert.Equal(t, 6, testutil.CollectAndCount(m.Stats))
}

func TestRecordUpdateAndRun(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordUpdate(nil)
	m.RecordUpdate(nil)
	m.RecordUpdate(errors.New("boom"))
	m.ObserveRun(2*time.Second, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Updates.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Updates.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RunDuration))
}

func TestNew_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)
	second := New(reg)

	first.RecordUpdate(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(second.Updates.WithLabelValues("success")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordStats(map[string]int{"trans_match": 1})
		m.RecordUpdate(nil)
		m.ObserveRun(time.Second, nil)
		m.ObserveHTTP(http.MethodGet, "/health", 200, time.Millisecond)
	})
}

func TestHandler(t *testing.T) {
	// Arrange
	m := New(prometheus.NewRegistry())
	m.ObserveHTTP(http.MethodGet, "/api/runs", 200, 12*time.Millisecond)

	// Act
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Assert
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `amazon_tagger_http_requests_total{method="GET",route="/api/runs",status="200"} 1`)
}
