package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.CallRequested("position_manager", "positions")
		m.CallSettled("position_manager", "positions", "succeeded")
		m.BatchSent("multicall", time.Millisecond)
		m.Retried()
		m.SetQueueDepth(3)
		m.ResolverPass("positions_by_owner", true, 2)
	})
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New("test")
	m.CallRequested("rent_router", "getRentalsInProgress")
	m.CallSettled("rent_router", "getRentalsInProgress", "failed")
	m.ResolverPass("active_rentals", true, 4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `test_reader_calls_requested_total{contract="rent_router",method="getRentalsInProgress"} 1`))
	assert.True(t, strings.Contains(body, `test_aggregator_records_resolved_total{resolver="active_rentals"} 4`))
}
