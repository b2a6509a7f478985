package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(DayCacheHits)
	misses := testutil.ToFloat64(DayCacheMisses)

	ObserveCacheLookup(true)
	ObserveCacheLookup(false)
	ObserveCacheLookup(false)

	assert.Equal(t, hits+1, testutil.ToFloat64(DayCacheHits))
	assert.Equal(t, misses+2, testutil.ToFloat64(DayCacheMisses))
}

func TestHandlerExposesWorktimeMetrics(t *testing.T) {
	PeriodsClosed.WithLabelValues("completed").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `worktime_periods_closed_total{status="completed"}`)
	assert.Contains(t, rec.Body.String(), "worktime_day_cache_hits_total")
}
