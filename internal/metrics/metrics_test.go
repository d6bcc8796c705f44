package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveFetch(t *testing.T) {
	m := New()

	m.ObserveFetch(time.Now(), nil)
	m.ObserveFetch(time.Now(), nil)
	m.ObserveFetch(time.Now(), errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CatalogRequests.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogRequests.WithLabelValues("failed")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveFetch(time.Now(), nil)
	m.StaleDropped()
	m.SetSessions(3)
}

func TestHandler(t *testing.T) {
	m := New()
	m.StaleDropped()
	m.SetSessions(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "moviesearch_stale_responses_total 1")
	assert.Contains(t, rec.Body.String(), "moviesearch_sessions_active 2")
}
