package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return NewMetricsWith(reg, reg)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(200))
	assert.Equal(t, "3xx", StatusClass(304))
	assert.Equal(t, "4xx", StatusClass(401))
	assert.Equal(t, "5xx", StatusClass(503))
}

func TestHandler_ExposesCounters(t *testing.T) {
	m := newTestMetrics()
	m.TokenRefreshes.WithLabelValues("success").Inc()
	m.SearchesDispatched.Add(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `stockdash_token_refreshes_total{outcome="success"} 1`))
	assert.True(t, strings.Contains(body, "stockdash_searches_dispatched_total 3"))
}

func TestHealthStatus_Degraded(t *testing.T) {
	h := NewHealthStatus("sqlite")
	h.Check(context.Background(),
		func(context.Context) error { return errors.New("connection refused") },
		func(context.Context) error { return nil },
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var got struct {
		Status    string `json:"status"`
		StoreKind string `json:"store_kind"`
		StoreOK   bool   `json:"store_ok"`
	}
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "degraded", got.Status)
	assert.Equal(t, "sqlite", got.StoreKind)
	assert.True(t, got.StoreOK)
}

func TestHealthStatus_Healthy(t *testing.T) {
	h := NewHealthStatus("file")
	ok := func(context.Context) error { return nil }
	h.Check(context.Background(), ok, ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
