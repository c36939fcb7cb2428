package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/media-admin/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.RecordRetry("GET")
	c.RecordRetry("GET")
	c.RecordSessionRefresh("success")
	c.RecordRequest("/api/projects", "GET", 200, 15*time.Millisecond)

	count, err := testutil.GatherAndCount(reg, "media_admin_client_retries_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(reg, "media_admin_http_requests_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	c.RecordWebhookTest(204)

	w := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `media_admin_webhook_tests_total{status_code="204"} 1`)
}
