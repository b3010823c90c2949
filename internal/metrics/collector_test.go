package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounters(t *testing.T) {
	c := New()

	c.IncSuccess(100, 10*time.Millisecond)
	c.IncSuccess(50, 5*time.Millisecond)
	c.IncFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.uploadsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.uploadsTotal.WithLabelValues("failed")))
	assert.Equal(t, 150.0, testutil.ToFloat64(c.bytesTotal))

	status := c.GetProgressTracker().GetStatus()
	assert.Equal(t, int64(2), status.SuccessFiles)
	assert.Equal(t, int64(1), status.FailedFiles)
	assert.Equal(t, int64(150), status.ProcessedBytes)
}

func TestCollectorWorkerGauge(t *testing.T) {
	c := New()
	c.WorkerStarted()
	c.WorkerStarted()
	c.WorkerStopped()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeWorkers))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := New()
	b := New()
	a.IncFailed()

	assert.Equal(t, 0.0, testutil.ToFloat64(b.uploadsTotal.WithLabelValues("failed")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.IncSuccess(1, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "baniusync_uploads_total"))
}

func TestServerRoutesMetrics(t *testing.T) {
	c := New()
	srv := c.NewServer("127.0.0.1:0")
	assert.Equal(t, "127.0.0.1:0", srv.Addr)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "baniusync_active_workers")

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
