package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordBeforeInit_NoPanic(t *testing.T) {
	// All record functions must be safe no-ops before InitMetrics runs.
	ctx := context.Background()
	RecordHTTP(ctx, "call_tool", 200, 10, time.Millisecond)
	RecordToolCall(ctx, "youtube_download_audio", true, time.Second)
	RecordCacheLookup(ctx, "audio", true)
	RecordDownload(ctx, "audio", "success", 1024, time.Second)
	RecordTranscription(ctx, "completed", time.Minute)
	RecordSweep(ctx, 3, 4096)
}

func TestPrometheusHandler_NotEnabled(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	PrometheusHandler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusClass(t *testing.T) {
	require.Equal(t, "2xx", StatusClass(200))
	require.Equal(t, "3xx", StatusClass(302))
	require.Equal(t, "4xx", StatusClass(404))
	require.Equal(t, "5xx", StatusClass(503))
	require.Equal(t, "1xx", StatusClass(100))
}
