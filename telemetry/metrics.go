// Package telemetry provides OpenTelemetry metrics for the media cache and
// transcription pipeline, with Prometheus and optional OTLP export.
package telemetry

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

const meterName = "github.com/amotivv/youtube-tools-llm-context"

// MetricsConfig configures the metrics system.
type MetricsConfig struct {
	// ServiceName is the name of the service for resource attributes.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g., "localhost:4317").
	// If empty, OTLP export is disabled.
	OTLPEndpoint string

	// EnablePrometheus enables the Prometheus /metrics endpoint.
	EnablePrometheus bool

	// FlushInterval is how often to export metrics (default: 10s).
	FlushInterval time.Duration
}

// Metrics holds the OpenTelemetry metric instruments.
type Metrics struct {
	requestsTotal      metric.Int64Counter
	responseBytesTotal metric.Int64Counter
	requestDuration    metric.Float64Histogram

	toolCallsTotal   metric.Int64Counter
	toolCallDuration metric.Float64Histogram

	cacheLookupsTotal metric.Int64Counter
	downloadsTotal    metric.Int64Counter
	downloadBytes     metric.Int64Counter
	downloadDuration  metric.Float64Histogram

	transcriptionJobsTotal metric.Int64Counter
	transcriptionDuration  metric.Float64Histogram

	sweepRemovedTotal metric.Int64Counter
	sweepBytesFreed   metric.Int64Counter

	meterProvider *sdkmetric.MeterProvider
	promHandler   http.Handler
}

var (
	globalMetrics *Metrics
	initOnce      sync.Once
	initErr       error
)

// InitMetrics initializes the OpenTelemetry metrics system.
// Returns a shutdown function that should be called on application exit.
// Uses sync.Once to ensure single initialisation.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (shutdown func(context.Context) error, err error) {
	initOnce.Do(func() {
		initErr = doInitMetrics(ctx, cfg)
	})

	if initErr != nil {
		return nil, initErr
	}

	return shutdownMetrics, nil
}

func doInitMetrics(ctx context.Context, cfg MetricsConfig) error {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "youtube-tools"
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return err
	}

	var readers []sdkmetric.Reader
	var promHandler http.Handler

	if cfg.OTLPEndpoint != "" {
		otlpExporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return err
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(otlpExporter,
			sdkmetric.WithInterval(cfg.FlushInterval),
		))
	}

	if cfg.EnablePrometheus {
		promExp, err := promexporter.New()
		if err != nil {
			return err
		}
		readers = append(readers, promExp)
		promHandler = promhttp.Handler()
	}

	// Still collect metrics when no exporters are configured.
	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewPeriodicReader(noopExporter{},
			sdkmetric.WithInterval(cfg.FlushInterval),
		))
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)

	meter := mp.Meter(meterName)

	requestsTotal, err := meter.Int64Counter(
		"youtube_tools_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	responseBytesTotal, err := meter.Int64Counter(
		"youtube_tools_http_response_bytes_total",
		metric.WithDescription("Total bytes sent in HTTP responses"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	requestDuration, err := meter.Float64Histogram(
		"youtube_tools_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return err
	}

	toolCallsTotal, err := meter.Int64Counter(
		"youtube_tools_tool_calls_total",
		metric.WithDescription("Total number of tool invocations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	toolCallDuration, err := meter.Float64Histogram(
		"youtube_tools_tool_call_duration_seconds",
		metric.WithDescription("Tool invocation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return err
	}

	cacheLookupsTotal, err := meter.Int64Counter(
		"youtube_tools_cache_lookups_total",
		metric.WithDescription("Cache lookups by result (hit or miss)"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return err
	}

	downloadsTotal, err := meter.Int64Counter(
		"youtube_tools_downloads_total",
		metric.WithDescription("External extraction attempts by outcome"),
		metric.WithUnit("{download}"),
	)
	if err != nil {
		return err
	}

	downloadBytes, err := meter.Int64Counter(
		"youtube_tools_download_bytes_total",
		metric.WithDescription("Total bytes written by completed extractions"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	downloadDuration, err := meter.Float64Histogram(
		"youtube_tools_download_duration_seconds",
		metric.WithDescription("External extraction duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 15, 30, 60, 120, 300, 600, 1200),
	)
	if err != nil {
		return err
	}

	transcriptionJobsTotal, err := meter.Int64Counter(
		"youtube_tools_transcription_jobs_total",
		metric.WithDescription("Transcription jobs by outcome"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return err
	}

	transcriptionDuration, err := meter.Float64Histogram(
		"youtube_tools_transcription_duration_seconds",
		metric.WithDescription("Wall-clock transcription duration including polling"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(5, 15, 30, 60, 120, 300, 600, 1200, 1800),
	)
	if err != nil {
		return err
	}

	sweepRemovedTotal, err := meter.Int64Counter(
		"youtube_tools_sweep_removed_total",
		metric.WithDescription("Cache entries removed by the retention sweep"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	sweepBytesFreed, err := meter.Int64Counter(
		"youtube_tools_sweep_bytes_freed_total",
		metric.WithDescription("Bytes freed by the retention sweep"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	globalMetrics = &Metrics{
		requestsTotal:          requestsTotal,
		responseBytesTotal:     responseBytesTotal,
		requestDuration:        requestDuration,
		toolCallsTotal:         toolCallsTotal,
		toolCallDuration:       toolCallDuration,
		cacheLookupsTotal:      cacheLookupsTotal,
		downloadsTotal:         downloadsTotal,
		downloadBytes:          downloadBytes,
		downloadDuration:       downloadDuration,
		transcriptionJobsTotal: transcriptionJobsTotal,
		transcriptionDuration:  transcriptionDuration,
		sweepRemovedTotal:      sweepRemovedTotal,
		sweepBytesFreed:        sweepBytesFreed,
		meterProvider:          mp,
		promHandler:            promHandler,
	}

	return nil
}

// shutdownMetrics shuts down the metrics provider and clears the global state.
func shutdownMetrics(ctx context.Context) error {
	if globalMetrics == nil {
		return nil
	}
	err := globalMetrics.meterProvider.Shutdown(ctx)
	globalMetrics = nil
	return err
}

// RecordHTTP records HTTP request metrics.
// Call this from the logging middleware after the request completes.
func RecordHTTP(ctx context.Context, endpoint string, status int, bytesSent int64, duration time.Duration) {
	if globalMetrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("endpoint", endpoint),
		attribute.String("status_class", StatusClass(status)),
	}
	globalMetrics.requestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	globalMetrics.responseBytesTotal.Add(ctx, bytesSent, metric.WithAttributes(attrs...))
	globalMetrics.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolCall records a tool invocation and its outcome.
func RecordToolCall(ctx context.Context, tool string, success bool, duration time.Duration) {
	if globalMetrics == nil {
		return
	}

	outcome := "success"
	if !success {
		outcome = "failure"
	}
	attrs := []attribute.KeyValue{
		attribute.String("tool", tool),
		attribute.String("outcome", outcome),
	}
	globalMetrics.toolCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	globalMetrics.toolCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCacheLookup records a cache hit or miss for a kind.
func RecordCacheLookup(ctx context.Context, kind string, hit bool) {
	if globalMetrics == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}
	globalMetrics.cacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("result", result),
	))
}

// RecordDownload records an external extraction attempt.
func RecordDownload(ctx context.Context, kind, outcome string, bytes int64, duration time.Duration) {
	if globalMetrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	}
	globalMetrics.downloadsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	globalMetrics.downloadDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if bytes > 0 {
		globalMetrics.downloadBytes.Add(ctx, bytes, metric.WithAttributes(attrs...))
	}
}

// RecordTranscription records a transcription job outcome.
func RecordTranscription(ctx context.Context, outcome string, duration time.Duration) {
	if globalMetrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("outcome", outcome),
	}
	globalMetrics.transcriptionJobsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	globalMetrics.transcriptionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSweep records the outcome of a retention sweep pass.
func RecordSweep(ctx context.Context, removed int, bytesFreed int64) {
	if globalMetrics == nil {
		return
	}

	globalMetrics.sweepRemovedTotal.Add(ctx, int64(removed))
	globalMetrics.sweepBytesFreed.Add(ctx, bytesFreed)
}

// PrometheusHandler returns the Prometheus metrics HTTP handler.
// Returns a handler that returns 404 if Prometheus export is not enabled,
// allowing safe registration regardless of initialization order.
func PrometheusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if globalMetrics == nil || globalMetrics.promHandler == nil {
			http.NotFound(w, r)
			return
		}
		globalMetrics.promHandler.ServeHTTP(w, r)
	})
}

// StatusClass buckets an HTTP status code into 2xx/3xx/4xx/5xx.
func StatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "1xx"
	}
}

type noopExporter struct{}

func (noopExporter) Temporality(_ sdkmetric.InstrumentKind) metricdata.Temporality {
	return metricdata.CumulativeTemporality
}

func (noopExporter) Aggregation(_ sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return nil
}

func (noopExporter) Export(_ context.Context, _ *metricdata.ResourceMetrics) error {
	return nil
}

func (noopExporter) ForceFlush(_ context.Context) error {
	return nil
}

func (noopExporter) Shutdown(_ context.Context) error {
	return nil
}
