// Package observability provides metrics and attribute helpers.
package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds all application metrics implementing the golden 4 signals:
// - Latency: How long requests/jobs take
// - Traffic: Request/job throughput
// - Errors: Rate of failures
// - Saturation: Resource utilization (active jobs, queue depth)
type Metrics struct {
	meter metric.Meter

	// HTTP metrics (Latency, Traffic, Errors)
	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsTotal   metric.Int64Counter
	HTTPErrorsTotal     metric.Int64Counter

	// Job metrics (Latency, Traffic, Errors, Saturation)
	JobDuration    metric.Float64Histogram
	JobsTotal      metric.Int64Counter
	JobErrorsTotal metric.Int64Counter
	JobsActive     metric.Int64UpDownCounter
	JobItemsTotal  metric.Int64Counter

	// Classifier metrics. DefaultOutcomes counts items that degraded to the
	// neutral default, so silent classifier failures stay visible.
	ClassificationsTotal metric.Int64Counter
	ClassifierFailures   metric.Int64Counter
	DefaultOutcomes      metric.Int64Counter

	// History dispatcher metrics (Latency, Traffic, Errors, Saturation)
	DispatcherDuration  metric.Float64Histogram
	DispatcherDelivered metric.Int64Counter
	DispatcherFailed    metric.Int64Counter
	DispatcherDropped   metric.Int64Counter
	DispatcherRequeued  metric.Int64Counter
	DispatcherQueueSize metric.Int64Gauge
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("sentiment")
	m := &Metrics{meter: meter}

	// HTTP metrics
	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPErrorsTotal, err = meter.Int64Counter(
		"http_errors_total",
		metric.WithDescription("Total number of HTTP errors (4xx and 5xx)"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Job metrics
	m.JobDuration, err = meter.Float64Histogram(
		"job_duration_seconds",
		metric.WithDescription("Batch job execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsTotal, err = meter.Int64Counter(
		"jobs_total",
		metric.WithDescription("Total number of batch jobs submitted"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobErrorsTotal, err = meter.Int64Counter(
		"job_errors_total",
		metric.WithDescription("Total number of failed batch jobs"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsActive, err = meter.Int64UpDownCounter(
		"jobs_active",
		metric.WithDescription("Number of currently executing batch jobs (saturation)"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobItemsTotal, err = meter.Int64Counter(
		"job_items_total",
		metric.WithDescription("Total number of batch items processed"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Classifier metrics
	m.ClassificationsTotal, err = meter.Int64Counter(
		"classifications_total",
		metric.WithDescription("Total number of classifier invocations"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ClassifierFailures, err = meter.Int64Counter(
		"classifier_failures_total",
		metric.WithDescription("Total number of classifier invocation failures"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.DefaultOutcomes, err = meter.Int64Counter(
		"classifier_default_outcomes_total",
		metric.WithDescription("Total number of items that degraded to the default outcome"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Dispatcher metrics
	m.DispatcherDuration, err = meter.Float64Histogram(
		"dispatcher_duration_seconds",
		metric.WithDescription("History record delivery duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.DispatcherDelivered, err = meter.Int64Counter(
		"dispatcher_delivered_total",
		metric.WithDescription("Total number of history records delivered"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.DispatcherFailed, err = meter.Int64Counter(
		"dispatcher_failed_total",
		metric.WithDescription("Total number of history records that failed delivery after retries"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.DispatcherDropped, err = meter.Int64Counter(
		"dispatcher_dropped_total",
		metric.WithDescription("Total number of history records dropped due to full buffer"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.DispatcherRequeued, err = meter.Int64Counter(
		"dispatcher_requeued_total",
		metric.WithDescription("Total number of history records requeued due to open circuit"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.DispatcherQueueSize, err = meter.Int64Gauge(
		"dispatcher_queue_size",
		metric.WithDescription("Current number of history records queued (saturation)"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordHTTPRequest records latency, traffic, and error metrics for a request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, durationSeconds float64) {
	m.HTTPRequestDuration.Record(ctx, durationSeconds, WithMethod(method), WithPath(path))
	m.HTTPRequestsTotal.Add(ctx, 1, WithMethod(method), WithPath(path), WithStatus(status))
	if status >= 400 {
		m.HTTPErrorsTotal.Add(ctx, 1, WithMethod(method), WithPath(path), WithStatus(status))
	}
}

// RecordJobCreated records a submitted batch job.
func (m *Metrics) RecordJobCreated(ctx context.Context) {
	m.JobsTotal.Add(ctx, 1)
}

// RecordJobStarted marks a job as actively executing.
func (m *Metrics) RecordJobStarted(ctx context.Context) {
	m.JobsActive.Add(ctx, 1)
}

// RecordJobFinished records a job reaching a terminal state.
func (m *Metrics) RecordJobFinished(ctx context.Context, success bool, durationSeconds float64, items int) {
	m.JobsActive.Add(ctx, -1)
	m.JobDuration.Record(ctx, durationSeconds, WithSuccess(success))
	m.JobItemsTotal.Add(ctx, int64(items))
	if !success {
		m.JobErrorsTotal.Add(ctx, 1)
	}
}

// RecordClassification records a classifier invocation.
func (m *Metrics) RecordClassification(ctx context.Context, success bool) {
	m.ClassificationsTotal.Add(ctx, 1, WithSuccess(success))
	if !success {
		m.ClassifierFailures.Add(ctx, 1)
	}
}

// RecordDefaultOutcome records an item degrading to the default outcome.
func (m *Metrics) RecordDefaultOutcome(ctx context.Context) {
	m.DefaultOutcomes.Add(ctx, 1)
}

// RecordDispatcherDelivered records a successful history delivery.
func (m *Metrics) RecordDispatcherDelivered(ctx context.Context, durationSeconds float64) {
	m.DispatcherDelivered.Add(ctx, 1)
	m.DispatcherDuration.Record(ctx, durationSeconds)
}

// RecordDispatcherFailed records a delivery that failed after retries.
func (m *Metrics) RecordDispatcherFailed(ctx context.Context) {
	m.DispatcherFailed.Add(ctx, 1)
}

// RecordDispatcherDropped records a record dropped due to a full buffer.
func (m *Metrics) RecordDispatcherDropped(ctx context.Context) {
	m.DispatcherDropped.Add(ctx, 1)
}

// RecordDispatcherRequeued records a record requeued due to an open circuit.
func (m *Metrics) RecordDispatcherRequeued(ctx context.Context) {
	m.DispatcherRequeued.Add(ctx, 1)
}

// RecordDispatcherQueueSize records the current queue depth.
func (m *Metrics) RecordDispatcherQueueSize(ctx context.Context, size int64) {
	m.DispatcherQueueSize.Record(ctx, size)
}
