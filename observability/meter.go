package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/gfnkit/logger"
)

// Metric instrument names.
const (
	MetricMergeTotal    = "gfn.merge.total"
	MetricMergeDuration = "gfn.merge.duration"
	MetricMergeStages   = "gfn.merge.stages"
	MetricImportTotal   = "gfn.import.total"
	MetricErrorTotal    = "gfn.error.total"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The provider should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by graph function operations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	mergeTotal    metric.Int64Counter
	mergeDuration metric.Float64Histogram
	mergeStages   metric.Int64Histogram
	importTotal   metric.Int64Counter
	errorTotal    metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	mergeTotal, err := meter.Int64Counter(MetricMergeTotal,
		metric.WithDescription("Total number of graph function merges"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricMergeTotal, err)
	}

	mergeDuration, err := meter.Float64Histogram(MetricMergeDuration,
		metric.WithDescription("Duration of graph function merges in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricMergeDuration, err)
	}

	mergeStages, err := meter.Int64Histogram(MetricMergeStages,
		metric.WithDescription("Number of stages per merge"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricMergeStages, err)
	}

	importTotal, err := meter.Int64Counter(MetricImportTotal,
		metric.WithDescription("Total number of graph function imports into a session"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricImportTotal, err)
	}

	errorTotal, err := meter.Int64Counter(MetricErrorTotal,
		metric.WithDescription("Total errors by kind and operation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricErrorTotal, err)
	}

	return &Metrics{
		mergeTotal:    mergeTotal,
		mergeDuration: mergeDuration,
		mergeStages:   mergeStages,
		importTotal:   importTotal,
		errorTotal:    errorTotal,
	}, nil
}

// RecordMerge records a completed merge attempt.
func (m *Metrics) RecordMerge(ctx context.Context, stages int, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.mergeTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.mergeDuration.Record(ctx, duration.Seconds())
	m.mergeStages.Record(ctx, int64(stages))
}

// RecordImport records one graph function imported into a session.
func (m *Metrics) RecordImport(ctx context.Context, phase string) {
	if m == nil {
		return
	}
	m.importTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("phase", phase)))
}

// RecordError records an error by kind and operation.
func (m *Metrics) RecordError(ctx context.Context, kind, operation string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("operation", operation),
	))
}
