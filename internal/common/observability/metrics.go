package observability

import (
	"context"
	"time"

	"contact-sync/internal/common/logger"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	runCounter    otelmetric.Int64Counter
	runDuration   otelmetric.Float64Histogram
	recordCounter otelmetric.Int64Counter
	log           logger.Logger
}

// New registers an OpenTelemetry meter exporting through the default Prometheus registry.
func New(serviceName string, log logger.Logger) *Observability {
	return NewWithRegisterer(serviceName, promclient.DefaultRegisterer, log)
}

func NewWithRegisterer(serviceName string, reg promclient.Registerer, log logger.Logger) *Observability {
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		log.Warn("Failed to create Prometheus exporter, OpenTelemetry metrics disabled", map[string]interface{}{
			"error": err.Error(),
		})
		return &Observability{log: log}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	runCounter, _ := meter.Int64Counter(
		"sync.runs",
		otelmetric.WithDescription("Number of sync invocations"),
	)

	runDuration, _ := meter.Float64Histogram(
		"sync.run.duration",
		otelmetric.WithDescription("Sync invocation duration"),
		otelmetric.WithUnit("ms"),
	)

	recordCounter, _ := meter.Int64Counter(
		"sync.records",
		otelmetric.WithDescription("Number of records processed"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		runCounter:    runCounter,
		runDuration:   runDuration,
		recordCounter: recordCounter,
		log:           log,
	}
}

func (o *Observability) RecordRun(ctx context.Context, outcome string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, attrs)
	}
	if o.runDuration != nil {
		o.runDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordRecord(ctx context.Context, outcome, step string) {
	if o.recordCounter != nil {
		o.recordCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.String("step", step),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.meterProvider.Shutdown(ctx); err != nil && o.log != nil {
			o.log.Warn("Failed to shut down meter provider", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
