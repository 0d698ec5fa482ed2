package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	apiCounter    otelmetric.Int64Counter
	apiDuration   otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	apiCounter, _ := meter.Int64Counter(
		"api.invocations",
		otelmetric.WithDescription("Number of API invocations"),
	)

	apiDuration, _ := meter.Float64Histogram(
		"api.duration",
		otelmetric.WithDescription("API invocation duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		apiCounter:    apiCounter,
		apiDuration:   apiDuration,
	}
}

func (o *Observability) RecordAPIRequest(ctx context.Context, api, status string) {
	if o.apiCounter != nil {
		o.apiCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("api", api),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordAPIDuration(ctx context.Context, api string, duration time.Duration) {
	if o.apiDuration != nil {
		o.apiDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("api", api),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
