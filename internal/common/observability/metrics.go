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
	meterProvider   *metric.MeterProvider
	meter           otelmetric.Meter
	requestCounter  otelmetric.Int64Counter
	requestDuration otelmetric.Float64Histogram
	fanOutWidth     otelmetric.Int64Histogram
}

// New registers an OpenTelemetry meter provider exported through the
// Prometheus default registry. A failing exporter degrades to a no-op
// instance rather than stopping the process.
func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return newWithProvider(provider, serviceName)
}

func newWithProvider(provider *metric.MeterProvider, serviceName string) *Observability {
	meter := provider.Meter(serviceName)

	requestCounter, _ := meter.Int64Counter(
		"dashboard.requests.processed",
		otelmetric.WithDescription("Number of dashboard queries processed"),
	)

	requestDuration, _ := meter.Float64Histogram(
		"dashboard.requests.duration",
		otelmetric.WithDescription("Dashboard query processing duration"),
		otelmetric.WithUnit("ms"),
	)

	fanOutWidth, _ := meter.Int64Histogram(
		"dashboard.aggregation.fanout",
		otelmetric.WithDescription("Number of upstream calls issued per composite query"),
	)

	return &Observability{
		meterProvider:   provider,
		meter:           meter,
		requestCounter:  requestCounter,
		requestDuration: requestDuration,
		fanOutWidth:     fanOutWidth,
	}
}

// NewNoop returns an instance that records nothing.
func NewNoop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordRequest(ctx context.Context, query, source string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("query", query),
		attribute.String("source", source),
	)
	if o.requestCounter != nil {
		o.requestCounter.Add(ctx, 1, attrs)
	}
	if o.requestDuration != nil {
		o.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordFanOut(ctx context.Context, query string, calls int) {
	if o == nil || o.fanOutWidth == nil {
		return
	}
	o.fanOutWidth.Record(ctx, int64(calls), otelmetric.WithAttributes(
		attribute.String("query", query),
	))
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
