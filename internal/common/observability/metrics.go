package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Observability owns the OpenTelemetry meter and tracer providers for the process.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	jobCounter          otelmetric.Int64Counter
	jobDuration         otelmetric.Float64Histogram
	consultCounter      otelmetric.Int64Counter
	consultDuration     otelmetric.Float64Histogram
	collaborativeRoutes otelmetric.Int64Counter
}

// New wires a Prometheus-exporting meter provider and a sampling tracer provider
// and installs both as the otel globals. Exporter failures degrade to no-op
// instruments; they never stop the process.
func New(serviceName, version string) *Observability {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	)

	o := &Observability{}

	o.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(o.tracerProvider)
	o.tracer = o.tracerProvider.Tracer(serviceName)

	exporter, err := prometheus.New()
	if err != nil {
		otel.Handle(err)
		return o
	}

	o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(o.meterProvider)
	meter := o.meterProvider.Meter(serviceName)

	o.jobCounter, _ = meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	o.jobDuration, _ = meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	o.consultCounter, _ = meter.Int64Counter(
		"advisor.consultations",
		otelmetric.WithDescription("Consultations handled by the advisor"),
	)
	o.consultDuration, _ = meter.Float64Histogram(
		"advisor.consultation.duration",
		otelmetric.WithDescription("End-to-end consultation duration"),
		otelmetric.WithUnit("ms"),
	)
	o.collaborativeRoutes, _ = meter.Int64Counter(
		"router.collaborative",
		otelmetric.WithDescription("Routing decisions that engaged collaborative mode"),
	)

	return o
}

// Tracer returns the process tracer, or the global one when o is nil.
func (o *Observability) Tracer() trace.Tracer {
	if o == nil || o.tracer == nil {
		return otel.Tracer("expert-router")
	}
	return o.tracer
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordConsultation(ctx context.Context, primary string, collaborative bool, duration time.Duration) {
	if o == nil || o.consultCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("primary_agent", primary),
		attribute.Bool("collaborative", collaborative),
	)
	o.consultCounter.Add(ctx, 1, attrs)
	o.consultDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if collaborative {
		o.collaborativeRoutes.Add(ctx, 1)
	}
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
