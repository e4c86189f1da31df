// Package telemetry provides OpenTelemetry OTLP gRPC trace export.
// When tracing is disabled every span is a no-op.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/daysim/daysim/pkg/config"
	simerrors "github.com/daysim/daysim/pkg/errors"
)

// ServiceName identifies the simulator in traces.
const ServiceName = "daysim"

// OTLPConfig configures the OpenTelemetry OTLP gRPC exporter.
type OTLPConfig struct {
	// Endpoint is the OTLP gRPC endpoint (e.g., "localhost:4317")
	Endpoint string

	ServiceName    string
	ServiceVersion string

	// InsecureTLS disables TLS for the gRPC connection (use for local dev)
	InsecureTLS bool

	// Headers are additional headers to send with each request (e.g., auth tokens)
	Headers map[string]string

	BatchTimeout  time.Duration
	MaxBatchSize  int
	MaxQueueSize  int
	ExportTimeout time.Duration

	// SamplingRatio is the fraction of traces to sample (0.0 to 1.0)
	SamplingRatio float64
}

// DefaultOTLPConfig returns sensible defaults for OTLP configuration.
func DefaultOTLPConfig(version string) OTLPConfig {
	return OTLPConfig{
		Endpoint:       "localhost:4317",
		ServiceName:    ServiceName,
		ServiceVersion: version,
		InsecureTLS:    true,
		BatchTimeout:   5 * time.Second,
		MaxBatchSize:   512,
		MaxQueueSize:   2048,
		ExportTimeout:  30 * time.Second,
		SamplingRatio:  1.0,
	}
}

// FromConfig converts the telemetry section of the run configuration.
func FromConfig(tc config.TelemetryConfig, version string) OTLPConfig {
	cfg := DefaultOTLPConfig(version)
	if tc.Endpoint != "" {
		cfg.Endpoint = tc.Endpoint
	}
	cfg.InsecureTLS = tc.Insecure
	cfg.SamplingRatio = tc.SamplingRatio
	return cfg
}

// Provider hands out the tracer used for household spans.
type Provider struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// Disabled returns a provider whose spans are no-ops.
func Disabled() *Provider {
	return &Provider{
		tracer:   noop.NewTracerProvider().Tracer(ServiceName),
		shutdown: func(context.Context) error { return nil },
	}
}

// NewProvider wraps an existing tracer provider, typically an SDK provider
// with an in-memory recorder in tests.
func NewProvider(tp trace.TracerProvider) *Provider {
	return &Provider{
		tracer:   tp.Tracer(ServiceName),
		shutdown: func(context.Context) error { return nil },
	}
}

// Setup creates the OTLP exporter and installs the global tracer provider.
// A disabled configuration yields Disabled().
func Setup(ctx context.Context, tc config.TelemetryConfig, version string) (*Provider, error) {
	if !tc.Enabled {
		return Disabled(), nil
	}
	cfg := FromConfig(tc, version)

	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(cfg.ExportTimeout),
	}
	if cfg.InsecureTLS {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if len(cfg.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, simerrors.Wrap(err, simerrors.CodeConfigInvalid, "create OTLP exporter").
			WithContext("endpoint", cfg.Endpoint)
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
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(cfg.BatchTimeout),
			sdktrace.WithMaxExportBatchSize(cfg.MaxBatchSize),
			sdktrace.WithMaxQueueSize(cfg.MaxQueueSize),
			sdktrace.WithExportTimeout(cfg.ExportTimeout),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplingRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		tracer:   tp.Tracer(cfg.ServiceName),
		shutdown: tp.Shutdown,
	}, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1.0:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}

// StartRun opens the root span of a run.
func (p *Provider) StartRun(ctx context.Context, runID string, households int) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("run.households", households),
	))
}

// StartHousehold opens the span of one household.
func (p *Provider) StartHousehold(ctx context.Context, householdID, worker int) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "household", trace.WithAttributes(
		attribute.Int("household.id", householdID),
		attribute.Int("worker", worker),
	))
}

// EndHousehold records the outcome of a household on its span and ends it.
func EndHousehold(span trace.Span, attempts int, valid bool, err error) {
	span.SetAttributes(
		attribute.Int("attempts", attempts),
		attribute.Bool("valid", valid),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(simerrors.GetCode(err)))
	}
	span.End()
}
