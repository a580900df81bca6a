// Package apm configures OpenTelemetry tracing.
package apm

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/crossarb/internal/logger"
)

type Provider string

const (
	ZipkinProvider   Provider = "ZIPKIN_PROVIDER"
	OTLPGRPCProvider Provider = "OTLP_GRPC_PROVIDER"
	OTLPHTTPProvider Provider = "OTLP_HTTP_PROVIDER"
	ConsoleProvider  Provider = "CONSOLE_PROVIDER"
	EmptyProvider    Provider = "EMPTY_PROVIDER"
)

type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type emptyTraceProvider struct{}

func (emptyTraceProvider) Stop() error { return nil }

// ExporterConfig points an exporter at a collector.
type ExporterConfig struct {
	ServiceName string
	Endpoint    string
	// Headers in "k1=v1,k2=v2" form.
	Headers string
}

type TracerOptions struct {
	exporter           sdktrace.SpanExporter
	tracerProviderName string
	serviceName        string
	useEmpty           bool
}

type TracerOption func(*TracerOptions)

// WithProvider selects the span exporter. Unknown providers and exporter
// construction failures fall back to the empty provider.
func WithProvider(provider Provider, cfg ExporterConfig, log logger.LoggerInterface) TracerOption {
	ctx := context.Background()

	var (
		exp sdktrace.SpanExporter
		err error
	)

	switch provider {
	case ZipkinProvider:
		exp, err = zipkin.New(cfg.Endpoint)
	case OTLPGRPCProvider:
		exp, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpointURL(cfg.Endpoint),
			otlptracegrpc.WithHeaders(parseHeaders(cfg.Headers)),
		)
	case OTLPHTTPProvider:
		exp, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(cfg.Endpoint),
			otlptracehttp.WithHeaders(parseHeaders(cfg.Headers)),
		)
	case ConsoleProvider:
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case EmptyProvider:
		return useEmpty()
	default:
		log.Warn(ctx, "trace provider not found, using empty provider", "provider", provider)
		return useEmpty()
	}

	if err != nil {
		log.Error(ctx, "trace exporter init failed, using empty provider", "provider", provider, "error", err)
		return useEmpty()
	}

	return func(option *TracerOptions) {
		option.exporter = exp
		option.tracerProviderName = string(provider)
		option.serviceName = cfg.ServiceName
	}
}

func useEmpty() TracerOption {
	return func(option *TracerOptions) {
		option.useEmpty = true
		option.tracerProviderName = string(EmptyProvider)
	}
}

func parseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for _, kv := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if ok && k != "" {
			headers[k] = v
		}
	}
	return headers
}

// NewTraceProvider installs the global tracer provider and propagator.
func NewTraceProvider(options ...TracerOption) TraceProvider {
	opts := &TracerOptions{}
	for _, opt := range options {
		opt(opts)
	}

	if opts.useEmpty || opts.exporter == nil {
		return emptyTraceProvider{}
	}

	rsrc, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(opts.serviceName),
			attribute.String("otel.provider", opts.tracerProviderName),
		))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(opts.exporter),
		sdktrace.WithResource(rsrc),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	return &traceProvider{tp}
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	return o.tp.Shutdown(ctx)
}
