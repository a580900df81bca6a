// Package metrics configures the OpenTelemetry meter provider and the
// Prometheus scrape endpoint.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metric2 "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
)

type MetricProvider interface {
	Meter(name string, options ...metric.MeterOption) metric.Meter
	Shutdown(ctx context.Context) error
}

func getReaders(ctx context.Context, cfg Config) ([]metric2.Reader, error) {
	var readers []metric2.Reader

	for _, provider := range cfg.Provider {
		switch provider.Provider {
		case PrometheusProvider:
			promExporter, err := prometheus.New()
			if err != nil {
				return nil, fmt.Errorf("prometheus exporter: %w", err)
			}

			readers = append(readers, promExporter)
		case OtelCollector:
			opts := []otlpmetricgrpc.Option{
				otlpmetricgrpc.WithEndpointURL(provider.Endpoint),
				otlpmetricgrpc.WithHeaders(provider.Headers),
			}

			if provider.Insecure {
				opts = append(opts, otlpmetricgrpc.WithInsecure())
			}

			exp, err := otlpmetricgrpc.New(ctx, opts...)
			if err != nil {
				return nil, fmt.Errorf("otlp metric exporter: %w", err)
			}

			readers = append(readers, metric2.NewPeriodicReader(exp))
		}
	}

	return readers, nil
}

// NewMetricProvider builds a meter provider and installs it globally.
func NewMetricProvider(options ...OptionFn) (MetricProvider, error) {
	var cfg Config

	for _, opt := range options {
		cfg = opt(cfg)
	}

	if len(cfg.Provider) == 0 {
		cfg.Provider = []ProviderCfg{{Provider: PrometheusProvider}}
	}

	readers, err := getReaders(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	metricsOps := []metric2.Option{
		metric2.WithResource(resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName))),
	}
	for _, reader := range readers {
		metricsOps = append(metricsOps, metric2.WithReader(reader))
	}

	meterProvider := metric2.NewMeterProvider(metricsOps...)

	otel.SetMeterProvider(meterProvider)

	return meterProvider, nil
}

// ServePrometheusMetrics serves /metrics until ctx is done.
func ServePrometheusMetrics(ctx context.Context, opt ...PromOptionFn) error {
	cfg := PromServerConfig{port: "2223"}
	for _, o := range opt {
		cfg = o(cfg)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
