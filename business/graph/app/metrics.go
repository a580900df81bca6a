package app

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName  = "github.com/fd1az/crossarb/business/graph"
	tracerName = "github.com/fd1az/crossarb/business/graph"
)

// refreshMetrics holds OTEL metric instruments.
type refreshMetrics struct {
	passes       metric.Int64Counter
	edgeFailures metric.Int64Counter
	duration     metric.Float64Histogram
}

func newRefreshMetrics() (*refreshMetrics, error) {
	meter := otel.Meter(meterName)
	m := &refreshMetrics{}
	var err error

	m.passes, err = meter.Int64Counter(
		"refresh_passes_total",
		metric.WithDescription("Refresh passes by outcome"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, err
	}

	m.edgeFailures, err = meter.Int64Counter(
		"refresh_edge_failures_total",
		metric.WithDescription("Edge quotes that failed and kept their previous value"),
		metric.WithUnit("{edge}"),
	)
	if err != nil {
		return nil, err
	}

	m.duration, err = meter.Float64Histogram(
		"refresh_duration_ms",
		metric.WithDescription("Duration of completed refresh passes"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}
