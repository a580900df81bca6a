package app

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName  = "github.com/fd1az/crossarb/business/arbitrage"
	tracerName = "github.com/fd1az/crossarb/business/arbitrage"
)

// engineMetrics holds OTEL metric instruments.
type engineMetrics struct {
	executions     metric.Int64Counter
	opportunities  metric.Int64Counter
	searchDuration metric.Float64Histogram
	cacheHits      metric.Int64Counter
	cacheMisses    metric.Int64Counter
}

func newEngineMetrics() (*engineMetrics, error) {
	meter := otel.Meter(meterName)
	m := &engineMetrics{}
	var err error

	m.executions, err = meter.Int64Counter(
		"executions_total",
		metric.WithDescription("Opportunity executions by final status"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, err
	}

	m.opportunities, err = meter.Int64Counter(
		"opportunities_found_total",
		metric.WithDescription("Opportunities meeting the profit threshold"),
		metric.WithUnit("{opportunity}"),
	)
	if err != nil {
		return nil, err
	}

	m.searchDuration, err = meter.Float64Histogram(
		"cycle_search_duration_ms",
		metric.WithDescription("Time to find and score cycles for one start asset"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	m.cacheHits, err = meter.Int64Counter(
		"cycle_cache_hits_total",
		metric.WithDescription("Cycle cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	m.cacheMisses, err = meter.Int64Counter(
		"cycle_cache_misses_total",
		metric.WithDescription("Cycle cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}
