// Package app contains the cycle finder, profit estimator, execution
// orchestrator and the engine that ties them to the opportunity graph.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fd1az/crossarb/business/arbitrage/domain"
	graphApp "github.com/fd1az/crossarb/business/graph/app"
	venueApp "github.com/fd1az/crossarb/business/venue/app"
	"github.com/fd1az/crossarb/internal/apm"
	"github.com/fd1az/crossarb/internal/apperror"
	"github.com/fd1az/crossarb/internal/logger"
)

// EngineConfig tunes search and caching.
type EngineConfig struct {
	Finder FinderConfig
	// CacheSize is the number of start assets whose cycles are memoized.
	CacheSize   int
	HistorySize int
}

// DefaultEngineConfig returns the default finder bounds, 64 cached start
// assets and 100 history entries.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Finder:      DefaultFinderConfig(),
		CacheSize:   64,
		HistorySize: DefaultHistorySize,
	}
}

// RefreshNotifier announces completed refresh passes.
type RefreshNotifier interface {
	OnRefreshed(fn func())
}

// Engine is the caller-facing arbitrage API. Searches read one graph
// snapshot per call and never wait for a refresh.
type Engine struct {
	graph        *graphApp.Graph
	finder       *CycleFinder
	estimator    *ProfitEstimator
	orchestrator *Orchestrator
	history      *History

	// cycles memoizes cycle lists per start asset until the next completed
	// refresh or topology change.
	cycles *lru.Cache
	// epoch advances on every invalidation so a search that raced one does
	// not store stale cycles. cacheMu orders stores against invalidations.
	epoch   atomic.Uint64
	cacheMu sync.Mutex

	log     logger.LoggerInterface
	tracer  apm.Tracer
	metrics *engineMetrics
}

// NewEngine builds an engine over g. When refresher is non-nil the cycle
// cache is cleared after each of its completed passes.
func NewEngine(g *graphApp.Graph, refresher RefreshNotifier, cfg EngineConfig, log logger.LoggerInterface) (*Engine, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultEngineConfig().CacheSize
	}

	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("cycle cache: %w", err)
	}

	m, err := newEngineMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	history := NewHistory(cfg.HistorySize)
	orchestrator, err := NewOrchestrator(g, history, log)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		graph:        g,
		finder:       NewCycleFinder(cfg.Finder),
		estimator:    NewProfitEstimator(),
		orchestrator: orchestrator,
		history:      history,
		cycles:       cache,
		log:          log.With("component", "engine"),
		tracer:       apm.NewTracer(tracerName),
		metrics:      m,
	}

	g.OnTopologyChange(e.InvalidateCache)
	if refresher != nil {
		refresher.OnRefreshed(e.InvalidateCache)
	}

	return e, nil
}

// InvalidateCache drops every memoized cycle list.
func (e *Engine) InvalidateCache() {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	e.epoch.Add(1)
	e.cycles.Purge()
}

// storeCycles memoizes cycles for asset unless the cache was invalidated
// after epoch was read.
func (e *Engine) storeCycles(asset string, epoch uint64, cycles []domain.Cycle) bool {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	if e.epoch.Load() != epoch {
		return false
	}
	e.cycles.Add(asset, cycles)
	return true
}

// AddVenue onboards a venue into the graph.
func (e *Engine) AddVenue(ctx context.Context, c venueApp.Connector) (graphApp.OnboardReport, error) {
	return e.graph.AddVenue(ctx, c)
}

// FindArbitrageCycles returns the opportunities starting and ending in
// startAsset whose adjusted profit is at least minProfitPct, best first.
// Rates are whatever the last refresh left in the graph.
func (e *Engine) FindArbitrageCycles(ctx context.Context, startAsset string, minProfitPct float64) ([]domain.Opportunity, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeServiceTimeout, "find cycles")
	}
	asset := strings.ToUpper(strings.TrimSpace(startAsset))
	if asset == "" {
		return nil, apperror.Validation(apperror.CodeRequiredField, "start asset")
	}

	ctx, span := e.tracer.StartSpanFromContext(ctx, "arbitrage.find_cycles")
	defer span.End()
	started := time.Now()

	epoch := e.epoch.Load()
	snap := e.graph.Snapshot()

	var cycles []domain.Cycle
	if v, ok := e.cycles.Get(asset); ok {
		cycles = v.([]domain.Cycle)
		e.metrics.cacheHits.Add(ctx, 1)
	} else {
		cycles = e.finder.Find(snap, asset)
		e.metrics.cacheMisses.Add(ctx, 1)
		e.storeCycles(asset, epoch, cycles)
	}

	opps := e.estimator.Evaluate(snap, cycles, minProfitPct)

	e.metrics.searchDuration.Record(ctx, float64(time.Since(started).Microseconds())/1000)
	e.metrics.opportunities.Add(ctx, int64(len(opps)))
	span.SetAttributes(
		attribute.String("start_asset", asset),
		attribute.Int("cycles", len(cycles)),
		attribute.Int("opportunities", len(opps)),
	)

	e.log.Debug(ctx, "cycle search finished",
		"start_asset", asset,
		"cycles", len(cycles),
		"opportunities", len(opps),
		"generation", snap.Generation(),
	)

	return opps, nil
}

// GetBestOpportunity returns the highest scoring opportunity, if any.
func (e *Engine) GetBestOpportunity(ctx context.Context, startAsset string, minProfitPct float64) (*domain.Opportunity, bool, error) {
	opps, err := e.FindArbitrageCycles(ctx, startAsset, minProfitPct)
	if err != nil || len(opps) == 0 {
		return nil, false, err
	}
	best := opps[0]
	return &best, true, nil
}

// ExecuteOpportunity runs opp with amount of its start asset.
func (e *Engine) ExecuteOpportunity(ctx context.Context, opp *domain.Opportunity, amount decimal.Decimal) (*domain.ExecutionResult, error) {
	return e.orchestrator.Execute(ctx, opp, amount)
}

// History returns past executions, oldest first.
func (e *Engine) History() []*domain.ExecutionResult {
	return e.history.All()
}
