package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/crossarb/business/graph/domain"
	"github.com/fd1az/crossarb/internal/apm"
	"github.com/fd1az/crossarb/internal/apperror"
	"github.com/fd1az/crossarb/internal/logger"
)

// RefreshConfig tunes the refresher.
type RefreshConfig struct {
	// Interval is the minimum time between completed passes.
	Interval time.Duration
	// Workers bounds concurrent venue queries.
	Workers     int
	EdgeTimeout time.Duration
	// RefreshFees also requeries fee and liquidity on every pass.
	RefreshFees bool
}

// DefaultRefreshConfig returns a 60s interval with 8 workers.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Interval:    60 * time.Second,
		Workers:     8,
		EdgeTimeout: 10 * time.Second,
		RefreshFees: true,
	}
}

// RefreshReport describes one call to Refresh.
type RefreshReport struct {
	// Skipped is set when the interval had not elapsed.
	Skipped bool
	// Abandoned is set when ctx ended before the pass finished.
	Abandoned  bool
	Edges      int
	Updated    int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Refresher requotes every trade edge of a Graph.
type Refresher struct {
	graph   *Graph
	cfg     RefreshConfig
	log     logger.LoggerInterface
	tracer  apm.Tracer
	metrics *refreshMetrics
	now     func() time.Time

	// passMu allows one pass at a time.
	passMu sync.Mutex
	// lastRefresh is the unix nano finish time of the last completed pass.
	lastRefresh atomic.Int64

	subMu       sync.Mutex
	subscribers []func()
}

// NewRefresher creates a refresher for g.
func NewRefresher(g *Graph, cfg RefreshConfig, log logger.LoggerInterface) (*Refresher, error) {
	if cfg.Workers <= 0 {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "refresh workers must be positive")
	}
	if cfg.EdgeTimeout <= 0 {
		cfg.EdgeTimeout = DefaultRefreshConfig().EdgeTimeout
	}

	m, err := newRefreshMetrics()
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &Refresher{
		graph:   g,
		cfg:     cfg,
		log:     log.With("component", "refresher"),
		tracer:  apm.NewTracer(tracerName),
		metrics: m,
		now:     time.Now,
	}, nil
}

// OnRefreshed registers fn to run once after every completed pass.
func (r *Refresher) OnRefreshed(fn func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// LastRefresh returns when the last completed pass finished, or the zero
// time if none has.
func (r *Refresher) LastRefresh() time.Time {
	ns := r.lastRefresh.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Refresh runs a pass unless the previous completed pass finished less than
// Interval ago.
func (r *Refresher) Refresh(ctx context.Context) (RefreshReport, error) {
	return r.refresh(ctx, false)
}

// RefreshNow runs a pass regardless of the interval.
func (r *Refresher) RefreshNow(ctx context.Context) (RefreshReport, error) {
	return r.refresh(ctx, true)
}

// Run refreshes every Interval until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info(ctx, "refresher stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			if _, err := r.RefreshNow(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn(ctx, "refresh pass failed", "error", err)
			}
		}
	}
}

func (r *Refresher) refresh(ctx context.Context, force bool) (RefreshReport, error) {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	start := r.now()
	if !force {
		if last := r.LastRefresh(); !last.IsZero() && start.Sub(last) < r.cfg.Interval {
			r.metrics.passes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "skipped")))
			return RefreshReport{Skipped: true, StartedAt: start, FinishedAt: start}, nil
		}
	}

	ctx, span := r.tracer.StartSpanFromContext(ctx, "graph.refresh")
	defer span.End()

	report := r.pass(ctx)
	report.StartedAt = start
	report.FinishedAt = r.now()

	span.SetAttributes(
		attribute.Int("edges", report.Edges),
		attribute.Int("updated", report.Updated),
		attribute.Int("failed", report.Failed),
	)
	if report.Failed > 0 {
		r.metrics.edgeFailures.Add(ctx, int64(report.Failed))
	}

	if err := ctx.Err(); err != nil {
		report.Abandoned = true
		r.metrics.passes.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("outcome", "abandoned")))
		r.log.Warn(ctx, "refresh pass abandoned",
			"updated", report.Updated,
			"edges", report.Edges,
			"reason", err,
		)
		appErr := apperror.Wrap(err, apperror.CodeServiceTimeout, "refresh pass")
		span.NoticeError(appErr)
		return report, appErr
	}

	r.lastRefresh.Store(report.FinishedAt.UnixNano())
	r.metrics.passes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "completed")))
	r.metrics.duration.Record(ctx, float64(report.FinishedAt.Sub(start).Microseconds())/1000)
	span.SetOK("refreshed")

	r.log.Info(ctx, "refresh pass completed",
		"edges", report.Edges,
		"updated", report.Updated,
		"failed", report.Failed,
		"duration", report.FinishedAt.Sub(start),
	)

	r.subMu.Lock()
	subs := append([]func(){}, r.subscribers...)
	r.subMu.Unlock()
	for _, fn := range subs {
		fn()
	}

	return report, nil
}

// pass requotes every trade edge with at most Workers queries in flight.
// No new query is scheduled once ctx is done.
func (r *Refresher) pass(ctx context.Context) RefreshReport {
	edges := r.graph.TradeEdges()

	var (
		g       errgroup.Group
		updated atomic.Int64
		failed  atomic.Int64
	)
	g.SetLimit(r.cfg.Workers)

	for _, e := range edges {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if r.refreshEdge(ctx, e) {
				updated.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return RefreshReport{
		Edges:   len(edges),
		Updated: int(updated.Load()),
		Failed:  int(failed.Load()),
	}
}

// refreshEdge stores a fresh quote for e. On failure e keeps its previous
// attributes.
func (r *Refresher) refreshEdge(ctx context.Context, e *domain.Edge) bool {
	log := r.log.With("edge", e.Key.String())

	c, ok := r.graph.Venue(e.Venue())
	if !ok {
		log.Warn(ctx, "edge venue not registered")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.EdgeTimeout)
	defer cancel()

	pair := e.Pair.ID()
	var (
		rate float64
		err  error
	)
	if e.Side == domain.SideBuy {
		rate, err = c.BuyPrice(ctx, pair)
	} else {
		rate, err = c.SellPrice(ctx, pair)
	}
	if err != nil {
		log.Warn(ctx, "quote failed, keeping previous rate", "error", err)
		return false
	}

	cur := e.Attrs()
	fee, liquidity := cur.Fee, cur.Liquidity
	if r.cfg.RefreshFees {
		if f, err := c.Fee(ctx, pair); err == nil && f >= 0 && f < 1 {
			fee = f
		} else if err != nil && !apperror.HasCode(err, apperror.CodeUnsupported) {
			log.Debug(ctx, "fee query failed, keeping previous fee", "error", err)
		}
		if l, err := c.Liquidity(ctx, pair); err == nil {
			liquidity = l
		} else if !apperror.HasCode(err, apperror.CodeUnsupported) {
			log.Debug(ctx, "liquidity query failed, keeping previous liquidity", "error", err)
		}
	}

	e.Store(cur.WithQuote(rate, fee, liquidity, r.now()))
	return true
}
