package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fd1az/crossarb/internal/logger"
)

// DetectorConfig holds configuration for the arbitrage detector.
type DetectorConfig struct {
	StartAssets  []string
	MinProfitPct float64
	// Execute enables automatic execution of the best opportunity.
	Execute bool
}

// Detector scans for opportunities after every completed refresh pass,
// reports the best one per start asset and optionally executes it.
type Detector struct {
	engine    *Engine
	refresher RefreshNotifier
	allocator Allocator
	reporter  Reporter
	config    DetectorConfig
	logger    logger.LoggerInterface

	passes  chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
	started atomic.Bool
	once    sync.Once
}

// NewDetector creates a new arbitrage Detector.
func NewDetector(
	engine *Engine,
	refresher RefreshNotifier,
	allocator Allocator,
	reporter Reporter,
	config DetectorConfig,
	logger logger.LoggerInterface,
) *Detector {
	return &Detector{
		engine:    engine,
		refresher: refresher,
		allocator: allocator,
		reporter:  reporter,
		config:    config,
		logger:    logger.With("component", "detector"),
		passes:    make(chan struct{}, 1),
		done:      make(chan struct{}),
		cancel:    func() {},
	}
}

// Start subscribes to refresh passes, scans once and begins the detection
// loop.
func (d *Detector) Start(ctx context.Context) error {
	d.logger.Info(ctx, "starting arbitrage detector",
		"start_assets", d.config.StartAssets,
		"min_profit_pct", d.config.MinProfitPct,
		"execute", d.config.Execute,
	)

	if err := d.reporter.Start(ctx); err != nil {
		return err
	}

	// Coalesce passes that arrive while a scan is running.
	d.refresher.OnRefreshed(func() {
		select {
		case d.passes <- struct{}{}:
		default:
		}
	})

	ctx, d.cancel = context.WithCancel(ctx)
	d.started.Store(true)
	go d.run(ctx)

	return nil
}

func (d *Detector) run(ctx context.Context) {
	defer close(d.done)

	d.Scan(ctx)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info(ctx, "detector stopping", "reason", ctx.Err())
			return
		case <-d.passes:
			d.Scan(ctx)
		}
	}
}

// Scan looks for the best opportunity for every start asset.
func (d *Detector) Scan(ctx context.Context) {
	for _, asset := range d.config.StartAssets {
		if ctx.Err() != nil {
			return
		}
		d.scanAsset(ctx, asset)
	}
}

func (d *Detector) scanAsset(ctx context.Context, asset string) {
	opp, ok, err := d.engine.GetBestOpportunity(ctx, asset, d.config.MinProfitPct)
	if err != nil {
		d.logger.Warn(ctx, "cycle search failed", "start_asset", asset, "error", err)
		return
	}
	if !ok {
		d.logger.Debug(ctx, "no opportunity", "start_asset", asset)
		return
	}

	d.reporter.ReportOpportunity(ctx, opp)

	if !d.config.Execute {
		return
	}

	amount, err := d.allocator.Allocate(ctx, opp)
	if err != nil {
		d.logger.Warn(ctx, "allocation failed", "opportunity_id", opp.ID, "error", err)
		return
	}

	res, err := d.engine.ExecuteOpportunity(ctx, opp, amount)
	if err != nil {
		d.logger.Error(ctx, "execution rejected", "opportunity_id", opp.ID, "error", err)
		return
	}
	d.reporter.ReportExecution(ctx, res)
}

// Stop ends the detection loop, waits for an in-flight scan to finish and
// shuts down the reporter.
func (d *Detector) Stop() error {
	if d.started.Load() {
		d.once.Do(func() {
			d.cancel()
			<-d.done
		})
	}
	d.logger.Info(context.Background(), "stopping arbitrage detector")
	return d.reporter.Stop()
}
