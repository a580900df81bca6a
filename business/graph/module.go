// Package graph implements the opportunity graph bounded context: venue
// onboarding and periodic rate refresh.
package graph

import (
	"context"
	"fmt"

	"github.com/fd1az/crossarb/business/graph/app"
	graphDI "github.com/fd1az/crossarb/business/graph/di"
	"github.com/fd1az/crossarb/business/graph/domain"
	venueDI "github.com/fd1az/crossarb/business/venue/di"
	"github.com/fd1az/crossarb/internal/config"
	"github.com/fd1az/crossarb/internal/di"
	"github.com/fd1az/crossarb/internal/logger"
	"github.com/fd1az/crossarb/internal/monolith"
)

// Module implements the graph bounded context.
type Module struct{}

// RegisterServices registers the graph and its refresher.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, graphDI.Graph, func(sr di.ServiceRegistry) *app.Graph {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		defaults := app.Defaults{
			TradeFee:  cfg.Engine.DefaultTradeFee,
			Liquidity: cfg.Engine.DefaultLiquidity,
		}
		return app.New(TransferPolicy(cfg.Transfer), defaults, log.With("component", "graph"))
	})

	di.RegisterToken(c, graphDI.Refresher, func(sr di.ServiceRegistry) *app.Refresher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		r, err := app.NewRefresher(graphDI.GetGraph(sr), app.RefreshConfig{
			Interval:    cfg.Engine.RefreshInterval,
			Workers:     cfg.Engine.RefreshWorkers,
			EdgeTimeout: cfg.Engine.EdgeTimeout,
			RefreshFees: cfg.Engine.RefreshFees,
		}, log)
		if err != nil {
			panic("failed to create refresher: " + err.Error())
		}
		return r
	})

	return nil
}

// Startup onboards every configured venue and runs the first refresh so
// trade edges carry rates before the first search.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	g := graphDI.GetGraph(mono.Services())

	for _, c := range venueDI.GetConnectors(mono.Services()) {
		if _, err := g.AddVenue(ctx, c); err != nil {
			return fmt.Errorf("onboard venue %s: %w", c.Info().ID, err)
		}
	}

	rep, err := graphDI.GetRefresher(mono.Services()).RefreshNow(ctx)
	if err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}
	if rep.Failed > 0 {
		log.Warn(ctx, "initial refresh left edges unquoted", "failed", rep.Failed, "edges", rep.Edges)
	}

	log.Info(ctx, "graph module started", "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return nil
}

// TransferPolicy builds the transfer default table from configuration.
func TransferPolicy(cfg config.TransferConfig) domain.TransferPolicy {
	p := domain.DefaultTransferPolicy()
	if cfg.DefaultFee > 0 {
		p.DefaultFee = cfg.DefaultFee
	}
	if cfg.StablecoinFee > 0 {
		p.StablecoinFee = cfg.StablecoinFee
	}
	if cfg.DefaultTime > 0 {
		p.DefaultTime = cfg.DefaultTime
	}
	if cfg.SameNetworkTime > 0 {
		p.SameNetworkTime = cfg.SameNetworkTime
	}
	if len(cfg.Fees) > 0 {
		p.Fees = cfg.Fees
	}
	if len(cfg.Stablecoins) > 0 {
		p.Stablecoins = make(map[string]bool, len(cfg.Stablecoins))
		for _, s := range cfg.Stablecoins {
			p.Stablecoins[s] = true
		}
	}
	return p
}
