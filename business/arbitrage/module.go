// Package arbitrage implements the arbitrage bounded context: cycle search,
// profit estimation and execution.
package arbitrage

import (
	"context"

	"github.com/fd1az/crossarb/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/crossarb/business/arbitrage/di"
	"github.com/fd1az/crossarb/business/arbitrage/infra"
	graphDI "github.com/fd1az/crossarb/business/graph/di"
	"github.com/fd1az/crossarb/internal/config"
	"github.com/fd1az/crossarb/internal/di"
	"github.com/fd1az/crossarb/internal/logger"
	"github.com/fd1az/crossarb/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		engine, err := app.NewEngine(graphDI.GetGraph(sr), graphDI.GetRefresher(sr), app.EngineConfig{
			Finder: app.FinderConfig{
				MaxLength: cfg.Engine.MaxCycleLength,
				MaxCycles: cfg.Engine.MaxCycles,
			},
			CacheSize:   cfg.Engine.CycleCacheSize,
			HistorySize: cfg.Engine.HistorySize,
		}, log)
		if err != nil {
			panic("failed to create engine: " + err.Error())
		}
		return engine
	})

	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var reporters []app.Reporter
		if cfg.Reporting.Console {
			reporters = append(reporters, infra.NewConsoleReporter())
		}
		if cfg.Reporting.WebhookURL != "" {
			webhook, err := infra.NewWebhookReporter(cfg.Reporting.WebhookURL, cfg.Reporting.Timeout, log)
			if err != nil {
				panic("failed to create webhook reporter: " + err.Error())
			}
			reporters = append(reporters, webhook)
		}
		return infra.NewMultiReporter(reporters...)
	})

	di.RegisterToken(c, arbitrageDI.Allocator, func(sr di.ServiceRegistry) app.Allocator {
		cfg := sr.Get("config").(*config.Config)
		return app.NewFixedAllocator(cfg.Execution.TradeAmountDecimal())
	})

	di.RegisterToken(c, arbitrageDI.Detector, func(sr di.ServiceRegistry) *app.Detector {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewDetector(
			arbitrageDI.GetEngine(sr),
			graphDI.GetRefresher(sr),
			arbitrageDI.GetAllocator(sr),
			arbitrageDI.GetReporter(sr),
			app.DetectorConfig{
				StartAssets:  cfg.Engine.StartAssets,
				MinProfitPct: cfg.Engine.MinProfitPct,
				Execute:      cfg.Execution.Enabled,
			},
			log,
		)
	})

	return nil
}

// Startup builds the engine so it subscribes to graph changes before the
// detector runs.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	arbitrageDI.GetEngine(mono.Services())
	mono.Logger().Info(ctx, "arbitrage module started")
	return nil
}
