// Package main is the entry point for the crossarb engine.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fd1az/crossarb/business/arbitrage"
	arbitrageDI "github.com/fd1az/crossarb/business/arbitrage/di"
	"github.com/fd1az/crossarb/business/graph"
	graphDI "github.com/fd1az/crossarb/business/graph/di"
	"github.com/fd1az/crossarb/business/venue"
	"github.com/fd1az/crossarb/internal/apm"
	"github.com/fd1az/crossarb/internal/config"
	"github.com/fd1az/crossarb/internal/health"
	"github.com/fd1az/crossarb/internal/logger"
	"github.com/fd1az/crossarb/internal/metrics"
	"github.com/fd1az/crossarb/internal/monolith"
	"github.com/fd1az/crossarb/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "crossarb",
		Short:         "Cross-venue multi-hop arbitrage engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Refresh rates continuously and report opportunities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}

	var minProfit float64
	scanCmd := &cobra.Command{
		Use:   "scan [ASSET...]",
		Short: "Refresh once and print the opportunities for each start asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			var override *float64
			if cmd.Flags().Changed("min-profit") {
				override = &minProfit
			}
			return scan(cmd.Context(), cmd.OutOrStdout(), configPath, args, override)
		},
	}
	scanCmd.Flags().Float64Var(&minProfit, "min-profit", 0, "minimum adjusted profit in percent")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "crossarb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	}

	root.AddCommand(runCmd, scanCmd, versionCmd)
	return root
}

// app is a started monolith plus the resources to release with it.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	mono    *monolith.App
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newLogger(cfg *config.Config, stderr io.Writer) (*logger.Logger, io.Closer) {
	level := logger.ParseLevel(cfg.App.LogLevel)
	if cfg.App.LogFile == "" {
		return logger.New(stderr, level, cfg.App.Name, nil), nil
	}
	file := logger.RotatingFile(logger.FileConfig{
		Path:       cfg.App.LogFile,
		MaxBackups: 5,
		MaxAgeDays: 14,
		Compress:   true,
	})
	return logger.New(io.MultiWriter(stderr, file), level, cfg.App.Name, nil), file
}

// start loads config, wires telemetry and starts every module. Starting
// onboards the configured venues and runs the first refresh pass.
func start(ctx context.Context, configPath string, telemetry bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, file := newLogger(cfg, os.Stderr)
	a := &app{cfg: cfg, log: log}
	if file != nil {
		a.closers = append(a.closers, func() { file.Close() })
	}

	if telemetry && cfg.Telemetry.Enabled {
		tp := apm.NewTraceProvider(apm.WithProvider(apm.Provider(cfg.Telemetry.TraceProvider), apm.ExporterConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
			Headers:     cfg.Telemetry.OTLPHeaders,
		}, log))
		a.closers = append(a.closers, func() { tp.Stop() })
		log.Info(ctx, "tracing initialized", "provider", cfg.Telemetry.TraceProvider)

		if _, err := metrics.NewMetricProvider(metrics.WithServiceName(cfg.Telemetry.ServiceName)); err != nil {
			log.Warn(ctx, "metrics disabled", "error", err)
		} else {
			port := strconv.Itoa(cfg.Telemetry.PrometheusPort)
			go func() {
				if err := metrics.ServePrometheusMetrics(ctx, metrics.WithPort(port)); err != nil {
					log.Warn(ctx, "prometheus server stopped", "error", err)
				}
			}()
			log.Info(ctx, "prometheus metrics server started", "port", port)
		}
	}

	a.mono = monolith.New(cfg, log)

	// Define modules in dependency order
	modules := []monolith.Module{
		&venue.Module{},
		&graph.Module{},
		&arbitrage.Module{},
	}

	if err := a.mono.RegisterModules(modules...); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}
	if err := a.mono.StartModules(ctx, modules...); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to start modules: %w", err)
	}

	return a, nil
}

func run(ctx context.Context, configPath string) error {
	a, err := start(ctx, configPath, true)
	if err != nil {
		return err
	}
	defer a.close()

	cfg, log := a.cfg, a.log
	log.Info(ctx, "starting crossarb", "version", version, "environment", cfg.App.Environment)

	services := a.mono.Services()
	g := graphDI.GetGraph(services)
	refresher := graphDI.GetRefresher(services)
	detector := arbitrageDI.GetDetector(services)

	if cfg.Health.Enabled {
		hs := health.NewServer(cfg.Health.Port, version, log)
		hs.RegisterCheck("venues", func(ctx context.Context) (bool, string) {
			n := len(g.Venues())
			return n > 0, fmt.Sprintf("%d venues, %d edges", n, g.EdgeCount())
		})
		hs.RegisterCheck("rates", func(ctx context.Context) (bool, string) {
			last := refresher.LastRefresh()
			if last.IsZero() {
				return false, "no completed refresh"
			}
			age := time.Since(last)
			return age < 3*cfg.Engine.RefreshInterval, fmt.Sprintf("last refresh %s ago", age.Round(time.Second))
		})
		hs.Start(ctx)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			hs.Stop(stopCtx)
		}()
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}

	if err := detector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start detector: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		refresher.Run(ctx)
	}()

	log.Info(ctx, "detection running", "start_assets", cfg.Engine.StartAssets, "interval", cfg.Engine.RefreshInterval)

	<-ctx.Done()
	log.Info(ctx, "shutting down")
	<-done

	if err := detector.Stop(); err != nil {
		log.Error(ctx, "error stopping detector", "error", err)
	}
	return nil
}

func scan(ctx context.Context, out io.Writer, configPath string, assets []string, minProfit *float64) error {
	a, err := start(ctx, configPath, false)
	if err != nil {
		return err
	}
	defer a.close()

	if len(assets) == 0 {
		assets = a.cfg.Engine.StartAssets
	}
	threshold := a.cfg.Engine.MinProfitPct
	if minProfit != nil {
		threshold = *minProfit
	}

	engine := arbitrageDI.GetEngine(a.mono.Services())
	for _, asset := range assets {
		opps, err := engine.FindArbitrageCycles(ctx, asset, threshold)
		if err != nil {
			return fmt.Errorf("scan %s: %w", asset, err)
		}

		fmt.Fprintln(out, ui.HeaderStyle.Render(fmt.Sprintf("%s: %d opportunities at or above %.4f%%",
			strings.ToUpper(asset), len(opps), threshold)))
		for i, o := range opps {
			fmt.Fprintf(out, "%3d. %s  %s\n", i+1, ui.Signed(o.ProfitPct, "%+.4f%%"), o.Cycle)
		}
	}
	return nil
}
