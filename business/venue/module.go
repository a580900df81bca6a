// Package venue implements the venue bounded context: the connector port and
// the adapters that satisfy it.
package venue

import (
	"context"
	"fmt"

	"github.com/fd1az/crossarb/business/venue/app"
	venueDI "github.com/fd1az/crossarb/business/venue/di"
	"github.com/fd1az/crossarb/business/venue/infra/guard"
	"github.com/fd1az/crossarb/business/venue/infra/paper"
	"github.com/fd1az/crossarb/internal/config"
	"github.com/fd1az/crossarb/internal/di"
	"github.com/fd1az/crossarb/internal/logger"
	"github.com/fd1az/crossarb/internal/monolith"
)

// Module implements the venue bounded context.
type Module struct{}

// RegisterServices builds a guarded connector per configured venue.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, venueDI.Connectors, func(sr di.ServiceRegistry) []app.Connector {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		guardCfg := guard.Config{
			RequestsPerMinute:   cfg.Guard.RequestsPerMinute,
			ConsecutiveFailures: cfg.Guard.ConsecutiveFailures,
			OpenTimeout:         cfg.Guard.OpenTimeout,
		}

		connectors := make([]app.Connector, 0, len(cfg.Venues))
		for _, vc := range cfg.Venues {
			pc, err := paper.FromConfig(vc)
			if err != nil {
				panic(fmt.Sprintf("failed to build venue %s: %v", vc.ID, err))
			}
			connectors = append(connectors, guard.Wrap(paper.New(pc), guardCfg, log.With("venue", vc.ID)))
		}
		return connectors
	})

	return nil
}

// Startup resolves the connectors so configuration errors surface early.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	connectors := venueDI.GetConnectors(mono.Services())
	if len(connectors) == 0 {
		return fmt.Errorf("no venues configured")
	}

	for _, c := range connectors {
		info := c.Info()
		mono.Logger().Info(ctx, "venue ready", "venue", info.ID, "kind", info.Kind, "network", info.Network)
	}
	return nil
}
