// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/fd1az/crossarb/internal/config"
	"github.com/fd1az/crossarb/internal/di"
	"github.com/fd1az/crossarb/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// App implements the Monolith interface.
type App struct {
	config    *config.Config
	logger    logger.LoggerInterface
	container di.Container
}

// New creates a new Monolith instance.
func New(cfg *config.Config, log logger.LoggerInterface) *App {
	container := di.NewContainer()

	container.Register("config", cfg)
	container.Register("logger", log)

	return &App{
		config:    cfg,
		logger:    log,
		container: container,
	}
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *App) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *App) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *App) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules in order.
func (a *App) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
