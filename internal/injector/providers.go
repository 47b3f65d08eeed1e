package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/gravisim/internal/config"
	"github.com/zeusync/gravisim/internal/core/events/bus"
	"github.com/zeusync/gravisim/internal/core/models"
	"github.com/zeusync/gravisim/internal/core/observability/log"
	"github.com/zeusync/gravisim/internal/core/simulation"
	"github.com/zeusync/gravisim/internal/core/systems/gravity"
)

// ProviderSet builds the simulation core from a *config.Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideUniverse,
	ProvideWorld,
	ProvideEventBus,
	ProvideLoop,
	wire.Struct(new(App), "*"),
)

// App is the wired simulation core. Outer surfaces (renderer, viewers) are
// attached by the caller.
type App struct {
	Config *config.Config
	Logger log.Log
	Bus    bus.EventBus
	Loop   *simulation.Loop
}

func ProvideLogger(cfg *config.Config) (log.Log, func(), error) {
	logger, err := log.NewWithConfig(log.Config{
		Level:       cfg.LogLevel(),
		Encoding:    cfg.Log.Encoding,
		OutputPaths: []string{cfg.Log.Output},
	})
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func ProvideUniverse(cfg *config.Config, logger log.Log) (*gravity.Universe, error) {
	return gravity.NewUniverse(append(cfg.UniverseOptions(), gravity.WithLogger(logger))...)
}

func ProvideWorld(cfg *config.Config) (*models.World, error) {
	return cfg.BuildWorld()
}

func ProvideEventBus() bus.EventBus {
	return bus.New()
}

func ProvideLoop(cfg *config.Config, universe *gravity.Universe, world *models.World, eventBus bus.EventBus, logger log.Log) (*simulation.Loop, error) {
	return simulation.NewLoop(universe, world, eventBus, logger, cfg.LoopConfig())
}
