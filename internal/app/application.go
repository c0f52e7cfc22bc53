package app

import (
	"fmt"
	"log/slog"

	"nexttrain.transitnyc.org/internal/appconf"
	"nexttrain.transitnyc.org/internal/arrivals"
	"nexttrain.transitnyc.org/internal/gtfs"
	"nexttrain.transitnyc.org/internal/metrics"
	"nexttrain.transitnyc.org/internal/modes"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware.
type Application struct {
	Config      appconf.Config
	GtfsConfig  gtfs.Config
	Logger      *slog.Logger
	GtfsManager *gtfs.Manager
	Engine      *arrivals.Engine
	Metrics     *metrics.Collector
}

// New wires the gtfs manager, the arrivals engine and the metrics collector
// from cfg.
func New(cfg appconf.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	profiles, err := cfg.Profiles()
	if err != nil {
		return nil, err
	}
	gtfsConfig := cfg.GTFSConfig(profiles)
	collector := metrics.NewCollector()

	manager, err := gtfs.InitGTFSManager(gtfsConfig, collector)
	if err != nil {
		return nil, fmt.Errorf("initializing gtfs manager: %w", err)
	}

	return NewWithSource(cfg, gtfsConfig, logger, manager, profiles, collector)
}

// NewWithSource builds an Application around an existing gtfs manager. Tests
// use it to point the engine at fixture data.
func NewWithSource(cfg appconf.Config, gtfsConfig gtfs.Config, logger *slog.Logger, manager *gtfs.Manager, profiles map[string]*modes.Profile, collector *metrics.Collector) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}

	engine, err := arrivals.NewEngine(arrivals.EngineConfig{
		Source:   manager,
		Profiles: profiles,
		Logger:   logger,
		Observer: collector,
	})
	if err != nil {
		return nil, err
	}

	return &Application{
		Config:      cfg,
		GtfsConfig:  gtfsConfig,
		Logger:      logger,
		GtfsManager: manager,
		Engine:      engine,
		Metrics:     collector,
	}, nil
}

// Shutdown releases the gtfs manager.
func (app *Application) Shutdown() {
	if app.GtfsManager != nil {
		app.GtfsManager.Shutdown()
	}
}
