package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"nexttrain.transitnyc.org/internal/app"
	"nexttrain.transitnyc.org/internal/appconf"
	"nexttrain.transitnyc.org/internal/logging"
	"nexttrain.transitnyc.org/internal/restapi"
)

const shutdownTimeout = 20 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the arrivals HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Usage:   "API server port",
				Value:   appconf.DefaultPort,
				EnvVars: []string{"PORT"},
			},
			&cli.StringFlag{
				Name:    "env",
				Usage:   "development, test or production",
				EnvVars: []string{"ENV"},
			},
			&cli.StringFlag{
				Name:    "api-keys",
				Usage:   "comma separated API keys; empty leaves the API open",
				EnvVars: []string{"API_KEYS"},
			},
			&cli.IntFlag{
				Name:    "rate-limit",
				Usage:   "requests per second per API key; -1 disables limiting",
				EnvVars: []string{"RATE_LIMIT"},
			},
			&cli.BoolFlag{
				Name:    "warm",
				Usage:   "load every static schedule before accepting requests",
				EnvVars: []string{"WARM_ON_START"},
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			return serve(c.Context, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg appconf.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger)
	if err != nil {
		return logging.ReplaceLogFatal(logger, "failed to initialize application", err)
	}
	defer application.Shutdown()

	if cfg.WarmOnStart {
		if err := application.GtfsManager.Warm(ctx); err != nil {
			// Lazy loading retries on first use, so a failed warm is not fatal.
			logging.LogWarning(logger, "failed to warm static schedules", err)
		}
		application.GtfsManager.LogStatistics(ctx, logger)
	}

	api := restapi.NewRestAPI(application)
	defer api.Shutdown()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.Handler(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "modes", application.Engine.Modes())
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return logging.ReplaceLogFatal(logger, "server stopped", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return logging.ReplaceLogFatal(logger, "graceful shutdown failed", err)
	}
	return nil
}
