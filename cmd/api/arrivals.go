package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"nexttrain.transitnyc.org/internal/app"
	"nexttrain.transitnyc.org/internal/appconf"
	"nexttrain.transitnyc.org/internal/arrivals"
	"nexttrain.transitnyc.org/internal/logging"
	"nexttrain.transitnyc.org/internal/models"
)

func arrivalsCommand() *cli.Command {
	return &cli.Command{
		Name:  "arrivals",
		Usage: "print the arrival board for one stop as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Usage: "subway, lirr or mnrr", Required: true},
			&cli.StringFlag{Name: "stop", Usage: "stop or station ID", Required: true},
			&cli.StringFlag{Name: "route", Usage: "only this route"},
			&cli.BoolFlag{Name: "include-departed", Usage: "keep rail trains that already left"},
			&cli.IntFlag{Name: "limit", Usage: "arrivals per group; 0 uses the mode default"},
			&cli.StringFlag{Name: "out", Usage: "write to this file instead of stdout"},
		},
		Action: func(c *cli.Context) (err error) {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			// Logs go to stderr so stdout stays valid JSON.
			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logger := logging.NewLogger(os.Stderr, cfg.LogFormat, level)

			var out io.Writer = os.Stdout
			if path := c.String("out"); path != "" {
				f, createErr := os.Create(path)
				if createErr != nil {
					return createErr
				}
				defer logging.HandleDeferredError(&err, f.Close, logger, "close_output_file")
				out = f
			}

			return printArrivals(c.Context, out, cfg, logger, c.String("mode"), c.String("stop"), arrivals.Options{
				RouteID:         c.String("route"),
				IncludeDeparted: c.Bool("include-departed"),
				Limit:           c.Int("limit"),
			})
		},
	}
}

func printArrivals(ctx context.Context, out io.Writer, cfg appconf.Config, logger *slog.Logger, mode, stopID string, opts arrivals.Options) error {
	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	board, err := application.Engine.Arrivals(ctx, mode, stopID, opts)
	if board == nil {
		return err
	}
	if err != nil && !errors.Is(err, arrivals.ErrFeedUnavailable) {
		return err
	}
	if board.Stop == nil {
		return fmt.Errorf("stop %q not found in %s schedule", stopID, mode)
	}
	if err != nil {
		logging.LogWarning(logger, "showing stop without live data", err, slog.String("mode", mode))
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(models.NewBoard(board, err))
}
