package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"nexttrain.transitnyc.org/internal/appconf"
	"nexttrain.transitnyc.org/internal/logging"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "nexttrain",
		Usage: "real-time arrivals for the NYC subway, LIRR and Metro-North",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML config file layered over the built-in defaults",
				EnvVars: []string{"CONFIG_FILE"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file to load before reading the environment",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "json or text",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "mta-api-key",
				Usage:   "key sent to the MTA live feed endpoints",
				EnvVars: []string{"MTA_API_KEY"},
			},
		},
		Before: func(c *cli.Context) error {
			return appconf.LoadDotEnv(c.String("env-file"))
		},
		Commands: []*cli.Command{
			serveCommand(),
			arrivalsCommand(),
		},
	}
}

// loadConfig layers the config file and then any flags set on the command
// line or through the environment over the defaults.
func loadConfig(c *cli.Context) (appconf.Config, error) {
	cfg := appconf.Default()
	if path := c.String("config"); path != "" {
		if err := appconf.LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if c.IsSet("mta-api-key") {
		cfg.FeedAPIKey = c.String("mta-api-key")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("env") {
		cfg.Env = appconf.EnvFlagToEnvironment(c.String("env"))
	}
	if c.IsSet("api-keys") {
		cfg.ApiKeys = appconf.ParseAPIKeys(c.String("api-keys"))
	}
	if c.IsSet("rate-limit") {
		cfg.RateLimit = c.Int("rate-limit")
	}
	if c.IsSet("warm") {
		cfg.WarmOnStart = c.Bool("warm")
	}

	return cfg, cfg.Validate()
}

func newLogger(cfg appconf.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(os.Stdout, cfg.LogFormat, level), nil
}
