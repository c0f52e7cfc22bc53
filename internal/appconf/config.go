// Package appconf assembles the server configuration from built-in defaults,
// an optional YAML file, an optional .env file and command-line flags.
package appconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"nexttrain.transitnyc.org/internal/gtfs"
	"nexttrain.transitnyc.org/internal/modes"
)

const (
	DefaultPort           = 4000
	DefaultRateLimit      = 100
	DefaultFeedTTL        = 15 * time.Second
	DefaultFeedTimeout    = 10 * time.Second
	DefaultFeedAuthHeader = "x-api-key"
)

var validate = validator.New()

// Config holds all the configuration settings for the application.
type Config struct {
	Port    int         `yaml:"port" validate:"min=1,max=65535"`
	Env     Environment `yaml:"env" validate:"oneof=development test production"`
	ApiKeys []string    `yaml:"apiKeys"`
	// RateLimit is requests per second allowed per API key. Zero blocks
	// every request and -1 disables limiting.
	RateLimit int `yaml:"rateLimit" validate:"min=-1"`

	LogLevel  string `yaml:"logLevel" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"logFormat" validate:"oneof=text json"`

	FeedAPIKey     string                   `yaml:"feedApiKey"`
	FeedAuthHeader string                   `yaml:"feedAuthHeader"`
	FeedTTL        time.Duration            `yaml:"feedTtl" validate:"min=0"`
	FeedTimeout    time.Duration            `yaml:"feedTimeout" validate:"min=0"`
	WarmOnStart    bool                     `yaml:"warmOnStart"`
	EnabledModes   []string                 `yaml:"enabledModes"`
	Modes          map[string]modes.Profile `yaml:"modes" validate:"dive"`
}

// Default is the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Port:           DefaultPort,
		Env:            Development,
		RateLimit:      DefaultRateLimit,
		LogLevel:       "info",
		LogFormat:      "text",
		FeedAuthHeader: DefaultFeedAuthHeader,
		FeedTTL:        DefaultFeedTTL,
		FeedTimeout:    DefaultFeedTimeout,
	}
}

// LoadFile overlays the YAML file at path onto cfg and validates the result.
// Fields the file does not mention keep their current values.
func LoadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg.Validate()
}

// LoadDotEnv loads environment variables from the given .env files, or from
// ./.env when none are named. A missing file is not an error. Variables
// already set in the process environment are left alone.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ParseAPIKeys splits a comma separated key list, dropping blanks.
func ParseAPIKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Profiles merges the configured mode overrides onto the built-in profiles.
// A mode that is not built in must name its grouping and static source.
// When EnabledModes is set only those modes are returned.
func (c Config) Profiles() (map[string]*modes.Profile, error) {
	profiles := modes.Defaults()

	keys := make([]string, 0, len(c.Modes))
	for key := range c.Modes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		override := c.Modes[key]
		if p, ok := profiles[key]; ok {
			p.Merge(override)
			continue
		}
		if override.Grouping == "" || override.StaticSource == "" {
			return nil, fmt.Errorf("mode %q is not built in and needs grouping and staticSource", key)
		}
		p := &modes.Profile{Key: key}
		p.Merge(override)
		if p.Name == "" {
			p.Name = key
		}
		profiles[key] = p
	}

	if len(c.EnabledModes) == 0 {
		return profiles, nil
	}
	enabled := make(map[string]*modes.Profile, len(c.EnabledModes))
	for _, key := range c.EnabledModes {
		p, ok := profiles[key]
		if !ok {
			return nil, fmt.Errorf("enabled mode %q is not configured", key)
		}
		enabled[key] = p
	}
	return enabled, nil
}

// GTFSConfig is the gtfs manager configuration for the given profiles.
func (c Config) GTFSConfig(profiles map[string]*modes.Profile) gtfs.Config {
	sources := make(map[string]gtfs.ModeSource, len(profiles))
	for key, p := range profiles {
		sources[key] = p.GTFSSource(nil)
	}
	return gtfs.Config{
		Modes:                   sources,
		RealTimeAuthHeaderKey:   c.FeedAuthHeader,
		RealTimeAuthHeaderValue: c.FeedAPIKey,
		FeedTTL:                 c.FeedTTL,
		FeedTimeout:             c.FeedTimeout,
	}
}
