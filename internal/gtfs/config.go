package gtfs

import (
	"fmt"
	"time"
)

// ModeSource is where one mode's schedule lives and how its stop IDs match.
type ModeSource struct {
	Static  StaticSource
	Load    LoadOptions
	StopKey StopKeyFunc
}

type Config struct {
	Modes                   map[string]ModeSource
	RealTimeAuthHeaderKey   string
	RealTimeAuthHeaderValue string
	FeedTTL                 time.Duration
	FeedTimeout             time.Duration
}

func (config Config) realTimeHeaders() map[string]string {
	headers := map[string]string{}
	if config.RealTimeAuthHeaderKey != "" && config.RealTimeAuthHeaderValue != "" {
		headers[config.RealTimeAuthHeaderKey] = config.RealTimeAuthHeaderValue
	}
	return headers
}

func (config Config) validate() error {
	if len(config.Modes) == 0 {
		return fmt.Errorf("no transit modes configured")
	}
	for key, mode := range config.Modes {
		if mode.Static.Location == "" {
			return fmt.Errorf("mode %q has no static source", key)
		}
	}
	return nil
}
