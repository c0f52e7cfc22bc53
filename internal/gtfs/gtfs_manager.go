package gtfs

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"nexttrain.transitnyc.org/internal/logging"
)

// Manager owns the static caches and the live feed client for every
// configured mode. Static data is loaded lazily on first use.
type Manager struct {
	config       Config
	static       *StaticCache
	feeds        *FeedClient
	shutdownOnce sync.Once
}

// InitGTFSManager builds a Manager. Nothing is fetched until a mode is first
// queried or Warm is called.
func InitGTFSManager(config Config, observer Observer) (*Manager, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	ttl := config.FeedTTL
	if ttl == 0 {
		ttl = DefaultFeedTTL
	}
	var client *http.Client
	if config.FeedTimeout > 0 {
		client = &http.Client{Timeout: config.FeedTimeout}
	}

	manager := &Manager{config: config}
	manager.static = NewStaticCache(manager.loadMode, manager.stopKey, observer)
	manager.feeds = NewFeedClient(FeedClientConfig{
		Headers: config.realTimeHeaders(),
		TTL:     ttl,
		Client:  client,
	}, observer)

	return manager, nil
}

func (manager *Manager) loadMode(ctx context.Context, mode string) (*Dataset, error) {
	source, ok := manager.config.Modes[mode]
	if !ok {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrStaticLoad, mode)
	}
	return LoadDataset(ctx, mode, source.Static, source.Load)
}

func (manager *Manager) stopKey(mode string) StopKeyFunc {
	return manager.config.Modes[mode].StopKey
}

// Modes lists the configured mode keys in sorted order.
func (manager *Manager) Modes() []string {
	modes := make([]string, 0, len(manager.config.Modes))
	for key := range manager.config.Modes {
		modes = append(modes, key)
	}
	sort.Strings(modes)
	return modes
}

// LoadedModes lists the modes whose static dataset is in memory.
func (manager *Manager) LoadedModes() []string {
	loaded := manager.static.Loaded()
	sort.Strings(loaded)
	return loaded
}

func (manager *Manager) HasMode(mode string) bool {
	_, ok := manager.config.Modes[mode]
	return ok
}

func (manager *Manager) Dataset(ctx context.Context, mode string) (*Dataset, error) {
	return manager.static.Dataset(ctx, mode)
}

func (manager *Manager) Index(ctx context.Context, mode string) (*RouteStopIndex, error) {
	return manager.static.Index(ctx, mode)
}

func (manager *Manager) Feed(ctx context.Context, url string) (*Feed, error) {
	return manager.feeds.Fetch(ctx, url)
}

// Warm loads the dataset and index of each mode in parallel.
func (manager *Manager) Warm(ctx context.Context, modes ...string) error {
	if len(modes) == 0 {
		modes = manager.Modes()
	}
	p := pool.New().WithContext(ctx)
	for _, mode := range modes {
		p.Go(func(ctx context.Context) error {
			_, err := manager.Index(ctx, mode)
			return err
		})
	}
	return p.Wait()
}

// Shutdown drops cached live feeds. Static datasets stay with the Manager
// until it is released.
func (manager *Manager) Shutdown() {
	manager.shutdownOnce.Do(func() {
		manager.feeds.feeds.Flush()
	})
}

// LogStatistics writes a summary of every loaded dataset.
func (manager *Manager) LogStatistics(ctx context.Context, logger *slog.Logger) {
	for _, mode := range manager.static.Loaded() {
		dataset, err := manager.Dataset(ctx, mode)
		if err != nil {
			continue
		}
		logging.LogOperation(logger, "gtfs_dataset_statistics",
			slog.String("mode", mode),
			slog.String("source", manager.config.Modes[mode].Static.Location),
			slog.Int("stops", len(dataset.Stops)),
			slog.Int("routes", len(dataset.Routes)),
			slog.Int("trips", len(dataset.Trips)),
			slog.Int("stop_times", len(dataset.StopTimes)))
	}
}
