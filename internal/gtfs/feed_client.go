package gtfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"nexttrain.transitnyc.org/internal/logging"
)

// ErrFeed marks a live feed that could not be fetched or decoded.
var ErrFeed = errors.New("live feed unavailable")

// FeedError reports which feed failed and why.
type FeedError struct {
	URL string
	Err error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.URL, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

func (e *FeedError) Is(target error) bool {
	return target == ErrFeed
}

const DefaultFeedTTL = 15 * time.Second

// FeedClientConfig configures live feed access.
type FeedClientConfig struct {
	// Headers are sent with every request, e.g. an API key header.
	Headers map[string]string
	// TTL is how long a decoded feed is reused. Zero disables reuse.
	TTL    time.Duration
	Client *http.Client
}

// FeedClient fetches and decodes live feeds. Concurrent requests for the same
// URL share one fetch, and successful results are reused for a short TTL.
type FeedClient struct {
	config   FeedClientConfig
	client   *http.Client
	observer Observer
	group    singleflight.Group
	feeds    *cache.Cache
}

func NewFeedClient(config FeedClientConfig, observer Observer) *FeedClient {
	if observer == nil {
		observer = nopObserver{}
	}
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	// No janitor goroutine; expired entries are skipped on read and swept on
	// write.
	return &FeedClient{
		config:   config,
		client:   client,
		observer: observer,
		feeds:    cache.New(config.TTL, 0),
	}
}

// Fetch returns the decoded feed at url. Failures are always *FeedError.
func (fc *FeedClient) Fetch(ctx context.Context, url string) (*Feed, error) {
	if fc.config.TTL > 0 {
		if cached, ok := fc.feeds.Get(url); ok {
			fc.observer.FeedCacheHit(url)
			return cached.(*Feed), nil
		}
	}

	ch := fc.group.DoChan(url, func() (interface{}, error) {
		start := time.Now()
		feed, err := fc.fetch(context.WithoutCancel(ctx), url)
		fc.observer.FeedFetched(url, time.Since(start), err)
		if err != nil {
			return nil, err
		}
		if fc.config.TTL > 0 {
			fc.feeds.DeleteExpired()
			fc.feeds.SetDefault(url, feed)
		}
		return feed, nil
	})

	select {
	case <-ctx.Done():
		return nil, &FeedError{URL: url, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Feed), nil
	}
}

func (fc *FeedClient) fetch(ctx context.Context, url string) (*Feed, error) {
	logger := logging.FromContext(ctx).With(slog.String("component", "gtfs_realtime"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FeedError{URL: url, Err: err}
	}
	for key, value := range fc.config.Headers {
		req.Header.Add(key, value)
	}

	resp, err := fc.client.Do(req)
	if err != nil {
		return nil, &FeedError{URL: url, Err: err}
	}
	defer logging.SafeCloseWithLogging(resp.Body, logger, "http_response_body")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FeedError{URL: url, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FeedError{URL: url, Err: err}
	}

	feed, err := DecodeFeed(b)
	if err != nil {
		return nil, &FeedError{URL: url, Err: err}
	}

	logger.Debug("feed decoded",
		slog.String("url", url),
		slog.Int("trip_updates", len(feed.TripUpdates)),
		slog.Int("bytes", len(b)))

	return feed, nil
}
