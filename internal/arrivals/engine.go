package arrivals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"

	"nexttrain.transitnyc.org/internal/gtfs"
	"nexttrain.transitnyc.org/internal/logging"
	"nexttrain.transitnyc.org/internal/modes"
)

// Source is where the engine gets schedules and live feeds. *gtfs.Manager
// satisfies it.
type Source interface {
	Dataset(ctx context.Context, mode string) (*gtfs.Dataset, error)
	Index(ctx context.Context, mode string) (*gtfs.RouteStopIndex, error)
	Feed(ctx context.Context, url string) (*gtfs.Feed, error)
}

// Observer is notified of served boards and failed route feeds.
type Observer interface {
	ArrivalsServed(mode string, count int)
	RouteFeedFailed(mode, routeID string)
}

type nopObserver struct{}

func (nopObserver) ArrivalsServed(string, int)     {}
func (nopObserver) RouteFeedFailed(string, string) {}

type EngineConfig struct {
	Source   Source
	Profiles map[string]*modes.Profile
	Logger   *slog.Logger
	Observer Observer
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Engine answers the stop, route and arrival queries for every configured
// mode.
type Engine struct {
	source   Source
	profiles map[string]*modes.Profile
	logger   *slog.Logger
	observer Observer
	clock    func() time.Time
}

func NewEngine(config EngineConfig) (*Engine, error) {
	if config.Source == nil {
		return nil, errors.New("arrivals: engine needs a source")
	}
	if len(config.Profiles) == 0 {
		return nil, errors.New("arrivals: engine needs at least one mode profile")
	}
	e := &Engine{
		source:   config.Source,
		profiles: config.Profiles,
		logger:   config.Logger,
		observer: config.Observer,
		clock:    config.Clock,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With(slog.String("component", "arrivals_engine"))
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	return e, nil
}

// Profile returns the profile of a configured mode.
func (e *Engine) Profile(mode string) (*modes.Profile, bool) {
	p, ok := e.profiles[mode]
	return p, ok
}

// Modes lists the configured mode keys in sorted order.
func (e *Engine) Modes() []string {
	keys := make([]string, 0, len(e.profiles))
	for key := range e.profiles {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (e *Engine) static(ctx context.Context, mode string) (*modes.Profile, *gtfs.Dataset, *gtfs.RouteStopIndex, error) {
	profile, ok := e.profiles[mode]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	dataset, err := e.source.Dataset(ctx, mode)
	if err != nil {
		return nil, nil, nil, datasetError(err)
	}
	idx, err := e.source.Index(ctx, mode)
	if err != nil {
		return nil, nil, nil, datasetError(err)
	}
	return profile, dataset, idx, nil
}

// datasetError wraps a static load failure. A caller that gave up is not a
// dataset fault, so cancellation passes through untouched.
func datasetError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDatasetUnavailable, err)
}

// Dataset exposes the mode's static schedule for presentation lookups.
func (e *Engine) Dataset(ctx context.Context, mode string) (*gtfs.Dataset, error) {
	_, dataset, _, err := e.static(ctx, mode)
	return dataset, err
}

// StopsForRoute lists the stops a route serves in schedule order, one entry
// per station. The first platform seen stands for its station. An unknown
// route yields an empty list.
func (e *Engine) StopsForRoute(ctx context.Context, mode, routeID string) ([]gtfs.Stop, error) {
	_, dataset, idx, err := e.static(ctx, mode)
	if err != nil {
		return nil, err
	}

	ids := idx.StopsForRoute(routeID)
	stops := make([]gtfs.Stop, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		stop, ok := dataset.Stop(id)
		if !ok {
			stop = gtfs.Stop{ID: id, Name: id}
		}
		station := stop.StationID()
		if _, dup := seen[station]; dup {
			continue
		}
		seen[station] = struct{}{}
		stops = append(stops, stop)
	}
	return stops, nil
}

// RoutesForStop lists the routes scheduled at a stop, any platform of it, or
// any child of it, sorted by short name and then ID.
func (e *Engine) RoutesForStop(ctx context.Context, mode, stopID string) ([]string, error) {
	_, dataset, idx, err := e.static(ctx, mode)
	if err != nil {
		return nil, err
	}
	routes := idx.RoutesForStop(stopID)
	sortRoutes(dataset, routes)
	return routes, nil
}

func sortRoutes(dataset *gtfs.Dataset, routes []string) {
	sort.SliceStable(routes, func(i, j int) bool {
		a, _ := dataset.Route(routes[i])
		b, _ := dataset.Route(routes[j])
		if a.ShortName != b.ShortName {
			return a.ShortName < b.ShortName
		}
		return routes[i] < routes[j]
	})
}

func knownRoute(dataset *gtfs.Dataset, idx *gtfs.RouteStopIndex, routeID string) bool {
	if _, ok := dataset.Route(routeID); ok {
		return true
	}
	return len(idx.StopsForRoute(routeID)) > 0
}

// lookupStop resolves the queried stop. A stop missing from stops.txt but
// present in stop_times is still served under its bare ID.
func lookupStop(dataset *gtfs.Dataset, idx *gtfs.RouteStopIndex, stopID string) (*gtfs.Stop, bool) {
	if stop, ok := dataset.Stop(stopID); ok {
		return &stop, true
	}
	if len(idx.RoutesForStop(stopID)) > 0 {
		return &gtfs.Stop{ID: stopID, Name: stopID}, true
	}
	return nil, false
}

// feedGroup is the set of queried routes served by one feed URL.
type feedGroup struct {
	url    string
	routes []string
}

type groupResult struct {
	arrivals []Arrival
	err      error
}

// Arrivals assembles the arrival board for a stop. An unknown stop returns a
// board with a nil Stop and no error, and so does filtering on a route the
// schedule does not know, with no route IDs and empty buckets. When every live feed fails the board is
// still returned, with LiveDataAvailable false, alongside an error wrapping
// ErrFeedUnavailable.
func (e *Engine) Arrivals(ctx context.Context, mode, stopID string, opts Options) (*Board, error) {
	profile, dataset, idx, err := e.static(ctx, mode)
	if err != nil {
		return nil, err
	}

	now := opts.Now
	if now.IsZero() {
		now = e.clock()
	}
	board := &Board{
		Mode:              mode,
		Grouping:          profile.Grouping,
		LiveDataAvailable: true,
		GeneratedAt:       now,
	}

	stop, ok := lookupStop(dataset, idx, stopID)
	if !ok {
		return board, nil
	}
	board.Stop = stop

	if opts.RouteID != "" {
		// A route the schedule has never heard of has nothing to fetch.
		board.RouteIDs = []string{}
		if knownRoute(dataset, idx, opts.RouteID) {
			board.RouteIDs = append(board.RouteIDs, opts.RouteID)
		}
	} else {
		board.RouteIDs = idx.RoutesForStop(stopID)
		sortRoutes(dataset, board.RouteIDs)
	}

	var groups []feedGroup
	byURL := make(map[string]int)
	for _, routeID := range board.RouteIDs {
		url, ok := profile.FeedURL(routeID)
		if !ok {
			board.RouteErrors = append(board.RouteErrors, RouteError{RouteID: routeID, Err: errNoFeedForRoute})
			continue
		}
		if i, seen := byURL[url]; seen {
			groups[i].routes = append(groups[i].routes, routeID)
			continue
		}
		byURL[url] = len(groups)
		groups = append(groups, feedGroup{url: url, routes: []string{routeID}})
	}

	queryIDs := append([]string{stopID}, idx.ChildStops(stopID)...)
	resolver := NewDestinationResolver(profile, dataset)

	results := make([]groupResult, len(groups))
	p := pool.New().WithContext(ctx)
	for i, group := range groups {
		p.Go(func(ctx context.Context) error {
			feed, err := e.source.Feed(ctx, group.url)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].arrivals = e.collect(profile, dataset, resolver, feed, group.routes, queryIDs)
			return nil
		})
	}
	_ = p.Wait()

	var collected []Arrival
	succeeded := 0
	for i, result := range results {
		if result.err != nil {
			for _, routeID := range groups[i].routes {
				board.RouteErrors = append(board.RouteErrors, RouteError{
					RouteID: routeID,
					FeedURL: groups[i].url,
					Err:     result.err,
				})
				e.observer.RouteFeedFailed(mode, routeID)
			}
			logging.LogError(e.logger, "route feed unavailable", result.err,
				slog.String("mode", mode),
				slog.String("stop_id", stopID),
				slog.Any("routes", groups[i].routes),
				slog.String("feed_url", groups[i].url))
			continue
		}
		succeeded++
		collected = append(collected, result.arrivals...)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = profile.DisplayLimit
	}
	if profile.ByPlatform() {
		board.Buckets = AssemblePlatform(profile, collected, now, limit)
	} else {
		board.Buckets = AssembleDestination(collected, now, opts.IncludeDeparted, limit)
	}
	e.observer.ArrivalsServed(mode, board.Count())

	if len(board.RouteIDs) > 0 && succeeded == 0 {
		board.LiveDataAvailable = false
		if len(groups) == 0 {
			return board, fmt.Errorf("%w: %w", ErrFeedUnavailable, errNoFeedForRoute)
		}
		return board, fmt.Errorf("%w: %w", ErrFeedUnavailable, results[0].err)
	}
	return board, nil
}

// collect turns the trips of one feed into arrivals at the queried stop,
// keeping feed order.
func (e *Engine) collect(profile *modes.Profile, dataset *gtfs.Dataset, resolver *DestinationResolver, feed *gtfs.Feed, routes, queryIDs []string) []Arrival {
	wanted := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		wanted[r] = struct{}{}
	}

	var out []Arrival
	for _, trip := range feed.TripUpdates {
		if trip.RouteID == "" {
			if st, ok := dataset.Trip(trip.TripID); ok {
				trip.RouteID = st.RouteID
			}
		}
		if _, ok := wanted[trip.RouteID]; !ok {
			continue
		}

		status := ""
		if trip.Canceled {
			if profile.ByPlatform() {
				continue
			}
			status = "Cancelled"
		}

		for _, stu := range trip.StopTimeUpdates {
			if !stu.HasTime() {
				continue
			}
			stu.StopID = profile.CorrectPlatform(trip.RouteID, stu.StopID)
			if !matchesAny(profile, stu.StopID, queryIDs) {
				continue
			}

			a := Arrival{
				RouteID:       trip.RouteID,
				TripID:        trip.TripID,
				StopID:        stu.StopID,
				ArrivalTime:   time.Unix(stu.ArrivalTime(), 0),
				DepartureTime: time.Unix(stu.DepartureTime(), 0),
				Track:         stu.Track,
				Status:        stu.Status,
			}
			if a.Status == "" {
				a.Status = status
			}
			a.Destination, a.DestinationSource = resolver.Resolve(trip, stu)
			Classify(profile, trip, &a)
			out = append(out, a)
		}
	}
	return out
}

func matchesAny(profile *modes.Profile, liveID string, queryIDs []string) bool {
	for _, q := range queryIDs {
		if profile.MatchesStop(liveID, q) {
			return true
		}
	}
	return false
}
