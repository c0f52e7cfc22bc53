package arrivals

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nexttrain.transitnyc.org/internal/gtfs"
	"nexttrain.transitnyc.org/internal/modes"
)

// fakeSource serves in-memory datasets and decoded feeds keyed by URL.
type fakeSource struct {
	mu        sync.Mutex
	datasets  map[string]*gtfs.Dataset
	profiles  map[string]*modes.Profile
	feeds     map[string]*gtfs.Feed
	feedErrs  map[string]error
	staticErr error
	feedCalls map[string]int
}

func newFakeSource(profiles map[string]*modes.Profile) *fakeSource {
	return &fakeSource{
		datasets:  make(map[string]*gtfs.Dataset),
		profiles:  profiles,
		feeds:     make(map[string]*gtfs.Feed),
		feedErrs:  make(map[string]error),
		feedCalls: make(map[string]int),
	}
}

func (s *fakeSource) Dataset(_ context.Context, mode string) (*gtfs.Dataset, error) {
	if s.staticErr != nil {
		return nil, s.staticErr
	}
	d, ok := s.datasets[mode]
	if !ok {
		return nil, errors.New("no dataset")
	}
	return d, nil
}

func (s *fakeSource) Index(ctx context.Context, mode string) (*gtfs.RouteStopIndex, error) {
	d, err := s.Dataset(ctx, mode)
	if err != nil {
		return nil, err
	}
	return gtfs.BuildIndex(d, s.profiles[mode].StopKey), nil
}

func (s *fakeSource) Feed(_ context.Context, url string) (*gtfs.Feed, error) {
	s.mu.Lock()
	s.feedCalls[url]++
	s.mu.Unlock()
	if err, ok := s.feedErrs[url]; ok {
		return nil, &gtfs.FeedError{URL: url, Err: err}
	}
	if f, ok := s.feeds[url]; ok {
		return f, nil
	}
	return &gtfs.Feed{}, nil
}

// subwayDataset is a slice of the 1, 2, A and M lines. Platforms carry their
// station as parent.
func subwayDataset() *gtfs.Dataset {
	stops := map[string]gtfs.Stop{}
	addStation := func(id, name string) {
		stops[id] = gtfs.Stop{ID: id, Name: name, LocationType: 1}
		stops[id+"N"] = gtfs.Stop{ID: id + "N", Name: name, ParentStation: id}
		stops[id+"S"] = gtfs.Stop{ID: id + "S", Name: name, ParentStation: id}
	}
	addStation("103", "238 St")
	addStation("104", "231 St")
	addStation("127", "Times Sq-42 St")
	addStation("142", "South Ferry")
	addStation("A27", "42 St-Port Authority Bus Terminal")
	addStation("M11", "Myrtle Av")

	return &gtfs.Dataset{
		Key:   modes.Subway,
		Stops: stops,
		Routes: map[string]gtfs.Route{
			"1": {ID: "1", ShortName: "1", Color: "#EE352E", TextColor: gtfs.DefaultRouteTextColor},
			"2": {ID: "2", ShortName: "2", Color: "#EE352E", TextColor: gtfs.DefaultRouteTextColor},
			"A": {ID: "A", ShortName: "A", Color: "#0039A6", TextColor: gtfs.DefaultRouteTextColor},
			"M": {ID: "M", ShortName: "M", Color: "#FF6319", TextColor: gtfs.DefaultRouteTextColor},
		},
		Trips: map[string]gtfs.Trip{
			"t1":   {ID: "t1", RouteID: "1", DirectionID: gtfs.DirectionZero},
			"t2":   {ID: "t2", RouteID: "1", DirectionID: gtfs.DirectionOne},
			"t3":   {ID: "t3", RouteID: "2", DirectionID: gtfs.DirectionOne},
			"a1":   {ID: "a1", RouteID: "A", Headsign: "Inwood-207 St", DirectionID: gtfs.DirectionZero},
			"m1":   {ID: "m1", RouteID: "M", DirectionID: gtfs.DirectionZero},
			"lost": {ID: "lost", RouteID: "1"},
		},
		StopTimes: []gtfs.StopTime{
			{TripID: "t1", StopID: "142N", StopSequence: 1},
			{TripID: "t1", StopID: "127N", StopSequence: 2},
			{TripID: "t1", StopID: "104N", StopSequence: 3},
			{TripID: "t1", StopID: "103N", StopSequence: 4},
			{TripID: "t2", StopID: "103S", StopSequence: 1},
			{TripID: "t2", StopID: "104S", StopSequence: 2},
			{TripID: "t2", StopID: "127S", StopSequence: 3},
			{TripID: "t2", StopID: "142S", StopSequence: 4},
			{TripID: "t3", StopID: "127S", StopSequence: 1},
			{TripID: "a1", StopID: "A27N", StopSequence: 1},
			{TripID: "a1", StopID: "127N", StopSequence: 2},
			{TripID: "m1", StopID: "M11N", StopSequence: 1},
			{TripID: "ghost", StopID: "999N", StopSequence: 1},
		},
	}
}

func lirrDataset() *gtfs.Dataset {
	return &gtfs.Dataset{
		Key: modes.LIRR,
		Stops: map[string]gtfs.Stop{
			"8":   {ID: "8", Name: "NY Penn"},
			"102": {ID: "102", Name: "Jamaica"},
			"132": {ID: "132", Name: "Port Washington"},
			"138": {ID: "138", Name: "Atlantic Av"},
			"237": {ID: "237", Name: "Woodside"},
		},
		Routes: map[string]gtfs.Route{
			"9":  {ID: "9", LongName: "Port Washington Branch", Acronym: "PW"},
			"10": {ID: "10", LongName: "Ronkonkoma Branch", Acronym: "RK"},
		},
		Trips: map[string]gtfs.Trip{
			"pw1": {ID: "pw1", RouteID: "9", DirectionID: gtfs.DirectionOne},
			"pw2": {ID: "pw2", RouteID: "9", DirectionID: gtfs.DirectionZero, Headsign: "Port Washington"},
		},
		StopTimes: []gtfs.StopTime{
			{TripID: "pw1", StopID: "132", StopSequence: 1},
			{TripID: "pw1", StopID: "237", StopSequence: 2},
			{TripID: "pw1", StopID: "8", StopSequence: 3},
			{TripID: "pw2", StopID: "8", StopSequence: 1},
			{TripID: "pw2", StopID: "237", StopSequence: 2},
			{TripID: "pw2", StopID: "132", StopSequence: 3},
		},
	}
}

func newTestEngine(t *testing.T, now time.Time) (*Engine, *fakeSource, map[string]*modes.Profile) {
	t.Helper()
	profiles := modes.Defaults()
	source := newFakeSource(profiles)
	source.datasets[modes.Subway] = subwayDataset()
	source.datasets[modes.LIRR] = lirrDataset()

	engine, err := NewEngine(EngineConfig{
		Source:   source,
		Profiles: profiles,
		Clock:    func() time.Time { return now },
	})
	require.NoError(t, err)
	return engine, source, profiles
}

func feedURL(t *testing.T, profile *modes.Profile, routeID string) string {
	t.Helper()
	url, ok := profile.FeedURL(routeID)
	require.True(t, ok)
	return url
}

func update(stopID string, at time.Time) gtfs.StopTimeUpdate {
	return gtfs.StopTimeUpdate{StopID: stopID, Arrival: at.Unix(), Departure: at.Unix()}
}

func withPositions(updates ...gtfs.StopTimeUpdate) []gtfs.StopTimeUpdate {
	for i := range updates {
		updates[i].Position = i
	}
	return updates
}
