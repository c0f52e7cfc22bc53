// Package arrivals joins static schedules with live feeds to answer "when is
// the next train at this stop, and where is it going".
package arrivals

import (
	"time"

	"nexttrain.transitnyc.org/internal/gtfs"
	"nexttrain.transitnyc.org/internal/modes"
)

// UnknownDestination is shown when no destination can be resolved.
const UnknownDestination = "Unknown Destination"

// Arrival is one predicted arrival at the queried stop. It is built per
// request and never stored.
type Arrival struct {
	RouteID string
	TripID  string
	// StopID is the live stop ID that matched; it may carry a platform
	// suffix the query did not.
	StopID        string
	ArrivalTime   time.Time
	DepartureTime time.Time
	Destination   string
	// DestinationSource records which step of the cascade produced
	// Destination.
	DestinationSource DestinationSource
	// Direction is the platform suffix for platform-grouped modes.
	Direction   string
	Track       string
	Status      string
	MinutesAway int
}

// Bucket is one display group: a platform direction or a destination.
type Bucket struct {
	Key      string
	Label    string
	Arrivals []Arrival
}

// RouteError is a route whose live feed could not be used.
type RouteError struct {
	RouteID string
	FeedURL string
	Err     error
}

// Board is the assembled answer for a stop.
type Board struct {
	Mode     string
	Grouping modes.Grouping
	// Stop is nil when the queried stop is not in the schedule.
	Stop              *gtfs.Stop
	RouteIDs          []string
	Buckets           []Bucket
	RouteErrors       []RouteError
	LiveDataAvailable bool
	GeneratedAt       time.Time
}

// Count is the number of arrivals across all buckets.
func (b *Board) Count() int {
	n := 0
	for _, bucket := range b.Buckets {
		n += len(bucket.Arrivals)
	}
	return n
}

// Options tunes a single Arrivals call.
type Options struct {
	// RouteID limits the query to one route. Empty means every route
	// scheduled at the stop.
	RouteID string
	// IncludeDeparted keeps rail arrivals more than a minute in the past.
	IncludeDeparted bool
	// Now overrides the engine clock.
	Now time.Time
	// Limit overrides the mode's per-bucket display limit.
	Limit int
}
