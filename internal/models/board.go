package models

import (
	"time"

	"nexttrain.transitnyc.org/internal/arrivals"
)

// Arrival times are epoch milliseconds, like CurrentTime.
type Arrival struct {
	RouteID           string `json:"routeId"`
	TripID            string `json:"tripId"`
	StopID            string `json:"stopId"`
	ArrivalTime       int64  `json:"arrivalTime"`
	DepartureTime     int64  `json:"departureTime"`
	MinutesAway       int    `json:"minutesAway"`
	Destination       string `json:"destination"`
	DestinationSource string `json:"destinationSource"`
	Direction         string `json:"direction,omitempty"`
	Track             string `json:"track,omitempty"`
	Status            string `json:"status,omitempty"`
}

type ArrivalGroup struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Arrivals []Arrival `json:"arrivals"`
}

type RouteError struct {
	RouteID string `json:"routeId"`
	FeedURL string `json:"feedUrl,omitempty"`
	Error   string `json:"error"`
}

type Board struct {
	Mode              string         `json:"mode"`
	Grouping          string         `json:"grouping"`
	StopID            string         `json:"stopId"`
	RouteIDs          []string       `json:"routeIds"`
	Groups            []ArrivalGroup `json:"groups"`
	RouteErrors       []RouteError   `json:"routeErrors"`
	LiveDataAvailable bool           `json:"liveDataAvailable"`
	GeneratedAt       int64          `json:"generatedAt"`
	// Error is set when no live data could be fetched at all.
	Error string `json:"error,omitempty"`
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func NewArrival(a arrivals.Arrival) Arrival {
	return Arrival{
		RouteID:           a.RouteID,
		TripID:            a.TripID,
		StopID:            a.StopID,
		ArrivalTime:       millis(a.ArrivalTime),
		DepartureTime:     millis(a.DepartureTime),
		MinutesAway:       a.MinutesAway,
		Destination:       a.Destination,
		DestinationSource: string(a.DestinationSource),
		Direction:         a.Direction,
		Track:             a.Track,
		Status:            a.Status,
	}
}

// NewBoard flattens an assembled board. err is the feed error the engine
// returned alongside it, if any.
func NewBoard(b *arrivals.Board, err error) Board {
	out := Board{
		Mode:              b.Mode,
		Grouping:          string(b.Grouping),
		RouteIDs:          b.RouteIDs,
		Groups:            make([]ArrivalGroup, 0, len(b.Buckets)),
		RouteErrors:       make([]RouteError, 0, len(b.RouteErrors)),
		LiveDataAvailable: b.LiveDataAvailable,
		GeneratedAt:       millis(b.GeneratedAt),
	}
	if out.RouteIDs == nil {
		out.RouteIDs = []string{}
	}
	if b.Stop != nil {
		out.StopID = b.Stop.ID
	}
	for _, bucket := range b.Buckets {
		group := ArrivalGroup{
			Key:      bucket.Key,
			Label:    bucket.Label,
			Arrivals: make([]Arrival, 0, len(bucket.Arrivals)),
		}
		for _, a := range bucket.Arrivals {
			group.Arrivals = append(group.Arrivals, NewArrival(a))
		}
		out.Groups = append(out.Groups, group)
	}
	for _, re := range b.RouteErrors {
		view := RouteError{RouteID: re.RouteID, FeedURL: re.FeedURL}
		if re.Err != nil {
			view.Error = re.Err.Error()
		}
		out.RouteErrors = append(out.RouteErrors, view)
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}
