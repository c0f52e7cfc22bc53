package gtfs

import (
	"strconv"
	"strings"
)

const (
	DefaultRouteColor     = "#808080"
	DefaultRouteTextColor = "#FFFFFF"
)

// DirectionID is the binary trip direction flag. Its meaning is defined per
// mode.
type DirectionID int8

const (
	DirectionUnspecified DirectionID = -1
	DirectionZero        DirectionID = 0
	DirectionOne         DirectionID = 1
)

func parseDirectionID(raw string) DirectionID {
	switch strings.TrimSpace(raw) {
	case "0":
		return DirectionZero
	case "1":
		return DirectionOne
	default:
		return DirectionUnspecified
	}
}

type Stop struct {
	ID            string
	Name          string
	Latitude      float64
	Longitude     float64
	LocationType  int
	ParentStation string
}

// StationID is the parent station when there is one, otherwise the stop itself.
func (s Stop) StationID() string {
	if s.ParentStation != "" {
		return s.ParentStation
	}
	return s.ID
}

type Route struct {
	ID        string
	ShortName string
	LongName  string
	Color     string
	TextColor string
	Acronym   string
}

// DisplayName prefers the short name.
func (r Route) DisplayName() string {
	if r.ShortName != "" {
		return r.ShortName
	}
	if r.LongName != "" {
		return r.LongName
	}
	return r.ID
}

type Trip struct {
	ID          string
	RouteID     string
	ServiceID   string
	Headsign    string
	DirectionID DirectionID
}

// StopTime is a scheduled (trip, stop, sequence) row. It only feeds the
// route/stop index.
type StopTime struct {
	TripID        string
	StopID        string
	ArrivalTime   string
	DepartureTime string
	StopSequence  int
}

// Dataset is one mode's static schedule, keyed by ID.
type Dataset struct {
	Key    string
	Stops  map[string]Stop
	Routes map[string]Route
	Trips  map[string]Trip

	// StopTimes is kept in file order so the index sees stops in the order
	// trips serve them.
	StopTimes []StopTime
}

func (d *Dataset) Stop(id string) (Stop, bool) {
	s, ok := d.Stops[id]
	return s, ok
}

func (d *Dataset) Route(id string) (Route, bool) {
	r, ok := d.Routes[id]
	return r, ok
}

func (d *Dataset) Trip(id string) (Trip, bool) {
	t, ok := d.Trips[id]
	return t, ok
}

// normalizeColor prefixes a hex triplet with '#', falling back when blank.
func normalizeColor(raw, fallback string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if raw == "" {
		return fallback
	}
	return "#" + strings.ToUpper(raw)
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return v
}
