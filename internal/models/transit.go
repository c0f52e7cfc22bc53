package models

import (
	"nexttrain.transitnyc.org/internal/gtfs"
	"nexttrain.transitnyc.org/internal/modes"
)

type Mode struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Grouping     string `json:"grouping"`
	DisplayLimit int    `json:"displayLimit"`
}

func NewMode(p *modes.Profile) Mode {
	return Mode{
		ID:           p.Key,
		Name:         p.Name,
		Grouping:     string(p.Grouping),
		DisplayLimit: p.DisplayLimit,
	}
}

type Stop struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	LocationType int     `json:"locationType"`
	Parent       string  `json:"parent"`
}

func NewStop(s gtfs.Stop) Stop {
	return Stop{
		ID:           s.ID,
		Name:         s.Name,
		Lat:          s.Latitude,
		Lon:          s.Longitude,
		LocationType: s.LocationType,
		Parent:       s.ParentStation,
	}
}

func NewStops(stops []gtfs.Stop) []Stop {
	out := make([]Stop, 0, len(stops))
	for _, s := range stops {
		out = append(out, NewStop(s))
	}
	return out
}

type Route struct {
	ID                string `json:"id"`
	ShortName         string `json:"shortName"`
	LongName          string `json:"longName"`
	Acronym           string `json:"acronym,omitempty"`
	Color             string `json:"color"`
	TextColor         string `json:"textColor"`
	NullSafeShortName string `json:"nullSafeShortName"`
}

func NewRoute(r gtfs.Route) Route {
	return Route{
		ID:                r.ID,
		ShortName:         r.ShortName,
		LongName:          r.LongName,
		Acronym:           r.Acronym,
		Color:             r.Color,
		TextColor:         r.TextColor,
		NullSafeShortName: r.DisplayName(),
	}
}

// NewRoutes resolves route IDs against the dataset. IDs missing from the
// schedule still produce an entry with default colors.
func NewRoutes(dataset *gtfs.Dataset, routeIDs []string) []Route {
	out := make([]Route, 0, len(routeIDs))
	for _, id := range routeIDs {
		r, ok := dataset.Route(id)
		if !ok {
			r = gtfs.Route{ID: id, Color: gtfs.DefaultRouteColor, TextColor: gtfs.DefaultRouteTextColor}
		}
		out = append(out, NewRoute(r))
	}
	return out
}
