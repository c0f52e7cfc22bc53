package arrivals

import (
	"nexttrain.transitnyc.org/internal/gtfs"
	"nexttrain.transitnyc.org/internal/modes"
)

// DestinationSource names the cascade step a destination came from.
type DestinationSource string

const (
	FromStaticHeadsign DestinationSource = "static_headsign"
	FromLiveHeadsign   DestinationSource = "live_headsign"
	FromTerminalStop   DestinationSource = "last_stop"
	FromRouteTable     DestinationSource = "route_table"
	FromNothing        DestinationSource = "unknown"
)

// DestinationResolver infers where a live trip is headed.
type DestinationResolver struct {
	profile *modes.Profile
	dataset *gtfs.Dataset
}

func NewDestinationResolver(profile *modes.Profile, dataset *gtfs.Dataset) *DestinationResolver {
	return &DestinationResolver{profile: profile, dataset: dataset}
}

// Resolve returns the destination for trip as seen from the matched stop
// update. It never fails; the last resort is UnknownDestination.
func (r *DestinationResolver) Resolve(trip gtfs.TripUpdate, matched gtfs.StopTimeUpdate) (string, DestinationSource) {
	staticTrip, hasStatic := r.dataset.Trip(trip.TripID)

	// Strategy 1: scheduled headsign
	if hasStatic && staticTrip.Headsign != "" {
		return staticTrip.Headsign, FromStaticHeadsign
	}

	// Strategy 2: headsign carried by the feed
	if trip.Headsign != "" {
		return trip.Headsign, FromLiveHeadsign
	}

	// Strategy 3: the last stop the feed announces for this trip
	if name := r.terminalName(trip); name != "" {
		return name, FromTerminalStop
	}

	// Strategy 4: typical terminal for the route and direction
	routeID := trip.RouteID
	if routeID == "" && hasStatic {
		routeID = staticTrip.RouteID
	}
	if name := r.profile.RouteTerminal(routeID, r.directionKey(trip, staticTrip, hasStatic, matched)); name != "" {
		return name, FromRouteTable
	}

	return UnknownDestination, FromNothing
}

func (r *DestinationResolver) terminalName(trip gtfs.TripUpdate) string {
	last, ok := trip.LastStop()
	if !ok {
		return ""
	}
	stopID := last.StopID

	if name, ok := r.profile.TerminalOverrides[stopID]; ok {
		return name
	}
	if stop, ok := r.dataset.Stop(stopID); ok && stop.Name != "" {
		return stop.Name
	}
	if base := r.profile.StopKey(stopID); base != stopID {
		if stop, ok := r.dataset.Stop(base); ok && stop.Name != "" {
			return stop.Name
		}
	}
	return ""
}

// directionKey is the key into the route terminal table: the platform
// suffix of the matched stop, or the coarse direction label of the trip.
func (r *DestinationResolver) directionKey(trip gtfs.TripUpdate, staticTrip gtfs.Trip, hasStatic bool, matched gtfs.StopTimeUpdate) string {
	if r.profile.ByPlatform() {
		return platformOf(r.profile, trip, matched.StopID)
	}

	dir := trip.DirectionID
	if dir == gtfs.DirectionUnspecified && hasStatic {
		dir = staticTrip.DirectionID
	}
	return r.profile.DirectionLabel(dir)
}
