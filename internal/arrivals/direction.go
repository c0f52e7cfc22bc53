package arrivals

import (
	"nexttrain.transitnyc.org/internal/gtfs"
	"nexttrain.transitnyc.org/internal/modes"
)

// platformOf is the platform-direction suffix for a matched live stop ID,
// already corrected for reversed platforms. When the ID carries no suffix
// the trip's direction stands in, using the NYCT convention that direction 0
// is northbound.
func platformOf(profile *modes.Profile, trip gtfs.TripUpdate, stopID string) string {
	if suffix := profile.Suffix(stopID); suffix != "" {
		return suffix
	}
	switch trip.DirectionID {
	case gtfs.DirectionZero:
		return modes.SuffixNorth
	case gtfs.DirectionOne:
		return modes.SuffixSouth
	}
	return ""
}

// Classify sets the bucket key of an arrival. Platform-grouped modes bucket
// by the suffix of the matched live stop, never the queried one; destination
// grouped modes leave Direction empty and group on Destination later.
func Classify(profile *modes.Profile, trip gtfs.TripUpdate, a *Arrival) {
	if !profile.ByPlatform() {
		a.Direction = ""
		return
	}
	a.Direction = platformOf(profile, trip, a.StopID)
}
