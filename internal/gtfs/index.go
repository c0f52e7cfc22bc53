package gtfs

import "sort"

// StopKeyFunc maps a stop ID onto the key used to match it against other
// stop IDs, e.g. stripping a platform-direction suffix.
type StopKeyFunc func(stopID string) string

// RouteStopIndex is the route <-> stop connectivity derived from the
// schedule. It is immutable once built.
type RouteStopIndex struct {
	routeStops map[string][]string
	stopRoutes map[string][]string
	keyRoutes  map[string][]string
	children   map[string][]string
	stopKey    StopKeyFunc
}

// BuildIndex joins trips and stop times in one pass. Stop times whose trip
// is unknown are skipped.
func BuildIndex(dataset *Dataset, stopKey StopKeyFunc) *RouteStopIndex {
	if stopKey == nil {
		stopKey = func(id string) string { return id }
	}

	tripRoutes := make(map[string]string, len(dataset.Trips))
	for id, trip := range dataset.Trips {
		if trip.RouteID != "" {
			tripRoutes[id] = trip.RouteID
		}
	}

	idx := &RouteStopIndex{
		routeStops: make(map[string][]string),
		stopRoutes: make(map[string][]string),
		keyRoutes:  make(map[string][]string),
		children:   make(map[string][]string),
		stopKey:    stopKey,
	}

	for id, stop := range dataset.Stops {
		if stop.ParentStation != "" && stop.ParentStation != id {
			idx.children[stop.ParentStation] = append(idx.children[stop.ParentStation], id)
		}
	}
	for _, ids := range idx.children {
		sort.Strings(ids)
	}

	type pair struct{ a, b string }
	seenRouteStop := make(map[pair]struct{})
	seenKeyRoute := make(map[pair]struct{})

	for _, st := range dataset.StopTimes {
		routeID, ok := tripRoutes[st.TripID]
		if !ok {
			continue
		}

		if _, dup := seenRouteStop[pair{routeID, st.StopID}]; !dup {
			seenRouteStop[pair{routeID, st.StopID}] = struct{}{}
			idx.routeStops[routeID] = append(idx.routeStops[routeID], st.StopID)
			idx.stopRoutes[st.StopID] = append(idx.stopRoutes[st.StopID], routeID)
		}

		key := stopKey(st.StopID)
		if _, dup := seenKeyRoute[pair{key, routeID}]; !dup {
			seenKeyRoute[pair{key, routeID}] = struct{}{}
			idx.keyRoutes[key] = append(idx.keyRoutes[key], routeID)
		}
	}

	return idx
}

// StopsForRoute returns the stop IDs served by a route in first-served order.
func (idx *RouteStopIndex) StopsForRoute(routeID string) []string {
	return append([]string(nil), idx.routeStops[routeID]...)
}

// ChildStops lists the stops whose parent station is stopID.
func (idx *RouteStopIndex) ChildStops(stopID string) []string {
	return append([]string(nil), idx.children[stopID]...)
}

// RoutesForStop returns the routes serving stopID, matching the exact ID, any
// stop that shares its normalized key, or any child of the station.
func (idx *RouteStopIndex) RoutesForStop(stopID string) []string {
	seen := make(map[string]struct{})
	var routes []string
	add := func(ids []string) {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			routes = append(routes, id)
		}
	}
	add(idx.stopRoutes[stopID])
	add(idx.keyRoutes[idx.stopKey(stopID)])
	for _, child := range idx.children[stopID] {
		add(idx.stopRoutes[child])
		add(idx.keyRoutes[idx.stopKey(child)])
	}
	return routes
}

// Serves reports whether routeID is scheduled at stopID or a stop sharing its
// normalized key.
func (idx *RouteStopIndex) Serves(routeID, stopID string) bool {
	for _, id := range idx.RoutesForStop(stopID) {
		if id == routeID {
			return true
		}
	}
	return false
}

func (idx *RouteStopIndex) RouteCount() int {
	return len(idx.routeStops)
}
