package arrivals

import (
	"math"
	"sort"
	"time"

	"nexttrain.transitnyc.org/internal/modes"
)

// departedGrace is how long a rail arrival stays on the board after its
// predicted time when departed trains are not requested.
const departedGrace = 60 * time.Second

// MinutesUntil is the whole minutes from now until t, never negative.
func MinutesUntil(t, now time.Time) int {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Floor(d.Minutes()))
}

// AssemblePlatform buckets platform-grouped arrivals. Both platform buckets
// are always present, northbound first, even when empty.
func AssemblePlatform(profile *modes.Profile, arrivals []Arrival, now time.Time, limit int) []Bucket {
	buckets := []Bucket{
		{Key: modes.SuffixNorth, Label: profile.BucketLabel(modes.SuffixNorth)},
		{Key: modes.SuffixSouth, Label: profile.BucketLabel(modes.SuffixSouth)},
	}

	for _, a := range arrivals {
		if a.ArrivalTime.Before(now) {
			continue
		}
		for i := range buckets {
			if buckets[i].Key == a.Direction {
				buckets[i].Arrivals = append(buckets[i].Arrivals, a)
				break
			}
		}
	}

	for i := range buckets {
		buckets[i].Arrivals = finish(buckets[i].Arrivals, now, limit)
	}
	return buckets
}

// AssembleDestination groups arrivals by destination. Groups left empty
// after filtering are omitted; the rest are ordered by their earliest
// arrival.
func AssembleDestination(arrivals []Arrival, now time.Time, includeDeparted bool, limit int) []Bucket {
	cutoff := now.Add(-departedGrace)

	var order []string
	groups := make(map[string][]Arrival)
	for _, a := range arrivals {
		if !includeDeparted && a.ArrivalTime.Before(cutoff) {
			continue
		}
		if _, ok := groups[a.Destination]; !ok {
			order = append(order, a.Destination)
		}
		groups[a.Destination] = append(groups[a.Destination], a)
	}

	buckets := make([]Bucket, 0, len(order))
	for _, dest := range order {
		buckets = append(buckets, Bucket{
			Key:      dest,
			Label:    dest,
			Arrivals: finish(groups[dest], now, limit),
		})
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Arrivals[0].ArrivalTime.Before(buckets[j].Arrivals[0].ArrivalTime)
	})
	return buckets
}

// finish sorts a group by arrival time, keeping fetch order for ties, caps
// it and fills in MinutesAway.
func finish(arrivals []Arrival, now time.Time, limit int) []Arrival {
	sort.SliceStable(arrivals, func(i, j int) bool {
		return arrivals[i].ArrivalTime.Before(arrivals[j].ArrivalTime)
	})
	if limit > 0 && len(arrivals) > limit {
		arrivals = arrivals[:limit]
	}
	for i := range arrivals {
		arrivals[i].MinutesAway = MinutesUntil(arrivals[i].ArrivalTime, now)
	}
	return arrivals
}
