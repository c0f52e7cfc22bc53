// Package modes holds the per-mode data the arrivals engine is parameterized
// by: where the schedule and feeds live, how stop IDs encode direction, and
// the hand-maintained terminal, acronym and direction tables.
package modes

import (
	"strconv"
	"strings"

	"nexttrain.transitnyc.org/internal/gtfs"
)

const (
	Subway     = "subway"
	LIRR       = "lirr"
	MetroNorth = "mnrr"
)

// Grouping is how a mode's arrivals are bucketed for display.
type Grouping string

const (
	// GroupByPlatform buckets by the platform-direction suffix of the stop ID.
	GroupByPlatform Grouping = "platform"
	// GroupByDestination groups by resolved destination name.
	GroupByDestination Grouping = "destination"
)

const (
	SuffixNorth = "N"
	SuffixSouth = "S"
)

// Profile is everything that differs between modes.
type Profile struct {
	Key          string   `yaml:"-"`
	Name         string   `yaml:"name"`
	Grouping     Grouping `yaml:"grouping" validate:"omitempty,oneof=platform destination"`
	StaticSource string   `yaml:"staticSource"`

	// FeedURLs maps route ID to its live feed. DefaultFeedURL serves any
	// route not listed.
	FeedURLs       map[string]string `yaml:"feedUrls" validate:"omitempty,dive,url"`
	DefaultFeedURL string            `yaml:"defaultFeedUrl" validate:"omitempty,url"`

	// BucketLabels names the platform buckets, keyed by suffix.
	BucketLabels map[string]string `yaml:"bucketLabels"`
	// TerminalOverrides replaces the station name of a known terminal stop.
	TerminalOverrides map[string]string `yaml:"terminalOverrides"`
	// RouteAcronyms are display acronyms not present in the schedule.
	RouteAcronyms map[string]string `yaml:"routeAcronyms"`
	// DirectionLabels maps a trip direction_id ("0"/"1") to the coarse label
	// RouteTerminals is keyed by on destination-grouped modes.
	DirectionLabels map[string]string `yaml:"directionLabels"`
	// RouteTerminals is the last-resort destination per route, keyed by the
	// platform suffix or the direction label.
	RouteTerminals map[string]map[string]string `yaml:"routeTerminals"`
	// PlatformSwaps lists, per route, stations whose live platform suffix is
	// reported reversed.
	PlatformSwaps map[string][]string `yaml:"platformSwaps"`

	DisplayLimit int `yaml:"displayLimit" validate:"omitempty,min=1,max=50"`
}

// ByPlatform reports whether the mode uses the platform-suffix convention.
func (p *Profile) ByPlatform() bool {
	return p.Grouping == GroupByPlatform
}

// Suffix returns the platform-direction suffix of stopID, or "" when the
// mode has no suffix convention or the ID carries none.
func (p *Profile) Suffix(stopID string) string {
	if !p.ByPlatform() || len(stopID) < 2 {
		return ""
	}
	switch last := stopID[len(stopID)-1:]; last {
	case SuffixNorth, SuffixSouth:
		return last
	}
	return ""
}

// StopKey strips the platform suffix so both platforms of a station match.
func (p *Profile) StopKey(stopID string) string {
	if s := p.Suffix(stopID); s != "" {
		return stopID[:len(stopID)-len(s)]
	}
	return stopID
}

// MatchesStop reports whether a live stop ID answers a query for queryID.
// A platform-specific query only matches that platform; a base or station
// query matches every platform of the station.
func (p *Profile) MatchesStop(liveID, queryID string) bool {
	if liveID == queryID {
		return true
	}
	if !p.ByPlatform() || p.Suffix(queryID) != "" {
		return false
	}
	return p.StopKey(liveID) == queryID
}

// FeedURL resolves the live feed for a route. Express variants such as "6X"
// fall back to their base route.
func (p *Profile) FeedURL(routeID string) (string, bool) {
	if url, ok := p.FeedURLs[routeID]; ok {
		return url, true
	}
	if n := len(routeID); n > 1 && routeID[n-1] == 'X' {
		if url, ok := p.FeedURLs[routeID[:n-1]]; ok {
			return url, true
		}
	}
	if p.DefaultFeedURL != "" {
		return p.DefaultFeedURL, true
	}
	return "", false
}

// DirectionLabel is the coarse label for a trip direction, or "".
func (p *Profile) DirectionLabel(dir gtfs.DirectionID) string {
	if dir == gtfs.DirectionUnspecified {
		return ""
	}
	return p.DirectionLabels[strconv.Itoa(int(dir))]
}

// RouteTerminal looks up the fallback terminal for a route and key.
func (p *Profile) RouteTerminal(routeID, key string) string {
	if key == "" {
		return ""
	}
	return p.RouteTerminals[routeID][key]
}

// BucketLabel is the display label for a platform suffix.
func (p *Profile) BucketLabel(suffix string) string {
	if label, ok := p.BucketLabels[suffix]; ok {
		return label
	}
	return suffix
}

// CorrectPlatform undoes known reversed platform suffixes in live data.
func (p *Profile) CorrectPlatform(routeID, stopID string) string {
	stations := p.PlatformSwaps[routeID]
	if len(stations) == 0 {
		return stopID
	}
	suffix := p.Suffix(stopID)
	if suffix == "" {
		return stopID
	}
	base := p.StopKey(stopID)
	for _, station := range stations {
		if strings.EqualFold(station, base) {
			if suffix == SuffixNorth {
				return base + SuffixSouth
			}
			return base + SuffixNorth
		}
	}
	return stopID
}

// Merge overlays the non-zero fields of o onto p. Map entries are merged
// key by key so a config file only needs to name what it changes.
func (p *Profile) Merge(o Profile) {
	if o.Name != "" {
		p.Name = o.Name
	}
	if o.Grouping != "" {
		p.Grouping = o.Grouping
	}
	if o.StaticSource != "" {
		p.StaticSource = o.StaticSource
	}
	if o.DefaultFeedURL != "" {
		p.DefaultFeedURL = o.DefaultFeedURL
	}
	if o.DisplayLimit != 0 {
		p.DisplayLimit = o.DisplayLimit
	}
	p.FeedURLs = mergeStrings(p.FeedURLs, o.FeedURLs)
	p.BucketLabels = mergeStrings(p.BucketLabels, o.BucketLabels)
	p.TerminalOverrides = mergeStrings(p.TerminalOverrides, o.TerminalOverrides)
	p.RouteAcronyms = mergeStrings(p.RouteAcronyms, o.RouteAcronyms)
	p.DirectionLabels = mergeStrings(p.DirectionLabels, o.DirectionLabels)
	for route, terminals := range o.RouteTerminals {
		if p.RouteTerminals == nil {
			p.RouteTerminals = make(map[string]map[string]string)
		}
		p.RouteTerminals[route] = mergeStrings(p.RouteTerminals[route], terminals)
	}
	for route, stations := range o.PlatformSwaps {
		if p.PlatformSwaps == nil {
			p.PlatformSwaps = make(map[string][]string)
		}
		p.PlatformSwaps[route] = stations
	}
}

func mergeStrings(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// GTFSSource adapts the profile to the gtfs manager's mode configuration.
func (p *Profile) GTFSSource(headers map[string]string) gtfs.ModeSource {
	return gtfs.ModeSource{
		Static:  gtfs.StaticSource{Location: p.StaticSource, Headers: headers},
		Load:    gtfs.LoadOptions{RouteAcronyms: p.RouteAcronyms},
		StopKey: p.StopKey,
	}
}
