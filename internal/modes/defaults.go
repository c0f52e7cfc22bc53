package modes

const (
	mtaFeedBase = "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/"

	DefaultSubwayLimit = 6
	DefaultRailLimit   = 4

	InboundLabel  = "inbound"
	OutboundLabel = "outbound"
)

// Defaults returns fresh copies of the built-in profiles keyed by mode.
func Defaults() map[string]*Profile {
	return map[string]*Profile{
		Subway:     subwayProfile(),
		LIRR:       lirrProfile(),
		MetroNorth: metroNorthProfile(),
	}
}

func subwayProfile() *Profile {
	feeds := map[string][]string{
		"nyct%2Fgtfs":      {"1", "2", "3", "4", "5", "6", "7", "GS"},
		"nyct%2Fgtfs-ace":  {"A", "C", "E", "H", "FS"},
		"nyct%2Fgtfs-bdfm": {"B", "D", "F", "M"},
		"nyct%2Fgtfs-g":    {"G"},
		"nyct%2Fgtfs-jz":   {"J", "Z"},
		"nyct%2Fgtfs-l":    {"L"},
		"nyct%2Fgtfs-nqrw": {"N", "Q", "R", "W"},
		"nyct%2Fgtfs-si":   {"SI", "SIR"},
	}
	feedURLs := make(map[string]string)
	for path, routes := range feeds {
		for _, route := range routes {
			feedURLs[route] = mtaFeedBase + path
		}
	}

	terminals := map[string][2]string{
		"1":  {"Van Cortlandt Park-242 St", "South Ferry"},
		"2":  {"Wakefield-241 St", "Flatbush Av-Brooklyn College"},
		"3":  {"Harlem-148 St", "New Lots Av"},
		"4":  {"Woodlawn", "Crown Hts-Utica Av"},
		"5":  {"Eastchester-Dyre Av", "Flatbush Av-Brooklyn College"},
		"6":  {"Pelham Bay Park", "Brooklyn Bridge-City Hall"},
		"7":  {"Flushing-Main St", "34 St-Hudson Yards"},
		"A":  {"Inwood-207 St", "Far Rockaway-Mott Av"},
		"C":  {"168 St", "Euclid Av"},
		"E":  {"Jamaica Center-Parsons/Archer", "World Trade Center"},
		"B":  {"Bedford Park Blvd", "Brighton Beach"},
		"D":  {"Norwood-205 St", "Coney Island-Stillwell Av"},
		"F":  {"Jamaica-179 St", "Coney Island-Stillwell Av"},
		"M":  {"Forest Hills-71 Av", "Middle Village-Metropolitan Av"},
		"G":  {"Court Sq", "Church Av"},
		"J":  {"Jamaica Center-Parsons/Archer", "Broad St"},
		"Z":  {"Jamaica Center-Parsons/Archer", "Broad St"},
		"L":  {"8 Av", "Canarsie-Rockaway Pkwy"},
		"N":  {"Astoria-Ditmars Blvd", "Coney Island-Stillwell Av"},
		"Q":  {"96 St", "Coney Island-Stillwell Av"},
		"R":  {"Forest Hills-71 Av", "Bay Ridge-95 St"},
		"W":  {"Astoria-Ditmars Blvd", "Whitehall St-South Ferry"},
		"GS": {"Times Sq-42 St", "Grand Central-42 St"},
		"FS": {"Franklin Av", "Prospect Park"},
		"H":  {"Broad Channel", "Rockaway Park-Beach 116 St"},
		"SI": {"St George", "Tottenville"},
	}
	routeTerminals := make(map[string]map[string]string, len(terminals))
	for route, t := range terminals {
		routeTerminals[route] = map[string]string{SuffixNorth: t[0], SuffixSouth: t[1]}
	}

	return &Profile{
		Key:            Subway,
		Name:           "NYC Subway",
		Grouping:       GroupByPlatform,
		StaticSource:   "http://web.mta.info/developers/data/nyct/subway/google_transit.zip",
		FeedURLs:       feedURLs,
		BucketLabels:   map[string]string{SuffixNorth: "Uptown", SuffixSouth: "Downtown"},
		RouteTerminals: routeTerminals,
		// The M is reported on the J's platforms through Williamsburg and
		// Bushwick.
		PlatformSwaps: map[string][]string{
			"M": {"M11", "M12", "M13", "M14", "M16", "M18"},
		},
		DisplayLimit: DefaultSubwayLimit,
	}
}

func lirrProfile() *Profile {
	branches := map[string][2]string{
		"1":  {"BY", "Babylon"},
		"2":  {"HEM", "Hempstead"},
		"3":  {"OB", "Oyster Bay"},
		"4":  {"RON", "Ronkonkoma"},
		"5":  {"MK", "Montauk"},
		"6":  {"LB", "Long Beach"},
		"7":  {"FR", "Far Rockaway"},
		"8":  {"WH", "West Hempstead"},
		"9":  {"PW", "Port Washington"},
		"10": {"PJ", "Port Jefferson"},
		"11": {"BP", "Belmont Park"},
		"12": {"CT", "Jamaica"},
		"13": {"GP", "Greenport"},
	}

	p := railProfile(LIRR, "Long Island Rail Road", branches, "Penn Station")
	p.StaticSource = "http://web.mta.info/developers/data/lirr/google_transit.zip"
	p.DefaultFeedURL = mtaFeedBase + "lirr%2Fgtfs-lirr"
	p.TerminalOverrides = map[string]string{
		"8":   "Penn Station",
		"138": "Atlantic Terminal",
	}
	return p
}

func metroNorthProfile() *Profile {
	lines := map[string][2]string{
		"1": {"HUD", "Poughkeepsie"},
		"2": {"HAR", "Wassaic"},
		"3": {"NH", "New Haven"},
		"4": {"NC", "New Canaan"},
		"5": {"DAN", "Danbury"},
		"6": {"WAT", "Waterbury"},
	}

	p := railProfile(MetroNorth, "Metro-North Railroad", lines, "Grand Central")
	p.StaticSource = "http://web.mta.info/developers/data/mnr/google_transit.zip"
	p.DefaultFeedURL = mtaFeedBase + "mnr%2Fgtfs-mnr"
	p.TerminalOverrides = map[string]string{
		"1": "Grand Central",
	}
	return p
}

// railProfile builds the shared shape of a railroad profile from a table of
// route -> (acronym, outer terminal).
func railProfile(key, name string, routes map[string][2]string, cityTerminal string) *Profile {
	acronyms := make(map[string]string, len(routes))
	terminals := make(map[string]map[string]string, len(routes))
	for route, r := range routes {
		acronyms[route] = r[0]
		terminals[route] = map[string]string{
			InboundLabel:  cityTerminal,
			OutboundLabel: r[1],
		}
	}

	return &Profile{
		Key:             key,
		Name:            name,
		Grouping:        GroupByDestination,
		RouteAcronyms:   acronyms,
		DirectionLabels: map[string]string{"0": OutboundLabel, "1": InboundLabel},
		RouteTerminals:  terminals,
		DisplayLimit:    DefaultRailLimit,
	}
}
