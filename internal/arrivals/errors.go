package arrivals

import "errors"

var (
	// ErrDatasetUnavailable means a mode's static schedule could not be
	// loaded. The next call retries the load.
	ErrDatasetUnavailable = errors.New("transit dataset unavailable")
	// ErrFeedUnavailable means no live data could be fetched or decoded for
	// the query. Callers can still show the stop without predictions.
	ErrFeedUnavailable = errors.New("live feed unavailable")
	ErrUnknownMode     = errors.New("unknown transit mode")
	errNoFeedForRoute  = errors.New("no live feed configured for route")
)
