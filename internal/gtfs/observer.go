package gtfs

import "time"

// Observer receives load and fetch outcomes, typically to feed metrics.
type Observer interface {
	StaticLoaded(mode string, took time.Duration, err error)
	FeedFetched(url string, took time.Duration, err error)
	FeedCacheHit(url string)
}

type nopObserver struct{}

func (nopObserver) StaticLoaded(string, time.Duration, error) {}
func (nopObserver) FeedFetched(string, time.Duration, error)  {}
func (nopObserver) FeedCacheHit(string)                       {}
