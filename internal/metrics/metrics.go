package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests and multiple servers in one
// process never collide on the default one. It satisfies gtfs.Observer and
// arrivals.Observer.
type Collector struct {
	reg *prometheus.Registry

	StaticLoads    *prometheus.CounterVec // mode, result: ok|error
	StaticDuration *prometheus.HistogramVec

	FeedFetches      *prometheus.CounterVec // feed, result: ok|error
	FeedDuration     prometheus.Histogram
	FeedCacheHits    *prometheus.CounterVec
	ArrivalsTotal    *prometheus.CounterVec
	BoardsServed     *prometheus.CounterVec
	RouteFeedFailure *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec // route, status
	HTTPDuration *prometheus.HistogramVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		StaticLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nexttrain_static_loads_total",
			Help: "Static schedule loads by mode and result.",
		}, []string{"mode", "result"}),
		StaticDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nexttrain_static_load_duration_seconds",
			Help:    "Time to fetch and parse a mode's static schedule.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"mode"}),
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nexttrain_feed_fetches_total",
			Help: "Live feed fetches by feed and result.",
		}, []string{"feed", "result"}),
		FeedDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nexttrain_feed_fetch_duration_seconds",
			Help:    "Time to fetch and decode a live feed.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		FeedCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nexttrain_feed_cache_hits_total",
			Help: "Live feed requests answered from the short-lived cache.",
		}, []string{"feed"}),
		ArrivalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nexttrain_arrivals_served_total",
			Help: "Arrivals returned across all boards.",
		}, []string{"mode"}),
		BoardsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nexttrain_boards_served_total",
			Help: "Arrival boards assembled.",
		}, []string{"mode"}),
		RouteFeedFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nexttrain_route_feed_failures_total",
			Help: "Routes left out of a board because their live feed failed.",
		}, []string{"mode", "route"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nexttrain_http_requests_total",
			Help: "HTTP requests by route pattern and status.",
		}, []string{"route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nexttrain_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.StaticLoads, c.StaticDuration,
		c.FeedFetches, c.FeedDuration, c.FeedCacheHits,
		c.ArrivalsTotal, c.BoardsServed, c.RouteFeedFailure,
		c.HTTPRequests, c.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *Collector) StaticLoaded(mode string, took time.Duration, err error) {
	c.StaticLoads.WithLabelValues(mode, result(err)).Inc()
	c.StaticDuration.WithLabelValues(mode).Observe(took.Seconds())
}

func (c *Collector) FeedFetched(url string, took time.Duration, err error) {
	c.FeedFetches.WithLabelValues(url, result(err)).Inc()
	c.FeedDuration.Observe(took.Seconds())
}

func (c *Collector) FeedCacheHit(url string) {
	c.FeedCacheHits.WithLabelValues(url).Inc()
}

func (c *Collector) ArrivalsServed(mode string, count int) {
	c.BoardsServed.WithLabelValues(mode).Inc()
	c.ArrivalsTotal.WithLabelValues(mode).Add(float64(count))
}

func (c *Collector) RouteFeedFailed(mode, routeID string) {
	c.RouteFeedFailure.WithLabelValues(mode, routeID).Inc()
}

// ObserveRequest records one served HTTP request.
func (c *Collector) ObserveRequest(route string, status int, took time.Duration) {
	c.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(route).Observe(took.Seconds())
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }
