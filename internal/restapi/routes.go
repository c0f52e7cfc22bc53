package restapi

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"nexttrain.transitnyc.org/internal/webui"
)

func (api *RestAPI) validateAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument records the request against its route pattern rather than the
// raw path, which would give every stop its own series.
func (api *RestAPI) instrument(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrapResponseWriter(w)
		next.ServeHTTP(wrapped, r)
		if api.Metrics != nil {
			api.Metrics.ObserveRequest(pattern, wrapped.statusCode, time.Since(start))
		}
	})
}

// handle registers an API route. Rate limiting sits behind the key check so
// an unknown key is refused outright instead of getting a bucket of its own.
func (api *RestAPI) handle(router *httprouter.Router, pattern string, handler http.HandlerFunc) {
	router.Handler(http.MethodGet, pattern, api.instrument(pattern, api.validateAPIKey(api.rateLimiter.Handler(handler))))
}

func (api *RestAPI) routes() http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(api.sendNotFound)

	api.handle(router, "/api/modes", api.modesHandler)
	api.handle(router, "/api/modes/:mode", api.modeHandler)
	api.handle(router, "/api/modes/:mode/routes/:routeId/stops", api.stopsForRouteHandler)
	api.handle(router, "/api/modes/:mode/stops/:stopId/routes", api.routesForStopHandler)
	api.handle(router, "/api/modes/:mode/stops/:stopId/arrivals", api.arrivalsHandler)

	router.Handler(http.MethodGet, "/healthz", api.instrument("/healthz", http.HandlerFunc(api.healthHandler)))
	if api.Metrics != nil {
		router.Handler(http.MethodGet, "/metrics", api.Metrics.Handler())
	}
	if !api.Config.Env.IsProduction() {
		webui.New(api.Application).SetRoutes(router)
	}

	return router
}
