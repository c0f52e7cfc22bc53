package restapi

import (
	"log/slog"
	"net/http"
	"time"

	"nexttrain.transitnyc.org/internal/app"
)

type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
	logger      *slog.Logger
}

// NewRestAPI creates a new RestAPI instance with initialized rate limiter
func NewRestAPI(app *app.Application) *RestAPI {
	logger := app.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RestAPI{
		Application: app,
		rateLimiter: NewRateLimitMiddleware(app.Config.RateLimit, time.Second),
		logger:      logger.With(slog.String("component", "http_server")),
	}
}

// Handler is the full middleware chain around the router: request logging,
// security headers and gzip compression. API routes add the key check and
// per-key rate limiting themselves.
func (api *RestAPI) Handler() http.Handler {
	var handler http.Handler = api.routes()
	handler = CompressionMiddleware(handler)
	handler = securityHeaders(api.Config.Env.IsProduction())(handler)
	handler = NewRequestLoggingMiddleware(api.logger)(handler)
	return handler
}

// Shutdown stops the rate limiter's cleanup loop.
func (api *RestAPI) Shutdown() {
	api.rateLimiter.Stop()
}
