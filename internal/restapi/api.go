// Package restapi serves the routing engine over HTTP: connection search,
// trip alternatives, delay refresh and a few lookups for clients.
package restapi

import (
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"raptor.transitrouter.org/internal/app"
	"raptor.transitrouter.org/internal/clock"
	"raptor.transitrouter.org/internal/raptor"
)

type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
}

func NewRestAPI(application *app.Application) *RestAPI {
	if application.Clock == nil {
		application.Clock = clock.RealClock{}
	}
	if application.DefaultSettings == (raptor.Settings{}) {
		application.DefaultSettings = raptor.DefaultSettings()
	}
	return &RestAPI{
		Application: application,
		rateLimiter: NewRateLimitMiddleware(application.Config.RateLimit, time.Second, application.Config.ExemptApiKeys, application.Clock),
	}
}

// WithMiddleware wraps the routes in the handlers every request passes:
// compression, request IDs, request logging and metrics.
func (api *RestAPI) WithMiddleware(mux *http.ServeMux) http.Handler {
	var handler http.Handler = mux
	handler = MetricsHandler(api.Metrics)(handler)
	handler = NewRequestLoggingMiddleware(api.Logger)(handler)
	handler = RequestIDMiddleware(handler)
	return gzhttp.GzipHandler(handler)
}

// Shutdown stops the background work of the middleware.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}
