package restapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lifetimes in seconds.
const (
	noCache     = 0
	shortCache  = 30
	staticCache = 300
)

// SetRoutes registers the API on mux.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/connection", api.apiHandler(noCache, api.connectionHandler))
	mux.Handle("POST /api/alternative-trips", api.apiHandler(noCache, api.alternativeTripsHandler))
	mux.Handle("POST /api/update-delays", api.apiHandler(noCache, api.updateDelaysHandler))
	mux.Handle("GET /api/stops", api.apiHandler(staticCache, api.stopsHandler))
	mux.Handle("GET /api/current-time", api.apiHandler(shortCache, api.currentTimeHandler))
	mux.Handle("GET /api/config", api.apiHandler(staticCache, api.configHandler))

	mux.HandleFunc("GET /healthz", api.healthHandler)
	if api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}
}

// apiHandler applies what every /api endpoint shares: caching headers, rate
// limiting and the API key check, in that order.
func (api *RestAPI) apiHandler(cacheSeconds int, handler http.HandlerFunc) http.Handler {
	return CacheControlMiddleware(cacheSeconds,
		api.rateLimiter.Handler()(api.requireAPIKey(handler)))
}

func (api *RestAPI) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.sendUnauthorized(w, r)
			return
		}
		next(w, r)
	}
}
