// Package webui serves the data inspection pages used while developing.
package webui

import (
	"net/http"

	"raptor.transitrouter.org/internal/app"
)

type WebUI struct {
	*app.Application
}

// SetWebUIRoutes registers the debug page. It answers 404 in production.
func (webUI *WebUI) SetWebUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug", webUI.debugIndexHandler)
	mux.HandleFunc("GET /debug/", webUI.debugIndexHandler)
}
