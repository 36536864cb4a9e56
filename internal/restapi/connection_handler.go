package restapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"raptor.transitrouter.org/internal/logging"
	"raptor.transitrouter.org/internal/models"
	"raptor.transitrouter.org/internal/raptor"
)

// connectionHandler answers POST /api/connection. Request problems are
// reported as 400 with the search error code, a search that finds nothing
// as 404.
func (api *RestAPI) connectionHandler(w http.ResponseWriter, r *http.Request) {
	var req raptor.ConnectionRequest
	if err := readJSON(w, r, &req); err != nil {
		var parseErr *time.ParseError
		if errors.As(err, &parseErr) {
			api.sendSearchError(w, r, raptor.InvalidDateTime)
			return
		}
		api.sendError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Settings == nil {
		settings := api.DefaultSettings
		req.Settings = &settings
	}

	router, err := api.GtfsManager.Router()
	if err != nil {
		api.sendError(w, r, http.StatusServiceUnavailable, "transit data not loaded")
		return
	}

	resp, err := router.FindConnection(r.Context(), req)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	if resp.Error != raptor.NoError {
		api.sendSearchError(w, r, resp.Error)
		return
	}

	logging.FromContext(r.Context()).Debug("connection found",
		slog.Int("results", len(resp.Results)),
		slog.Bool("range", req.Range))
	api.sendResponse(w, r, models.NewOKResponse(resp, api.Clock))
}

func (api *RestAPI) sendSearchError(w http.ResponseWriter, r *http.Request, e raptor.ConnectionSearchError) {
	code := http.StatusBadRequest
	if e == raptor.NoConnectionFound {
		code = http.StatusNotFound
	}
	api.sendErrorWithData(w, r, code, e.Message(), raptor.ConnectionResponse{Error: e})
}
