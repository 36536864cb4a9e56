package restapi

import (
	"net/http"
	"strconv"
	"strings"

	"raptor.transitrouter.org/internal/models"
)

const (
	defaultStopSearchLimit = 10
	maxStopSearchLimit     = 50
)

// stopsHandler suggests stop names starting with the query, each with the
// stops carrying it.
func (api *RestAPI) stopsHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		api.sendError(w, r, http.StatusBadRequest, "query is required")
		return
	}

	limit := defaultStopSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			api.sendError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxStopSearchLimit)
	}

	model := api.GtfsManager.Model()
	if model == nil {
		api.sendError(w, r, http.StatusServiceUnavailable, "transit data not loaded")
		return
	}

	names := model.SearchStopNames(query, limit+1)
	limitExceeded := len(names) > limit
	if limitExceeded {
		names = names[:limit]
	}

	list := make([]models.StopNameModel, 0, len(names))
	for _, name := range names {
		entry := models.StopNameModel{Name: name}
		for _, s := range model.StopsByName(name) {
			entry.Stops = append(entry.Stops, models.NewStopModel(s))
		}
		list = append(list, entry)
	}

	api.sendResponse(w, r, models.NewListResponse(list, limitExceeded, api.Clock))
}
