package restapi

import (
	"net/http"

	"raptor.transitrouter.org/internal/models"
	"raptor.transitrouter.org/internal/raptor"
)

// UpdateDelaysRequest carries results a client got earlier.
type UpdateDelaysRequest struct {
	Results []*raptor.SearchResult `json:"results"`
}

// updateDelaysHandler re-annotates previously returned results with the
// delays known now. The results come back in the order they were sent.
func (api *RestAPI) updateDelaysHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateDelaysRequest
	if err := readJSON(w, r, &req); err != nil {
		api.sendError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	router, err := api.GtfsManager.Router()
	if err != nil {
		api.sendError(w, r, http.StatusServiceUnavailable, "transit data not loaded")
		return
	}

	results := router.UpdateDelays(req.Results)
	if results == nil {
		results = []*raptor.SearchResult{}
	}
	api.sendResponse(w, r, models.NewListResponse(results, false, api.Clock))
}
