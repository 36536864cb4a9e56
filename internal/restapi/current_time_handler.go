package restapi

import (
	"net/http"

	"raptor.transitrouter.org/internal/models"
)

// currentTimeHandler reports the server clock, which is also the "now" every
// search uses.
func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	if !api.GtfsManager.IsHealthy() {
		api.sendError(w, r, http.StatusServiceUnavailable, "transit data not loaded")
		return
	}

	timeData := models.NewCurrentTimeData(api.Clock.Now())
	response := models.NewOKResponse(timeData, api.Clock)

	api.sendResponse(w, r, response)
}
