package restapi

import (
	"errors"
	"net/http"
	"time"

	"raptor.transitrouter.org/internal/models"
	"raptor.transitrouter.org/internal/raptor"
)

func (api *RestAPI) alternativeTripsHandler(w http.ResponseWriter, r *http.Request) {
	var req raptor.AlternativesRequest
	if err := readJSON(w, r, &req); err != nil {
		var parseErr *time.ParseError
		if errors.As(err, &parseErr) {
			e := raptor.AltInvalidDateTime
			api.sendErrorWithData(w, r, http.StatusBadRequest, e.Message(), raptor.AlternativesResponse{Error: e})
			return
		}
		api.sendError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	router, err := api.GtfsManager.Router()
	if err != nil {
		api.sendError(w, r, http.StatusServiceUnavailable, "transit data not loaded")
		return
	}

	resp, err := router.FindAlternatives(r.Context(), req)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	switch resp.Error {
	case raptor.AltNoError:
		api.sendResponse(w, r, models.NewOKResponse(resp, api.Clock))
	case raptor.AltNoTripsFound:
		api.sendErrorWithData(w, r, http.StatusNotFound, resp.Error.Message(), resp)
	default:
		api.sendErrorWithData(w, r, http.StatusBadRequest, resp.Error.Message(), resp)
	}
}
