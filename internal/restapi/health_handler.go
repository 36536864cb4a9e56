package restapi

import (
	"encoding/json"
	"net/http"
)

// HealthResponse represents the JSON response from the health endpoint.
type HealthResponse struct {
	Status string       `json:"status"`
	Detail string       `json:"detail,omitempty"`
	Feeds  []FeedHealth `json:"feeds,omitempty"`
}

type FeedHealth struct {
	ID         string `json:"id"`
	Stale      bool   `json:"stale"`
	AgeSeconds int64  `json:"ageSeconds"`
	Trips      int    `json:"trips"`
}

// healthHandler returns 503 until a transit model is loaded. Stale realtime
// feeds only degrade the status: routing still works on the timetable.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if api.Application == nil || api.GtfsManager == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "unavailable",
			Detail: "manager not initialized",
		})
		return
	}

	if !api.GtfsManager.IsHealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "starting",
			Detail: "transit model is being built",
		})
		return
	}

	if _, err := api.GtfsManager.Router(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "unavailable",
			Detail: err.Error(),
		})
		return
	}

	resp := HealthResponse{Status: "ok"}
	detector := NewStaleDetector()
	now := api.Clock.Now()
	for _, feed := range api.GtfsManager.RealtimeFeeds() {
		stale := detector.Check(feed.LastUpdated, now)
		resp.Feeds = append(resp.Feeds, FeedHealth{
			ID:         feed.ID,
			Stale:      stale,
			AgeSeconds: int64(detector.Age(feed.LastUpdated, now).Seconds()),
			Trips:      feed.Trips,
		})
		if stale {
			resp.Status = "degraded"
			resp.Detail = "realtime delays are stale"
		}
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
