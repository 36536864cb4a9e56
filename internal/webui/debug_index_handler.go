package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/OneBusAway/go-gtfs"
	"github.com/davecgh/go-spew/spew"
	"raptor.transitrouter.org/internal/appconf"
	"raptor.transitrouter.org/internal/transit"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

const dataTypes = "warnings, agencies, routes, stops, transfers, services, trips, " +
	"model, bike_stations, realtime_trips, realtime_feeds"

type debugData struct {
	Title string
	Pre   string
}

// bikeStationView drops the live counter, which spew would print as raw
// atomic internals.
type bikeStationView struct {
	ID       string
	Name     string
	Coords   transit.Coordinates
	Capacity int
	Bikes    int
}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := debugTemplate.Execute(w, debugData{
		Title: title,
		Pre:   spew.Sdump(data),
	})
	if err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Config.Env == appconf.Production || webUI.GtfsManager == nil {
		http.NotFound(w, r)
		return
	}
	dataType := r.URL.Query().Get("dataType")

	var data interface{}
	var title string

	switch dataType {
	case "model":
		data = webUI.GtfsManager.BuildStats()
		title = "Transit Model - Build Statistics"
	case "bike_stations":
		var stations []bikeStationView
		if bikes := webUI.GtfsManager.Bikes(); bikes != nil {
			for _, s := range bikes.Stations() {
				stations = append(stations, bikeStationView{
					ID: s.ID, Name: s.Name, Coords: s.Coords, Capacity: s.Capacity, Bikes: s.BikeCount(),
				})
			}
		}
		data = stations
		title = "Shared Bikes - Stations"
	case "realtime_trips":
		data = webUI.GtfsManager.GetRealTimeTrips()
		title = "GTFS Realtime - Trips"
	case "realtime_feeds":
		data = webUI.GtfsManager.RealtimeFeeds()
		title = "GTFS Realtime - Feeds"
	default:
		webUI.GtfsManager.RLock()
		defer webUI.GtfsManager.RUnlock()
		data, title = staticDebugData(webUI.GtfsManager.GetStaticData(), dataType)
	}

	writeDebugData(w, title, data)
}

func staticDebugData(staticData *gtfs.Static, dataType string) (interface{}, string) {
	if staticData == nil {
		return map[string]string{"error": "No static GTFS data is loaded."}, "GTFS Static - Not loaded"
	}
	switch dataType {
	case "warnings":
		return staticData.Warnings, "GTFS Static - Parse Warnings"
	case "agencies":
		return staticData.Agencies, "GTFS Static - Agencies"
	case "routes":
		return staticData.Routes, "GTFS Static - Routes"
	case "stops":
		return staticData.Stops, "GTFS Static - Stops"
	case "transfers":
		return staticData.Transfers, "GTFS Static - Transfers"
	case "services":
		return staticData.Services, "GTFS Static - Services"
	case "trips":
		return staticData.Trips, "GTFS Static - Trips"
	}
	return map[string]string{
		"error": "Please use one of the following: " + dataTypes + ".",
	}, "Choose a data type"
}
