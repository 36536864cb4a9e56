package restapi

import (
	"net/http"

	"raptor.transitrouter.org/internal/buildinfo"
	"raptor.transitrouter.org/internal/models"
)

func (api *RestAPI) configHandler(w http.ResponseWriter, r *http.Request) {
	shortHash := "unknown"
	if len(buildinfo.CommitHash) >= 7 {
		shortHash = buildinfo.CommitHash[:7]
	}

	configEntry := models.ConfigModel{
		GitProperties: models.GitProperties{
			GitBranch:           buildinfo.Branch,
			GitBuildHost:        buildinfo.Host,
			GitBuildTime:        buildinfo.BuildTime,
			GitBuildVersion:     buildinfo.Version,
			GitCommitId:         buildinfo.CommitHash,
			GitCommitIdAbbrev:   shortHash,
			GitCommitTime:       buildinfo.CommitTime,
			GitCommitMessage:    buildinfo.CommitMessage,
			GitDirty:            buildinfo.Dirty,
			GitRemoteOriginUrl:  buildinfo.RemoteURL,
			GitCommitIdDescribe: buildinfo.Version,
		},
		Id:   "raptor",
		Name: "RAPTOR transit router",
	}

	if model := api.GtfsManager.Model(); model != nil {
		if first, last, ok := model.ServiceWindow(); ok {
			configEntry.ServiceDateFrom = first.String()
			configEntry.ServiceDateTo = last.String()
		}
		configEntry.Model = models.ModelStats{
			Stops:       len(model.Stops()),
			Routes:      len(model.Routes()),
			Trips:       model.TripCount(),
			Transfers:   model.TransferCount(),
			Timezone:    model.Location().String(),
			LastUpdated: api.GtfsManager.LastUpdated().UnixMilli(),
		}
		if bikes := api.GtfsManager.Bikes(); bikes != nil {
			configEntry.Model.BikeStations = bikes.Len()
		}
		if bounds := api.GtfsManager.RegionBounds(); bounds != nil {
			region := models.RegionModel(*bounds)
			configEntry.Region = &region
		}
	}

	api.sendResponse(w, r, models.NewEntryResponse(configEntry, api.Clock))
}
