package models

type GitProperties struct {
	GitBranch           string `json:"git.branch"`
	GitBuildHost        string `json:"git.build.host"`
	GitBuildTime        string `json:"git.build.time"`
	GitBuildVersion     string `json:"git.build.version"`
	GitCommitId         string `json:"git.commit.id"`
	GitCommitIdAbbrev   string `json:"git.commit.id.abbrev"`
	GitCommitTime       string `json:"git.commit.time"`
	GitCommitMessage    string `json:"git.commit.message.short"`
	GitDirty            string `json:"git.dirty"`
	GitRemoteOriginUrl  string `json:"git.remote.origin.url"`
	GitCommitIdDescribe string `json:"git.commit.id.describe"`
}

// ModelStats summarizes the loaded transit model.
type ModelStats struct {
	Stops        int    `json:"stops"`
	Routes       int    `json:"routes"`
	Trips        int    `json:"trips"`
	Transfers    int    `json:"transfers"`
	BikeStations int    `json:"bikeStations"`
	Timezone     string `json:"timezone"`
	LastUpdated  int64  `json:"lastUpdated"`
}

// RegionModel is the box around all stops, given by its center and spans.
type RegionModel struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	LatSpan float64 `json:"latSpan"`
	LonSpan float64 `json:"lonSpan"`
}

type ConfigModel struct {
	GitProperties   GitProperties `json:"gitProperties"`
	Id              string        `json:"id"`
	Name            string        `json:"name"`
	ServiceDateFrom string        `json:"serviceDateFrom"`
	ServiceDateTo   string        `json:"serviceDateTo"`
	Model           ModelStats    `json:"model"`
	Region          *RegionModel  `json:"region,omitempty"`
}
