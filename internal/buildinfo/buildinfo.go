// Package buildinfo carries version information stamped in at link time:
//
//	go build -ldflags "-X raptor.transitrouter.org/internal/buildinfo.CommitHash=$(git rev-parse HEAD)"
package buildinfo

var (
	CommitHash    = "unknown"
	Branch        = "unknown"
	BuildTime     = "unknown"
	Version       = "dev"
	CommitTime    = ""
	Dirty         = "false"
	Host          = ""
	RemoteURL     = ""
	CommitMessage = ""
)
