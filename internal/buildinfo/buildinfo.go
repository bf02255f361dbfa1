// Package buildinfo contains build-time metadata separate from user
// configuration. Values are injected via ldflags at build time.
package buildinfo

// Set at build time:
//
//	go build -ldflags "-X github.com/mkarvala/sidekick-go/internal/buildinfo.version=v1.2.3"
var (
	version   = ""
	buildDate = ""
)

// Info holds build-time metadata for display in the CLI and health
// endpoint.
type Info struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
}

// Get returns the build metadata, substituting "dev" for values the build
// did not inject.
func Get() Info {
	info := Info{Version: version, BuildDate: buildDate}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.BuildDate == "" {
		info.BuildDate = "unknown"
	}
	return info
}
