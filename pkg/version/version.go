package version

// Version is the release version. Overridden at build time with -ldflags "-X geoscan/pkg/version.Version=...".
var Version = "v0.4.0"

// Commit is the source revision, set at build time.
var Commit = "unknown"

// Info is the payload served at /api/version.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// Get returns the build information.
func Get() Info {
	return Info{Version: Version, Commit: Commit}
}
