// Package version holds build-time version metadata.
package version

// Version is set via ldflags in release builds:
// go build -ldflags "-X git.home.luguber.info/inful/foliobuilder/internal/version.Version=v1.2.0".
var Version = "dev"

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String returns the human-readable version line.
func String() string {
	return Version + " (" + GitCommit + ", " + BuildTime + ")"
}
