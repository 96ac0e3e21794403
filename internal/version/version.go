// Package version holds build identification stamped in via ldflags, e.g.
//
//	go build -ldflags "-X github.com/banshee-data/backhand/internal/version.Version=v0.3.0"
package version

import "fmt"

var (
	// Version is the release tag, or "dev" for unstamped builds
	Version = "dev"
	// GitSHA is the git commit the binary was built from
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the stamped build identity as a single line.
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, GitSHA, BuildTime)
}
