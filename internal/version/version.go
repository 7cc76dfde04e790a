// Package version carries build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/samguns/Project4-Advanced-Lane-Finding/internal/version.Version=v1.2.0" ./cmd/lanetrack
package version

import "fmt"

var (
	// Version is the release tag
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for a -version flag.
func String(program string) string {
	return fmt.Sprintf("%s %s (%s, built %s)", program, Version, GitSHA, BuildTime)
}
