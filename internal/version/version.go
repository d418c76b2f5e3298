// Package version provides build and version information for StoryEngine.
package version

// Version is the current release version of StoryEngine.
// This can be overridden at build time using:
//
//	go build -ldflags "-X github.com/lumenplay/StoryEngine/internal/version.Version=x.y.z"
var Version = "1.0.0"
