package version

import "fmt"

var (
	// Version is the semantic version of the build, overridable via ldflags.
	Version = "1.0.0"
	// Commit is the short git SHA the binary was built from, or "none".
	Commit = "none"
	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"
)

// Short returns just the semantic version.
func Short() string {
	return Version
}

// Full renders the version with commit and build time for the CLI.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}
