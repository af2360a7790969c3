// Package version carries build information, set via -ldflags at build time.
package version

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// UserAgent is the value sent on outbound API requests.
func UserAgent() string {
	return "trackd v" + Version
}
