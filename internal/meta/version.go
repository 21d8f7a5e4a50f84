// Package meta holds the build information of sitewatch.
package meta

var (
	// Version is the semantic version of sitewatch.
	// This value is injected at build time via ldflags.
	Version = "HEAD"

	// Commit is the git commit hash.
	// This value is injected at build time via ldflags.
	Commit = "UNKNOWN"
)

// UserAgent is the User-Agent header value of the HTTP probe and the alert senders.
func UserAgent() string {
	return "sitewatch/" + Version + " uptime-monitor"
}
