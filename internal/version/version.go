// Package version exposes build metadata injected at link time.
package version

// Set via -ldflags "-X github.com/sydlexius/liner/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
)

// UserAgent is the identifier sent to every external metadata source.
func UserAgent() string {
	return "Liner/" + Version + " (https://github.com/sydlexius/liner)"
}
