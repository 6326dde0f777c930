// Package version holds build information for the sigother binary.
package version

import (
	"runtime"
	"runtime/debug"
)

// Overridden at build time:
// go build -ldflags "-X sigother/internal/version.Version=0.3.0 -X sigother/internal/version.Commit=abc123"
var (
	Version   = "0.1.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// BuildInfo is the structured form printed by `sigother version --format json`
type BuildInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"buildDate" yaml:"buildDate"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Info returns a formatted version string
func Info() string {
	if commit := commit(); commit != "unknown" && len(commit) > 7 {
		return Version + " (" + commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "sigother version " + Version + "\n" +
		"Commit: " + commit() + "\n" +
		"Built: " + BuildDate + "\n" +
		"Go: " + runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH
}

// Get returns the build information
func Get() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    commit(),
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// commit falls back to the VCS revision stamped by the go tool when the
// ldflag was not set.
func commit() string {
	if Commit != "unknown" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return Commit
}
