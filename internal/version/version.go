package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/yeelight/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/yeelight/internal/version.Commit=abc123"
//
// When unset, Commit is recovered from the binary's embedded VCS info and
// Version falls back to "dev".
var (
	// Version is the semantic version of the application
	Version = ""
	// Commit is the git commit hash
	Commit = ""
)

func init() {
	if Commit == "" {
		Commit = commitFromBuildInfo()
	}
	if Commit == "" {
		Commit = "unknown"
	}
	if Version == "" {
		Version = "dev"
	}
}

// commitFromBuildInfo reads the VCS revision embedded by the Go toolchain
// when building inside a git checkout.
func commitFromBuildInfo() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	var revision, modified string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value
		}
	}

	if revision == "" {
		return ""
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if modified == "true" {
		revision += "-dirty"
	}
	return revision
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
