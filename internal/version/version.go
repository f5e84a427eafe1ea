// Package version holds the umlreg release information.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X umlreg/internal/version.Version=1.0.0 -X umlreg/internal/version.Commit=abc123".
// Commit and BuildDate fall back to the VCS stamp of the binary when available.
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	stampFromBuildInfo(info.Settings)
}

func stampFromBuildInfo(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "unknown" {
				Commit = s.Value
			}
		case "vcs.time":
			if BuildDate == "unknown" {
				BuildDate = s.Value
			}
		}
	}
}

// Info returns the version with the short commit, e.g. "0.4.0 (abc1234)".
func Info() string {
	if Commit == "unknown" || len(Commit) <= 7 {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit[:7])
}

// Full returns the multi-line version banner.
func Full() string {
	return fmt.Sprintf("umlreg version %s\nCommit: %s\nBuilt: %s", Version, Commit, BuildDate)
}
