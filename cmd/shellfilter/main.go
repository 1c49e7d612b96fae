// Package main provides the CLI entry point for shellfilter.
package main

import (
	"os"
	"runtime/debug"

	"github.com/alexander-akhmetov/shellfilter/internal/cli"
)

// Version information set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	fillVersionFromBuildInfo()
	cli.SetVersionInfo(version, commit, date)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

func fillVersionFromBuildInfo() {
	if version != "dev" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	commit, date = versionFromSettings(info.Settings)
}

// versionFromSettings extracts the short commit and commit time from VCS
// build settings.
func versionFromSettings(settings []debug.BuildSetting) (commit, date string) {
	commit, date = "unknown", "unknown"
	var revision string
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			if s.Value != "" {
				date = s.Value
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if len(revision) >= 7 {
		commit = revision[:7]
		if dirty {
			commit += "-dirty"
		}
	}
	return commit, date
}
