// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Set via -ldflags at build time. A build without them falls back to
// the VCS stamp the Go toolchain embeds, when there is one.
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"

	// Version is the semantic version. Set manually for releases.
	Version = "0.1.0-dev"
)

// buildStamp is what the toolchain recorded about the source tree.
type buildStamp struct {
	revision string
	modified bool
	time     string
}

var readBuildStamp = sync.OnceValue(func() buildStamp {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return buildStamp{}
	}
	return stampFromSettings(info.Settings)
})

func stampFromSettings(settings []debug.BuildSetting) buildStamp {
	var stamp buildStamp
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			stamp.revision = setting.Value
			if len(stamp.revision) > 7 {
				stamp.revision = stamp.revision[:7]
			}
		case "vcs.modified":
			stamp.modified = setting.Value == "true"
		case "vcs.time":
			stamp.time = setting.Value
		}
	}
	return stamp
}

// resolved returns commit, dirty, and build time, preferring ldflags.
func resolved() (commit string, dirty bool, built string) {
	commit, dirty, built = GitCommit, GitDirty == "true", BuildTime
	if commit != "unknown" {
		return commit, dirty, built
	}
	stamp := readBuildStamp()
	if stamp.revision == "" {
		return commit, dirty, built
	}
	if built == "unknown" && stamp.time != "" {
		built = stamp.time
	}
	return stamp.revision, stamp.modified, built
}

// Info returns a formatted version string suitable for logs.
func Info() string {
	commit, dirty, built := resolved()
	suffix := ""
	if dirty {
		suffix = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, commit, suffix, built)
}

// Full adds the Go version and platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Banner returns the --version output for the named binary.
func Banner(binary string) string {
	return binary + " " + Full()
}
