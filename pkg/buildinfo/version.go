// Package buildinfo holds version information stamped in at link time:
//
//	go build -ldflags "-X github.com/volvulus/untwist/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/volvulus/untwist/pkg/buildinfo.Commit=$(git rev-parse --short HEAD)"
//
// Without ldflags, Version falls back to the module version recorded by
// go install, and Commit to the VCS revision.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && Commit == "none" && len(s.Value) >= 7:
			Commit = s.Value[:7]
		case s.Key == "vcs.time" && Date == "unknown":
			Date = s.Value
		}
	}
}

// String returns "<version> (<commit>, <date>)".
func String() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}

// Template returns the cobra version template.
func Template() string {
	return "{{.Name}} " + String() + "\n"
}
