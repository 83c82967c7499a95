// Package version reports which suntan build is running.
package version

import (
	"fmt"
	"runtime/debug"
)

// Release builds set these with -ldflags "-X".
//
//nolint:revive,gochecknoglobals // linker-injected
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build metadata on one line. Binaries built without
// ldflags, such as those from go install, fall back to the module version
// and VCS stamp recorded by the toolchain.
func String() string {
	v, c, d := Version, Commit, Date
	if info, ok := debug.ReadBuildInfo(); ok {
		v, c, d = fromBuildInfo(info, v, c, d)
	}
	return fmt.Sprintf("suntan %s (commit %s, built %s)", v, c, d)
}

func fromBuildInfo(info *debug.BuildInfo, v, c, d string) (string, string, string) {
	if v == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		v = info.Main.Version
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && c == "unknown":
			c = s.Value
		case s.Key == "vcs.time" && d == "unknown":
			d = s.Value
		}
	}
	return v, c, d
}
