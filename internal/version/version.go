// Package version reports build information for safedump binaries.
package version

import "runtime/debug"

// Set via -ldflags "-X github.com/samcharles93/safedump/internal/version.Version=...".
var (
	Version   = ""
	Commit    = ""
	BuildTime = ""
)

type Info struct {
	Version   string
	Commit    string
	BuildTime string
}

// Resolve fills gaps in the ldflags values from the module build info.
func Resolve() Info {
	info := Info{Version: Version, Commit: Commit, BuildTime: BuildTime}
	bi, ok := debug.ReadBuildInfo()
	if ok {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			}
		}
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}

// String returns "version (commit)" with the commit shortened to 12 characters.
func String() string {
	info := Resolve()
	if info.Commit == "" {
		return info.Version
	}
	c := info.Commit
	if len(c) > 12 {
		c = c[:12]
	}
	return info.Version + " (" + c + ")"
}
