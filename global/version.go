package global

import (
	"fmt"
	"runtime/debug"
)

const Version = "v0.1.0"

// build information of the binary, taken from the VCS stamp if present
var (
	CommitHash = "N/A"
	CommitTime = "N/A"
	GoVersion  = "N/A"
	modified   bool
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	GoVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			CommitHash = setting.Value
		case "vcs.time":
			CommitTime = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
}

func BannerString() string {
	ret := fmt.Sprintf("starting notary node version %s, commit hash: %s, commit time: %s, built with %s",
		Version, CommitHash, CommitTime, GoVersion)
	if modified {
		ret += " (modified working tree)"
	}
	return ret
}
