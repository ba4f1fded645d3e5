// Package version exposes the build identity of a dwhsync binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set through -X ldflags by the Makefile and Dockerfile. A plain
// `go build` leaves them at their defaults.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// init fills Commit from the module's embedded VCS metadata when
// ldflags left it unset.
func init() {
	if Commit != "unknown" {
		return
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			Commit = s.Value[:7]
			return
		}
	}
}

// Info is the build identity in JSON-friendly form.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetInfo returns the build identity of the running binary.
func GetInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// String returns the one-line form printed by the version command.
func String() string {
	return fmt.Sprintf("dwhsync %s (commit %s, built %s, %s)",
		Version, Commit, Date, runtime.Version())
}

// Short returns the bare version number.
func Short() string {
	return Version
}
