// Package buildinfo reports the version of the running binary.
//
// Release builds stamp the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/govdash/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/govdash/pkg/buildinfo.Commit=$(git rev-parse --short HEAD)" ./cmd/govdash
//
// Binaries installed with go install fall back to the module version and
// VCS revision recorded by the toolchain.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is the release tag, or "dev".
	Version = "dev"
	// Commit is the VCS revision, or "none".
	Commit = "none"
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	if Commit == "none" {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				Commit = s.Value[:7]
			}
		}
	}
}

// Template is the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (%s)\n", Version, Commit)
}

// UserAgent is the User-Agent of outgoing HTTP requests.
func UserAgent() string {
	return "govdash/" + Version
}
