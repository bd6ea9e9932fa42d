// Package version carries build metadata injected at link time:
//
//	go build -ldflags "-X git.home.luguber.info/inful/docsync/internal/version.Version=v0.3.0"
package version

import "fmt"

var Version = "unknown"

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version line printed by --version.
func String() string {
	return fmt.Sprintf("docsync %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
