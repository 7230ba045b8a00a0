// Package version holds build information injected at link time.
package version

import (
	"fmt"

	"github.com/aatumaykin/dmbot/internal/constants"
)

// Overridden through SetInfo from the values the linker injects into main.
var (
	Version   = constants.DefaultVersion
	BuildTime = constants.DefaultBuildTime
	GitCommit = constants.DefaultGitCommit
	GoVersion = constants.DefaultGoVersion
)

// SetInfo overrides the build information. Empty values are ignored.
func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

// String is the one-line version shown by "dmbot version".
func String() string {
	return fmt.Sprintf("dmbot %s (commit %s, built %s, %s)", Version, GitCommit, BuildTime, GoVersion)
}

// FormatStartupMessage is logged once the service is up.
func FormatStartupMessage() string {
	return fmt.Sprintf("📬 dmbot started\nVersion: %s\nBuild: %s", Version, BuildTime)
}
