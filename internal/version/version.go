// Package version exposes build metadata for dbviz.
package version

import (
	"fmt"
	"runtime"
)

// Overridden at build time with -ldflags "-X github.com/dbviz/dbviz/internal/version.Version=...".
var (
	Version   = "0.1.0"
	GitCommit = "dev"
	BuildDate = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the version information of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("dbviz %s (commit %s, built %s, %s, %s)",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}

// Full returns the multi-line form printed by `dbviz version`.
func (i Info) Full() string {
	return fmt.Sprintf(`dbviz
  Version:    %s
  Git Commit: %s
  Build Date: %s
  Go Version: %s
  Platform:   %s`,
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}
