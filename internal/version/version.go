// Package version holds build information injected with -ldflags, e.g.
//
//	go build -ldflags "-X mod2fix/internal/version.Version=1.0.0 -X mod2fix/internal/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)
)

// Info is the JSON form printed by `mod2fix version --format json`.
type Info struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit,omitempty"`
	GitMessage string `json:"git_message,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
}

// Current returns the build information.
func Current() Info {
	return Info{Version: Version, GitCommit: GitCommit, GitMessage: GitMessage, BuildDate: BuildDate}
}

// Colored renders Version with each numeric component highlighted. Anything
// that is not major.minor.patch[-suffix] is returned unchanged.
func Colored() string {
	var major, minor, patch int
	var suffix string
	n, _ := fmt.Sscanf(Version, "%d.%d.%d%s", &major, &minor, &patch, &suffix)
	if n < 3 {
		return Version
	}
	return versionMajorColor.Sprint(major) + "." + versionMinorColor.Sprint(minor) + "." + versionPatchColor.Sprint(patch) + suffix
}
