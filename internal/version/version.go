// Package version reports the build identity of the pocketmoney binary.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set via -ldflags at release build time; "dev" otherwise.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Info is the resolved build identity, served by the health endpoint.
type Info struct {
	Version     string `json:"version"`
	BuildTime   string `json:"buildTime"`
	GoVersion   string `json:"goVersion"`
	VCSRevision string `json:"vcsRevision,omitempty"`
	VCSTime     string `json:"vcsTime,omitempty"`
	VCSModified bool   `json:"vcsModified"`
}

// Get combines the ldflags values with whatever VCS stamps the Go
// toolchain embedded in the binary.
func Get() Info {
	info := Info{
		Version:   Version,
		BuildTime: BuildTime,
	}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = buildInfo.GoVersion

	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.VCSRevision = setting.Value
		case "vcs.time":
			info.VCSTime = setting.Value
		case "vcs.modified":
			info.VCSModified = setting.Value == "true"
		}
	}

	return info
}

// String renders a single-line summary for the startup log.
func (i Info) String() string {
	parts := []string{fmt.Sprintf("Version: %s", i.Version)}

	if i.BuildTime != "unknown" {
		parts = append(parts, fmt.Sprintf("Built: %s", i.BuildTime))
	}
	parts = append(parts, fmt.Sprintf("Go: %s", i.GoVersion))

	if i.VCSRevision != "" {
		rev := i.VCSRevision
		if len(rev) > 8 {
			rev = rev[:8]
		}
		if i.VCSModified {
			rev += " (modified)"
		}
		parts = append(parts, fmt.Sprintf("Commit: %s", rev))
	}

	return strings.Join(parts, ", ")
}
