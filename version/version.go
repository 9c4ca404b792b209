package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Set at build time using -ldflags.
var (
	Version   = "dev"
	GitCommit = ""
)

// Name is the producer name written into archives.
const Name = "gfnkit"

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
	IsDirty   bool   `json:"is_dirty"`
}

var (
	infoOnce sync.Once
	info     Info
)

// GetVersionInfo returns the build information, read once.
func GetVersionInfo() Info {
	infoOnce.Do(func() {
		info = readInfo(Version, GitCommit)
	})
	return info
}

func readInfo(version, commit string) Info {
	i := Info{Version: version, GitCommit: commit}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return i
	}
	i.GoVersion = bi.GoVersion
	if i.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		i.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if i.GitCommit == "" {
				i.GitCommit = s.Value
			}
		case "vcs.modified":
			i.IsDirty = s.Value == "true"
		}
	}
	if len(i.GitCommit) > 7 {
		i.GitCommit = i.GitCommit[:7]
	}
	return i
}

// GetShortVersion returns "version[-commit][-dirty]".
func GetShortVersion() string {
	return short(GetVersionInfo())
}

func short(i Info) string {
	v := i.Version
	if i.GitCommit != "" {
		v += "-" + i.GitCommit
	}
	if i.IsDirty {
		v += "-dirty"
	}
	return v
}

// Producer returns the producer string recorded in archive metadata.
func Producer() string {
	return fmt.Sprintf("%s/%s", Name, GetShortVersion())
}
