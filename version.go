package golokal

import (
	"runtime"
	"runtime/debug"
	"sync"
)

const (
	Name    = "golokal"
	Version = "0.1.0"
)

// Stamped by release builds:
//
//	go build -ldflags "-X github.com/ZaguanLabs/golokal.GitCommit=$(git rev-parse HEAD) -X github.com/ZaguanLabs/golokal.BuildDate=$(date -u +%F)"
//
// Left empty, they fall back to the VCS stamp the go command embeds.
var (
	GitCommit string
	BuildDate string
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string
	Commit    string // short revision, empty when unknown
	Date      string
	Modified  bool // built from a dirty tree
	GoVersion string
}

// String renders the version with its revision, e.g. "0.1.0+1a2b3c4-dirty".
func (b BuildInfo) String() string {
	s := b.Version
	if b.Commit != "" {
		s += "+" + b.Commit
		if b.Modified {
			s += "-dirty"
		}
	}
	return s
}

var build = sync.OnceValue(func() BuildInfo {
	info, _ := debug.ReadBuildInfo()
	return resolveBuild(GitCommit, BuildDate, info)
})

// Build returns the build information of the running binary.
func Build() BuildInfo {
	return build()
}

func resolveBuild(commit, date string, info *debug.BuildInfo) BuildInfo {
	b := BuildInfo{Version: Version, Commit: commit, Date: date, GoVersion: runtime.Version()}
	if info != nil {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if b.Commit == "" {
					b.Commit = setting.Value
				}
			case "vcs.time":
				if b.Date == "" {
					b.Date = setting.Value
				}
			case "vcs.modified":
				b.Modified = setting.Value == "true"
			}
		}
	}
	if len(b.Commit) > 7 {
		b.Commit = b.Commit[:7]
	}
	return b
}

// UserAgent returns the default User-Agent header for API requests.
func UserAgent() string {
	return Name + "/" + Version
}
