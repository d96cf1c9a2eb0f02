// Package version reports what binary is running.
package version

import (
	"net/http"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/dalemusser/authform/httputil"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/dalemusser/authform/pantry/version.Version=1.0.0"
//
// Commit and BuildTime fall back to the VCS stamp Go embeds in module builds.
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// Info is the /version body.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
}

var (
	once sync.Once
	info Info
)

// Get returns the build info, resolved once.
func Get() Info {
	once.Do(func() {
		info = resolve(Version, Commit, BuildTime, debug.ReadBuildInfo)
	})
	return info
}

func resolve(ver, commit, built string, read func() (*debug.BuildInfo, bool)) Info {
	out := Info{Version: ver, Commit: commit, BuildTime: built, GoVersion: runtime.Version()}
	bi, ok := read()
	if !ok {
		return fill(out)
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if out.Commit == "" {
				out.Commit = s.Value
			}
		case "vcs.time":
			if out.BuildTime == "" {
				out.BuildTime = s.Value
			}
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}
	return fill(out)
}

func fill(i Info) Info {
	if i.Commit == "" {
		i.Commit = "unknown"
	}
	if i.BuildTime == "" {
		i.BuildTime = "unknown"
	}
	return i
}

// Handler answers with Get() as JSON.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, Get())
	})
}

// String is a one-line form for startup logs, e.g. "1.2.3 (abc1234)".
func String() string {
	i := Get()
	c := i.Commit
	if len(c) > 7 {
		c = c[:7]
	}
	return i.Version + " (" + c + ")"
}
