// Package version identifies a starline build and the file and wire
// formats it speaks.
//
// Version and Commit may be stamped at link time:
//
//	go build -ldflags="-X github.com/muurk/starline/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/starline/internal/version.Commit=abc123"
//
// Otherwise they are taken from the module and VCS data embedded by the Go
// toolchain.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

var (
	Version = ""
	Commit  = ""
)

// Format versions. A reader rejects files whose version it does not know.
const (
	// RecordFormat is the Version line of key and RAW capture files
	RecordFormat = 1
	// KeystoreFormat is the version field of YAML keystores
	KeystoreFormat = 1
	// SettingsFormat is the version field of the configuration file
	SettingsFormat = 1
	// BridgeProtocol is the websocket message schema, advertised over mDNS
	BridgeProtocol = 1
)

// Format names one versioned format
type Format struct {
	Name    string
	Version int
}

// Formats lists every format this build reads and writes.
func Formats() []Format {
	return []Format{
		{Name: "Key record", Version: RecordFormat},
		{Name: "Keystore", Version: KeystoreFormat},
		{Name: "Settings", Version: SettingsFormat},
		{Name: "Bridge protocol", Version: BridgeProtocol},
	}
}

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		v, c := fromBuildInfo(info)
		if Version == "" {
			Version = v
		}
		if Commit == "" {
			Commit = c
		}
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo derives a version and short commit from embedded build data.
// A tagged module version wins; a development build is named after its
// commit date.
func fromBuildInfo(info *debug.BuildInfo) (version, commit string) {
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	if rev := settings["vcs.revision"]; rev != "" {
		if len(rev) > 7 {
			rev = rev[:7]
		}
		commit = rev
		if settings["vcs.modified"] == "true" {
			commit += "-dirty"
		}
	}

	switch v := info.Main.Version; {
	case v != "" && v != "(devel)":
		version = strings.TrimSuffix(v, "+dirty")
	case settings["vcs.time"] != "":
		if t, err := time.Parse(time.RFC3339, settings["vcs.time"]); err == nil {
			version = "dev-" + t.UTC().Format("20060102")
		}
	}
	return version, commit
}

// Full returns the version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
