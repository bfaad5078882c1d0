// Package appinfo reports build information for the server and CLI
package appinfo

import (
	"os"
	"runtime"
	"runtime/debug"
)

// Name is the application name reported by status endpoints
const Name = "badgehub"

// Version is set at build time:
//
//	go build -ldflags "-X badgehub/internal/appinfo.Version=v1.2.0"
var Version = ""

// Info describes the running binary
type Info struct {
	Name      string `json:"name" yaml:"name"`
	Version   string `json:"version" yaml:"version"`
	Revision  string `json:"revision,omitempty" yaml:"revision,omitempty"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// Get collects build information
func Get() Info {
	return Info{
		Name:      Name,
		Version:   GetVersion(),
		Revision:  revision(),
		GoVersion: runtime.Version(),
	}
}

// GetVersion returns the ldflags version, then APP_VERSION, then the module
// version from build info, and finally "dev".
func GetVersion() string {
	if Version != "" {
		return Version
	}
	if version := os.Getenv("APP_VERSION"); version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return "dev"
}

func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			if len(setting.Value) > 12 {
				return setting.Value[:12]
			}
			return setting.Value
		}
	}
	return ""
}
