package jsonapikit

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build metadata. GitCommit and BuildDate are meant for -ldflags; when left
// unset they fall back to the VCS stamp Go embeds in the binary.
var (
	Version   = "v0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
}

// GetVersionInfo returns the build metadata.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "unknown":
			info.Commit = s.Value
		case s.Key == "vcs.time" && info.BuildDate == "unknown":
			info.BuildDate = s.Value
		}
	}
	return info
}

// GetVersion returns a human-readable version string.
func GetVersion() string {
	info := GetVersionInfo()
	return fmt.Sprintf("jsonapikit %s (commit: %s, built: %s, go: %s)",
		info.Version, info.Commit, info.BuildDate, info.GoVersion)
}

// UserAgent is a User-Agent value identifying this library.
func UserAgent() string {
	return "jsonapikit/" + Version
}
