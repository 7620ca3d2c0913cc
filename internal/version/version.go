// Package version provides centralized version information for the faultline
// binaries. The variables are set at build time via ldflags:
//
//	-ldflags "-X faultline/internal/version.version=v1.0.0 -X faultline/internal/version.commit=abc123 -X faultline/internal/version.buildTime=2025-01-01T00:00:00Z"
package version

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// These variables are set via ldflags during build.
//
//nolint:gochecknoglobals // Required for build-time injection via ldflags.
var (
	version   string
	commit    string
	buildTime string
)

// ApplicationName is the name displayed in version output.
const ApplicationName = "Faultline"

// Default values used when version information is not available.
const (
	DefaultVersion   = "dev"
	DefaultCommit    = "unknown"
	DefaultBuildTime = "unknown"
)

// VersionInfo encapsulates all version-related information with defaults.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// NewVersionInfo creates a VersionInfo from the build-time variables, filling
// in defaults for anything unset.
func NewVersionInfo() *VersionInfo {
	info := &VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
	if info.Version == "" {
		info.Version = DefaultVersion
	}
	if info.Commit == "" {
		info.Commit = DefaultCommit
	}
	if info.BuildTime == "" {
		info.BuildTime = DefaultBuildTime
	}
	return info
}

// FormatShort returns a single-line output containing only the version.
func (vi *VersionInfo) FormatShort() string {
	return vi.Version
}

// FormatFull returns a multi-line output with the complete version details.
func (vi *VersionInfo) FormatFull() string {
	var builder strings.Builder

	builder.WriteString(ApplicationName)
	builder.WriteString("\n")
	builder.WriteString("Version: ")
	builder.WriteString(vi.Version)
	builder.WriteString("\n")
	builder.WriteString("Commit: ")
	builder.WriteString(vi.Commit)
	builder.WriteString("\n")
	builder.WriteString("Built: ")
	builder.WriteString(vi.BuildTime)
	builder.WriteString("\n")

	return builder.String()
}

// Write formats the version based on the short flag and writes it out.
func (vi *VersionInfo) Write(w io.Writer, short bool) error {
	if short {
		_, err := fmt.Fprintln(w, vi.FormatShort())
		return err
	}
	_, err := fmt.Fprint(w, vi.FormatFull())
	return err
}

// IsDevelopment returns true if the version indicates a development build.
func (vi *VersionInfo) IsDevelopment() bool {
	return vi.Version == DefaultVersion
}

// GetBuildTime parses the build time as a timestamp, returning a zero time
// when it cannot be parsed.
func (vi *VersionInfo) GetBuildTime() time.Time {
	if vi.BuildTime == DefaultBuildTime {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, vi.BuildTime)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// SetBuildVars sets the build-time variables; used by tests.
func SetBuildVars(ver, com, bt string) {
	version = ver
	commit = com
	buildTime = bt
}

// ResetBuildVars resets all build variables to empty values; used by tests.
func ResetBuildVars() {
	version = ""
	commit = ""
	buildTime = ""
}
