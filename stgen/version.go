package stgen

import "golang.org/x/mod/semver"

// Version information for the SynchroTrace generation backend.
const (
	// Version is the current version of the backend.
	Version = "1.0.0"

	// VersionMajor is the major version number.
	VersionMajor = 1

	// VersionMinor is the minor version number.
	VersionMinor = 0

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the backend.
type Info struct {
	// Version is the canonical semver version string (with leading "v").
	Version string

	// TraceFormat names the trace family this backend emits.
	TraceFormat string
}

// GetInfo returns information about the backend.
//
// Example:
//
//	info := stgen.GetInfo()
//	fmt.Printf("stgen %s (%s)\n", info.Version, info.TraceFormat)
func GetInfo() Info {
	return Info{
		Version:     semver.Canonical("v" + Version),
		TraceFormat: "SynchroTrace",
	}
}
