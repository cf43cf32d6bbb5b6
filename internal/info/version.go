// Package info holds build information of the xdm tree.
package info

// FallbackVersion is returned when a version string was not set by the linker.
const FallbackVersion = "dirty"

// buildVersion is the xdm version string at build time.
//
// This is set by the linker.
var buildVersion string

// Version returns the xdm version string: a release tag like "v1.0.0"
// when set by the linker, [FallbackVersion] otherwise.
func Version() string {
	if buildVersion != "" {
		return buildVersion
	}
	return FallbackVersion
}
