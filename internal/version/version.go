// Package version reports the versions of this module and of wazero as
// recorded in the binary's build info.
package version

import (
	"runtime/debug"
	"strings"
)

// Default is returned when build info has no version, such as in tests or
// binaries built from a checkout.
const Default = "dev"

const wazeroModule = "github.com/tetratelabs/wazero"

// GetVersion returns the version of the main module, e.g. "v0.1.0".
func GetVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Default
	}
	return versionOf(info.Main)
}

// GetWazeroVersion returns the version of wazero this binary links.
func GetWazeroVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Default
	}
	for _, dep := range info.Deps {
		if dep.Path == wazeroModule {
			return versionOf(*dep)
		}
	}
	return Default
}

func versionOf(m debug.Module) string {
	if m.Replace != nil {
		m = *m.Replace
	}
	// Binaries built from a checkout report "(devel)" unless stamped.
	if v := m.Version; v != "" && !strings.HasPrefix(v, "(") {
		return v
	}
	return Default
}
