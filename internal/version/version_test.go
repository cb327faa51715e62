package version

import (
	"runtime/debug"
	"testing"

	"github.com/wasmcalc/wasmcalc/internal/testing/require"
)

func TestVersionOf(t *testing.T) {
	tests := []struct {
		name     string
		module   debug.Module
		expected string
	}{
		{name: "tagged", module: debug.Module{Version: "v1.9.0"}, expected: "v1.9.0"},
		{name: "devel", module: debug.Module{Version: "(devel)"}, expected: Default},
		{name: "empty", module: debug.Module{}, expected: Default},
		{
			name:     "replaced",
			module:   debug.Module{Version: "v1.0.0", Replace: &debug.Module{Version: "v1.0.1"}},
			expected: "v1.0.1",
		},
		{
			name:     "replaced by directory",
			module:   debug.Module{Version: "v1.0.0", Replace: &debug.Module{Path: "../wazero"}},
			expected: Default,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, versionOf(tc.module))
		})
	}
}

func TestGetVersion(t *testing.T) {
	// Test binaries aren't stamped with a version.
	require.Equal(t, Default, GetVersion())
}
