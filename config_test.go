package wasmcalc

import (
	"bytes"
	"io"
	"testing"

	"github.com/tetratelabs/wazero/experimental/logging"

	"github.com/wasmcalc/wasmcalc/internal/testing/require"
)

const logScopesFilesystem = logging.LogScopeFilesystem

func TestConfig_Immutable(t *testing.T) {
	base := NewConfig().WithArgs("adder")
	derived := base.WithInterpreter(true).WithArgs("other", "arg")

	b, d := base.(*config), derived.(*config)
	require.False(t, b.interpreter)
	require.True(t, d.interpreter)
	require.Equal(t, []string{"adder"}, b.args)
	require.Equal(t, []string{"other", "arg"}, d.args)
}

func TestConfig_WithArgsCopies(t *testing.T) {
	args := []string{"adder"}
	c := NewConfig().WithArgs(args...).(*config)
	args[0] = "changed"

	require.Equal(t, []string{"adder"}, c.args)
}

func TestConfig_listenerFactory(t *testing.T) {
	var buf bytes.Buffer

	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{name: "default", config: NewConfig()},
		{name: "host logging", config: NewConfig().WithHostLogging(&buf, logging.LogScopeAll), expected: true},
		{name: "host logging no scopes", config: NewConfig().WithHostLogging(&buf, logging.LogScopeNone)},
		{name: "call tracing", config: NewConfig().WithCallTracing(&buf), expected: true},
		{name: "call tracing disabled", config: NewConfig().WithCallTracing(&buf).WithCallTracing(nil)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := tc.config.(*config).listenerFactory()
			require.Equal(t, tc.expected, f != nil)

			ctx := tc.config.(*config).withListeners(testCtx)
			require.Equal(t, tc.expected, ctx != testCtx)
		})
	}
}

func TestConfig_moduleConfig(t *testing.T) {
	// Nothing set must not override wazero's defaults with nil writers.
	require.NotNil(t, NewConfig().(*config).moduleConfig())

	c := NewConfig().WithStdout(io.Discard).WithStderr(io.Discard).WithArgs("a").(*config)
	require.NotNil(t, c.moduleConfig())
}
