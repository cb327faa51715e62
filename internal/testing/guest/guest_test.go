package guest

import (
	"bytes"
	"testing"

	"github.com/wasmcalc/wasmcalc/internal/testing/require"
)

// wasmMagic is the preamble of every WebAssembly binary.
var wasmMagic = []byte{0x00, 'a', 's', 'm'}

func TestBuild(t *testing.T) {
	for _, pkg := range []string{Adder, Accumulator} {
		for _, mode := range []Mode{Command, Reactor} {
			t.Run(pkg+"/"+mode.String(), func(t *testing.T) {
				wasm, err := Build(pkg, mode)
				require.NoError(t, err)
				require.True(t, bytes.HasPrefix(wasm, wasmMagic))

				again, err := Build(pkg, mode)
				require.NoError(t, err)
				require.True(t, &wasm[0] == &again[0], "expected a cached result")
			})
		}
	}
}

func TestBuild_Invalid(t *testing.T) {
	_, err := Build("cmd/nope", Command)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cmd/nope")
}
