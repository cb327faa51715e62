package wasmcalc

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/sys"
)

// Run instantiates a guest built as a WASI command, which runs its entry
// routine (_start), and returns the exit code it ended with.
//
// A guest that returns from main without calling exit succeeded, so the code
// is zero. A trap is returned as an error.
func (rt *Runtime) Run(ctx context.Context, wasm []byte) (exitCode uint32, err error) {
	compiled, err := rt.Compile(ctx, wasm)
	if err != nil {
		return 0, err
	}
	defer compiled.Close(ctx)

	if err = requireExports(compiled, "_start"); err != nil {
		return 0, err
	}

	conf := rt.config.moduleConfig().WithName("")
	mod, err := rt.r.InstantiateModule(rt.config.withListeners(ctx), compiled, conf)
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 0, fmt.Errorf("error instantiating wasm binary: %w", err)
	}

	// We're done, _start was called as part of instantiating the module. When
	// it exited with zero, wazero already closed the module.
	if mod != nil {
		err = mod.Close(ctx)
	}
	return 0, err
}
