package wasmcalc

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// Adder calls the exports of an adder guest built as a reactor. It isn't
// safe for concurrent use.
type Adder struct {
	*reactor
	addNums api.Function
}

// InstantiateAdder instantiates wasm, which must export "addNums".
func (rt *Runtime) InstantiateAdder(ctx context.Context, wasm []byte) (*Adder, error) {
	g, err := rt.instantiateReactor(ctx, wasm, "addNums")
	if err != nil {
		return nil, err
	}
	return &Adder{reactor: g, addNums: g.function("addNums")}, nil
}

// AddNums returns a + b as computed by the guest. Overflow wraps around.
func (a *Adder) AddNums(ctx context.Context, x, y int32) (int32, error) {
	results, err := a.addNums.Call(ctx, api.EncodeI32(x), api.EncodeI32(y))
	if err != nil {
		return 0, err
	}
	return api.DecodeI32(results[0]), nil
}
