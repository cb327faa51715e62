package wasmcalc

import (
	"context"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/wasmcalc/wasmcalc/internal/cstring"
)

// Accumulator calls the exports of an accumulator guest built as a reactor.
// It isn't safe for concurrent use.
type Accumulator struct {
	*reactor
	accumulate, getString api.Function

	// malloc and free are nil when the guest doesn't export them. Then only
	// AccumulateAt can sum, as the host can't place an array in memory.
	malloc, free api.Function
}

// InstantiateAccumulator instantiates wasm, which must export "accumulate"
// and "getString". "malloc" and "free" are needed by Accumulate and
// AccumulateN.
func (rt *Runtime) InstantiateAccumulator(ctx context.Context, wasm []byte) (*Accumulator, error) {
	g, err := rt.instantiateReactor(ctx, wasm, "accumulate", "getString")
	if err != nil {
		return nil, err
	}
	return &Accumulator{
		reactor:    g,
		accumulate: g.function("accumulate"),
		getString:  g.function("getString"),
		malloc:     g.function("malloc"),
		free:       g.function("free"),
	}, nil
}

// Accumulate returns the sum of arr, computed by the guest.
func (a *Accumulator) Accumulate(ctx context.Context, arr []int32) (int32, error) {
	return a.AccumulateN(ctx, arr, len(arr))
}

// AccumulateN returns the sum of arr[:n], computed by the guest. Unlike the
// guest export, the count is checked: ErrOutOfBounds is returned unless
// 0 <= n <= len(arr).
func (a *Accumulator) AccumulateN(ctx context.Context, arr []int32, n int) (int32, error) {
	if n < 0 || n > len(arr) || uint64(n)*4 > math.MaxUint32 {
		return 0, fmt.Errorf("%w: count %d with length %d", ErrOutOfBounds, n, len(arr))
	}
	if n == 0 {
		return a.AccumulateAt(ctx, 0, 0)
	}
	if a.malloc == nil || a.free == nil {
		return 0, fmt.Errorf("%w: %q and %q are needed to pass an array", ErrMissingExport, "malloc", "free")
	}

	size := uint32(4 * n)
	results, err := a.malloc.Call(ctx, uint64(size))
	if err != nil {
		return 0, err
	}
	ptr := api.DecodeU32(results[0])
	// The guest owns this memory, and doesn't know we're done with it.
	defer a.free.Call(ctx, api.EncodeU32(ptr))

	mem := a.mod.Memory()
	for i, v := range arr[:n] {
		if offset := ptr + uint32(4*i); !mem.WriteUint32Le(offset, uint32(v)) {
			return 0, fmt.Errorf("Memory.WriteUint32Le(%d, %d) out of range of memory size %d", offset, v, mem.Size())
		}
	}
	return a.AccumulateAt(ctx, ptr, int32(n))
}

// AccumulateAt calls the guest export directly: it sums n int32 values
// starting at the linear memory offset ptr.
//
// Nothing is checked. A count past the end of the array reads whatever
// follows it, and past the end of memory traps.
func (a *Accumulator) AccumulateAt(ctx context.Context, ptr uint32, n int32) (int32, error) {
	results, err := a.accumulate.Call(ctx, api.EncodeU32(ptr), api.EncodeI32(n))
	if err != nil {
		return 0, err
	}
	return api.DecodeI32(results[0]), nil
}

// GetString returns the guest's constant greeting, "Hello, World!".
//
// The guest returns a pointer to static memory it owns, so the text is copied
// out and nothing is freed.
func (a *Accumulator) GetString(ctx context.Context) (string, error) {
	results, err := a.getString.Call(ctx)
	if err != nil {
		return "", err
	}
	mem := a.mod.Memory()
	if mem == nil {
		return "", fmt.Errorf("%w: memory", ErrMissingExport)
	}
	return cstring.Read(mem, api.DecodeU32(results[0]), 0)
}
