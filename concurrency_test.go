package wasmcalc

import (
	"testing"

	"github.com/wasmcalc/wasmcalc/internal/testing/guest"
	"github.com/wasmcalc/wasmcalc/internal/testing/hammer"
)

// TestRuntime_Concurrent instantiates guests from many goroutines sharing one
// Runtime. Each goroutine owns its guests, which aren't safe to share.
func TestRuntime_Concurrent(t *testing.T) {
	adderWasm := guest.MustBuild(t, guest.Adder, guest.Reactor)
	accumulatorWasm := guest.MustBuild(t, guest.Accumulator, guest.Reactor)
	rt := newRuntime(t, NewConfig())

	P, N := 8, 4
	if testing.Short() {
		P, N = 4, 2
	}

	hammer.NewHammer(t, P, N).Run(func(p, n int) {
		a, err := rt.InstantiateAdder(testCtx, adderWasm)
		if err != nil {
			t.Error(err)
			return
		}
		defer a.Close(testCtx)

		acc, err := rt.InstantiateAccumulator(testCtx, accumulatorWasm)
		if err != nil {
			t.Error(err)
			return
		}
		defer acc.Close(testCtx)

		x, y := int32(p), int32(n)
		if sum, err := a.AddNums(testCtx, x, y); err != nil {
			t.Error(err)
		} else if sum != x+y {
			t.Errorf("addNums(%d, %d) = %d", x, y, sum)
		}

		arr := []int32{x, y, x, y}
		if sum, err := acc.Accumulate(testCtx, arr); err != nil {
			t.Error(err)
		} else if sum != 2*(x+y) {
			t.Errorf("accumulate(%v) = %d", arr, sum)
		}
	}, nil)
}
