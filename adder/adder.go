// Package adder holds the logic of the adder guest: a 32-bit integer addition
// and an entry routine that prints one sum.
//
// The package has no wasm-specific code so it can be tested natively. The
// guest program in cmd/adder exports AddNums as "addNums".
package adder

import (
	"fmt"
	"io"
)

// AddNums returns a + b. Overflow wraps around in two's complement, the same
// as i32.add in WebAssembly.
func AddNums(a, b int32) int32 {
	return a + b
}

// Main writes "Sum: 23\n" to w and returns the exit code 0.
//
// Errors writing to w are not reported: the exit code is always 0.
func Main(w io.Writer) int32 {
	_, _ = fmt.Fprintf(w, "Sum: %d\n", AddNums(10, 13))
	return 0
}
