// Command accumulator is the accumulator guest. Built for wasip1 it exports
// "accumulate", "getString", "malloc" and "free". Its entry routine does
// nothing.
//
// The exports are only usable from a WASI reactor:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o accumulator.wasm ./cmd/accumulator
package main

import (
	"os"

	"github.com/wasmcalc/wasmcalc/accumulator"
)

func main() {
	if code := run(); code != 0 {
		os.Exit(code)
	}
}

func run() int {
	return int(accumulator.Main())
}
