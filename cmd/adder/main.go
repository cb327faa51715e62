// Command adder is the adder guest. Built for wasip1 it exports "addNums"
// and, as a command, its entry routine prints "Sum: 23".
//
// Build as a WASI command, where _start runs main:
//
//	GOOS=wasip1 GOARCH=wasm go build -o adder.wasm ./cmd/adder
//
// Build as a WASI reactor, where _initialize readies the exports:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o adder.wasm ./cmd/adder
package main

import (
	"os"

	"github.com/wasmcalc/wasmcalc/adder"
)

func main() {
	if code := run(); code != 0 {
		os.Exit(code)
	}
}

// run is the entry routine. It returns the exit code.
func run() int {
	return int(adder.Main(os.Stdout))
}
