//go:build wasip1

package main

import "github.com/wasmcalc/wasmcalc/adder"

// addNums is a WebAssembly export with the signature (i32, i32) -> i32.
//
//go:wasmexport addNums
func addNums(a, b int32) int32 {
	return adder.AddNums(a, b)
}
