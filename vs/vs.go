// Package vs compares wasmcalc guests on wazero with other WebAssembly
// runtimes. Everything is in tests: this file only documents the package.
package vs
