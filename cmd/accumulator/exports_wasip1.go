//go:build wasip1

package main

import (
	"unsafe"

	"github.com/wasmcalc/wasmcalc/accumulator"
)

// cGreeting is accumulator.Greeting with the NUL terminator a C caller
// expects. It lives in static data, so its address never changes.
var cGreeting = accumulator.Greeting + "\x00"

// linear is an int32 array at an offset in linear memory. It has no length:
// reads past the caller's array are not detected.
type linear uintptr

// Index implements accumulator.Indexer
func (l linear) Index(i int32) int32 {
	return *(*int32)(unsafe.Add(offsetToPointer(uintptr(l)), 4*int(i)))
}

// offsetToPointer converts a linear memory offset from the host into a
// pointer. On wasm an offset is an address, and memory handed over by the
// host is never moved by the garbage collector.
func offsetToPointer(offset uintptr) unsafe.Pointer {
	return unsafe.Pointer(offset) //nolint:govet
}

// accumulate is a WebAssembly export that sums n int32 values starting at the
// linear memory offset arr.
//
//go:wasmexport accumulate
func accumulate(arr uint32, n int32) int32 {
	return accumulator.Sum(linear(arr), n)
}

// getString is a WebAssembly export that returns the linear memory offset of
// a NUL-terminated "Hello, World!". The host must not free it.
//
//go:wasmexport getString
func getString() uint32 {
	return uint32(uintptr(unsafe.Pointer(unsafe.StringData(cGreeting))))
}

// allocations keeps buffers returned by malloc reachable until free, as the
// garbage collector can't see pointers held by the host.
var allocations = map[uint32][]byte{}

// malloc is a WebAssembly export that returns the linear memory offset of
// size bytes the host may write to, or zero when size is zero.
//
//go:wasmexport malloc
func malloc(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	buf := make([]byte, size)
	ptr := uint32(uintptr(unsafe.Pointer(unsafe.SliceData(buf))))
	allocations[ptr] = buf
	return ptr
}

// free is a WebAssembly export that releases memory returned by malloc.
//
//go:wasmexport free
func free(ptr uint32) {
	delete(allocations, ptr)
}
