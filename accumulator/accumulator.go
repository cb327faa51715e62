// Package accumulator holds the logic of the accumulator guest: summing a
// prefix of an int32 array and returning a constant greeting.
//
// The count passed to Sum and Accumulate is an unchecked precondition. It is
// trusted to satisfy 0 <= n <= length of the sequence. Nothing here validates
// it: a count past the end of a slice panics with Go's index out of range
// error (a trap when compiled to wasm), and a negative count sums nothing.
// Hosts that want a checked contract validate at their own boundary.
package accumulator

// Greeting is the text returned by GetString.
const Greeting = "Hello, World!"

// Indexer reads one element of an int32 sequence.
type Indexer interface {
	Index(i int32) int32
}

// Slice adapts a slice to Indexer.
type Slice []int32

// Index implements Indexer.Index
func (s Slice) Index(i int32) int32 {
	return s[i]
}

// Sum returns the sum of the first n elements of seq.
//
// Elements are read from the tail of the prefix to its head: n-1, n-2, ... 0.
// The total wraps around on overflow.
func Sum(seq Indexer, n int32) (sum int32) {
	for n > 0 {
		n--
		sum += seq.Index(n)
	}
	return
}

// Accumulate returns the sum of arr[0:n]. See Sum.
func Accumulate(arr []int32, n int32) int32 {
	return Sum(Slice(arr), n)
}

// GetString returns Greeting. The result shares static storage; nothing is
// allocated per call.
func GetString() string {
	return Greeting
}

// Main is the entry routine. It does nothing and returns the exit code 0.
func Main() int32 {
	return 0
}
