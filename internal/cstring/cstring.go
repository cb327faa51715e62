// Package cstring is named cstring because null-terminated strings are also known as CString and that avoids using
// clashing package names like "strings" or a really long one like "null-terminated-strings"
//
// A Null-terminated string is a byte string with a NULL suffix ("\x00").
// See https://en.wikipedia.org/wiki/Null-terminated_string
package cstring

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// DefaultMaxLen is the longest string Read accepts when maxLen is zero.
const DefaultMaxLen = 4096

// ErrUnterminated is returned when no NUL is found within the length limit or
// before the end of memory.
var ErrUnterminated = errors.New("string is not null-terminated")

// Read returns the string starting at offset in mem, excluding its NUL
// terminator. At most maxLen bytes are scanned, or DefaultMaxLen when zero.
func Read(mem api.Memory, offset, maxLen uint32) (string, error) {
	if maxLen == 0 {
		maxLen = DefaultMaxLen
	}
	size := mem.Size()
	if offset >= size {
		return "", fmt.Errorf("offset %d is out of range of memory size %d", offset, size)
	}

	// Scan one byte past maxLen so a string of exactly maxLen bytes fits.
	n := size - offset
	if limit := uint64(maxLen) + 1; uint64(n) > limit {
		n = uint32(limit)
	}
	buf, ok := mem.Read(offset, n)
	if !ok {
		return "", fmt.Errorf("Memory.Read(%d, %d) out of range of memory size %d", offset, n, size)
	}
	i := bytes.IndexByte(buf, 0)
	if i == -1 {
		return "", fmt.Errorf("%w: scanned %d bytes from offset %d", ErrUnterminated, n, offset)
	}
	// Copy, as buf aliases guest memory.
	return string(buf[:i]), nil
}
