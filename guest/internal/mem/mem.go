// Package mem converts guest buffers to the pointers passed across the host
// boundary.
package mem

import "unsafe"

// initialBufSize is the first buffer offered to a host function filling
// variable sized output
const initialBufSize = 64

// BytesToPtr returns the address and length of b in linear memory
func BytesToPtr(b []byte) (uint32, uint32) {
	if len(b) == 0 {
		return 0, 0
	}
	return uint32(uintptr(unsafe.Pointer(unsafe.SliceData(b)))), uint32(len(b))
}

// StringToPtr returns the address and length of s in linear memory
func StringToPtr(s string) (uint32, uint32) {
	if s == "" {
		return 0, 0
	}
	return uint32(uintptr(unsafe.Pointer(unsafe.StringData(s)))), uint32(len(s))
}

// GetBytes calls fill with a buffer until the result fits. fill returns the
// size it needs; when that exceeds the buffer it wrote nothing and is called
// again with a buffer of exactly that size.
func GetBytes(fill func(buf []byte) uint32) []byte {
	buf := make([]byte, initialBufSize)
	n := fill(buf)
	if n > uint32(len(buf)) {
		buf = make([]byte, n)
		n = fill(buf)
		if n > uint32(len(buf)) {
			panic("mem: host result grew between calls") // Bug: host changed its answer
		}
	}
	return buf[:n]
}
