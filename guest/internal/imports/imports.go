//go:build wasm

// Package imports declares the functions of the mobilert host module.
package imports

import (
	"runtime"

	"github.com/otelwasm/mobilert/guest/internal/mem"
)

//go:wasmimport mobilert set_pc
func setPC(pc int32)

//go:wasmimport mobilert log_message
func logMessage(ptr, size uint32)

//go:wasmimport mobilert method_name
func methodName(ptr, limit uint32) uint32

// SetPC announces the program counter about to execute
func SetPC(pc int32) {
	setPC(pc)
}

// LogMessage sends a JSON encoded log message to the host
func LogMessage(msg []byte) {
	ptr, size := mem.BytesToPtr(msg)
	logMessage(ptr, size)
	runtime.KeepAlive(msg) // until ptr is no longer needed
}

// MethodName writes the name of the running method into buf and returns its
// length. Nothing is written when buf is too small.
func MethodName(buf []byte) uint32 {
	ptr, limit := mem.BytesToPtr(buf)
	n := methodName(ptr, limit)
	runtime.KeepAlive(buf)
	return n
}
