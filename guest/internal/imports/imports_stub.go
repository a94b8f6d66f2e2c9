//go:build !wasm

// Package imports declares the functions of the mobilert host module.
//
// Outside WebAssembly the host is simulated in process so guest packages can
// be tested natively.
package imports

import "sync"

var (
	mu       sync.Mutex
	pc       int32 = -1
	messages [][]byte
	method   string
)

func SetPC(v int32) {
	mu.Lock()
	defer mu.Unlock()
	pc = v
}

func LogMessage(msg []byte) {
	mu.Lock()
	defer mu.Unlock()
	messages = append(messages, append([]byte(nil), msg...))
}

func MethodName(buf []byte) uint32 {
	mu.Lock()
	defer mu.Unlock()
	if len(method) <= len(buf) {
		copy(buf, method)
	}
	return uint32(len(method))
}

// Reset clears the simulated host and sets the method name it reports
func Reset(methodName string) {
	mu.Lock()
	defer mu.Unlock()
	pc = -1
	messages = nil
	method = methodName
}

// PC returns the last announced program counter
func PC() int32 {
	mu.Lock()
	defer mu.Unlock()
	return pc
}

// Messages returns the log messages sent so far
func Messages() [][]byte {
	mu.Lock()
	defer mu.Unlock()
	return append([][]byte(nil), messages...)
}
