// Package model is the guest side of a mobilert model compiled to
// WebAssembly with GOOS=wasip1 and -buildmode=c-shared.
//
// Every function the guest exports with //go:wasmexport becomes a method of
// the loaded model. Methods announce their program counter with SetPC before
// each instruction that may fail, so the host can symbolicate a trap.
package model

import (
	"github.com/otelwasm/mobilert/guest/internal/imports"
	"github.com/otelwasm/mobilert/guest/internal/mem"
)

// SetPC announces the program counter about to execute in the current method
func SetPC(pc int) {
	imports.SetPC(int32(pc))
}

// MethodName returns the simple name of the method being invoked, or an empty
// string outside a method call.
func MethodName() string {
	return string(mem.GetBytes(imports.MethodName))
}

// Steps runs fns in order, announcing the index of each as its program counter
func Steps(fns ...func()) {
	for pc, fn := range fns {
		SetPC(pc)
		fn()
	}
}

// abiVersionMarker tells the host which ABI the guest was built against
//
//go:wasmexport mobilert_abi_version_0_1_0
func abiVersionMarker() {}
