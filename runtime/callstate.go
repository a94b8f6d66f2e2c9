package runtime

import (
	"context"
	"sync/atomic"
)

// InvalidDebugHandle marks the absence of a debug handle
const InvalidDebugHandle int64 = -1

// HandleTable maps program counters to debug handles
type HandleTable []int64

// Lookup returns the handle at pc, or InvalidDebugHandle if pc is out of range
func (t HandleTable) Lookup(pc int) int64 {
	if pc < 0 || pc >= len(t) {
		return InvalidDebugHandle
	}
	return t[pc]
}

// callStateKey is the key used to store the call state in the context
type callStateKey struct{}

// CallState is the per-call scratch state shared between the invocation
// protocol and the engine executing the call. Host functions may update it
// from the engine's goroutine while the caller reads it afterwards.
type CallState struct {
	pc atomic.Int64
}

// WithCallState returns a context carrying a fresh CallState
func WithCallState(ctx context.Context) (context.Context, *CallState) {
	s := &CallState{}
	s.pc.Store(-1)
	return context.WithValue(ctx, callStateKey{}, s), s
}

// CallStateFromContext returns the call state carried by ctx, or nil
func CallStateFromContext(ctx context.Context) *CallState {
	s, _ := ctx.Value(callStateKey{}).(*CallState)
	return s
}

// SetPC records the program counter currently executing in the call carried
// by ctx. It is a no-op outside a call.
func SetPC(ctx context.Context, pc int) {
	if s := CallStateFromContext(ctx); s != nil {
		s.pc.Store(int64(pc))
	}
}

// PC returns the last recorded program counter, or -1
func (s *CallState) PC() int {
	if s == nil {
		return -1
	}
	return int(s.pc.Load())
}

// debugInfoKey is the key used to store the debug info in the context
type debugInfoKey struct{}

// DebugInfo is the diagnostics record of one method invocation
type DebugInfo struct {
	ModelName  string
	MethodName string
}

// WithDebugInfo returns a context carrying info. The record is visible to
// everything running under the returned context and disappears with it.
func WithDebugInfo(ctx context.Context, info *DebugInfo) context.Context {
	return context.WithValue(ctx, debugInfoKey{}, info)
}

// DebugInfoFromContext returns the innermost debug info carried by ctx
func DebugInfoFromContext(ctx context.Context) (*DebugInfo, bool) {
	info, ok := ctx.Value(debugInfoKey{}).(*DebugInfo)
	return info, ok
}
