// Package native implements callable units backed by Go functions.
package native

import (
	"context"
	"errors"

	"github.com/otelwasm/mobilert/runtime"
	"github.com/otelwasm/mobilert/value"
)

// Body executes a function over its call stack
type Body func(ctx context.Context, stack *value.Stack) error

// Step is one instruction of a Sequence
type Step func(ctx context.Context, stack *value.Stack) error

// Sequence builds a Body that runs steps in order. The index of each step is
// recorded as the program counter before it runs, so a failing step can be
// mapped back to its debug handle.
func Sequence(steps ...Step) Body {
	return func(ctx context.Context, stack *value.Stack) error {
		for pc, step := range steps {
			runtime.SetPC(ctx, pc)
			if err := step(ctx, stack); err != nil {
				return err
			}
		}
		return nil
	}
}

// Function is a runtime.Function whose body is Go code
type Function struct {
	name     string
	qualname string
	body     Body
	handles  runtime.HandleTable
	entry    int64
}

var _ runtime.Function = (*Function)(nil)

// Option configures a Function
type Option func(*Function)

// WithDebugHandles sets the handle of each program counter
func WithDebugHandles(handles ...int64) Option {
	return func(f *Function) {
		f.handles = append(runtime.HandleTable(nil), handles...)
	}
}

// WithEntryHandle sets the handle reported when a failure has no recorded
// program counter.
func WithEntryHandle(h int64) Option {
	return func(f *Function) {
		f.entry = h
	}
}

// NewFunction creates a function named typeName.name
func NewFunction(typeName, name string, body Body, opts ...Option) *Function {
	f := &Function{
		name:     name,
		qualname: runtime.QualifiedName(typeName, name),
		body:     body,
		entry:    runtime.InvalidDebugHandle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Function) Name() string          { return f.name }
func (f *Function) QualifiedName() string { return f.qualname }

// Run executes the body. Plain errors returned by the body are turned into
// generic interpreter errors; structured errors pass through untouched.
func (f *Function) Run(ctx context.Context, stack *value.Stack) error {
	if len(*stack) == 0 {
		return runtime.NewError("%s: call stack has no self argument", f.qualname)
	}
	if err := f.body(ctx, stack); err != nil {
		var rerr *runtime.Error
		if errors.As(err, &rerr) {
			return err
		}
		return runtime.WrapError(err)
	}
	return nil
}

func (f *Function) DebugHandle(pc int) int64 {
	return f.handles.Lookup(pc)
}

func (f *Function) ExceptionDebugHandle(ctx context.Context) int64 {
	if pc := runtime.CallStateFromContext(ctx).PC(); pc >= 0 {
		if h := f.handles.Lookup(pc); h != runtime.InvalidDebugHandle {
			return h
		}
	}
	return f.entry
}
