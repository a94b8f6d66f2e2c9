// Package runtime provides the boundary between the method-invocation layer
// and the interpreter engines that execute a model's callable units.
package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/otelwasm/mobilert/value"
)

// Function is a callable unit of a loaded model
type Function interface {
	// Name returns the simple name, e.g. "forward"
	Name() string
	// QualifiedName returns the globally unique name, e.g. "MyModel.forward"
	QualifiedName() string
	// Run executes the function. On entry stack[0] is self followed by the
	// arguments; on success the stack holds exactly the return value.
	Run(ctx context.Context, stack *value.Stack) error
	// DebugHandle returns the debug handle of the instruction at pc, or
	// InvalidDebugHandle when pc is unknown.
	DebugHandle(pc int) int64
	// ExceptionDebugHandle returns the debug handle of the failure site of
	// the call carried by ctx. Only meaningful on a failure path.
	ExceptionDebugHandle(ctx context.Context) int64
}

// Runtime represents an interpreter engine
type Runtime interface {
	// Compile compiles the given binary into a CompiledModule
	Compile(ctx context.Context, binary []byte) (CompiledModule, error)
	// Instantiate creates a module instance exposing the compiled functions
	Instantiate(ctx context.Context, module CompiledModule, opts InstantiateOptions) (ModuleInstance, error)
	// Close closes the runtime and releases all resources
	Close(ctx context.Context) error
}

// CompiledModule represents a compiled model binary, ready for instantiation
type CompiledModule interface {
	// Close releases the resources associated with the compiled module
	Close(ctx context.Context) error
}

// ModuleInstance represents an instantiated model binary
type ModuleInstance interface {
	// Function returns the exported function with the given simple name.
	// Returns nil if the function is not found.
	Function(name string) Function
	// Functions returns all exported functions in export order
	Functions() []Function
	// Close closes the instance and releases its resources
	Close(ctx context.Context) error
}

// InstantiateOptions configures how exported functions are exposed
type InstantiateOptions struct {
	// TypeName prefixes every qualified function name
	TypeName string
	// DebugInfo maps a simple function name to its debug handles
	DebugInfo map[string]FunctionDebugInfo
	// Logger receives messages logged by the guest
	Logger *zap.Logger
}

// FunctionDebugInfo holds the debug handles of one function
type FunctionDebugInfo struct {
	// Entry is the handle reported for failures inside the function body
	// when no finer position is known.
	Entry int64
	// Handles maps program counters to debug handles
	Handles HandleTable
}

// QualifiedName joins a type name and a simple function name
func QualifiedName(typeName, name string) string {
	if typeName == "" {
		return name
	}
	return typeName + "." + name
}
