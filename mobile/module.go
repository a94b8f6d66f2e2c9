// Package mobile resolves and invokes the methods of a loaded model.
package mobile

import (
	"context"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/otelwasm/mobilert/observer"
	"github.com/otelwasm/mobilert/symbolicate"
	"github.com/otelwasm/mobilert/value"
)

// ForwardMethodName is the conventional entry point of a model
const ForwardMethodName = "forward"

// Module is a loaded model: its root object, its callable units and the
// collaborators used to diagnose failing calls.
type Module struct {
	object       *value.Object
	cu           *CompilationUnit
	metadata     map[string]string
	symbolicator symbolicate.Symbolicator
	observer     observer.Observer
	logger       *zap.Logger
}

// Option configures a Module
type Option func(*Module)

// WithMetadata sets the metadata reported to observers
func WithMetadata(metadata map[string]string) Option {
	return func(m *Module) {
		m.metadata = maps.Clone(metadata)
	}
}

// WithSymbolicator sets the debug handle symbolicator
func WithSymbolicator(s symbolicate.Symbolicator) Option {
	return func(m *Module) {
		if s != nil {
			m.symbolicator = s
		}
	}
}

// WithObserver sets the observer notified around every method call
func WithObserver(o observer.Observer) Option {
	return func(m *Module) {
		m.observer = o
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Module) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModule creates a module over the root object and its compilation unit
func NewModule(object *value.Object, cu *CompilationUnit, opts ...Option) *Module {
	if object == nil || cu == nil {
		panic("mobile: module requires a root object and a compilation unit")
	}
	m := &Module{
		object:       object,
		cu:           cu,
		metadata:     map[string]string{},
		symbolicator: symbolicate.Nop{},
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Object returns the root object
func (m *Module) Object() *value.Object { return m.object }

// CompilationUnit returns the unit owning the module's functions
func (m *Module) CompilationUnit() *CompilationUnit { return m.cu }

// Metadata returns a copy of the module metadata
func (m *Module) Metadata() map[string]string { return maps.Clone(m.metadata) }

// Symbolicator returns the symbolicator, never nil
func (m *Module) Symbolicator() symbolicate.Symbolicator { return m.symbolicator }

// Observer returns the configured observer, or nil
func (m *Module) Observer() observer.Observer { return m.observer }

// FindMethod returns the first method whose simple name is name
func (m *Module) FindMethod(name string) (Method, bool) {
	for _, fn := range m.cu.methods {
		if fn.Name() == name {
			return Method{owner: m, function: fn}, true
		}
	}
	return Method{}, false
}

// GetMethod is like FindMethod but returns an error wrapping
// ErrMethodNotDefined when no method matches.
func (m *Module) GetMethod(name string) (Method, error) {
	if method, ok := m.FindMethod(name); ok {
		return method, nil
	}
	return Method{}, &methodNotDefinedError{name: name}
}

// GetMethods returns a method for every registered function, in registration
// order.
func (m *Module) GetMethods() []Method {
	methods := make([]Method, 0, len(m.cu.methods))
	for _, fn := range m.cu.methods {
		methods = append(methods, Method{owner: m, function: fn})
	}
	return methods
}

// RunMethod calls the named method with args
func (m *Module) RunMethod(ctx context.Context, name string, args ...value.Value) (value.Value, error) {
	method, err := m.GetMethod(name)
	if err != nil {
		return value.Value{}, err
	}
	return method.Call(ctx, args)
}

// Forward calls the forward method with args
func (m *Module) Forward(ctx context.Context, args ...value.Value) (value.Value, error) {
	return m.RunMethod(ctx, ForwardMethodName, args...)
}

// ModuleHierarchy returns the module instance path of a debug handle
func (m *Module) ModuleHierarchy(handle int64) string {
	return m.symbolicator.ModuleHierarchy(m.topTypeName(), handle)
}

// CallStack returns the source call stack of a debug handle
func (m *Module) CallStack(handle int64) string {
	return m.symbolicator.SourceDebugString(m.topTypeName(), handle)
}

// ForwardMethodDebugInfo returns the module hierarchy of the instruction at
// pc in the forward method.
func (m *Module) ForwardMethodDebugInfo(pc int) (string, error) {
	method, err := m.GetMethod(ForwardMethodName)
	if err != nil {
		return "", fmt.Errorf("forward method debug info: %w", err)
	}
	return m.ModuleHierarchy(method.DebugHandle(pc)), nil
}

func (m *Module) topTypeName() string {
	return m.object.Type().Name()
}
