package mobile

import (
	"github.com/otelwasm/mobilert/runtime"
)

// CompilationUnit owns the callable units of a loaded model in registration
// order. Qualified names are not checked for uniqueness; lookups return the
// first match.
type CompilationUnit struct {
	methods []runtime.Function
}

// NewCompilationUnit creates an empty unit
func NewCompilationUnit() *CompilationUnit {
	return &CompilationUnit{}
}

// RegisterFunction appends fn
func (cu *CompilationUnit) RegisterFunction(fn runtime.Function) {
	cu.methods = append(cu.methods, fn)
}

// FindFunction returns the first function whose qualified name is
// qualifiedName, or nil.
func (cu *CompilationUnit) FindFunction(qualifiedName string) runtime.Function {
	for _, fn := range cu.methods {
		if fn.QualifiedName() == qualifiedName {
			return fn
		}
	}
	return nil
}

// Methods returns the registered functions in registration order
func (cu *CompilationUnit) Methods() []runtime.Function {
	return append([]runtime.Function(nil), cu.methods...)
}
