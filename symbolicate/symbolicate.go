// Package symbolicate translates debug handles into module hierarchies and
// source call stacks.
//
// Symbolication can be compiled out with the nosymbolicate build tag, in
// which case New always returns Nop and callers receive empty strings.
package symbolicate

// Symbolicator answers debug handle queries for a model whose top-level type
// is topType. Both queries are pure lookups; an empty string means no
// information is available and is never an error.
type Symbolicator interface {
	// ModuleHierarchy returns the module instance path of the handle, e.g.
	// "top(Net)::forward.conv(Conv2d)::forward"
	ModuleHierarchy(topType string, handle int64) string
	// SourceDebugString returns the source call stack of the handles,
	// given innermost first.
	SourceDebugString(topType string, handles ...int64) string
}

// Nop is the Symbolicator used when symbolication is unavailable
type Nop struct{}

func (Nop) ModuleHierarchy(string, int64) string      { return "" }
func (Nop) SourceDebugString(string, ...int64) string { return "" }

// New returns a Symbolicator backed by table, or Nop when symbolication is
// compiled out or no table is available.
func New(table *DebugTable) Symbolicator {
	if !Enabled || table == nil {
		return Nop{}
	}
	return table
}
