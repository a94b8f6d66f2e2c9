package runtime

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors used across runtime implementations
var (
	ErrRuntimeNotFound         = errors.New("runtime not found")
	ErrModuleCompileFailed     = errors.New("module compilation failed")
	ErrModuleInstantiateFailed = errors.New("module instantiation failed")
	ErrFunctionNotExported     = errors.New("function not exported")
	ErrInvalidConfiguration    = errors.New("invalid configuration")
	ErrHostFunctionNotFound    = errors.New("host function not found")
	ErrStackArity              = errors.New("stack arity mismatch")
)

// ErrorKind tags a structured interpreter error
type ErrorKind uint8

const (
	// ErrorKindGeneric is raised by the interpreter itself
	ErrorKindGeneric ErrorKind = iota
	// ErrorKindBackend is raised by a delegate backend and carries the debug
	// handles of its own failure sites.
	ErrorKindBackend
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindGeneric:
		return "generic"
	case ErrorKindBackend:
		return "backend"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
	}
}

// Error is the structured error raised by interpreter engines. Context lines
// are appended while the error travels up through method invocations; the
// kind never changes.
//
// An Error may be shared, e.g. as a package level variable. Annotate a Clone
// rather than the shared value; a clone matches its original with errors.Is.
type Error struct {
	Kind ErrorKind
	Msg  string

	context []string
	handles []int64
	cause   error
	origin  *Error
}

// NewError creates a generic interpreter error
func NewError(format string, args ...any) *Error {
	return &Error{Kind: ErrorKindGeneric, Msg: fmt.Sprintf(format, args...)}
}

// WrapError turns err into a generic interpreter error. A structured error
// is returned as is.
func WrapError(err error) *Error {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr
	}
	return &Error{Kind: ErrorKindGeneric, cause: err}
}

// NewBackendError creates a backend error caused by err, carrying the debug
// handles of the backend failure sites, innermost first.
func NewBackendError(err error, handles ...int64) *Error {
	return &Error{
		Kind:    ErrorKindBackend,
		cause:   err,
		handles: append([]int64(nil), handles...),
	}
}

// Error renders the message followed by one line per context entry
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if e.cause != nil {
		if e.Msg != "" {
			b.WriteString(": ")
		}
		b.WriteString(e.cause.Error())
	}
	for _, c := range e.context {
		b.WriteByte('\n')
		b.WriteString(c)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is the error e was cloned from
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.origin != nil && t == e.origin
}

// Clone returns a copy with its own context lines and debug handles
func (e *Error) Clone() *Error {
	origin := e.origin
	if origin == nil {
		origin = e
	}
	return &Error{
		Kind:    e.Kind,
		Msg:     e.Msg,
		context: append([]string(nil), e.context...),
		handles: append([]int64(nil), e.handles...),
		cause:   e.cause,
		origin:  origin,
	}
}

// AddContext appends a context line. Empty strings carry no information and
// are dropped.
func (e *Error) AddContext(s string) {
	if s == "" {
		return
	}
	e.context = append(e.context, s)
}

// Context returns the context lines in the order they were added
func (e *Error) Context() []string {
	return append([]string(nil), e.context...)
}

// PushDebugHandle appends the handle of an enclosing call site
func (e *Error) PushDebugHandle(h int64) {
	e.handles = append(e.handles, h)
}

// DebugHandles returns the collected handles, innermost first
func (e *Error) DebugHandles() []int64 {
	return append([]int64(nil), e.handles...)
}
