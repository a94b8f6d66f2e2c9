package mobile

import "errors"

// ErrMethodNotDefined is returned when a module has no method of the
// requested name.
var ErrMethodNotDefined = errors.New("method not defined")

type methodNotDefinedError struct {
	name string
}

func (e *methodNotDefinedError) Error() string {
	return "Method '" + e.name + "' is not defined."
}

func (e *methodNotDefinedError) Is(target error) bool {
	return target == ErrMethodNotDefined
}
