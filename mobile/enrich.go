package mobile

import (
	"errors"

	"github.com/otelwasm/mobilert/runtime"
	"github.com/otelwasm/mobilert/symbolicate"
)

// enrichError attaches the source call stack of the failure to a per-call
// copy of the structured error in err. It returns the error to propagate and
// the message to report to observers.
//
// A backend error already carries the handles of its own failure sites; the
// handle of the calling function is appended and the whole list is
// symbolicated. A generic error is symbolicated from the calling function's
// handle alone. The copy keeps the kind and matches the raised error with
// errors.Is, so functions may return shared errors. Errors that are not
// structured are returned untouched and reported by their text.
func enrichError(err error, exceptionHandle int64, topType string, sym symbolicate.Symbolicator) (error, string) {
	var raised *runtime.Error
	if !errors.As(err, &raised) {
		return err, err.Error()
	}

	enriched := raised.Clone()
	var source string
	switch enriched.Kind {
	case runtime.ErrorKindBackend:
		enriched.PushDebugHandle(exceptionHandle)
		source = sym.SourceDebugString(topType, enriched.DebugHandles()...)
	default:
		source = sym.SourceDebugString(topType, exceptionHandle)
	}
	enriched.AddContext(source)

	if err == error(raised) {
		return enriched, enriched.Error()
	}
	wrapped := &enrichedError{wrapped: err, enriched: enriched, source: source}
	return wrapped, wrapped.Error()
}

// enrichedError keeps the wrappers around an enriched structured error.
// errors.As finds the enriched copy before the raised one.
type enrichedError struct {
	wrapped  error
	enriched *runtime.Error
	source   string
}

func (e *enrichedError) Error() string {
	if e.source == "" {
		return e.wrapped.Error()
	}
	return e.wrapped.Error() + "\n" + e.source
}

func (e *enrichedError) Unwrap() []error {
	return []error{e.enriched, e.wrapped}
}
