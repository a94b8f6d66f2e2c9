package mobile

import (
	"context"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/otelwasm/mobilert/runtime"
	"github.com/otelwasm/mobilert/value"
)

const modelNameKey = "model_name"

// Method binds a callable unit to the module owning it. It is a cheap value;
// the module must outlive it.
type Method struct {
	owner    *Module
	function runtime.Function
}

// Owner returns the module the method belongs to
func (m Method) Owner() *Module { return m.owner }

// Function returns the underlying callable unit
func (m Method) Function() runtime.Function { return m.function }

func (m Method) Name() string          { return m.function.Name() }
func (m Method) QualifiedName() string { return m.function.QualifiedName() }

// DebugHandle returns the debug handle of the instruction at pc
func (m Method) DebugHandle(pc int) int64 {
	return m.function.DebugHandle(pc)
}

// Run invokes the method. The owning module's root object is pushed in front
// of the arguments as self; on success the stack holds the return value.
//
// The observer, if any, sees exactly one OnEnterRunMethod followed by exactly
// one of OnExitRunMethod or OnFailRunMethod, also when the function panics.
// Structured errors are returned as an annotated copy carrying the
// symbolicated source of the failure; the raised error is never modified.
func (m Method) Run(ctx context.Context, stack *value.Stack) error {
	owner := m.owner
	obs := owner.observer
	name := m.function.Name()
	instanceKey := rand.Int32()

	metadata := owner.Metadata()
	if metadata == nil {
		metadata = make(map[string]string, 1)
	}
	if _, ok := metadata[modelNameKey]; !ok {
		metadata[modelNameKey] = ""
	}

	if obs != nil {
		owner.notify("enter", instanceKey, func() {
			obs.OnEnterRunMethod(metadata, instanceKey, name)
		})
	}

	ctx = runtime.WithDebugInfo(ctx, &runtime.DebugInfo{
		ModelName:  metadata[modelNameKey],
		MethodName: name,
	})
	ctx, _ = runtime.WithCallState(ctx)

	var report func(string)
	if obs != nil {
		report = func(message string) {
			owner.notify("fail", instanceKey, func() {
				obs.OnFailRunMethod(instanceKey, message)
			})
		}
	}
	guard := newFailureGuard(report, func() string {
		return owner.symbolicator.SourceDebugString(owner.topTypeName(), m.function.ExceptionDebugHandle(ctx))
	})
	defer guard.fire()

	stack.PushFront(value.FromObject(owner.object))
	if err := m.function.Run(ctx, stack); err != nil {
		enriched, message := enrichError(err, m.function.ExceptionDebugHandle(ctx), owner.topTypeName(), owner.symbolicator)
		guard.capture(message)
		return enriched
	}

	if obs != nil {
		owner.notify("exit", instanceKey, func() {
			obs.OnExitRunMethod(instanceKey)
		})
	}
	guard.release()
	return nil
}

// Call runs the method on its own copy of the arguments and returns the
// single value left on the stack.
func (m Method) Call(ctx context.Context, args value.Stack) (value.Value, error) {
	stack := append(value.Stack(nil), args...)
	if err := m.Run(ctx, &stack); err != nil {
		return value.Value{}, err
	}
	if len(stack) != 1 {
		// Bug: a function returned successfully without leaving exactly its
		// result on the stack.
		panic(fmt.Sprintf("mobile: %s left %d values on the stack, want 1", m.function.QualifiedName(), len(stack)))
	}
	return stack[0], nil
}

// notify runs an observer callback. Observers are best effort: a panic is
// logged and never reaches the call.
func (m *Module) notify(event string, instanceKey int32, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("observer panicked",
				zap.String("event", event),
				zap.Int32("instance_key", instanceKey),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}
