package mobile

import (
	"context"
	"sync"

	"github.com/otelwasm/mobilert/runtime"
	"github.com/otelwasm/mobilert/runtime/native"
	"github.com/otelwasm/mobilert/value"
)

const testTypeName = "TestModel"

type enterEvent struct {
	metadata    map[string]string
	instanceKey int32
	method      string
}

type failEvent struct {
	instanceKey int32
	message     string
}

// recordingObserver keeps every notification it receives
type recordingObserver struct {
	mu     sync.Mutex
	enters []enterEvent
	exits  []int32
	fails  []failEvent
}

func (o *recordingObserver) OnEnterRunMethod(metadata map[string]string, instanceKey int32, methodName string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enters = append(o.enters, enterEvent{metadata: metadata, instanceKey: instanceKey, method: methodName})
}

func (o *recordingObserver) OnExitRunMethod(instanceKey int32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.exits = append(o.exits, instanceKey)
}

func (o *recordingObserver) OnFailRunMethod(instanceKey int32, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fails = append(o.fails, failEvent{instanceKey: instanceKey, message: message})
}

// panickingObserver panics from every callback
type panickingObserver struct{}

func (panickingObserver) OnEnterRunMethod(map[string]string, int32, string) { panic("enter") }
func (panickingObserver) OnExitRunMethod(int32)                             { panic("exit") }
func (panickingObserver) OnFailRunMethod(int32, string)                     { panic("fail") }

func newRootObject() *value.Object {
	typ := value.NewObjectType(testTypeName, value.Attribute{Name: "training", Kind: value.KindBool})
	return value.NewObject(typ, value.Bool(false))
}

func newTestModule(fns []runtime.Function, opts ...Option) *Module {
	cu := NewCompilationUnit()
	for _, fn := range fns {
		cu.RegisterFunction(fn)
	}
	return NewModule(newRootObject(), cu, opts...)
}

// addFunction pops two ints and self and pushes their sum
func addFunction() *native.Function {
	return native.NewFunction(testTypeName, "add", func(_ context.Context, s *value.Stack) error {
		b := s.Pop().ToInt()
		a := s.Pop().ToInt()
		s.Pop()
		s.Push(value.Int(a + b))
		return nil
	})
}

// selfFunction returns self
func selfFunction(name string) *native.Function {
	return native.NewFunction(testTypeName, name, func(context.Context, *value.Stack) error {
		return nil
	})
}

// failingFunction fails in its second instruction, whose debug handle is 11
func failingFunction(err error) *native.Function {
	return native.NewFunction(testTypeName, "fail", native.Sequence(
		func(context.Context, *value.Stack) error { return nil },
		func(context.Context, *value.Stack) error { return err },
	), native.WithDebugHandles(10, 11), native.WithEntryHandle(1))
}

// panickingFunction panics in its first instruction, whose debug handle is 11
func panickingFunction() *native.Function {
	return native.NewFunction(testTypeName, "explode", native.Sequence(
		func(context.Context, *value.Stack) error { panic("kaboom") },
	), native.WithDebugHandles(11), native.WithEntryHandle(1))
}
