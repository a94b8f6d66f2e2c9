// Package wazero runs model functions compiled to WebAssembly on wazero.
//
// Every exported guest function becomes a runtime.Function. Guest traps are
// reported as backend errors carrying the debug handle of the last program
// counter the guest announced through the host function set_pc.
package wazero

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/stealthrocket/wasi-go"
	wasigo "github.com/stealthrocket/wasi-go/imports"
	"github.com/stealthrocket/wasi-go/imports/wasi_snapshot_preview1"
	"github.com/stealthrocket/wazergo"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/otelwasm/mobilert/runtime"
	"github.com/otelwasm/mobilert/value"
)

// wazeroRuntime implements runtime.Runtime using Wazero
type wazeroRuntime struct {
	runtime wazero.Runtime
	config  *Config

	hostOnce sync.Once
	hostErr  error
}

// wazeroCompiledModule implements runtime.CompiledModule for Wazero
type wazeroCompiledModule struct {
	module wazero.CompiledModule
}

// wazeroModuleInstance implements runtime.ModuleInstance for Wazero
type wazeroModuleInstance struct {
	instance  api.Module
	abi       ABIVersion
	functions []*wazeroFunction
	logger    *zap.Logger

	sys              wasi.System
	wasiP1HostModule *wasi_snapshot_preview1.Module
}

// wazeroFunction implements runtime.Function for an exported guest function
type wazeroFunction struct {
	name     string
	qualname string
	function api.Function
	def      api.FunctionDefinition
	owner    *wazeroModuleInstance
	entry    int64
	handles  runtime.HandleTable
}

var (
	_ runtime.Runtime        = (*wazeroRuntime)(nil)
	_ runtime.ModuleInstance = (*wazeroModuleInstance)(nil)
	_ runtime.Function       = (*wazeroFunction)(nil)
)

// Compile compiles the given Wasm binary into a CompiledModule
func (r *wazeroRuntime) Compile(ctx context.Context, binary []byte) (runtime.CompiledModule, error) {
	compiled, err := r.runtime.CompileModule(ctx, binary)
	if err != nil {
		return nil, fmt.Errorf("wazero compile error: %v: %w", err, runtime.ErrModuleCompileFailed)
	}
	return &wazeroCompiledModule{module: compiled}, nil
}

// Instantiate creates the host module on first use, optionally a WASI
// system, and then the guest module.
func (r *wazeroRuntime) Instantiate(ctx context.Context, module runtime.CompiledModule, opts runtime.InstantiateOptions) (runtime.ModuleInstance, error) {
	wazeroModule, ok := module.(*wazeroCompiledModule)
	if !ok {
		return nil, fmt.Errorf("invalid module type for wazero runtime: %w", runtime.ErrInvalidConfiguration)
	}

	r.hostOnce.Do(func() {
		_, r.hostErr = r.instantiateHostModule(ctx, newHostModule())
	})
	if r.hostErr != nil {
		return nil, fmt.Errorf("host module instantiation failed: %v: %w", r.hostErr, runtime.ErrModuleInstantiateFailed)
	}

	inst := &wazeroModuleInstance{logger: opts.Logger}
	if inst.logger == nil {
		inst.logger = zap.NewNop()
	}

	if r.config.WASI {
		var err error
		var sys wasi.System
		ctx, sys, err = wasigo.NewBuilder().
			WithEnv(r.config.Env...).
			Instantiate(ctx, r.runtime)
		if err != nil {
			return nil, fmt.Errorf("wasi instantiation failed: %v: %w", err, runtime.ErrModuleInstantiateFailed)
		}

		// wasi-go binds its host module state to the instantiation context;
		// calls have to carry the same instance or WASI functions panic.
		wasiP1HostModule, ok := moduleInstanceFor[*wasi_snapshot_preview1.Module](ctx)
		if !ok {
			sys.Close(ctx)
			return nil, fmt.Errorf("failed to retrieve wasi host module instance: %w", runtime.ErrInvalidConfiguration)
		}
		inst.sys = sys
		inst.wasiP1HostModule = wasiP1HostModule
	}

	config := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions("_initialize"). // reactor module
		WithStdout(os.Stdout).
		WithStderr(os.Stderr)

	instance, err := r.runtime.InstantiateModule(ctx, wazeroModule.module, config)
	if err != nil {
		if inst.sys != nil {
			inst.sys.Close(ctx)
		}
		return nil, fmt.Errorf("guest module instantiation failed: %v: %w", err, runtime.ErrModuleInstantiateFailed)
	}
	inst.instance = instance
	inst.abi = detectABIVersion(instance)
	inst.functions = exportedFunctions(inst, wazeroModule.module, opts)

	return inst, nil
}

// exportedFunctions wraps every exported guest function, in function index
// order. Reserved exports are not methods.
func exportedFunctions(inst *wazeroModuleInstance, compiled wazero.CompiledModule, opts runtime.InstantiateOptions) []*wazeroFunction {
	defs := compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		if isReservedExport(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := defs[names[i]], defs[names[j]]
		if a.Index() != b.Index() {
			return a.Index() < b.Index()
		}
		return names[i] < names[j]
	})

	functions := make([]*wazeroFunction, 0, len(names))
	for _, name := range names {
		debug, ok := opts.DebugInfo[name]
		if !ok {
			debug.Entry = runtime.InvalidDebugHandle
		}
		functions = append(functions, &wazeroFunction{
			name:     name,
			qualname: runtime.QualifiedName(opts.TypeName, name),
			function: inst.instance.ExportedFunction(name),
			def:      defs[name],
			owner:    inst,
			entry:    debug.Entry,
			handles:  debug.Handles,
		})
	}
	return functions
}

func isReservedExport(name string) bool {
	switch name {
	case "_initialize", "_start", abiVersionV1MarkerExport:
		return true
	default:
		return false
	}
}

// Close closes the runtime and releases all resources
func (r *wazeroRuntime) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

// Close releases the resources associated with the compiled module
func (m *wazeroCompiledModule) Close(ctx context.Context) error {
	return m.module.Close(ctx)
}

// Function returns the exported function with the given simple name
func (m *wazeroModuleInstance) Function(name string) runtime.Function {
	for _, fn := range m.functions {
		if fn.name == name {
			return fn
		}
	}
	return nil
}

// Functions returns all exported functions in export order
func (m *wazeroModuleInstance) Functions() []runtime.Function {
	fns := make([]runtime.Function, len(m.functions))
	for i, fn := range m.functions {
		fns[i] = fn
	}
	return fns
}

// Close closes the instance and its WASI system
func (m *wazeroModuleInstance) Close(ctx context.Context) error {
	if err := m.instance.Close(ctx); err != nil {
		return err
	}
	if m.sys != nil {
		return m.sys.Close(ctx)
	}
	return nil
}

// withRuntimeContext returns a context configured for calls into the guest
func (m *wazeroModuleInstance) withRuntimeContext(ctx context.Context) context.Context {
	ctx = withLogger(ctx, m.logger)
	if m.wasiP1HostModule != nil {
		ctx = withModuleInstance(ctx, m.wasiP1HostModule)
	}
	return ctx
}

func (f *wazeroFunction) Name() string          { return f.name }
func (f *wazeroFunction) QualifiedName() string { return f.qualname }

// Run calls the guest function. Self is not passed to the guest; the
// remaining arguments are encoded according to the guest signature.
func (f *wazeroFunction) Run(ctx context.Context, stack *value.Stack) error {
	if len(*stack) == 0 {
		return runtime.NewError("%s: call stack has no self argument", f.qualname)
	}
	args := (*stack)[1:]
	paramTypes := f.def.ParamTypes()
	if len(args) != len(paramTypes) {
		return runtime.WrapError(fmt.Errorf("%s: expected %d arguments, got %d: %w",
			f.qualname, len(paramTypes), len(args), runtime.ErrStackArity))
	}

	params := make([]uint64, len(paramTypes))
	for i, vt := range paramTypes {
		p, err := encodeValue(args[i], vt)
		if err != nil {
			return runtime.NewError("%s: argument %d: %v", f.qualname, i, err)
		}
		params[i] = p
	}

	results, err := f.function.Call(f.owner.withRuntimeContext(ctx), params...)
	if err != nil {
		var handles []int64
		if h := f.handles.Lookup(runtime.CallStateFromContext(ctx).PC()); h != runtime.InvalidDebugHandle {
			handles = append(handles, h)
		}
		return runtime.NewBackendError(fmt.Errorf("wasm: %s: %w", f.name, err), handles...)
	}

	ret := value.None()
	if resultTypes := f.def.ResultTypes(); len(results) > 0 && len(resultTypes) > 0 {
		ret = decodeValue(results[0], resultTypes[0])
	}
	*stack = append((*stack)[:0], ret)
	return nil
}

func (f *wazeroFunction) DebugHandle(pc int) int64 {
	return f.handles.Lookup(pc)
}

// ExceptionDebugHandle returns the handle of the call into the guest; finer
// positions travel inside the backend error.
func (f *wazeroFunction) ExceptionDebugHandle(context.Context) int64 {
	return f.entry
}

func encodeValue(v value.Value, vt api.ValueType) (uint64, error) {
	switch vt {
	case api.ValueTypeI32:
		switch {
		case v.IsInt():
			return api.EncodeI32(int32(v.ToInt())), nil
		case v.IsBool():
			if v.ToBool() {
				return 1, nil
			}
			return 0, nil
		}
	case api.ValueTypeI64:
		if v.IsInt() {
			return api.EncodeI64(v.ToInt()), nil
		}
	case api.ValueTypeF32:
		switch {
		case v.IsDouble():
			return api.EncodeF32(float32(v.ToDouble())), nil
		case v.IsInt():
			return api.EncodeF32(float32(v.ToInt())), nil
		}
	case api.ValueTypeF64:
		switch {
		case v.IsDouble():
			return api.EncodeF64(v.ToDouble()), nil
		case v.IsInt():
			return api.EncodeF64(float64(v.ToInt())), nil
		}
	}
	return 0, fmt.Errorf("cannot pass %s as %s", v.Kind(), api.ValueTypeName(vt))
}

func decodeValue(raw uint64, vt api.ValueType) value.Value {
	switch vt {
	case api.ValueTypeI32:
		return value.Int(int64(api.DecodeI32(raw)))
	case api.ValueTypeI64:
		return value.Int(int64(raw))
	case api.ValueTypeF32:
		return value.Double(float64(api.DecodeF32(raw)))
	case api.ValueTypeF64:
		return value.Double(api.DecodeF64(raw))
	default:
		return value.None()
	}
}

// instantiateHostModule creates and instantiates the host module with exported functions
func (r *wazeroRuntime) instantiateHostModule(ctx context.Context, hostModule *runtime.HostModule) (api.Module, error) {
	builder := r.runtime.NewHostModuleBuilder(hostModule.Name)

	for _, hostFunc := range hostModule.Functions {
		wazeroImpl := hostFunc.Function.GetImplementation(RuntimeType)
		if wazeroImpl == nil {
			return nil, fmt.Errorf("no wazero implementation for host function %s: %w", hostFunc.FunctionName, runtime.ErrHostFunctionNotFound)
		}

		wazeroFunc, ok := wazeroImpl.(func(context.Context, api.Module, []uint64))
		if !ok {
			return nil, fmt.Errorf("invalid wazero function signature for %s: %w", hostFunc.FunctionName, runtime.ErrHostFunctionNotFound)
		}

		paramTypes := make([]api.ValueType, len(hostFunc.ParamTypes))
		for i, vt := range hostFunc.ParamTypes {
			paramTypes[i] = convertValueType(vt)
		}

		resultTypes := make([]api.ValueType, len(hostFunc.ResultTypes))
		for i, vt := range hostFunc.ResultTypes {
			resultTypes[i] = convertValueType(vt)
		}

		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(wazeroFunc), paramTypes, resultTypes).
			Export(hostFunc.FunctionName)
	}

	return builder.Instantiate(ctx)
}

// convertValueType converts runtime.ValueType to api.ValueType
func convertValueType(vt runtime.ValueType) api.ValueType {
	switch vt {
	case runtime.ValueTypeI32:
		return api.ValueTypeI32
	case runtime.ValueTypeI64:
		return api.ValueTypeI64
	case runtime.ValueTypeF32:
		return api.ValueTypeF32
	case runtime.ValueTypeF64:
		return api.ValueTypeF64
	default:
		return api.ValueTypeI32
	}
}

// moduleInstanceFor returns the module instance from the context that contains the internal
// state required for WASI host functions.
func moduleInstanceFor[T wazergo.Module](ctx context.Context) (res T, ok bool) {
	res, ok = ctx.Value((*wazergo.ModuleInstance[T])(nil)).(T)
	return
}

// withModuleInstance returns a Go context inheriting from ctx and containing the
// state needed for module instantiated from wazero host module to properly bind
// their methods to their receiver (e.g. the module instance).
func withModuleInstance[T wazergo.Module](ctx context.Context, instance T) context.Context {
	return context.WithValue(ctx, (*wazergo.ModuleInstance[T])(nil), instance)
}
