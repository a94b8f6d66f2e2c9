// Package loader builds a mobile.Module from a WebAssembly model file.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/otelwasm/mobilert/mobile"
	"github.com/otelwasm/mobilert/observer"
	"github.com/otelwasm/mobilert/runtime"
	"github.com/otelwasm/mobilert/runtime/wazero"
	"github.com/otelwasm/mobilert/symbolicate"
	"github.com/otelwasm/mobilert/telemetry"
	"github.com/otelwasm/mobilert/value"
)

// Model is a loaded model together with the engine running it
type Model struct {
	module   *mobile.Module
	recorder *telemetry.Recorder
	table    *symbolicate.DebugTable

	runtime  runtime.Runtime
	compiled runtime.CompiledModule
	instance runtime.ModuleInstance
	logger   *zap.Logger
}

// Option configures Load
type Option func(*options)

type options struct {
	logger    *zap.Logger
	observers []observer.Observer
}

// WithLogger sets the logger of the model and of guest log messages
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver adds an observer next to those named in the configuration
func WithObserver(obs observer.Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs)
	}
}

// Load compiles and instantiates the model described by cfg. The model must
// be shut down to release the engine.
func Load(ctx context.Context, cfg *Config, opts ...Option) (*Model, error) {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	cfg.Default()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(err, runtime.ErrInvalidConfiguration))
	}

	binary, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var table *symbolicate.DebugTable
	if cfg.Debug.TablePath != "" {
		if table, err = symbolicate.LoadFile(cfg.Debug.TablePath); err != nil {
			return nil, fmt.Errorf("failed to read debug table: %w", err)
		}
	}

	metadata, err := buildMetadata(cfg)
	if err != nil {
		return nil, err
	}

	rt, err := runtime.NewRuntime(cfg.Runtime.Type, cfg.Runtime.engineConfig())
	if err != nil {
		return nil, err
	}
	m := &Model{
		table:   table,
		runtime: rt,
		logger:  o.logger,
	}

	m.compiled, err = rt.Compile(ctx, binary)
	if err != nil {
		m.close(ctx)
		return nil, err
	}

	m.instance, err = rt.Instantiate(ctx, m.compiled, runtime.InstantiateOptions{
		TypeName:  cfg.TypeName,
		DebugInfo: functionDebugInfo(table),
		Logger:    o.logger.Named("guest"),
	})
	if err != nil {
		m.close(ctx)
		return nil, err
	}

	cu := mobile.NewCompilationUnit()
	for _, fn := range m.instance.Functions() {
		cu.RegisterFunction(fn)
	}

	observers := o.observers
	for _, name := range cfg.Observers {
		switch name {
		case ObserverLog:
			observers = append(observers, observer.NewLogObserver(o.logger))
		case ObserverTelemetry:
			m.recorder = telemetry.NewRecorder(telemetry.WithResourceAttributes(map[string]string{
				"model.name": metadata[modelNameKey],
			}))
			observers = append(observers, m.recorder)
		}
	}

	moduleOpts := []mobile.Option{
		mobile.WithMetadata(metadata),
		mobile.WithSymbolicator(symbolicate.New(table)),
		mobile.WithLogger(o.logger),
	}
	switch len(observers) {
	case 0:
	case 1:
		moduleOpts = append(moduleOpts, mobile.WithObserver(observers[0]))
	default:
		moduleOpts = append(moduleOpts, mobile.WithObserver(observer.Multi(observers)))
	}
	m.module = mobile.NewModule(newRootObject(cfg.TypeName), cu, moduleOpts...)

	o.logger.Info("model loaded",
		zap.String("path", cfg.Path),
		zap.String("model_name", metadata[modelNameKey]),
		zap.String("runtime", cfg.Runtime.Type),
		zap.Stringer("abi", wazero.ABIVersionOf(m.instance)),
		zap.Int("methods", len(m.instance.Functions())),
		zap.Bool("symbolicate", table != nil && symbolicate.Enabled),
	)
	return m, nil
}

// newRootObject creates the model's root object. Its only slot is the
// training flag, off by default.
func newRootObject(typeName string) *value.Object {
	typ := value.NewObjectType(typeName, value.Attribute{Name: "training", Kind: value.KindBool})
	return value.NewObject(typ, value.Bool(false))
}

func functionDebugInfo(table *symbolicate.DebugTable) map[string]runtime.FunctionDebugInfo {
	if table == nil {
		return nil
	}
	info := make(map[string]runtime.FunctionDebugInfo, len(table.Functions))
	for name, fh := range table.Functions {
		info[name] = runtime.FunctionDebugInfo{
			Entry:   fh.Entry,
			Handles: runtime.HandleTable(fh.Handles),
		}
	}
	return info
}

// Module returns the loaded module
func (m *Model) Module() *mobile.Module { return m.module }

// Recorder returns the telemetry recorder, or nil when the telemetry
// observer is not configured.
func (m *Model) Recorder() *telemetry.Recorder { return m.recorder }

// DebugTable returns the loaded debug table, or nil
func (m *Model) DebugTable() *symbolicate.DebugTable { return m.table }

// Shutdown closes the instance and the engine
func (m *Model) Shutdown(ctx context.Context) error {
	err := m.close(ctx)
	if err != nil {
		m.logger.Warn("model shutdown failed", zap.Error(err))
	}
	return err
}

func (m *Model) close(ctx context.Context) error {
	var errs []error
	if m.instance != nil {
		errs = append(errs, m.instance.Close(ctx))
		m.instance = nil
	}
	if m.compiled != nil {
		errs = append(errs, m.compiled.Close(ctx))
		m.compiled = nil
	}
	if m.runtime != nil {
		errs = append(errs, m.runtime.Close(ctx))
		m.runtime = nil
	}
	return errors.Join(errs...)
}
