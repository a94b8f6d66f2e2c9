package wazero

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"

	"github.com/otelwasm/mobilert/runtime"
)

// RuntimeType is the name this engine registers under
const RuntimeType = runtime.WazeroRuntimeType

// Mode selects how wazero executes guest code
type Mode string

const (
	ModeInterpreter Mode = "interpreter"
	ModeCompiled    Mode = "compiled"
)

// Config configures the wazero engine
type Config struct {
	Mode Mode
	// WASI instantiates a WASI preview1 system for guests that import it
	WASI bool
	// Env is the WASI environment, as KEY=VALUE pairs
	Env []string
}

// newWazeroRuntime creates a new Wazero runtime instance
func newWazeroRuntime(config interface{}) (runtime.Runtime, error) {
	cfg, ok := config.(*Config)
	if !ok || cfg == nil {
		cfg = &Config{Mode: ModeInterpreter}
	}

	var wrc wazero.RuntimeConfig
	switch cfg.Mode {
	case ModeInterpreter, "":
		wrc = wazero.NewRuntimeConfigInterpreter()
	case ModeCompiled:
		wrc = wazero.NewRuntimeConfigCompiler()
	default:
		return nil, fmt.Errorf("wazero: unknown mode %q: %w", cfg.Mode, runtime.ErrInvalidConfiguration)
	}

	return &wazeroRuntime{
		runtime: wazero.NewRuntimeWithConfig(context.Background(), wrc),
		config:  cfg,
	}, nil
}
