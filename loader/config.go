package loader

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/otelwasm/mobilert/runtime/wazero"
)

// EnvPrefix prefixes environment variables overriding the configuration.
// Nested keys are separated by a double underscore, e.g.
// MOBILERT_RUNTIME__MODE=compiled.
const EnvPrefix = "MOBILERT_"

const (
	ObserverLog       = "log"
	ObserverTelemetry = "telemetry"
)

const (
	defaultTypeName     = "Model"
	defaultCloseTimeout = 5 * time.Second
)

// Config describes a model to load
type Config struct {
	// Path to the model's WebAssembly file
	Path string `mapstructure:"path"`

	// TypeName is the type of the model's root object and prefixes the
	// qualified name of every method.
	TypeName string `mapstructure:"type_name"`

	// MetadataPath points to an optional TOML file of metadata entries
	MetadataPath string `mapstructure:"metadata_path"`

	// Metadata entries, overriding those read from MetadataPath
	Metadata map[string]string `mapstructure:"metadata"`

	// Observers notified around method calls: "log" and/or "telemetry"
	Observers []string `mapstructure:"observers"`

	Runtime RuntimeConfig `mapstructure:"runtime"`
	Debug   DebugConfig   `mapstructure:"debug"`
	Log     LogConfig     `mapstructure:"log"`
}

// RuntimeConfig selects and configures the interpreter engine
type RuntimeConfig struct {
	Type string      `mapstructure:"type"`
	Mode wazero.Mode `mapstructure:"mode"`
	WASI bool        `mapstructure:"wasi"`
	Env  []string    `mapstructure:"env"`

	// CloseTimeout bounds the shutdown of the engine
	CloseTimeout time.Duration `mapstructure:"close_timeout"`
}

// DebugConfig locates debug information
type DebugConfig struct {
	// TablePath points to a CBOR encoded symbolicate.DebugTable. Without it
	// failures are reported without source information.
	TablePath string `mapstructure:"table_path"`
}

// LogConfig configures the host logger
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Default fills unset fields
func (cfg *Config) Default() {
	if cfg.TypeName == "" {
		cfg.TypeName = defaultTypeName
	}
	cfg.Runtime.Default()
	if cfg.Log.Level == "" {
		cfg.Log.Level = zapcore.InfoLevel.String()
	}
}

// Validate validates the configuration
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Path == "" {
		errs = append(errs, errors.New("path is required"))
	}
	for _, o := range cfg.Observers {
		if o != ObserverLog && o != ObserverTelemetry {
			errs = append(errs, fmt.Errorf("unknown observer %q", o))
		}
	}
	if err := cfg.Runtime.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); cfg.Log.Level != "" && err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	return errors.Join(errs...)
}

// Default fills unset fields
func (cfg *RuntimeConfig) Default() {
	if cfg.Type == "" {
		cfg.Type = wazero.RuntimeType
	}
	if cfg.Mode == "" {
		cfg.Mode = wazero.ModeInterpreter
	}
	if cfg.CloseTimeout == 0 {
		cfg.CloseTimeout = defaultCloseTimeout
	}
}

// Validate validates the configuration
func (cfg *RuntimeConfig) Validate() error {
	switch cfg.Mode {
	case "", wazero.ModeInterpreter, wazero.ModeCompiled:
	default:
		return fmt.Errorf("invalid runtime mode %q", cfg.Mode)
	}
	if cfg.CloseTimeout < 0 {
		return fmt.Errorf("negative close timeout %s", cfg.CloseTimeout)
	}
	return nil
}

// engineConfig returns the configuration handed to the runtime factory
func (cfg *RuntimeConfig) engineConfig() interface{} {
	if cfg.Type != wazero.RuntimeType {
		return nil
	}
	return &wazero.Config{
		Mode: cfg.Mode,
		WASI: cfg.WASI,
		Env:  cfg.Env,
	}
}

// LoadConfig reads a YAML configuration file and applies MOBILERT_
// environment overrides. An empty path reads the environment only.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "mapstructure",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
			Result:           cfg,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// envKey maps MOBILERT_RUNTIME__MODE to runtime.mode
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// NewLogger builds the host logger
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}
