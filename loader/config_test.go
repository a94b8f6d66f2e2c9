package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/otelwasm/mobilert/runtime/wazero"
)

func TestConfigDefault(t *testing.T) {
	cfg := &Config{Path: "model.wasm"}
	cfg.Default()

	assert.Equal(t, "Model", cfg.TypeName)
	assert.Equal(t, wazero.RuntimeType, cfg.Runtime.Type)
	assert.Equal(t, wazero.ModeInterpreter, cfg.Runtime.Mode)
	assert.Equal(t, 5*time.Second, cfg.Runtime.CloseTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())

	cfg = &Config{TypeName: "Net", Runtime: RuntimeConfig{Mode: wazero.ModeCompiled, CloseTimeout: time.Second}}
	cfg.Default()
	assert.Equal(t, "Net", cfg.TypeName)
	assert.Equal(t, wazero.ModeCompiled, cfg.Runtime.Mode)
	assert.Equal(t, time.Second, cfg.Runtime.CloseTimeout)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		expected []string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:     "missing path",
			mutate:   func(c *Config) { c.Path = "" },
			expected: []string{"path is required"},
		},
		{
			name:     "unknown observer",
			mutate:   func(c *Config) { c.Observers = []string{"log", "stdout"} },
			expected: []string{`unknown observer "stdout"`},
		},
		{
			name:     "invalid mode",
			mutate:   func(c *Config) { c.Runtime.Mode = "jit" },
			expected: []string{`invalid runtime mode "jit"`},
		},
		{
			name:     "negative close timeout",
			mutate:   func(c *Config) { c.Runtime.CloseTimeout = -time.Second },
			expected: []string{"negative close timeout -1s"},
		},
		{
			name:     "invalid log level",
			mutate:   func(c *Config) { c.Log.Level = "loud" },
			expected: []string{"log level"},
		},
		{
			name: "errors are joined",
			mutate: func(c *Config) {
				c.Path = ""
				c.Observers = []string{"trace"}
			},
			expected: []string{"path is required", `unknown observer "trace"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Path: "model.wasm"}
			cfg.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if len(tt.expected) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, msg := range tt.expected {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

func TestEngineConfig(t *testing.T) {
	cfg := RuntimeConfig{Type: wazero.RuntimeType, Mode: wazero.ModeCompiled, WASI: true, Env: []string{"A=1"}}
	assert.Equal(t, &wazero.Config{Mode: wazero.ModeCompiled, WASI: true, Env: []string{"A=1"}}, cfg.engineConfig())

	cfg.Type = "other"
	assert.Nil(t, cfg.engineConfig())
}

const testConfigYAML = `
path: /models/net.wasm
type_name: Net
metadata:
  model_version: "7"
observers:
  - log
runtime:
  mode: interpreter
  wasi: true
  close_timeout: 3s
debug:
  table_path: /models/net.debug.cbor
log:
  level: debug
  development: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mobilert.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "/models/net.wasm", cfg.Path)
	assert.Equal(t, "Net", cfg.TypeName)
	assert.Equal(t, map[string]string{"model_version": "7"}, cfg.Metadata)
	assert.Equal(t, []string{ObserverLog}, cfg.Observers)
	assert.Equal(t, wazero.ModeInterpreter, cfg.Runtime.Mode)
	assert.True(t, cfg.Runtime.WASI)
	assert.Equal(t, 3*time.Second, cfg.Runtime.CloseTimeout)
	assert.Equal(t, "/models/net.debug.cbor", cfg.Debug.TablePath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("MOBILERT_RUNTIME__MODE", "compiled")
	t.Setenv("MOBILERT_RUNTIME__CLOSE_TIMEOUT", "250ms")
	t.Setenv("MOBILERT_OBSERVERS", "log,telemetry")
	t.Setenv("MOBILERT_TYPE_NAME", "Overridden")

	cfg, err := LoadConfig(writeConfig(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, wazero.ModeCompiled, cfg.Runtime.Mode)
	assert.Equal(t, 250*time.Millisecond, cfg.Runtime.CloseTimeout)
	assert.Equal(t, []string{ObserverLog, ObserverTelemetry}, cfg.Observers)
	assert.Equal(t, "Overridden", cfg.TypeName)
	assert.Equal(t, "/models/net.wasm", cfg.Path)
}

func TestLoadConfigEnvironmentOnly(t *testing.T) {
	t.Setenv("MOBILERT_PATH", "/tmp/env.wasm")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.wasm", cfg.Path)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "loading config")

	_, err = LoadConfig(writeConfig(t, "path: [unterminated"))
	assert.ErrorContains(t, err, "loading config")

	_, err = LoadConfig(writeConfig(t, "runtime:\n  close_timeout: forever\n"))
	assert.ErrorContains(t, err, "decoding config")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "runtime.mode", envKey("MOBILERT_RUNTIME__MODE"))
	assert.Equal(t, "type_name", envKey("MOBILERT_TYPE_NAME"))
	assert.Equal(t, "debug.table_path", envKey("MOBILERT_DEBUG__TABLE_PATH"))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	logger, err = NewLogger(LogConfig{Development: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
}
