package wazero

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/otelwasm/mobilert/runtime"
)

const (
	// hostModuleName is the import module guests use for host functions
	hostModuleName = "mobilert"

	// Host function exports
	setPC      = "set_pc"
	logMessage = "log_message"
	methodName = "method_name"
)

// LogMessage represents a structured log message sent by the guest
type LogMessage struct {
	Level   int32             `json:"level"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

// loggerKey is the key used to store the guest logger in the context
type loggerKey struct{}

func withLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func loggerFromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return nil
}

// newHostModule creates the host module exposing call diagnostics to guests
func newHostModule() *runtime.HostModule {
	hm := runtime.NewHostModule(hostModuleName)
	hm.AddFunction(setPC,
		[]runtime.ValueType{runtime.ValueTypeI32},
		[]runtime.ValueType{},
		&runtime.WazeroHostFunction{Function: setPCFn})
	hm.AddFunction(logMessage,
		[]runtime.ValueType{runtime.ValueTypeI32, runtime.ValueTypeI32},
		[]runtime.ValueType{},
		&runtime.WazeroHostFunction{Function: logMessageFn})
	hm.AddFunction(methodName,
		[]runtime.ValueType{runtime.ValueTypeI32, runtime.ValueTypeI32},
		[]runtime.ValueType{runtime.ValueTypeI32},
		&runtime.WazeroHostFunction{Function: methodNameFn})
	return hm
}

// setPCFn records the guest's current program counter for failure symbolication
func setPCFn(ctx context.Context, _ api.Module, stack []uint64) {
	runtime.SetPC(ctx, int(api.DecodeI32(stack[0])))
}

// logMessageFn forwards a JSON encoded LogMessage from guest memory to zap
func logMessageFn(ctx context.Context, mod api.Module, stack []uint64) {
	logger := loggerFromContext(ctx)
	if logger == nil {
		return
	}

	buf := uint32(stack[0])
	size := uint32(stack[1])

	logBytes, ok := mod.Memory().Read(buf, size)
	if !ok {
		panic("out of memory reading log message") // Bug: caller passed a length outside memory
	}

	var msg LogMessage
	if err := json.Unmarshal(logBytes, &msg); err != nil {
		logger.Error("failed to unmarshal log message from guest", zap.Error(err))
		return
	}

	fields := make([]zap.Field, 0, len(msg.Fields))
	for k, v := range msg.Fields {
		fields = append(fields, zap.String(k, v))
	}
	if ce := logger.Check(zapLevelFromSlogLevel(slog.Level(msg.Level)), msg.Message); ce != nil {
		ce.Write(fields...)
	}
}

// methodNameFn writes the name of the method being invoked into guest memory
func methodNameFn(ctx context.Context, mod api.Module, stack []uint64) {
	buf := uint32(stack[0])
	bufLimit := uint32(stack[1])

	var name string
	if info, ok := runtime.DebugInfoFromContext(ctx); ok {
		name = info.MethodName
	}
	stack[0] = uint64(writeBytesIfUnderLimit(mod.Memory(), []byte(name), buf, bufLimit))
}

func zapLevelFromSlogLevel(level slog.Level) zapcore.Level {
	switch {
	case level < slog.LevelInfo:
		return zapcore.DebugLevel
	case level < slog.LevelWarn:
		return zapcore.InfoLevel
	case level < slog.LevelError:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
