// Package logging sends guest log messages to the host logger through the
// log_message host function.
package logging

import (
	"encoding/json"
	"log/slog"

	"github.com/otelwasm/mobilert/guest/internal/imports"
)

// Extended log levels beyond slog to support Zap's additional levels
const (
	LevelDPanic slog.Level = slog.LevelError + 1
	LevelPanic  slog.Level = slog.LevelError + 2
	LevelFatal  slog.Level = slog.LevelError + 3
)

// LogMessage is the wire form of one log message
type LogMessage struct {
	Level   int32             `json:"level"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func sendLogMessage(level slog.Level, message string, fields map[string]string) {
	b, err := json.Marshal(LogMessage{
		Level:   int32(level),
		Message: message,
		Fields:  fields,
	})
	if err != nil {
		return
	}
	imports.LogMessage(b)
}

func firstFields(fields []map[string]string) map[string]string {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Debug logs a debug-level message
func Debug(message string, fields ...map[string]string) {
	sendLogMessage(slog.LevelDebug, message, firstFields(fields))
}

// Info logs an info-level message
func Info(message string, fields ...map[string]string) {
	sendLogMessage(slog.LevelInfo, message, firstFields(fields))
}

// Warn logs a warning-level message
func Warn(message string, fields ...map[string]string) {
	sendLogMessage(slog.LevelWarn, message, firstFields(fields))
}

// Error logs an error-level message
func Error(message string, fields ...map[string]string) {
	sendLogMessage(slog.LevelError, message, firstFields(fields))
}

// Logger logs slog attributes, rendered as strings
type Logger struct {
	attrs []slog.Attr
}

func NewLogger() *Logger {
	return &Logger{}
}

// With returns a logger adding attrs to every message
func (l *Logger) With(attrs ...slog.Attr) *Logger {
	return &Logger{attrs: append(append([]slog.Attr(nil), l.attrs...), attrs...)}
}

// LogAttrs logs a message with structured attributes
func (l *Logger) LogAttrs(level slog.Level, msg string, attrs ...slog.Attr) {
	fields := make(map[string]string, len(l.attrs)+len(attrs))
	for _, attr := range l.attrs {
		fields[attr.Key] = attr.Value.String()
	}
	for _, attr := range attrs {
		fields[attr.Key] = attr.Value.String()
	}
	sendLogMessage(level, msg, fields)
}

func (l *Logger) DebugAttrs(msg string, attrs ...slog.Attr) {
	l.LogAttrs(slog.LevelDebug, msg, attrs...)
}

func (l *Logger) InfoAttrs(msg string, attrs ...slog.Attr) {
	l.LogAttrs(slog.LevelInfo, msg, attrs...)
}

func (l *Logger) WarnAttrs(msg string, attrs ...slog.Attr) {
	l.LogAttrs(slog.LevelWarn, msg, attrs...)
}

func (l *Logger) ErrorAttrs(msg string, attrs ...slog.Attr) {
	l.LogAttrs(slog.LevelError, msg, attrs...)
}
