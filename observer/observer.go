// Package observer defines the lifecycle callbacks notified around method
// invocations.
package observer

import (
	"go.uber.org/zap"
)

// Observer is notified when a method invocation starts and ends. For every
// OnEnterRunMethod exactly one of OnExitRunMethod or OnFailRunMethod follows
// with the same instance key. Implementations must be safe for concurrent use.
type Observer interface {
	OnEnterRunMethod(metadata map[string]string, instanceKey int32, methodName string)
	OnExitRunMethod(instanceKey int32)
	OnFailRunMethod(instanceKey int32, message string)
}

// Multi fans notifications out to several observers in order
type Multi []Observer

var _ Observer = Multi(nil)

func (m Multi) OnEnterRunMethod(metadata map[string]string, instanceKey int32, methodName string) {
	for _, o := range m {
		o.OnEnterRunMethod(metadata, instanceKey, methodName)
	}
}

func (m Multi) OnExitRunMethod(instanceKey int32) {
	for _, o := range m {
		o.OnExitRunMethod(instanceKey)
	}
}

func (m Multi) OnFailRunMethod(instanceKey int32, message string) {
	for _, o := range m {
		o.OnFailRunMethod(instanceKey, message)
	}
}

// LogObserver writes invocation lifecycle events to a zap logger
type LogObserver struct {
	logger *zap.Logger
}

var _ Observer = (*LogObserver)(nil)

// NewLogObserver creates an observer logging to logger
func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnEnterRunMethod(metadata map[string]string, instanceKey int32, methodName string) {
	o.logger.Debug("method invocation started",
		zap.Int32("instance_key", instanceKey),
		zap.String("method", methodName),
		zap.String("model_name", metadata["model_name"]),
	)
}

func (o *LogObserver) OnExitRunMethod(instanceKey int32) {
	o.logger.Debug("method invocation finished", zap.Int32("instance_key", instanceKey))
}

func (o *LogObserver) OnFailRunMethod(instanceKey int32, message string) {
	o.logger.Error("method invocation failed",
		zap.Int32("instance_key", instanceKey),
		zap.String("error", message),
	)
}
