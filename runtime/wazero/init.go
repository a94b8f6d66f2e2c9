package wazero

import (
	"github.com/otelwasm/mobilert/runtime"
)

func init() {
	runtime.Register(RuntimeType, newWazeroRuntime)
}
