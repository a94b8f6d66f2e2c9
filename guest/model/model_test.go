//go:build !wasm

package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/otelwasm/mobilert/guest/internal/imports"
)

func TestMethodName(t *testing.T) {
	tests := []string{"", "forward", strings.Repeat("long_method_name_", 10)}
	for _, name := range tests {
		imports.Reset(name)
		assert.Equal(t, name, MethodName())
	}
}

func TestSteps(t *testing.T) {
	imports.Reset("forward")

	var seen []int32
	record := func() { seen = append(seen, imports.PC()) }
	Steps(record, record, record)

	assert.Equal(t, []int32{0, 1, 2}, seen)
	assert.Equal(t, int32(2), imports.PC())
}

func TestStepsStopsAtPanic(t *testing.T) {
	imports.Reset("forward")

	assert.Panics(t, func() {
		Steps(func() {}, func() { panic("nan in output") }, func() { t.Fatal("not reached") })
	})
	assert.Equal(t, int32(1), imports.PC())
}

func TestSetPC(t *testing.T) {
	imports.Reset("")
	SetPC(12)
	assert.Equal(t, int32(12), imports.PC())
}
