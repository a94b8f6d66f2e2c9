package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTableLookup(t *testing.T) {
	table := HandleTable{10, 11, 12}

	tests := []struct {
		pc       int
		expected int64
	}{
		{pc: 0, expected: 10},
		{pc: 2, expected: 12},
		{pc: 3, expected: InvalidDebugHandle},
		{pc: -1, expected: InvalidDebugHandle},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, table.Lookup(tt.pc), "pc %d", tt.pc)
	}
	assert.Equal(t, InvalidDebugHandle, HandleTable(nil).Lookup(0))
}

func TestCallState(t *testing.T) {
	assert.Nil(t, CallStateFromContext(context.Background()))
	assert.Equal(t, -1, (*CallState)(nil).PC())
	assert.NotPanics(t, func() { SetPC(context.Background(), 3) })

	ctx, state := WithCallState(context.Background())
	assert.Same(t, state, CallStateFromContext(ctx))
	assert.Equal(t, -1, state.PC())

	SetPC(ctx, 4)
	assert.Equal(t, 4, state.PC())

	// a nested call gets its own state
	inner, innerState := WithCallState(ctx)
	SetPC(inner, 9)
	assert.Equal(t, 9, innerState.PC())
	assert.Equal(t, 4, state.PC())
}

func TestCallStateConcurrentWriters(t *testing.T) {
	ctx, state := WithCallState(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(pc int) {
			defer wg.Done()
			SetPC(ctx, pc)
		}(i)
	}
	wg.Wait()
	assert.GreaterOrEqual(t, state.PC(), 0)
	assert.Less(t, state.PC(), 8)
}

func TestDebugInfo(t *testing.T) {
	_, ok := DebugInfoFromContext(context.Background())
	assert.False(t, ok)

	outer := WithDebugInfo(context.Background(), &DebugInfo{ModelName: "net", MethodName: "forward"})
	inner := WithDebugInfo(outer, &DebugInfo{ModelName: "net", MethodName: "helper"})

	info, ok := DebugInfoFromContext(inner)
	require.True(t, ok)
	assert.Equal(t, "helper", info.MethodName)

	info, ok = DebugInfoFromContext(outer)
	require.True(t, ok)
	assert.Equal(t, "forward", info.MethodName)
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "Net.forward", QualifiedName("Net", "forward"))
	assert.Equal(t, "forward", QualifiedName("", "forward"))
}
