package mobile

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otelwasm/mobilert/runtime"
	"github.com/otelwasm/mobilert/symbolicate"
)

func TestFailureGuard(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		fallback func() string
		release  bool
		expected []string
	}{
		{
			name:     "released guard stays silent",
			message:  "boom",
			release:  true,
			expected: nil,
		},
		{
			name:     "fires with captured message",
			message:  "boom",
			fallback: func() string { return "from fallback" },
			expected: []string{"boom"},
		},
		{
			name:     "fires with fallback message",
			fallback: func() string { return "from fallback" },
			expected: []string{"from fallback"},
		},
		{
			name:     "empty fallback reports unknown exception",
			fallback: func() string { return "" },
			expected: []string{"Unknown exception"},
		},
		{
			name:     "no fallback reports unknown exception",
			expected: []string{"Unknown exception"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reported []string
			g := newFailureGuard(func(msg string) { reported = append(reported, msg) }, tt.fallback)
			g.capture(tt.message)
			if tt.release {
				g.release()
			}
			g.fire()
			g.fire()
			assert.Equal(t, tt.expected, reported)
		})
	}
}

func TestFailureGuardWithoutReporter(t *testing.T) {
	called := false
	g := newFailureGuard(nil, func() string {
		called = true
		return ""
	})
	g.fire()
	assert.False(t, called, "fallback must not run without a reporter")
}

func TestFailureGuardFiresWhilePanicking(t *testing.T) {
	var reported []string
	require.Panics(t, func() {
		g := newFailureGuard(func(msg string) { reported = append(reported, msg) }, nil)
		defer g.fire()
		panic("unwinding")
	})
	assert.Equal(t, []string{"Unknown exception"}, reported)
}

func TestEnrichError(t *testing.T) {
	table := symbolicate.NewDebugTable()
	table.Add(1, symbolicate.Frame{Function: "forward", Source: symbolicate.SourceRange{File: "m.py", Line: 1}})
	table.Add(2, symbolicate.Frame{Instance: "lin", Type: "Linear", Function: "forward", Source: symbolicate.SourceRange{File: "l.py", Line: 4}})

	asStructured := func(t *testing.T, err error) *runtime.Error {
		t.Helper()
		var rerr *runtime.Error
		require.ErrorAs(t, err, &rerr)
		return rerr
	}

	t.Run("generic error symbolicates the exception handle", func(t *testing.T) {
		raised := runtime.NewError("bad shape")
		err, msg := enrichError(raised, 1, "Net", table)

		assert.Equal(t, err.Error(), msg)
		rerr := asStructured(t, err)
		assert.Equal(t, []string{
			"Module hierarchy:top(Net)::forward\n" +
				"Traceback of model source (most recent call last):\n" +
				"  File \"m.py\", line 1, in forward",
		}, rerr.Context())
		assert.Empty(t, rerr.DebugHandles())
		assert.Equal(t, runtime.ErrorKindGeneric, rerr.Kind)
		assert.ErrorIs(t, err, raised)
		assert.Empty(t, raised.Context())
	})

	t.Run("backend error symbolicates all handles", func(t *testing.T) {
		cause := errors.New("delegate")
		raised := runtime.NewBackendError(cause, 2)
		err, msg := enrichError(raised, 1, "Net", table)

		assert.Equal(t, err.Error(), msg)
		rerr := asStructured(t, err)
		assert.Equal(t, []int64{2, 1}, rerr.DebugHandles())
		require.Len(t, rerr.Context(), 1)
		assert.Contains(t, rerr.Context()[0], "top(Net)::forward.lin(Linear)::forward")
		assert.Equal(t, runtime.ErrorKindBackend, rerr.Kind)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, []int64{2}, raised.DebugHandles())
	})

	t.Run("wrapped structured error keeps its wrapper", func(t *testing.T) {
		inner := runtime.NewError("inner")
		outer := fmt.Errorf("layer conv1: %w", inner)
		err, msg := enrichError(outer, 1, "Net", table)

		assert.Equal(t, err.Error(), msg)
		assert.True(t, strings.HasPrefix(msg, "layer conv1: inner\nModule hierarchy:top(Net)::forward"))
		assert.Len(t, asStructured(t, err).Context(), 1)
		assert.ErrorIs(t, err, inner)
		assert.Empty(t, inner.Context())
	})

	t.Run("symbolication unavailable adds no context", func(t *testing.T) {
		raised := runtime.NewBackendError(errors.New("delegate"), 2)
		err, msg := enrichError(raised, 1, "Net", symbolicate.Nop{})

		assert.Equal(t, "delegate", msg)
		rerr := asStructured(t, err)
		assert.Empty(t, rerr.Context())
		assert.Equal(t, []int64{2, 1}, rerr.DebugHandles())
	})

	t.Run("unstructured error is reported by its text", func(t *testing.T) {
		raised := errors.New("plain")
		err, msg := enrichError(raised, 1, "Net", table)
		assert.Same(t, raised, err)
		assert.Equal(t, "plain", msg)
	})

	t.Run("shared error is never modified", func(t *testing.T) {
		shared := runtime.NewError("boom")
		for i := 0; i < 3; i++ {
			err, _ := enrichError(shared, 1, "Net", table)
			assert.Len(t, asStructured(t, err).Context(), 1)
		}
		assert.Empty(t, shared.Context())
		assert.Equal(t, "boom", shared.Error())
	})
}
