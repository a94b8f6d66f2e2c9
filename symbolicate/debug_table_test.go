package symbolicate

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable() *DebugTable {
	table := NewDebugTable()
	table.Add(1, Frame{
		Type:     "Net",
		Function: "forward",
		Source:   SourceRange{File: "net.py", Line: 10, Text: "  x = self.conv(x)  "},
	})
	table.Add(2,
		Frame{Type: "Net", Function: "forward", Source: SourceRange{File: "net.py", Line: 10}},
		Frame{Instance: "conv", Type: "Conv2d", Function: "forward", Source: SourceRange{File: "conv.py", Line: 4, Text: "return conv2d(x)"}},
	)
	table.Add(3, Frame{Type: "Delegate", Function: "execute", Source: SourceRange{File: "delegate.py", Line: 1}})
	table.Add(4,
		Frame{Type: "Net", Function: "forward", Source: SourceRange{File: "net.py", Line: 12}},
		Frame{Type: "Net", Function: "_impl", Source: SourceRange{File: "net.py", Line: 20}},
	)
	table.SetFunction("forward", FunctionHandles{Entry: 1, Handles: []int64{1, 2}})
	return table
}

func TestModuleHierarchy(t *testing.T) {
	table := newTestTable()

	tests := []struct {
		name     string
		topType  string
		handle   int64
		expected string
	}{
		{name: "single frame", topType: "Net", handle: 1, expected: "top(Net)::forward"},
		{name: "inlined call", topType: "Net", handle: 2, expected: "top(Net)::forward.conv(Conv2d)::forward"},
		{name: "call within the same module", topType: "Net", handle: 4, expected: "top(Net)::forward::_impl"},
		{name: "anonymous top", topType: "", handle: 1, expected: "top::forward"},
		{name: "unknown handle", topType: "Net", handle: 42, expected: "debug info for handle 42 not found"},
		{name: "invalid handle", topType: "Net", handle: -1, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, table.ModuleHierarchy(tt.topType, tt.handle))
		})
	}
}

func TestSourceDebugString(t *testing.T) {
	table := newTestTable()

	t.Run("single handle", func(t *testing.T) {
		expected := "Module hierarchy:top(Net)::forward\n" +
			"Traceback of model source (most recent call last):\n" +
			"  File \"net.py\", line 10, in forward\n" +
			"    x = self.conv(x)"
		assert.Equal(t, expected, table.SourceDebugString("Net", 1))
	})

	t.Run("innermost handle last in traceback", func(t *testing.T) {
		got := table.SourceDebugString("Net", 2, 3)
		expected := "Module hierarchy:top(Net)::execute::forward.conv(Conv2d)::forward\n" +
			"Traceback of model source (most recent call last):\n" +
			"  File \"delegate.py\", line 1, in execute\n" +
			"  File \"net.py\", line 10, in forward\n" +
			"  File \"conv.py\", line 4, in forward\n" +
			"    return conv2d(x)"
		assert.Equal(t, expected, got)
	})

	t.Run("missing handles are listed after the traceback", func(t *testing.T) {
		got := table.SourceDebugString("Net", 1, 99)
		assert.Contains(t, got, "in forward")
		assert.Contains(t, got, "\ndebug info for handle 99 not found")
	})

	t.Run("nothing found", func(t *testing.T) {
		assert.Equal(t, "debug info for handle 99 not found", table.SourceDebugString("Net", 99))
		assert.Equal(t, "", table.SourceDebugString("Net", -1))
		assert.Equal(t, "", table.SourceDebugString("Net"))
	})
}

func TestDebugTableEncoding(t *testing.T) {
	table := newTestTable()

	var buf bytes.Buffer
	require.NoError(t, table.Encode(&buf))

	decoded, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, table.Entries, decoded.Entries)
	assert.Equal(t, FunctionHandles{Entry: 1, Handles: []int64{1, 2}}, decoded.Functions["forward"])

	path := filepath.Join(t.TempDir(), "net.debug.cbor")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, table.SourceDebugString("Net", 2), loaded.SourceDebugString("Net", 2))

	_, err = Decode(bytes.NewReader([]byte{0xff}))
	assert.ErrorContains(t, err, "decoding debug table")

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.cbor"))
	assert.Error(t, err)
}

func TestZeroDebugTable(t *testing.T) {
	var table DebugTable
	table.Add(5, Frame{Function: "f"})
	table.SetFunction("f", FunctionHandles{Entry: 5})

	assert.Equal(t, "top::f", table.ModuleHierarchy("", 5))
	assert.Equal(t, int64(5), table.Functions["f"].Entry)
}

func TestNew(t *testing.T) {
	assert.Equal(t, Nop{}, New(nil))

	table := newTestTable()
	if Enabled {
		assert.Same(t, table, New(table))
	} else {
		assert.Equal(t, Nop{}, New(table))
	}

	var nop Nop
	assert.Empty(t, nop.ModuleHierarchy("Net", 1))
	assert.Empty(t, nop.SourceDebugString("Net", 1, 2))
}
