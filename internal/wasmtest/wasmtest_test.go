package wasmtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLEB128(t *testing.T) {
	tests := []struct {
		name     string
		got      []byte
		expected []byte
	}{
		{name: "unsigned small", got: ULEB128(5), expected: []byte{0x05}},
		{name: "unsigned multi byte", got: ULEB128(624485), expected: []byte{0xe5, 0x8e, 0x26}},
		{name: "signed positive with sign bit", got: SLEB128(64), expected: []byte{0xc0, 0x00}},
		{name: "signed minus one", got: SLEB128(-1), expected: []byte{0x7f}},
		{name: "signed negative", got: SLEB128(-123456), expected: []byte{0xc0, 0xbb, 0x78}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestModuleFuncIndex(t *testing.T) {
	m := &Module{
		Imports: []Import{{Module: "env", Name: "f"}},
		Funcs:   []Func{{Name: "a"}, {Name: "b"}},
	}
	assert.Equal(t, 1, m.FuncIndex("a"))
	assert.Equal(t, 2, m.FuncIndex("b"))
	assert.Equal(t, -1, m.FuncIndex("c"))
}
