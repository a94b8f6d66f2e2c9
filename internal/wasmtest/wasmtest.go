// Package wasmtest assembles small WebAssembly binaries for tests.
package wasmtest

import (
	"os"
	"path/filepath"
	"testing"
)

// ValType is a WebAssembly value type
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

// FuncType is a function signature
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Import is an imported host function
type Import struct {
	Module string
	Name   string
	Type   FuncType
}

// Func is a function defined by the module. Functions are exported under
// Name unless it is empty. Body holds the instructions without the local
// declarations and the final end opcode.
type Func struct {
	Name string
	Type FuncType
	Body []byte
}

// Data is an active data segment of memory 0
type Data struct {
	Offset int32
	Bytes  []byte
}

// Module describes a binary. Function index i refers to Imports[i] and
// index len(Imports)+j to Funcs[j].
type Module struct {
	Imports []Import
	Funcs   []Func
	// Memory adds one exported page of memory named "memory"
	Memory bool
	Data   []Data
}

// FuncIndex returns the function index of the defined function named name,
// or -1.
func (m *Module) FuncIndex(name string) int {
	for i, fn := range m.Funcs {
		if fn.Name == name {
			return len(m.Imports) + i
		}
	}
	return -1
}

// Bytes encodes the module
func (m *Module) Bytes() []byte {
	out := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version
	}
	section := func(id byte, payload []byte) {
		out = append(out, id)
		out = append(out, ULEB128(uint32(len(payload)))...)
		out = append(out, payload...)
	}

	// One type per import and function, in function index order
	types := ULEB128(uint32(len(m.Imports) + len(m.Funcs)))
	for _, imp := range m.Imports {
		types = append(types, encodeFuncType(imp.Type)...)
	}
	for _, fn := range m.Funcs {
		types = append(types, encodeFuncType(fn.Type)...)
	}
	section(0x01, types)

	if len(m.Imports) > 0 {
		imports := ULEB128(uint32(len(m.Imports)))
		for i, imp := range m.Imports {
			imports = append(imports, name(imp.Module)...)
			imports = append(imports, name(imp.Name)...)
			imports = append(imports, 0x00) // func
			imports = append(imports, ULEB128(uint32(i))...)
		}
		section(0x02, imports)
	}

	funcs := ULEB128(uint32(len(m.Funcs)))
	for i := range m.Funcs {
		funcs = append(funcs, ULEB128(uint32(len(m.Imports)+i))...)
	}
	section(0x03, funcs)

	if m.Memory {
		section(0x05, []byte{0x01, 0x00, 0x01}) // one memory, min 1 page
	}

	var exports [][]byte
	if m.Memory {
		exports = append(exports, append(name("memory"), 0x02, 0x00))
	}
	for i, fn := range m.Funcs {
		if fn.Name == "" {
			continue
		}
		e := append(name(fn.Name), 0x00)
		e = append(e, ULEB128(uint32(len(m.Imports)+i))...)
		exports = append(exports, e)
	}
	payload := ULEB128(uint32(len(exports)))
	for _, e := range exports {
		payload = append(payload, e...)
	}
	section(0x07, payload)

	code := ULEB128(uint32(len(m.Funcs)))
	for _, fn := range m.Funcs {
		body := append([]byte{0x00}, fn.Body...) // no locals
		body = append(body, 0x0b)
		code = append(code, ULEB128(uint32(len(body)))...)
		code = append(code, body...)
	}
	section(0x0a, code)

	if len(m.Data) > 0 {
		data := ULEB128(uint32(len(m.Data)))
		for _, d := range m.Data {
			data = append(data, 0x00) // active, memory 0
			data = append(data, I32Const(d.Offset)...)
			data = append(data, 0x0b)
			data = append(data, ULEB128(uint32(len(d.Bytes)))...)
			data = append(data, d.Bytes...)
		}
		section(0x0b, data)
	}
	return out
}

// WriteFile writes the module into a temporary directory and returns its path
func (m *Module) WriteFile(t testing.TB, filename string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), filename)
	if err := os.WriteFile(path, m.Bytes(), 0o600); err != nil {
		t.Fatalf("failed to write test module: %v", err)
	}
	return path
}

func encodeFuncType(ft FuncType) []byte {
	b := []byte{0x60}
	b = append(b, ULEB128(uint32(len(ft.Params)))...)
	for _, p := range ft.Params {
		b = append(b, byte(p))
	}
	b = append(b, ULEB128(uint32(len(ft.Results)))...)
	for _, r := range ft.Results {
		b = append(b, byte(r))
	}
	return b
}

func name(s string) []byte {
	return append(ULEB128(uint32(len(s))), s...)
}

// Code concatenates instructions
func Code(instrs ...[]byte) []byte {
	var out []byte
	for _, in := range instrs {
		out = append(out, in...)
	}
	return out
}

// I32Const pushes v
func I32Const(v int32) []byte {
	return append([]byte{0x41}, SLEB128(int64(v))...)
}

// LocalGet pushes parameter i
func LocalGet(i uint32) []byte {
	return append([]byte{0x20}, ULEB128(i)...)
}

// Call calls function idx
func Call(idx int) []byte {
	return append([]byte{0x10}, ULEB128(uint32(idx))...)
}

var (
	Unreachable = []byte{0x00}
	Drop        = []byte{0x1a}
	I32Add      = []byte{0x6a}
	I64Add      = []byte{0x7c}
	F64Mul      = []byte{0xa2}
)

// ULEB128 encodes v as unsigned LEB128
func ULEB128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// SLEB128 encodes v as signed LEB128
func SLEB128(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}
