package symbolicate

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// SourceRange locates one line of model source
type SourceRange struct {
	File string `cbor:"file"`
	Line int    `cbor:"line"`
	Text string `cbor:"text"`
}

// Frame is one level of an inlined call stack
type Frame struct {
	// Instance is the attribute name of the submodule, empty for the top
	Instance string      `cbor:"instance"`
	Type     string      `cbor:"type"`
	Function string      `cbor:"function"`
	Source   SourceRange `cbor:"source"`
}

// FunctionHandles is the program counter table of one function
type FunctionHandles struct {
	Entry   int64   `cbor:"entry"`
	Handles []int64 `cbor:"handles"`
}

// DebugTable maps debug handles to call stacks, outermost frame first
type DebugTable struct {
	Entries   map[int64][]Frame          `cbor:"entries"`
	Functions map[string]FunctionHandles `cbor:"functions"`
}

var _ Symbolicator = (*DebugTable)(nil)

// NewDebugTable creates an empty table
func NewDebugTable() *DebugTable {
	return &DebugTable{
		Entries:   make(map[int64][]Frame),
		Functions: make(map[string]FunctionHandles),
	}
}

// Add records the call stack of handle
func (t *DebugTable) Add(handle int64, frames ...Frame) {
	if t.Entries == nil {
		t.Entries = make(map[int64][]Frame)
	}
	t.Entries[handle] = append([]Frame(nil), frames...)
}

// SetFunction records the program counter table of a function
func (t *DebugTable) SetFunction(name string, fh FunctionHandles) {
	if t.Functions == nil {
		t.Functions = make(map[string]FunctionHandles)
	}
	t.Functions[name] = fh
}

// Decode reads a CBOR encoded table
func Decode(r io.Reader) (*DebugTable, error) {
	t := NewDebugTable()
	if err := cbor.NewDecoder(r).Decode(t); err != nil {
		return nil, fmt.Errorf("symbolicate: decoding debug table: %w", err)
	}
	return t, nil
}

// LoadFile reads a CBOR encoded table from path
func LoadFile(path string) (*DebugTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes the table as CBOR
func (t *DebugTable) Encode(w io.Writer) error {
	return cbor.NewEncoder(w).Encode(t)
}

func notFound(handle int64) string {
	return fmt.Sprintf("debug info for handle %d not found", handle)
}

// ModuleHierarchy implements Symbolicator
func (t *DebugTable) ModuleHierarchy(topType string, handle int64) string {
	if handle < 0 {
		return ""
	}
	frames, ok := t.Entries[handle]
	if !ok {
		return notFound(handle)
	}
	return hierarchy(topType, frames)
}

// SourceDebugString implements Symbolicator. Handles are innermost first, so
// the traceback lists the last handle's frames first.
func (t *DebugTable) SourceDebugString(topType string, handles ...int64) string {
	var (
		frames  []Frame
		missing []string
	)
	for i := len(handles) - 1; i >= 0; i-- {
		h := handles[i]
		if h < 0 {
			continue
		}
		fs, ok := t.Entries[h]
		if !ok {
			missing = append(missing, notFound(h))
			continue
		}
		frames = append(frames, fs...)
	}
	if len(frames) == 0 {
		return strings.Join(missing, "\n")
	}

	var b strings.Builder
	b.WriteString("Module hierarchy:")
	b.WriteString(hierarchy(topType, frames))
	b.WriteString("\nTraceback of model source (most recent call last):")
	for _, f := range frames {
		fmt.Fprintf(&b, "\n  File %q, line %d, in %s", f.Source.File, f.Source.Line, f.Function)
		if f.Source.Text != "" {
			b.WriteString("\n    ")
			b.WriteString(strings.TrimSpace(f.Source.Text))
		}
	}
	for _, m := range missing {
		b.WriteByte('\n')
		b.WriteString(m)
	}
	return b.String()
}

func hierarchy(topType string, frames []Frame) string {
	var b strings.Builder
	b.WriteString("top")
	if topType != "" {
		b.WriteString("(" + topType + ")")
	}
	for i, f := range frames {
		// A frame without an instance name runs in the enclosing module
		if i > 0 && f.Instance != "" {
			b.WriteString("." + f.Instance + "(" + f.Type + ")")
		}
		b.WriteString("::" + f.Function)
	}
	return b.String()
}
