// Package value provides the tagged-variant values exchanged between a model's
// object graph, the call stack and the interpreter.
package value

import (
	"fmt"
	"strconv"
)

// Kind identifies the variant held by a Value
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindTensor
	KindObject
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindDouble:
		return "Double"
	case KindString:
		return "String"
	case KindTensor:
		return "Tensor"
	case KindObject:
		return "Object"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
	}
}

// Value is a polymorphic runtime value. The zero Value is None.
type Value struct {
	kind Kind
	i    int64
	d    float64
	s    string
	t    *Tensor
	o    *Object
}

// None returns the empty value
func None() Value { return Value{} }

// Bool wraps a boolean
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.i = 1
	}
	return v
}

// Int wraps a signed integer
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Double wraps a float
func Double(d float64) Value { return Value{kind: KindDouble, d: d} }

// String wraps a string
func String(s string) Value { return Value{kind: KindString, s: s} }

// FromTensor wraps a tensor reference
func FromTensor(t *Tensor) Value { return Value{kind: KindTensor, t: t} }

// FromObject wraps an object reference
func FromObject(o *Object) Value { return Value{kind: KindObject, o: o} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNone() bool   { return v.kind == KindNone }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsInt() bool    { return v.kind == KindInt }
func (v Value) IsDouble() bool { return v.kind == KindDouble }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsTensor() bool { return v.kind == KindTensor }
func (v Value) IsObject() bool { return v.kind == KindObject }

// ToBool returns the boolean held by v. It panics if v is not a Bool.
func (v Value) ToBool() bool {
	v.expect(KindBool)
	return v.i != 0
}

// ToInt returns the integer held by v. It panics if v is not an Int.
func (v Value) ToInt() int64 {
	v.expect(KindInt)
	return v.i
}

// ToDouble returns the float held by v. It panics if v is not a Double.
func (v Value) ToDouble() float64 {
	v.expect(KindDouble)
	return v.d
}

// ToStringValue returns the string held by v. It panics if v is not a String.
func (v Value) ToStringValue() string {
	v.expect(KindString)
	return v.s
}

// ToTensor returns the tensor held by v. It panics if v is not a Tensor.
func (v Value) ToTensor() *Tensor {
	v.expect(KindTensor)
	return v.t
}

// ToObject returns the object held by v. It panics if v is not an Object.
func (v Value) ToObject() *Object {
	v.expect(KindObject)
	return v.o
}

func (v Value) expect(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("value: expected %s, got %s", k, v.kind)) // Bug: caller did not check the kind
	}
}

// String renders v for diagnostics and CLI output
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "None"
	case KindBool:
		return strconv.FormatBool(v.i != 0)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return strconv.FormatFloat(v.d, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindTensor:
		return v.t.String()
	case KindObject:
		return v.o.String()
	default:
		return v.kind.String()
	}
}

// Stack is the ordered argument/result sequence of a call.
// On entry the first element is self; on exit it holds only the return value.
type Stack []Value

// Push appends values to the top of the stack
func (s *Stack) Push(vs ...Value) {
	*s = append(*s, vs...)
}

// Pop removes and returns the top value. It panics on an empty stack.
func (s *Stack) Pop() Value {
	n := len(*s)
	if n == 0 {
		panic("value: pop from empty stack") // Bug: interpreter stack underflow
	}
	v := (*s)[n-1]
	*s = (*s)[:n-1]
	return v
}

// PushFront inserts v before the first element
func (s *Stack) PushFront(v Value) {
	*s = append(*s, Value{})
	copy((*s)[1:], *s)
	(*s)[0] = v
}
