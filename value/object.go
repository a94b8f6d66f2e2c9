package value

import (
	"fmt"
	"strings"
)

// Attribute describes one named slot of an object type
type Attribute struct {
	Name string
	Kind Kind
}

// ObjectType is the schema shared by objects of one class: a qualified name
// and an ordered list of attributes. Slot i of an object holds attribute i.
type ObjectType struct {
	name  string
	attrs []Attribute
}

// NewObjectType creates a type with the given qualified name and attributes
func NewObjectType(name string, attrs ...Attribute) *ObjectType {
	return &ObjectType{
		name:  name,
		attrs: append([]Attribute(nil), attrs...),
	}
}

// Name returns the qualified type name. May be empty.
func (t *ObjectType) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// NumAttributes returns the number of declared attributes
func (t *ObjectType) NumAttributes() int { return len(t.attrs) }

// AttributeName returns the name of attribute i
func (t *ObjectType) AttributeName(i int) string { return t.attrs[i].Name }

// Attribute returns attribute i
func (t *ObjectType) Attribute(i int) Attribute { return t.attrs[i] }

// FindAttributeSlot returns the slot index of the named attribute
func (t *ObjectType) FindAttributeSlot(name string) (int, bool) {
	for i, a := range t.attrs {
		if a.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Object is an instance of an ObjectType. Objects have no internal
// synchronization; concurrent readers are fine, a concurrent writer is not.
type Object struct {
	typ   *ObjectType
	slots []Value
}

// NewObject creates an object of type t. Slots default to None; the optional
// initial values are assigned in attribute order.
func NewObject(t *ObjectType, slots ...Value) *Object {
	if len(slots) > t.NumAttributes() {
		panic(fmt.Sprintf("value: %d slots given for type %q with %d attributes", len(slots), t.Name(), t.NumAttributes()))
	}
	o := &Object{typ: t, slots: make([]Value, t.NumAttributes())}
	copy(o.slots, slots)
	return o
}

func (o *Object) Type() *ObjectType { return o.typ }

// Slots returns the slot values in attribute order. The slice aliases the
// object's storage.
func (o *Object) Slots() []Value { return o.slots }

func (o *Object) Slot(i int) Value { return o.slots[i] }

func (o *Object) SetSlot(i int, v Value) { o.slots[i] = v }

// Attr returns the value of the named attribute
func (o *Object) Attr(name string) (Value, bool) {
	i, ok := o.typ.FindAttributeSlot(name)
	if !ok {
		return Value{}, false
	}
	return o.slots[i], true
}

func (o *Object) String() string {
	var b strings.Builder
	b.WriteString(o.typ.Name())
	b.WriteByte('(')
	for i, s := range o.slots {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(o.typ.AttributeName(i))
		b.WriteByte('=')
		if s.IsObject() {
			b.WriteString(s.ToObject().typ.Name())
			continue
		}
		b.WriteString(s.String())
	}
	b.WriteByte(')')
	return b.String()
}
