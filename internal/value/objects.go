package value

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

type StringObject struct {
	Header
	Text string
}

func NewString(s string) Value {
	obj := &StringObject{Text: s}
	obj.InitRefCount()
	return FromObject(obj)
}

func (s *StringObject) Kind() Kind      { return KindString }
func (s *StringObject) Inspect() string { return s.Text }
func (s *StringObject) Teardown()       { s.Text = "" }

type BufferObject struct {
	Header
	Data []byte
}

func NewBuffer(data []byte) Value {
	obj := &BufferObject{Data: data}
	obj.InitRefCount()
	return FromObject(obj)
}

func (b *BufferObject) Kind() Kind { return KindBuffer }
func (b *BufferObject) Inspect() string {
	return `0x"` + hex.EncodeToString(b.Data) + `"`
}
func (b *BufferObject) Teardown() { b.Data = nil }

// ArrayObject owns a reference to every element it contains. Elements are
// retained on insert and released when overwritten or when the array itself
// is torn down.
type ArrayObject struct {
	Header
	Elems []Value
}

func NewArray(capacity int) Value {
	obj := &ArrayObject{Elems: make([]Value, 0, capacity)}
	obj.InitRefCount()
	return FromObject(obj)
}

func (a *ArrayObject) Kind() Kind { return KindArray }
func (a *ArrayObject) Len() int   { return len(a.Elems) }

func (a *ArrayObject) Inspect() string {
	var out bytes.Buffer
	elements := []string{}
	for _, e := range a.Elems {
		elements = append(elements, e.Inspect())
	}
	out.WriteString("[")
	out.WriteString(strings.Join(elements, ", "))
	out.WriteString("]")
	return out.String()
}

// Get returns a retained copy of the element at index i.
func (a *ArrayObject) Get(i int) (Value, *RuntimeError) {
	if i < 0 || i >= len(a.Elems) {
		return Null(), Errorf(OutOfRangeError, "array index %d out of range [0, %d)", i, len(a.Elems))
	}
	return Retain(a.Elems[i]), nil
}

// Set releases the previous occupant of slot i and stores a retained copy
// of v.
func (a *ArrayObject) Set(i int, v Value) *RuntimeError {
	if i < 0 || i >= len(a.Elems) {
		return Errorf(OutOfRangeError, "array index %d out of range [0, %d)", i, len(a.Elems))
	}
	old := a.Elems[i]
	a.Elems[i] = Retain(v)
	Release(old)
	return nil
}

// Append stores a retained copy of v at the end of the array.
func (a *ArrayObject) Append(v Value) {
	a.Elems = append(a.Elems, Retain(v))
}

func (a *ArrayObject) Teardown() {
	for _, e := range a.Elems {
		Release(e)
	}
	a.Elems = nil
}

// RecordObject maps field names to owned values, preserving insertion order
// so that rendering and teardown are deterministic.
type RecordObject struct {
	Header
	fields *linkedhashmap.Map
}

func NewRecord() Value {
	obj := &RecordObject{fields: linkedhashmap.New()}
	obj.InitRefCount()
	return FromObject(obj)
}

func (r *RecordObject) Kind() Kind { return KindRecord }
func (r *RecordObject) Len() int   { return r.fields.Size() }

func (r *RecordObject) Inspect() string {
	var out bytes.Buffer
	parts := []string{}
	r.fields.Each(func(key interface{}, val interface{}) {
		parts = append(parts, key.(string)+": "+val.(Value).Inspect())
	})
	out.WriteString("{")
	out.WriteString(strings.Join(parts, ", "))
	out.WriteString("}")
	return out.String()
}

// GetField returns a retained copy of the named field's value.
func (r *RecordObject) GetField(name string) (Value, *RuntimeError) {
	raw, ok := r.fields.Get(name)
	if !ok {
		return Null(), Errorf(OutOfRangeError, "record has no field %q", name)
	}
	return Retain(raw.(Value)), nil
}

// SetField releases any previous value held under name and stores a retained
// copy of v.
func (r *RecordObject) SetField(name string, v Value) {
	if old, ok := r.fields.Get(name); ok {
		r.fields.Put(name, Retain(v))
		Release(old.(Value))
		return
	}
	r.fields.Put(name, Retain(v))
}

// FieldNames returns field names in insertion order.
func (r *RecordObject) FieldNames() []string {
	names := make([]string, 0, r.fields.Size())
	for _, k := range r.fields.Keys() {
		names = append(names, k.(string))
	}
	return names
}

func (r *RecordObject) Teardown() {
	r.fields.Each(func(key interface{}, val interface{}) {
		Release(val.(Value))
	})
	r.fields.Clear()
}
