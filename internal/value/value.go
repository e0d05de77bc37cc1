package value

import (
	"fmt"
	"math"
	"strconv"

	"tern/internal/util"
)

// Kind identifies the single active variant of a Value. The set is closed:
// scalar kinds are copied by value and carry no ownership, heap kinds hold an
// ownership handle to a reference-counted object.
type Kind uint8

const (
	KindNull Kind = iota
	KindI8
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
	KindBool
	KindRune
	KindRawPtr

	// Heap-backed kinds from here on.
	KindString
	KindBuffer
	KindArray
	KindRecord
	KindFunction
	KindTask
	KindChannel
)

var kindNames = map[Kind]string{
	KindNull:     "NIL",
	KindI8:       "I8",
	KindI16:      "I16",
	KindI32:      "I32",
	KindI64:      "I64",
	KindU8:       "U8",
	KindU16:      "U16",
	KindU32:      "U32",
	KindU64:      "U64",
	KindF32:      "F32",
	KindF64:      "F64",
	KindBool:     "BOOLEAN",
	KindRune:     "RUNE",
	KindRawPtr:   "RAWPTR",
	KindString:   "STRING",
	KindBuffer:   "BUFFER",
	KindArray:    "ARRAY",
	KindRecord:   "RECORD",
	KindFunction: "FUNCTION",
	KindTask:     "TASK",
	KindChannel:  "CHANNEL",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(%d)", uint8(k))
}

// IsScalar reports whether values of this kind are inline copies with no
// ownership handle.
func (k Kind) IsScalar() bool { return k < KindString }

// HostContext is the bridge between native Go code and whichever collaborator
// is driving the runtime (the tree-walking evaluator or compiled output).
// Host function implementations receive it to reach shared runtime services.
type HostContext interface {
	NextHandleID() int64
	GetConfiguration() util.Configuration
	NewError(kind ErrKind, format string, a ...interface{}) *RuntimeError
	Nil() Value
}

// Value is the tagged union every Tern expression evaluates to. Exactly one
// kind is active; `bits` carries the scalar payload, `ref` the heap handle.
type Value struct {
	kind Kind
	bits uint64
	ref  HeapObject
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Heap returns the heap object this value owns a reference to, or nil for
// scalar kinds.
func (v Value) Heap() HeapObject { return v.ref }

func Null() Value { return Value{kind: KindNull} }

func I8(n int8) Value   { return Value{kind: KindI8, bits: uint64(int64(n))} }
func I16(n int16) Value { return Value{kind: KindI16, bits: uint64(int64(n))} }
func I32(n int32) Value { return Value{kind: KindI32, bits: uint64(int64(n))} }
func I64(n int64) Value { return Value{kind: KindI64, bits: uint64(n)} }
func U8(n uint8) Value  { return Value{kind: KindU8, bits: uint64(n)} }
func U16(n uint16) Value { return Value{kind: KindU16, bits: uint64(n)} }
func U32(n uint32) Value { return Value{kind: KindU32, bits: uint64(n)} }
func U64(n uint64) Value { return Value{kind: KindU64, bits: n} }

func F32(f float32) Value { return Value{kind: KindF32, bits: uint64(math.Float32bits(f))} }
func F64(f float64) Value { return Value{kind: KindF64, bits: math.Float64bits(f)} }

func Bool(b bool) Value {
	var bits uint64
	if b {
		bits = 1
	}
	return Value{kind: KindBool, bits: bits}
}

func Rune(r rune) Value { return Value{kind: KindRune, bits: uint64(uint32(r))} }

// RawPtr wraps an opaque host pointer-sized token. The runtime never
// dereferences it; it exists for FFI hand-off.
func RawPtr(p uintptr) Value { return Value{kind: KindRawPtr, bits: uint64(p)} }

// FromObject wraps an already-owned heap object handle in a Value. The count
// is not incremented: ownership transfers to the returned Value.
func FromObject(obj HeapObject) Value {
	return Value{kind: obj.Kind(), ref: obj}
}

// AsInt widens any signed or unsigned integer kind to int64.
func (v Value) AsInt() (int64, *RuntimeError) {
	switch v.kind {
	case KindI8, KindI16, KindI32, KindI64:
		return int64(v.bits), nil
	case KindU8, KindU16, KindU32, KindU64:
		if v.bits > math.MaxInt64 {
			return 0, Errorf(OutOfRangeError, "unsigned value %d overflows int64", v.bits)
		}
		return int64(v.bits), nil
	default:
		return 0, Errorf(TypeError, "expected an integer, got %s", v.kind)
	}
}

func (v Value) AsFloat() (float64, *RuntimeError) {
	switch v.kind {
	case KindF32:
		return float64(math.Float32frombits(uint32(v.bits))), nil
	case KindF64:
		return math.Float64frombits(v.bits), nil
	default:
		return 0, Errorf(TypeError, "expected a float, got %s", v.kind)
	}
}

func (v Value) AsBool() (bool, *RuntimeError) {
	if v.kind != KindBool {
		return false, Errorf(TypeError, "expected a boolean, got %s", v.kind)
	}
	return v.bits != 0, nil
}

func (v Value) AsRune() (rune, *RuntimeError) {
	if v.kind != KindRune {
		return 0, Errorf(TypeError, "expected a rune, got %s", v.kind)
	}
	return rune(uint32(v.bits)), nil
}

func (v Value) AsRawPtr() (uintptr, *RuntimeError) {
	if v.kind != KindRawPtr {
		return 0, Errorf(TypeError, "expected a raw pointer, got %s", v.kind)
	}
	return uintptr(v.bits), nil
}

func (v Value) AsString() (*StringObject, *RuntimeError) {
	if s, ok := v.ref.(*StringObject); ok {
		return s, nil
	}
	return nil, Errorf(TypeError, "expected a string, got %s", v.kind)
}

func (v Value) AsBuffer() (*BufferObject, *RuntimeError) {
	if b, ok := v.ref.(*BufferObject); ok {
		return b, nil
	}
	return nil, Errorf(TypeError, "expected a buffer, got %s", v.kind)
}

func (v Value) AsArray() (*ArrayObject, *RuntimeError) {
	if a, ok := v.ref.(*ArrayObject); ok {
		return a, nil
	}
	return nil, Errorf(TypeError, "expected an array, got %s", v.kind)
}

func (v Value) AsRecord() (*RecordObject, *RuntimeError) {
	if r, ok := v.ref.(*RecordObject); ok {
		return r, nil
	}
	return nil, Errorf(TypeError, "expected a record, got %s", v.kind)
}

func (v Value) AsFunction() (*FunctionObject, *RuntimeError) {
	if f, ok := v.ref.(*FunctionObject); ok {
		return f, nil
	}
	return nil, Errorf(TypeError, "expected a function, got %s", v.kind)
}

func (v Value) AsChannel() (*Channel, *RuntimeError) {
	if c, ok := v.ref.(*Channel); ok {
		return c, nil
	}
	return nil, Errorf(TypeError, "expected a channel, got %s", v.kind)
}

// Inspect renders the value for diagnostics and uncaught-exception reports.
func (v Value) Inspect() string {
	switch v.kind {
	case KindNull:
		return "nil"
	case KindI8, KindI16, KindI32, KindI64:
		return strconv.FormatInt(int64(v.bits), 10)
	case KindU8, KindU16, KindU32, KindU64:
		return strconv.FormatUint(v.bits, 10)
	case KindF32:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(v.bits))), 'g', -1, 32)
	case KindF64:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	case KindBool:
		return fmt.Sprintf("%t", v.bits != 0)
	case KindRune:
		return strconv.QuoteRune(rune(uint32(v.bits)))
	case KindRawPtr:
		return fmt.Sprintf("<rawptr 0x%x>", v.bits)
	default:
		if v.ref == nil {
			return "<invalid>"
		}
		return v.ref.Inspect()
	}
}
