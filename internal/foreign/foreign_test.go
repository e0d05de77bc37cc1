package foreign

import (
	"testing"

	"tern/internal/value"
)

func TestUnpackString(t *testing.T) {
	s := value.NewString("dsn")
	defer value.Release(s)

	if got, ok := unpackString(s, ""); !ok || got != "dsn" {
		t.Errorf("unpackString = %q, %v", got, ok)
	}
	if got, ok := unpackString(value.I64(5), "fallback"); ok || got != "fallback" {
		t.Errorf("unpackString on integer = %q, %v, want fallback, false", got, ok)
	}
}

func TestUnpackInt(t *testing.T) {
	if got, ok := unpackInt(value.I32(12), 0); !ok || got != 12 {
		t.Errorf("unpackInt(i32) = %d, %v", got, ok)
	}
	if got, ok := unpackInt(value.U16(9), 0); !ok || got != 9 {
		t.Errorf("unpackInt(u16) = %d, %v", got, ok)
	}
	if got, ok := unpackInt(value.Null(), -4); ok || got != -4 {
		t.Errorf("unpackInt on nil = %d, %v, want -4, false", got, ok)
	}
}

func TestPutHelpers(t *testing.T) {
	rv := value.NewRecord()
	defer value.Release(rv)
	rec, _ := rv.AsRecord()

	PutString(rec, "name", "users")
	PutInt(rec, "count", 3)
	PutBool(rec, "open", true)
	PutBytes(rec, "blob", []byte{0xCA, 0xFE})

	name, err := rec.GetField("name")
	if err != nil {
		t.Fatalf("GetField(name): %v", err)
	}
	s, _ := name.AsString()
	if s.Text != "users" {
		t.Errorf("name = %q", s.Text)
	}
	// Field values carry their own reference; the record holds another.
	if s.RefCount() != 2 {
		t.Errorf("name refcount = %d, want 2", s.RefCount())
	}
	value.Release(name)

	count, _ := rec.GetField("count")
	if n, _ := count.AsInt(); n != 3 {
		t.Errorf("count = %d", n)
	}

	open, _ := rec.GetField("open")
	if b, _ := open.AsBool(); !b {
		t.Errorf("open = false")
	}

	blob, _ := rec.GetField("blob")
	buf, berr := blob.AsBuffer()
	if berr != nil {
		t.Fatalf("blob kind = %s", blob.Kind())
	}
	if len(buf.Data) != 2 || buf.Data[0] != 0xCA || buf.Data[1] != 0xFE {
		t.Errorf("blob = % x", buf.Data)
	}
	value.Release(blob)
}

func TestMarshalParams(t *testing.T) {
	s := value.NewString("alice")
	b := value.NewBuffer([]byte{1, 2})
	defer value.Release(s)
	defer value.Release(b)

	params := marshalParams([]value.Value{
		value.Null(),
		value.Bool(true),
		value.I64(42),
		value.U8(7),
		value.F64(2.5),
		s,
		b,
	})

	if params[0] != nil {
		t.Errorf("nil param = %v", params[0])
	}
	if v, ok := params[1].(bool); !ok || !v {
		t.Errorf("bool param = %v", params[1])
	}
	if v, ok := params[2].(int64); !ok || v != 42 {
		t.Errorf("int param = %v", params[2])
	}
	if v, ok := params[3].(int64); !ok || v != 7 {
		t.Errorf("u8 param = %v", params[3])
	}
	if v, ok := params[4].(float64); !ok || v != 2.5 {
		t.Errorf("float param = %v", params[4])
	}
	if v, ok := params[5].(string); !ok || v != "alice" {
		t.Errorf("string param = %v", params[5])
	}
	if v, ok := params[6].([]byte); !ok || len(v) != 2 {
		t.Errorf("buffer param = %v", params[6])
	}
}

func TestColumnToValue(t *testing.T) {
	if v := columnToValue(nil); !v.IsNull() {
		t.Errorf("nil column kind = %s", v.Kind())
	}
	if v := columnToValue(int64(10)); v.Kind() != value.KindI64 {
		t.Errorf("int64 column kind = %s", v.Kind())
	}
	if v := columnToValue(3.25); v.Kind() != value.KindF64 {
		t.Errorf("float column kind = %s", v.Kind())
	}

	// Text columns arrive as []byte from most drivers and must come back
	// as strings, not buffers.
	v := columnToValue([]byte("hello"))
	s, err := v.AsString()
	if err != nil {
		t.Fatalf("[]byte column kind = %s", v.Kind())
	}
	if s.Text != "hello" {
		t.Errorf("[]byte column = %q", s.Text)
	}
	value.Release(v)
}

func TestRegistryNames(t *testing.T) {
	fns := GetForeignFunctions()
	for _, name := range []string{"db_connect", "db_query", "db_exec", "db_begin", "db_commit", "db_rollback", "db_disconnect"} {
		fn, ok := fns[name]
		if !ok {
			t.Errorf("%s missing from the registry", name)
			continue
		}
		if fn.Kind() != value.KindFunction {
			t.Errorf("%s kind = %s", name, fn.Kind())
		}
	}
	for _, fn := range fns {
		value.Release(fn)
	}
}
