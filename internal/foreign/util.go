package foreign

import (
	"tern/internal/value"
)

func unpackString(v value.Value, def string) (string, bool) {
	s, err := v.AsString()
	if err != nil {
		return def, false
	}
	return s.Text, true
}

func unpackInt(v value.Value, def int64) (int64, bool) {
	n, err := v.AsInt()
	if err != nil {
		return def, false
	}
	return n, true
}

// PutString sets a string field on a record, transferring the temporary
// string's ownership cleanly.
func PutString(rec *value.RecordObject, name string, s string) {
	v := value.NewString(s)
	rec.SetField(name, v)
	value.Release(v)
}

func PutInt(rec *value.RecordObject, name string, n int64) {
	rec.SetField(name, value.I64(n))
}

func PutBool(rec *value.RecordObject, name string, b bool) {
	rec.SetField(name, value.Bool(b))
}

func PutBytes(rec *value.RecordObject, name string, data []byte) {
	v := value.NewBuffer(data)
	rec.SetField(name, v)
	value.Release(v)
}
