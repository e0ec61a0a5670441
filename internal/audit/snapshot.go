package audit

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	dErrors "leaddesk/pkg/domain-errors"
)

// Snapshot is an ordered mapping from declared field names to tagged values.
// Each tracked entity lists explicitly which fields it captures; nothing is
// discovered by reflection. Insertion order is preserved so serialized
// snapshots stay stable and diffable.
type Snapshot struct {
	fields []field
}

type field struct {
	name  string
	value Value
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// Set appends a field. Setting the same name twice overwrites in place so the
// original position is kept.
func (s *Snapshot) Set(name string, v Value) *Snapshot {
	for i := range s.fields {
		if s.fields[i].name == name {
			s.fields[i].value = v
			return s
		}
	}
	s.fields = append(s.fields, field{name: name, value: v})
	return s
}

// Len returns the number of captured fields.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fields)
}

// Get returns the value for name, if captured.
func (s *Snapshot) Get(name string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	for _, f := range s.fields {
		if f.name == name {
			return f.value, true
		}
	}
	return Value{}, false
}

// MarshalJSON renders the snapshot as a JSON object in insertion order.
// A value that cannot be represented durably fails with CodeSerialization,
// which aborts the enclosing mutation.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.name)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeSerialization, "encode snapshot field name")
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := f.value.encode()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeSerialization, "encode snapshot field "+f.name)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type kind uint8

const (
	kindNull kind = iota
	kindString
	kindInt
	kindFloat
	kindBool
	kindTime
)

// Value is a tagged snapshot value: string, integer, float, bool, null, or
// timestamp. Timestamps are normalized to RFC 3339 UTC strings and
// enumerations to their string values so records read back without schema
// lookups.
type Value struct {
	kind kind
	str  string
	i    int64
	f    float64
	b    bool
	t    time.Time
}

// Null returns the null value, used for absent optional fields.
func Null() Value { return Value{kind: kindNull} }

// String tags s as a string value.
func String(s string) Value { return Value{kind: kindString, str: s} }

// Int tags i as an integer value.
func Int(i int64) Value { return Value{kind: kindInt, i: i} }

// Float tags f as a floating-point value. NaN and infinities are not
// storable and fail at serialization time.
func Float(f float64) Value { return Value{kind: kindFloat, f: f} }

// Bool tags b as a boolean value.
func Bool(b bool) Value { return Value{kind: kindBool, b: b} }

// Time tags t as a timestamp value, normalized to UTC.
func Time(t time.Time) Value { return Value{kind: kindTime, t: t.UTC()} }

// StringPtr tags an optional string; nil becomes null.
func StringPtr(s *string) Value {
	if s == nil {
		return Null()
	}
	return String(*s)
}

// IntPtr tags an optional integer; nil becomes null.
func IntPtr(i *int64) Value {
	if i == nil {
		return Null()
	}
	return Int(*i)
}

// IsNull reports whether the value is the null value.
func (v Value) IsNull() bool { return v.kind == kindNull }

// AsString returns the raw string for string-kinded values, or "" otherwise.
func (v Value) AsString() string { return v.str }

func (v Value) encode() ([]byte, error) {
	switch v.kind {
	case kindNull:
		return []byte("null"), nil
	case kindString:
		return json.Marshal(v.str)
	case kindInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case kindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, dErrors.Newf(dErrors.CodeSerialization, "non-storable float value %v", v.f)
		}
		return json.Marshal(v.f)
	case kindBool:
		return strconv.AppendBool(nil, v.b), nil
	case kindTime:
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	default:
		return nil, dErrors.Newf(dErrors.CodeSerialization, "unknown snapshot value kind %d", v.kind)
	}
}
