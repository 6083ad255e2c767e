package profile

import (
	"encoding/hex"
	"fmt"
	"strconv"
)

// Kind identifies which variant of a Value is active.
type Kind uint8

const (
	// KindAbsent marks a null or missing column value. It contributes
	// zero size.
	KindAbsent Kind = iota
	KindText
	KindInt
	KindFloat
	KindBool
	KindBytes
	// KindScalar covers typed scalars with no dedicated variant: UUIDs,
	// timestamps, IP addresses, decimals, varints and the like.
	KindScalar
	// KindComposite covers collections, tuples and UDT values.
	KindComposite
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	case KindScalar:
		return "scalar"
	case KindComposite:
		return "composite"
	}
	return "unknown"
}

// Value is a single column value as sampled from the store, resolved to a
// closed set of kinds at row-construction time. Exactly one variant is
// active; the constructors below are the only way to build one.
type Value struct {
	kind Kind
	text string
	i    int64
	f    float64
	b    bool
	data []byte
	raw  any
}

// Absent returns the null/missing value.
func Absent() Value { return Value{kind: KindAbsent} }

func Text(s string) Value { return Value{kind: KindText, text: s} }

func Int(v int64) Value { return Value{kind: KindInt, i: v} }

func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Bytes wraps a binary value. The slice is referenced, not copied.
func Bytes(p []byte) Value { return Value{kind: KindBytes, data: p} }

// Scalar wraps a typed scalar that renders through its natural textual
// form (fmt), e.g. a UUID or timestamp.
func Scalar(v any) Value { return Value{kind: KindScalar, raw: v} }

// Composite wraps a collection, tuple or UDT value.
func Composite(v any) Value { return Value{kind: KindComposite, raw: v} }

// Kind reports the active variant.
func (v Value) Kind() Kind { return v.kind }

// Render returns the canonical textual form of the value: the same
// representation a human-readable dump would produce. Binary renders as
// lowercase hex; absent renders empty.
func (v Value) Render() string {
	switch v.kind {
	case KindAbsent:
		return ""
	case KindText:
		return v.text
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindBytes:
		return hex.EncodeToString(v.data)
	default:
		return fmt.Sprintf("%v", v.raw)
	}
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%s)", v.kind, v.Render())
}
