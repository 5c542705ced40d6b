package model

import (
	"encoding/json"
	"strconv"
)

// Kind identifies which branch of a Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
)

// Value is an untyped field as produced by the model response. Normalization
// pattern-matches over the kind instead of reflecting on interface{} values,
// so every degrade branch is explicit.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	arr  []Value
	obj  map[string]Value
}

// RawExtraction is the as-parsed, pre-normalization output of the AI response.
// It may contain missing or malformed fields and is discarded after
// normalization.
type RawExtraction map[string]Value

func Null() Value                      { return Value{kind: KindNull} }
func String(s string) Value           { return Value{kind: KindString, str: s} }
func Number(f float64) Value          { return Value{kind: KindNumber, num: f} }
func Bool(b bool) Value               { return Value{kind: KindBool, b: b} }
func Array(vs ...Value) Value         { return Value{kind: KindArray, arr: vs} }
func Object(m map[string]Value) Value { return Value{kind: KindObject, obj: m} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// String returns the string branch. ok is false for any other kind.
func (v Value) String() (string, bool) {
	return v.str, v.kind == KindString
}

// Number returns the numeric branch. ok is false for any other kind.
func (v Value) Number() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Bool returns the boolean branch. ok is false for any other kind.
func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Array returns the array branch. ok is false for any other kind.
func (v Value) Array() ([]Value, bool) {
	return v.arr, v.kind == KindArray
}

// Object returns the object branch. ok is false for any other kind.
func (v Value) Object() (map[string]Value, bool) {
	return v.obj, v.kind == KindObject
}

// Get looks up a key on an object Value. ok is false for non-objects and
// missing keys.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	child, ok := v.obj[key]
	return child, ok
}

// FromAny converts a decoded JSON value (as produced by encoding/json with
// UseNumber) into a Value. Unknown types map to null.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			// Out-of-range literal; keep the raw text so normalization
			// can still degrade it explicitly.
			return String(t.String())
		}
		return Number(f)
	case float64:
		return Number(t)
	case int:
		return Number(float64(t))
	case bool:
		return Bool(t)
	case []any:
		arr := make([]Value, len(t))
		for i, el := range t {
			arr[i] = FromAny(el)
		}
		return Value{kind: KindArray, arr: arr}
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, el := range t {
			obj[k] = FromAny(el)
		}
		return Object(obj)
	default:
		return Null()
	}
}

// MarshalJSON re-emits the value as plain JSON, mainly for debug output.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return []byte(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindArray:
		return json.Marshal(v.arr)
	case KindObject:
		return json.Marshal(v.obj)
	default:
		return []byte("null"), nil
	}
}
