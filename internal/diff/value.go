package diff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind tags a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a JSON-compatible tagged union used for update payloads. Numbers
// keep their literal text so integers survive a round trip exactly.
type Value struct {
	kind Kind
	b    bool
	num  string
	str  string
	arr  []Value
	obj  map[string]Value
}

func Null() Value             { return Value{} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func String(s string) Value   { return Value{kind: KindString, str: s} }
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

func Number(f float64) Value {
	return Value{kind: KindNumber, num: strconv.FormatFloat(f, 'g', -1, 64)}
}

func Int(n int64) Value {
	return Value{kind: KindNumber, num: strconv.FormatInt(n, 10)}
}

func Object(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindObject, obj: m}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Field returns an object member.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[name]
	return f, ok
}

// Str returns the string payload of a string value.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return []byte(v.num), nil
	case KindString:
		return json.Marshal(v.str)
	case KindArray:
		arr := v.arr
		if arr == nil {
			arr = []Value{}
		}
		return json.Marshal(arr)
	case KindObject:
		return json.Marshal(v.obj)
	}
	return nil, fmt.Errorf("marshal value: unknown kind %d", v.kind)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("unmarshal value: %w", err)
	}
	conv, err := fromAny(raw)
	if err != nil {
		return err
	}
	*v = conv
	return nil
}

func fromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case json.Number:
		return Value{kind: KindNumber, num: x.String()}, nil
	case string:
		return String(x), nil
	case []any:
		arr := make([]Value, len(x))
		for i, el := range x {
			conv, err := fromAny(el)
			if err != nil {
				return Value{}, err
			}
			arr[i] = conv
		}
		return Array(arr...), nil
	case map[string]any:
		obj := make(map[string]Value, len(x))
		for k, el := range x {
			conv, err := fromAny(el)
			if err != nil {
				return Value{}, err
			}
			obj[k] = conv
		}
		return Object(obj), nil
	}
	return Value{}, fmt.Errorf("unmarshal value: unsupported %T", raw)
}

// ValueOf converts anything encoding/json can marshal into a Value.
func ValueOf(x any) (Value, error) {
	data, err := json.Marshal(x)
	if err != nil {
		return Value{}, fmt.Errorf("encoding value: %w", err)
	}
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Value{}, err
	}
	return v, nil
}

// Decode unmarshals the value into out.
func (v Value) Decode(out any) error {
	data, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding value: %w", err)
	}
	return nil
}
