package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies the JSON shape held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is an opaque JSON value carried in notification metadata. Numbers keep
// their textual form so large integers survive a round trip.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	list []Value
	obj  map[string]Value
}

// Metadata is the consumer-defined key-value bag attached to a record.
type Metadata map[string]Value

func Null() Value { return Value{kind: KindNull} }

func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

func StringValue(s string) Value { return Value{kind: KindString, str: s} }

func IntValue(i int64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatInt(i, 10))}
}

func FloatValue(f float64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatFloat(f, 'f', -1, 64))}
}

func ListValue(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

func ObjectValue(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, obj: fields}
}

// ValueOf converts a decoded JSON-like Go value into a Value.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return BoolValue(x), nil
	case string:
		return StringValue(x), nil
	case json.Number:
		return Value{kind: KindNumber, num: x}, nil
	case int:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case float64:
		return FloatValue(x), nil
	case []any:
		items := make([]Value, 0, len(x))
		for i, item := range x {
			iv, err := ValueOf(item)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, iv)
		}
		return ListValue(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(x))
		for k, item := range x {
			iv, err := ValueOf(item)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			fields[k] = iv
		}
		return ObjectValue(fields), nil
	default:
		return Value{}, fmt.Errorf("unsupported metadata type %T", v)
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := v.num.Float64()
	return f, err == nil
}

func (v Value) AsInt() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	i, err := v.num.Int64()
	return i, err == nil
}

func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

func (v Value) AsObject() (map[string]Value, bool) { return v.obj, v.kind == KindObject }

// Interface returns v as plain Go values (nil, bool, json.Number, string,
// []any, map[string]any), suitable for templates.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// String renders strings verbatim and everything else as compact JSON.
func (v Value) String() string {
	if v.kind == KindString {
		return v.str
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func (v Value) clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.clone()
		}
		v.list = items
	case KindObject:
		fields := make(map[string]Value, len(v.obj))
		for k, item := range v.obj {
			fields[k] = item.clone()
		}
		v.obj = fields
	}
	return v
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		if v.num == "" {
			return []byte("0"), nil
		}
		return []byte(v.num), nil
	case KindString:
		return json.Marshal(v.str)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindObject:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.obj)
	default:
		return nil, fmt.Errorf("marshal metadata: unknown kind %d", v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("unmarshal metadata: %w", err)
	}

	parsed, err := ValueOf(raw)
	if err != nil {
		return fmt.Errorf("unmarshal metadata: %w", err)
	}
	*v = parsed
	return nil
}

// Clone returns a deep copy of m.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v.clone()
	}
	return out
}

// Map returns m as plain Go values keyed by name.
func (m Metadata) Map() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Interface()
	}
	return out
}

// MetadataFrom converts a map of JSON-like values into Metadata.
func MetadataFrom(values map[string]any) (Metadata, error) {
	if values == nil {
		return nil, nil
	}
	out := make(Metadata, len(values))
	for k, raw := range values {
		v, err := ValueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
