package model

import (
	"encoding/json"
	"fmt"
)

// ValueKind discriminates the shapes a metadata property can take. The store
// only persists scalars and sequences of scalars; keeping the set closed lets
// the persistence engine and the query compiler switch exhaustively.
type ValueKind int

const (
	StringValue ValueKind = iota
	NumberValue
	BoolValue
	ListValue
)

// Value is a tagged variant over the storable metadata shapes.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []Value
}

func StringOf(s string) Value  { return Value{kind: StringValue, str: s} }
func NumberOf(n float64) Value { return Value{kind: NumberValue, num: n} }
func BoolOf(b bool) Value      { return Value{kind: BoolValue, b: b} }

func ListOf(items ...Value) Value {
	return Value{kind: ListValue, list: items}
}

func (v Value) Kind() ValueKind { return v.kind }

// ValueOf converts an arbitrary caller-supplied value into a Value, rejecting
// shapes the store cannot hold (maps, nested lists, structs).
func ValueOf(raw any) (Value, error) {
	switch t := raw.(type) {
	case string:
		return StringOf(t), nil
	case bool:
		return BoolOf(t), nil
	case int:
		return NumberOf(float64(t)), nil
	case int32:
		return NumberOf(float64(t)), nil
	case int64:
		return NumberOf(float64(t)), nil
	case float32:
		return NumberOf(float64(t)), nil
	case float64:
		return NumberOf(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return NumberOf(f), nil
	case []string:
		items := make([]Value, 0, len(t))
		for _, s := range t {
			items = append(items, StringOf(s))
		}
		return ListOf(items...), nil
	case []any:
		items := make([]Value, 0, len(t))
		for _, el := range t {
			v, err := ValueOf(el)
			if err != nil {
				return Value{}, err
			}
			if v.kind == ListValue {
				return Value{}, fmt.Errorf("nested sequences are not storable")
			}
			items = append(items, v)
		}
		return ListOf(items...), nil
	default:
		return Value{}, fmt.Errorf("unsupported metadata value type %T", raw)
	}
}

// Native returns the value as the plain Go shape the store drivers accept.
func (v Value) Native() any {
	switch v.kind {
	case StringValue:
		return v.str
	case NumberValue:
		return v.num
	case BoolValue:
		return v.b
	case ListValue:
		out := make([]any, 0, len(v.list))
		for _, el := range v.list {
			out = append(out, el.Native())
		}
		return out
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// NormalizeMetadata validates a metadata map against the storable value
// shapes, returning a copy with every value reduced to its native form.
// Nil entries pass through: the persistence engine interprets them as
// property removals.
func NormalizeMetadata(metadata map[string]any) (map[string]any, error) {
	if len(metadata) == 0 {
		return metadata, nil
	}
	out := make(map[string]any, len(metadata))
	for key, raw := range metadata {
		if raw == nil {
			out[key] = nil
			continue
		}
		v, err := ValueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("metadata property %q: %w", key, err)
		}
		out[key] = v.Native()
	}
	return out, nil
}
