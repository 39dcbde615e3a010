package tree

import (
	"encoding/json"
	"fmt"
	"math"
)

// EncodedValue is the serializable form of a Value shared by the YAML document
// format and the mirror's JSON records.
type EncodedValue struct {
	Type  ValueKind `json:"type" yaml:"type"`
	Value any       `json:"value" yaml:"value"`
}

// EncodeValue converts v to its serializable form. Ref targets are encoded as
// UUID strings, or nil when the reference points at nothing.
func EncodeValue(v Value) EncodedValue {
	switch v := v.(type) {
	case String:
		return EncodedValue{Type: KindString, Value: string(v)}
	case Bool:
		return EncodedValue{Type: KindBool, Value: bool(v)}
	case Int32:
		return EncodedValue{Type: KindInt32, Value: int32(v)}
	case Int64:
		return EncodedValue{Type: KindInt64, Value: int64(v)}
	case Float32:
		return EncodedValue{Type: KindFloat32, Value: float32(v)}
	case Float64:
		return EncodedValue{Type: KindFloat64, Value: float64(v)}
	case Ref:
		if v.Target.IsNone() {
			return EncodedValue{Type: KindRef, Value: nil}
		}
		return EncodedValue{Type: KindRef, Value: v.Target.String()}
	default:
		panic(fmt.Sprintf("unknown property value type %T", v))
	}
}

// DecodeValue converts an EncodedValue back to a Value. Numeric payloads may be
// any of the shapes produced by the YAML and JSON decoders (int, int64, uint64,
// float64); integers must be whole and in range for their kind.
func DecodeValue(e EncodedValue) (Value, error) {
	switch e.Type {
	case KindString:
		s, ok := e.Value.(string)
		if !ok {
			return nil, fmt.Errorf("string value: expected text, got %T", e.Value)
		}
		return String(s), nil
	case KindBool:
		b, ok := e.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("bool value: expected true or false, got %T", e.Value)
		}
		return Bool(b), nil
	case KindInt32:
		n, err := toInt(e.Value, math.MinInt32, math.MaxInt32)
		if err != nil {
			return nil, fmt.Errorf("int32 value: %w", err)
		}
		return Int32(n), nil
	case KindInt64:
		n, err := toInt(e.Value, math.MinInt64, math.MaxInt64)
		if err != nil {
			return nil, fmt.Errorf("int64 value: %w", err)
		}
		return Int64(n), nil
	case KindFloat32:
		f, err := toFloat(e.Value)
		if err != nil {
			return nil, fmt.Errorf("float32 value: %w", err)
		}
		return Float32(f), nil
	case KindFloat64:
		f, err := toFloat(e.Value)
		if err != nil {
			return nil, fmt.Errorf("float64 value: %w", err)
		}
		return Float64(f), nil
	case KindRef:
		if e.Value == nil {
			return NilRef(), nil
		}
		s, ok := e.Value.(string)
		if !ok {
			return nil, fmt.Errorf("ref value: expected instance ID, got %T", e.Value)
		}
		if s == "" {
			return NilRef(), nil
		}
		id, err := ParseID(s)
		if err != nil {
			return nil, fmt.Errorf("ref value: %w", err)
		}
		return RefTo(id), nil
	default:
		return nil, fmt.Errorf("unknown value type %q", e.Type)
	}
}

// EncodeProperties encodes every value of p.
func EncodeProperties(p Properties) map[string]EncodedValue {
	out := make(map[string]EncodedValue, len(p))
	for k, v := range p {
		out[k] = EncodeValue(v)
	}
	return out
}

// DecodeProperties decodes every value of m. The first failure is returned
// with the offending key.
func DecodeProperties(m map[string]EncodedValue) (Properties, error) {
	out := make(Properties, len(m))
	for k, e := range m {
		v, err := DecodeValue(e)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func toInt(raw any, lo, hi int64) (int64, error) {
	var n int64
	switch v := raw.(type) {
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%d out of range", v)
		}
		n = int64(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s is not a whole number", v)
		}
		n = i
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%g is not a whole number", v)
		}
		if v < float64(lo) || v > float64(hi) {
			return 0, fmt.Errorf("%g out of range", v)
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", raw)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%d out of range", n)
	}
	return n, nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("expected number, got %T", raw)
	}
}
