package tracer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ValueKind enumerates the scalar kinds the wire format supports.
type ValueKind uint8

const (
	KindString ValueKind = iota
	KindInt
	KindFloat
	KindBool
)

// Value is a closed sum over the supported scalar kinds. Anything else the
// instrumented code supplies is coerced to its string representation at
// attribute-set time, so serialization is total.
type Value struct {
	kind ValueKind
	str  string
	num  int64
	flt  float64
	bln  bool
}

func StringValue(v string) Value { return Value{kind: KindString, str: v} }
func IntValue(v int64) Value     { return Value{kind: KindInt, num: v} }
func FloatValue(v float64) Value { return Value{kind: KindFloat, flt: v} }
func BoolValue(v bool) Value     { return Value{kind: KindBool, bln: v} }

// CoerceValue maps an arbitrary attribute value onto the closed sum.
func CoerceValue(v any) Value {
	switch v := v.(type) {
	case Value:
		return v
	case string:
		return StringValue(v)
	case bool:
		return BoolValue(v)
	case int:
		return IntValue(int64(v))
	case int8:
		return IntValue(int64(v))
	case int16:
		return IntValue(int64(v))
	case int32:
		return IntValue(int64(v))
	case int64:
		return IntValue(v)
	case uint:
		return IntValue(int64(v))
	case uint8:
		return IntValue(int64(v))
	case uint16:
		return IntValue(int64(v))
	case uint32:
		return IntValue(int64(v))
	case float32:
		return FloatValue(float64(v))
	case float64:
		return FloatValue(v)
	case fmt.Stringer:
		return StringValue(v.String())
	default:
		return StringValue(fmt.Sprintf("%v", v))
	}
}

func (v Value) Kind() ValueKind { return v.kind }

// Interface returns the native Go value.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.num
	case KindFloat:
		return v.flt
	case KindBool:
		return v.bln
	default:
		return v.str
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("tracer: empty attribute value")
	}
	switch {
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*v = BoolValue(data[0] == 't')
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		if strings.ContainsAny(n.String(), ".eE") {
			f, err := n.Float64()
			if err != nil {
				return err
			}
			*v = FloatValue(f)
			return nil
		}
		i, err := n.Int64()
		if err != nil {
			return err
		}
		*v = IntValue(i)
	}
	return nil
}

// Attribute is a keyed Value, accepted by StartSpan.
type Attribute struct {
	Key   string
	Value Value
}

func String(key, v string) Attribute    { return Attribute{Key: key, Value: StringValue(v)} }
func Int(key string, v int64) Attribute { return Attribute{Key: key, Value: IntValue(v)} }
func Float(key string, v float64) Attribute {
	return Attribute{Key: key, Value: FloatValue(v)}
}
func Bool(key string, v bool) Attribute { return Attribute{Key: key, Value: BoolValue(v)} }
func Any(key string, v any) Attribute   { return Attribute{Key: key, Value: CoerceValue(v)} }
