package types

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// ConvertTo implements the "as" and "cast" expressions (§3.2). as is the
// permissive form: besides numeric widening/narrowing it parses a String
// operand and reshapes List<->Map. cast is the strict form used for
// "(Type) expr": it only ever narrows/widens within the numeric tower and
// rejects a String source outright rather than parsing it.
func ConvertTo(v Value, typeName string, strict bool) (Value, error) {
	switch typeName {
	case "def":
		return v, nil
	case "boolean":
		return Bool(v.Truth()), nil
	case "byte", "int", "long", "double", "Decimal":
		return convertNumeric(v, typeName, strict)
	case "String":
		return String(v.String()), nil
	case "List":
		return convertToList(v)
	case "Map":
		return convertToMap(v)
	}
	return nil, fmt.Errorf("type error: unknown target type %s", typeName)
}

func convertNumeric(v Value, typeName string, strict bool) (Value, error) {
	if s, ok := v.(String); ok {
		if strict {
			return nil, fmt.Errorf("type error: cannot cast String to %s", typeName)
		}
		return parseNumeric(string(s), typeName)
	}
	if !v.Tag().IsNumeric() {
		return nil, fmt.Errorf("type error: cannot convert %s to %s", v.Tag(), typeName)
	}
	switch typeName {
	case "byte":
		n := toInt64(v)
		return Byte(uint8(n)), nil
	case "int":
		return Int(int32(toInt64(v))), nil
	case "long":
		return Long(toInt64(v)), nil
	case "double":
		if f, ok := asFloat64(v); ok {
			return Double(f), nil
		}
		d, _ := asDecimal(v)
		f, _ := d.Float64()
		return Double(f), nil
	case "Decimal":
		if d, ok := asDecimal(v); ok {
			return Decimal{d}, nil
		}
		f, _ := asFloat64(v)
		return Decimal{decimal.NewFromFloat(f)}, nil
	}
	return nil, fmt.Errorf("type error: cannot convert to %s", typeName)
}

// toInt64 truncates any numeric Value to an int64, going through the
// Double/Decimal path when the source isn't already one of the integral
// types (asInt64 only widens Byte/Int/Long).
func toInt64(v Value) int64 {
	if n, ok := asInt64(v); ok {
		return n
	}
	if f, ok := asFloat64(v); ok {
		return int64(f)
	}
	d, _ := asDecimal(v)
	return d.IntPart()
}

func parseNumeric(s, typeName string) (Value, error) {
	switch typeName {
	case "byte":
		n, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("type error: invalid byte literal %q", s)
		}
		return Byte(uint8(n)), nil
	case "int":
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("type error: invalid int literal %q", s)
		}
		return Int(int32(n)), nil
	case "long":
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("type error: invalid long literal %q", s)
		}
		return Long(n), nil
	case "double":
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("type error: invalid double literal %q", s)
		}
		return Double(f), nil
	case "Decimal":
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("type error: invalid Decimal literal %q", s)
		}
		return Decimal{d}, nil
	}
	return nil, fmt.Errorf("type error: unknown numeric type %s", typeName)
}

func convertToList(v Value) (Value, error) {
	if l, ok := v.(*List); ok {
		return l, nil
	}
	if m, ok := v.(*Map); ok {
		items := m.Items()
		out := make([]Value, len(items))
		for i, kv := range items {
			out[i] = NewList([]Value{kv.Key, kv.Value})
		}
		return NewList(out), nil
	}
	return nil, fmt.Errorf("type error: cannot convert %s to List", v.Tag())
}

func convertToMap(v Value) (Value, error) {
	if m, ok := v.(*Map); ok {
		return m, nil
	}
	l, ok := v.(*List)
	if !ok {
		return nil, fmt.Errorf("type error: cannot convert %s to Map", v.Tag())
	}
	m := NewMap(l.Len())
	for _, e := range l.Elems() {
		pair, ok := e.(*List)
		if !ok || pair.Len() != 2 {
			return nil, fmt.Errorf("type error: List elements must be [key,value] pairs to convert to Map")
		}
		k, _ := pair.Index(0)
		val, _ := pair.Index(1)
		if err := m.SetKey(k, val); err != nil {
			return nil, err
		}
	}
	return m, nil
}
