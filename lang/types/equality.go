package types

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// hashKey returns a canonical string encoding of v suitable for use as a
// Map's internal index key, such that two structurally equal keys always
// encode to the same string. Numeric values are normalized to their widest
// representation first so that, e.g., the Int 1 and the Long 1 index the
// same Map entry, matching the numeric tower's "value identity across
// widenings" rule (§3.3).
func hashKey(v Value) string {
	switch x := v.(type) {
	case NullType:
		return "n:"
	case Bool:
		if x {
			return "b:1"
		}
		return "b:0"
	case Byte:
		return "i:" + strconv.FormatInt(int64(x), 10)
	case Int:
		return "i:" + strconv.FormatInt(int64(x), 10)
	case Long:
		return "i:" + strconv.FormatInt(int64(x), 10)
	case Double:
		return "d:" + strconv.FormatFloat(float64(x), 'g', -1, 64)
	case Decimal:
		return "c:" + x.D.String()
	case String:
		return "s:" + string(x)
	case *List:
		var sb strings.Builder
		sb.WriteString("l:[")
		for i, e := range x.elems {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(hashKey(e))
		}
		sb.WriteByte(']')
		return sb.String()
	case *Map:
		keys := make([]string, 0, len(x.order))
		for _, hk := range x.order {
			keys = append(keys, hk)
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteString("m:{")
		for i, hk := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			kv, _ := x.entries.Get(hk)
			sb.WriteString(hashKey(kv.Key))
			sb.WriteByte('=')
			sb.WriteString(hashKey(kv.Value))
		}
		sb.WriteByte('}')
		return sb.String()
	default:
		// Instances and functions fall back to identity-based keys: two
		// distinct instances are never the same Map key unless the class
		// overrides equality, which is out of scope for the bootstrap
		// runtime.
		return fmt.Sprintf("p:%p", v)
	}
}

// Equal implements Jactl's structural '==' operator (§3.4): numbers compare
// by value across the numeric tower, strings by content, List/Map
// structurally and recursively, and everything else by identity.
func Equal(x, y Value, depth int) (bool, error) {
	if depth < 0 {
		return false, fmt.Errorf("comparison depth exceeded (cyclic value?)")
	}
	if x.Tag() == NULL && y.Tag() == NULL {
		return true, nil
	}
	if x.Tag().IsNumeric() && y.Tag().IsNumeric() {
		c, err := numCmp(x, y)
		if err != nil {
			return false, err
		}
		return c == 0, nil
	}
	switch a := x.(type) {
	case String:
		b, ok := y.(String)
		return ok && a == b, nil
	case Bool:
		b, ok := y.(Bool)
		return ok && a == b, nil
	case *List:
		b, ok := y.(*List)
		if !ok || len(a.elems) != len(b.elems) {
			return false, nil
		}
		for i := range a.elems {
			eq, err := Equal(a.elems[i], b.elems[i], depth-1)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case *Map:
		b, ok := y.(*Map)
		if !ok {
			return false, nil
		}
		return a.equalsMap(b, depth)
	case *Instance:
		b, ok := y.(*Instance)
		if !ok {
			return false, nil
		}
		return a.equals(b, depth)
	default:
		return Identical(x, y), nil
	}
}

// TypeStrictEqual implements switch's type-strict numeric comparison (§4.5:
// "switch numeric comparison is type-strict: 1L does not match 1"): numeric
// operands of different concrete tags are never equal, however Equal would
// otherwise treat them across the numeric tower. Every other value pair
// defers to Equal unchanged.
func TypeStrictEqual(x, y Value, depth int) (bool, error) {
	if x.Tag().IsNumeric() && y.Tag().IsNumeric() && x.Tag() != y.Tag() {
		return false, nil
	}
	return Equal(x, y, depth)
}

// Identical implements '===': same identity for reference types, same value
// for primitives.
func Identical(x, y Value) bool {
	switch a := x.(type) {
	case *List:
		b, ok := y.(*List)
		return ok && a == b
	case *Map:
		b, ok := y.(*Map)
		return ok && a == b
	case *Instance:
		b, ok := y.(*Instance)
		return ok && a == b
	default:
		return x == y
	}
}

// Compare implements '<=>' across any Ordered pair, and recursively across
// List elements for sorting.
func Compare(x, y Value, depth int) (int, error) {
	if depth < 0 {
		return 0, fmt.Errorf("comparison depth exceeded (cyclic value?)")
	}
	if x.Tag().IsNumeric() && y.Tag().IsNumeric() {
		return numCmp(x, y)
	}
	ox, ok := x.(Ordered)
	if !ok {
		return 0, typeMismatch("<=>", x, y)
	}
	return ox.Cmp(y, depth)
}
