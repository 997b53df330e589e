package jactl

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jactl-lang/jactl/lang/types"
)

// Globals builds the *types.Map a CompiledScript runs against, converting
// plain Go values into the value space a script can see (§6 "Globals value
// space": bool, int, long, double, decimal, string, list, map, null, and
// instances of classes registered on the same CompilationContext).
type Globals struct {
	m *types.Map
}

// NewGlobals returns an empty Globals ready for Set calls.
func NewGlobals() *Globals {
	return &Globals{m: types.NewMap(0)}
}

// Set assigns name to a Go value converted via ToValue. It panics if v is
// not one of the supported Go types, since globals are normally built once
// at startup from literal Go values, not from untrusted input; a host
// converting untrusted data should build a types.Value itself and call
// SetValue.
func (g *Globals) Set(name string, v any) *Globals {
	val, err := ToValue(v)
	if err != nil {
		panic(fmt.Sprintf("jactl: Globals.Set(%q): %s", name, err))
	}
	g.SetValue(name, val)
	return g
}

// SetValue assigns name directly to an already-built types.Value, the
// escape hatch for an *types.Instance or any value ToValue cannot express.
func (g *Globals) SetValue(name string, v types.Value) *Globals {
	_ = g.m.SetKey(types.String(name), v)
	return g
}

// Get reads name back out, converted to a plain Go value via FromValue.
func (g *Globals) Get(name string) (any, bool) {
	v, ok := g.m.Get(types.String(name))
	if !ok {
		return nil, false
	}
	return FromValue(v), true
}

// Map exposes the underlying *types.Map for CompiledScript.RunSync/RunAsync.
func (g *Globals) Map() *types.Map { return g.m }

// ToValue converts a plain Go value into the Jactl value space (§6). nil
// converts to types.Null. A types.Value passed in is returned unchanged.
func ToValue(v any) (types.Value, error) {
	switch x := v.(type) {
	case nil:
		return types.Null, nil
	case types.Value:
		return x, nil
	case bool:
		return types.Bool(x), nil
	case byte:
		return types.Byte(x), nil
	case int:
		return types.Long(x), nil
	case int32:
		return types.Int(x), nil
	case int64:
		return types.Long(x), nil
	case float64:
		return types.Double(x), nil
	case decimal.Decimal:
		return types.Decimal{D: x}, nil
	case string:
		return types.String(x), nil
	case []any:
		elems := make([]types.Value, len(x))
		for i, e := range x {
			ev, err := ToValue(e)
			if err != nil {
				return nil, err
			}
			elems[i] = ev
		}
		return types.NewList(elems), nil
	case map[string]any:
		m := types.NewMap(len(x))
		for k, e := range x {
			ev, err := ToValue(e)
			if err != nil {
				return nil, err
			}
			if err := m.SetKey(types.String(k), ev); err != nil {
				return nil, err
			}
		}
		return m, nil
	default:
		return nil, fmt.Errorf("jactl: unsupported global value type %T", v)
	}
}

// FromValue converts a Jactl value back into a plain Go value: the inverse
// of ToValue, used by Globals.Get and by a host reading a script's result.
// An *types.Instance is returned as-is (it has no plain Go representation).
func FromValue(v types.Value) any {
	switch x := v.(type) {
	case types.NullType:
		return nil
	case types.Bool:
		return bool(x)
	case types.Byte:
		return byte(x)
	case types.Int:
		return int32(x)
	case types.Long:
		return int64(x)
	case types.Double:
		return float64(x)
	case types.Decimal:
		return x.D
	case types.String:
		return string(x)
	case *types.List:
		out := make([]any, x.Len())
		for i, e := range x.Elems() {
			out[i] = FromValue(e)
		}
		return out
	case *types.Map:
		out := make(map[string]any, x.Len())
		for _, kv := range x.Items() {
			out[fmt.Sprint(FromValue(kv.Key))] = FromValue(kv.Value)
		}
		return out
	default:
		return v
	}
}
