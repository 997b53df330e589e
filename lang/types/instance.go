package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldDef describes one field of a ClassDef, in declaration order (§3.5).
type FieldDef struct {
	Name     string
	Type     Tag
	Const    bool
	HasInit  bool
	Init     Value // only meaningful when Const is true; const fields fold into callers
}

// ClassDef is the compiler-produced description of a user class (§3.5).
// Classes are never constructed by user code directly: the compiler
// synthesizes the positional and named constructors described below from
// the field list.
type ClassDef struct {
	ID       string // fully-qualified class id, e.g. "pkg.Name"
	Package  string
	Name     string
	Parent   *ClassDef
	Fields   []FieldDef
	Methods  map[string]*Function
	Statics  map[string]*Function

	// VersionDigest is compared against a checkpoint's recorded digest on
	// restore (§4.7); a mismatch is a non-recoverable RESTORE_ERROR.
	VersionDigest string
}

// allFields returns Fields including inherited ones, parent-first, so that
// positional-constructor argument order matches declaration order across
// the inheritance chain.
func (c *ClassDef) allFields() []FieldDef {
	if c.Parent == nil {
		return c.Fields
	}
	return append(append([]FieldDef{}, c.Parent.allFields()...), c.Fields...)
}

func (c *ClassDef) mandatoryFields() []FieldDef {
	var out []FieldDef
	for _, f := range c.allFields() {
		if !f.Const && !f.HasInit {
			out = append(out, f)
		}
	}
	return out
}

func (c *ClassDef) fieldIndex(name string) int {
	for i, f := range c.allFields() {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Instance is a runtime object of some ClassDef (§3.4 INSTANCE tag).
type Instance struct {
	Class  *ClassDef
	Values map[string]Value
}

// NewPositional builds an Instance via the implicit positional constructor:
// one argument per mandatory field, in declaration order (§3.5).
func NewPositional(c *ClassDef, args []Value) (*Instance, error) {
	mandatory := c.mandatoryFields()
	if len(args) != len(mandatory) {
		return nil, fmt.Errorf("arity error: %s expects %d positional argument(s), got %d", c.Name, len(mandatory), len(args))
	}
	inst := &Instance{Class: c, Values: make(map[string]Value, len(c.allFields()))}
	for _, f := range c.allFields() {
		if f.HasInit {
			inst.Values[f.Name] = f.Init
		} else if !f.Const {
			// placeholder until the positional loop below fills it in
			inst.Values[f.Name] = Null
		}
	}
	for i, f := range mandatory {
		inst.Values[f.Name] = args[i]
	}
	return inst, nil
}

// NewNamed builds an Instance via the implicit named constructor: a Map
// from field name to value; unset fields keep their declared default (or
// null if none) and unknown keys are an error.
func NewNamed(c *ClassDef, named map[string]Value) (*Instance, error) {
	inst := &Instance{Class: c, Values: make(map[string]Value, len(c.allFields()))}
	for _, f := range c.allFields() {
		if f.HasInit {
			inst.Values[f.Name] = f.Init
		} else {
			inst.Values[f.Name] = Null
		}
	}
	for k, v := range named {
		if c.fieldIndex(k) < 0 {
			return nil, NoSuchAttrError(k)
		}
		inst.Values[k] = v
	}
	return inst, nil
}

func (i *Instance) Tag() Tag { return INSTANCE }

func (i *Instance) String() string {
	var sb strings.Builder
	sb.WriteString(i.Class.Name)
	sb.WriteByte('(')
	for idx, f := range i.Class.allFields() {
		if idx > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%s", f.Name, i.Values[f.Name].String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func (i *Instance) Truth() bool { return true }

func (i *Instance) Attr(name string) (Value, error) {
	if v, ok := i.Values[name]; ok {
		return v, nil
	}
	if m, ok := i.Class.Methods[name]; ok {
		return &Function{Proto: m.Proto, Native: m.Native, Captured: m.Captured, Bound: i}, nil
	}
	return nil, NoSuchAttrError(name)
}

func (i *Instance) SetField(name string, v Value) error {
	if i.fieldIsConst(name) {
		return fmt.Errorf("cannot assign to const field %q", name)
	}
	if _, ok := i.Values[name]; !ok {
		return NoSuchAttrError(name)
	}
	i.Values[name] = v
	return nil
}

func (i *Instance) fieldIsConst(name string) bool {
	for _, f := range i.Class.allFields() {
		if f.Name == name {
			return f.Const
		}
	}
	return false
}

func (i *Instance) AttrNames() []string {
	names := make([]string, 0, len(i.Values)+len(i.Class.Methods))
	for _, f := range i.Class.allFields() {
		names = append(names, f.Name)
	}
	for name := range i.Class.Methods {
		names = append(names, name)
	}
	return names
}

// Cmp/equals: structural, across all fields in declaration order (§3.5,
// "auto-derive structural hash/equals across all fields").
func (i *Instance) equals(other *Instance, depth int) (bool, error) {
	if i.Class != other.Class {
		return false, nil
	}
	for _, f := range i.Class.allFields() {
		eq, err := Equal(i.Values[f.Name], other.Values[f.Name], depth-1)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// ToJSON renders the instance as a JSON object keyed by field name, the
// auto-generated toJson() behaviour of §3.5. Values are converted through
// toJSONValue so nested List/Map/Instance values marshal structurally
// rather than via %v formatting.
func (i *Instance) ToJSON() ([]byte, error) {
	obj := make(map[string]interface{}, len(i.Class.allFields()))
	for _, f := range i.Class.allFields() {
		obj[f.Name] = toJSONValue(i.Values[f.Name])
	}
	return json.Marshal(obj)
}

// FromJSON implements the auto-generated fromJson() constructor: parses a
// JSON object and builds an Instance via the named constructor, so missing
// keys fall back to field defaults exactly as NewNamed does.
func FromJSON(c *ClassDef, data []byte) (*Instance, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("fromJson: %w", err)
	}
	named := make(map[string]Value, len(raw))
	for _, f := range c.allFields() {
		msg, ok := raw[f.Name]
		if !ok {
			continue
		}
		v, err := fromJSONValue(msg, f.Type)
		if err != nil {
			return nil, fmt.Errorf("fromJson: field %q: %w", f.Name, err)
		}
		named[f.Name] = v
	}
	return NewNamed(c, named)
}

func toJSONValue(v Value) interface{} {
	switch x := v.(type) {
	case NullType:
		return nil
	case Bool:
		return bool(x)
	case Byte:
		return uint8(x)
	case Int:
		return int32(x)
	case Long:
		return int64(x)
	case Double:
		return float64(x)
	case Decimal:
		return x.D.String()
	case String:
		return string(x)
	case *List:
		out := make([]interface{}, len(x.elems))
		for idx, e := range x.elems {
			out[idx] = toJSONValue(e)
		}
		return out
	case *Map:
		out := make(map[string]interface{}, x.Len())
		for _, kv := range x.Items() {
			out[kv.Key.String()] = toJSONValue(kv.Value)
		}
		return out
	case *Instance:
		obj := make(map[string]interface{}, len(x.Class.allFields()))
		for _, f := range x.Class.allFields() {
			obj[f.Name] = toJSONValue(x.Values[f.Name])
		}
		return obj
	default:
		return v.String()
	}
}

func fromJSONValue(msg json.RawMessage, hint Tag) (Value, error) {
	var any interface{}
	if err := json.Unmarshal(msg, &any); err != nil {
		return nil, err
	}
	return valueFromAny(any, hint), nil
}

func valueFromAny(any interface{}, hint Tag) Value {
	switch v := any.(type) {
	case nil:
		return Null
	case bool:
		return Bool(v)
	case float64:
		switch hint {
		case LONG:
			return Long(int64(v))
		case DOUBLE:
			return Double(v)
		case BYTE:
			return Byte(uint8(v))
		default:
			return Int(int32(v))
		}
	case string:
		return String(v)
	case []interface{}:
		elems := make([]Value, len(v))
		for i, e := range v {
			elems[i] = valueFromAny(e, ANY)
		}
		return NewList(elems)
	case map[string]interface{}:
		m := NewMap(len(v))
		for k, e := range v {
			m.SetKey(String(k), valueFromAny(e, ANY))
		}
		return m
	default:
		return Null
	}
}
