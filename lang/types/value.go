// Package types implements Jactl's runtime value model: a single tagged
// union (§3.4) plus the small set of optional capability interfaces a value
// may implement, in the spirit of nenuphar's lang/types value hierarchy
// (Value/Ordered/Iterable/Indexable/HasBinary/HasAttrs/...), adapted from
// Starlark-flavoured semantics to Jactl's numeric tower, structural
// equality and dynamic dispatch rules.
package types

import "github.com/jactl-lang/jactl/lang/token"

// Tag discriminates the runtime value kinds named in spec §3.3.
type Tag int8

const (
	NULL Tag = iota
	BOOLEAN
	BYTE
	INT
	LONG
	DOUBLE
	DECIMAL
	STRING
	LIST
	MAP
	ITERATOR
	INSTANCE
	FUNCTION
	// ANY/NUMBER/VOID/UNKNOWN are declared-type markers used by the resolver's
	// static type model (§3.3); no value of this package reports these as its
	// Tag (lang/vm's internal cell box reports ANY).
	ANY
	NUMBER
	VOID
	UNKNOWN
)

func (t Tag) String() string {
	switch t {
	case NULL:
		return "null"
	case BOOLEAN:
		return "boolean"
	case BYTE:
		return "byte"
	case INT:
		return "int"
	case LONG:
		return "long"
	case DOUBLE:
		return "double"
	case DECIMAL:
		return "Decimal"
	case STRING:
		return "String"
	case LIST:
		return "List"
	case MAP:
		return "Map"
	case ITERATOR:
		return "Iterator"
	case INSTANCE:
		return "Instance"
	case FUNCTION:
		return "Function"
	case ANY:
		return "def"
	case NUMBER:
		return "Number"
	case VOID:
		return "void"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether t is one of the concrete numeric kinds.
func (t Tag) IsNumeric() bool {
	switch t {
	case BYTE, INT, LONG, DOUBLE, DECIMAL:
		return true
	default:
		return false
	}
}

// Value is implemented by every runtime value the VM can hold on its
// operand stack or in a local slot.
type Value interface {
	// Tag returns the value's runtime kind.
	Tag() Tag
	// String returns the value's toString() representation.
	String() string
	// Truth implements the truthiness rules of spec §4.5.
	Truth() bool
}

// Ordered is implemented by values comparable with <=> (and consequently
// < > <= >=): numbers of any numeric kind against each other, strings
// against strings, and user values whose class defines a natural ordering.
type Ordered interface {
	Value
	// Cmp returns -1, 0 or +1 comparing the receiver to y. depth guards
	// against cyclic structures in compound values and must be decremented
	// by recursive callers.
	Cmp(y Value, depth int) (int, error)
}

// Iterable abstracts any value that can produce an Iterator: List, Map,
// String and ITERATOR-chains built by map/filter/etc.
type Iterable interface {
	Value
	Iterate() Iterator
}

// Sequence is an Iterable of statically known length.
type Sequence interface {
	Iterable
	Len() int
}

// Indexable supports x[i] read access.
type Indexable interface {
	Value
	Index(i int) (Value, error)
	Len() int
}

// Sliceable supports x[from:to].
type Sliceable interface {
	Indexable
	Slice(from, to int) (Value, error)
}

// HasSetIndex supports x[i] = v.
type HasSetIndex interface {
	Indexable
	SetIndex(i int, v Value) error
}

// Iterator yields one element at a time. Next returns an error alongside
// the element; the VM's ITERJMP handler reports any such error as a runtime
// error. Next does not suspend.
type Iterator interface {
	// Next reports whether another element is available; if so it is
	// returned. Calling Next after it has returned false is an error.
	Next() (Value, bool, error)
}

// Mapping is implemented by Map; user INSTANCE values do not implement it
// (their fields are reached through HasAttrs).
type Mapping interface {
	Value
	Get(key Value) (v Value, found bool)
}

// IterableMapping additionally supports enumeration, preserving Map's
// insertion order (§3.4).
type IterableMapping interface {
	Mapping
	Iterate() Iterator
	Items() []KV
}

// KV is one key/value pair, used by Map.Items and by the checkpoint codec.
type KV struct {
	Key   Value
	Value Value
}

// HasSetKey supports x[k] = v on a Mapping.
type HasSetKey interface {
	Mapping
	SetKey(k, v Value) error
}

// Side indicates which operand position a HasBinary receiver occupies.
type Side bool

const (
	Left  Side = false
	Right Side = true
)

// HasBinary is implemented by values participating in the numeric tower's
// binary operators.
type HasBinary interface {
	Value
	Binary(op token.Token, y Value, side Side) (Value, error, bool) // ok=false means "does not apply"
}

// HasUnary is implemented by values supporting unary +, -, ~.
type HasUnary interface {
	Value
	Unary(op token.Token) (Value, error, bool)
}

// HasAttrs is implemented by INSTANCE values (field/method access via '.').
type HasAttrs interface {
	Value
	Attr(name string) (Value, error)
	AttrNames() []string
}

// HasSetField supports x.f = v on a HasAttrs value.
type HasSetField interface {
	HasAttrs
	SetField(name string, v Value) error
}

// NoSuchAttrError is returned by Attr/SetField when name does not exist.
type NoSuchAttrError string

func (e NoSuchAttrError) Error() string { return "no such field or method: " + string(e) }
