package types

import (
	"fmt"
	"strings"

	"github.com/dolthub/swiss"
)

// List is Jactl's ordered sequence type (§3.4).
type List struct {
	elems []Value
}

func NewList(elems []Value) *List { return &List{elems: elems} }

func (l *List) Tag() Tag { return LIST }
func (l *List) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range l.elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		if s, ok := e.(String); ok {
			fmt.Fprintf(&sb, "%q", string(s))
		} else {
			sb.WriteString(e.String())
		}
	}
	sb.WriteByte(']')
	return sb.String()
}
func (l *List) Truth() bool { return len(l.elems) != 0 }
func (l *List) Len() int    { return len(l.elems) }

func (l *List) normalizeIndex(i int) (int, error) {
	n := len(l.elems)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index out of bounds: %d", i)
	}
	return i, nil
}

func (l *List) Index(i int) (Value, error) {
	idx, err := l.normalizeIndex(i)
	if err != nil {
		return nil, err
	}
	return l.elems[idx], nil
}

func (l *List) SetIndex(i int, v Value) error {
	// Auto-vivification (§4.5) extends the list with nulls up to i when i is
	// at or past the current length; an out-of-range negative index is an
	// error, matching Sliceable semantics for reads.
	if i >= 0 && i >= len(l.elems) {
		for len(l.elems) <= i {
			l.elems = append(l.elems, Null)
		}
		l.elems[i] = v
		return nil
	}
	idx, err := l.normalizeIndex(i)
	if err != nil {
		return err
	}
	l.elems[idx] = v
	return nil
}

func (l *List) Slice(from, to int) (Value, error) {
	n := len(l.elems)
	if from < 0 {
		from += n
	}
	if to < 0 {
		to += n
	}
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	if from > to {
		return NewList(nil), nil
	}
	out := make([]Value, to-from)
	copy(out, l.elems[from:to])
	return NewList(out), nil
}

func (l *List) Append(v Value) { l.elems = append(l.elems, v) }
func (l *List) Elems() []Value { return l.elems }

func (l *List) Iterate() Iterator { return &listIterator{elems: l.elems} }

type listIterator struct {
	elems []Value
	pos   int
}

func (it *listIterator) Next() (Value, bool, error) {
	if it.pos >= len(it.elems) {
		return nil, false, nil
	}
	v := it.elems[it.pos]
	it.pos++
	return v, true, nil
}

func (l *List) Cmp(y Value, depth int) (int, error) {
	other, ok := y.(*List)
	if !ok {
		return 0, typeMismatch("<=>", l, y)
	}
	if depth < 1 {
		return 0, fmt.Errorf("comparison depth exceeded (cyclic value?)")
	}
	n := len(l.elems)
	if len(other.elems) < n {
		n = len(other.elems)
	}
	for i := 0; i < n; i++ {
		c, err := Compare(l.elems[i], other.elems[i], depth-1)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
	}
	return len(l.elems) - len(other.elems), nil
}

// Map is Jactl's insertion-ordered mapping type (§3.4). Keys are compared
// structurally (not by Go interface identity), so entries are indexed by a
// canonical hash key computed from each key's structural encoding (see
// hashKey in equality.go); swiss.Map supplies O(1) lookup on that string
// key, nenuphar's own choice of hash-index library for its Map, adapted
// here because the teacher's own Map.Iterate is an unimplemented stub that
// does not preserve insertion order, which Jactl's Map must.
type Map struct {
	entries *swiss.Map[string, KV] // hash key -> key/value pair
	order   []string               // hash keys in insertion order
}

func NewMap(size int) *Map {
	return &Map{entries: swiss.NewMap[string, KV](uint32(size))}
}

func (m *Map) Tag() Tag { return MAP }
func (m *Map) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	if len(m.order) == 0 {
		sb.WriteByte(':')
	}
	for i, hk := range m.order {
		if i > 0 {
			sb.WriteString(", ")
		}
		kv, _ := m.entries.Get(hk)
		if s, ok := kv.Key.(String); ok {
			fmt.Fprintf(&sb, "%q", string(s))
		} else {
			sb.WriteString(kv.Key.String())
		}
		sb.WriteString(": ")
		sb.WriteString(kv.Value.String())
	}
	sb.WriteByte(']')
	return sb.String()
}
func (m *Map) Truth() bool { return len(m.order) != 0 }
func (m *Map) Len() int    { return len(m.order) }

func (m *Map) Get(k Value) (Value, bool) {
	hk := hashKey(k)
	kv, ok := m.entries.Get(hk)
	if !ok {
		return nil, false
	}
	return kv.Value, true
}

func (m *Map) SetKey(k, v Value) error {
	hk := hashKey(k)
	if !m.entries.Has(hk) {
		m.order = append(m.order, hk)
	}
	m.entries.Put(hk, KV{Key: k, Value: v})
	return nil
}

func (m *Map) Delete(k Value) {
	hk := hashKey(k)
	if !m.entries.Has(hk) {
		return
	}
	m.entries.Delete(hk)
	for i, o := range m.order {
		if o == hk {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Map) Items() []KV {
	items := make([]KV, len(m.order))
	for i, hk := range m.order {
		kv, _ := m.entries.Get(hk)
		items[i] = kv
	}
	return items
}

func (m *Map) Iterate() Iterator { return &mapIterator{items: m.Items()} }

type mapIterator struct {
	items []KV
	pos   int
}

func (it *mapIterator) Next() (Value, bool, error) {
	if it.pos >= len(it.items) {
		return nil, false, nil
	}
	kv := it.items[it.pos]
	it.pos++
	return NewList([]Value{kv.Key, kv.Value}), true, nil
}

// Cmp/equality for Map is key-set equality with per-key value equality,
// order-insensitive, per the spec's §9 open-question resolution.
func (m *Map) equalsMap(other *Map, depth int) (bool, error) {
	if len(m.order) != len(other.order) {
		return false, nil
	}
	for _, hk := range m.order {
		kv, _ := m.entries.Get(hk)
		ov, ok := other.entries.Get(hk)
		if !ok {
			return false, nil
		}
		eq, err := Equal(kv.Value, ov.Value, depth-1)
		if err != nil {
			return false, err
		}
		if !eq {
			return false, nil
		}
	}
	return true, nil
}
