package types

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// String is a sequence of Unicode code points, indexable via negative
// offsets (-1 meaning the last code point), per spec §3.4.
type String string

func (String) Tag() Tag          { return STRING }
func (s String) String() string  { return string(s) }
func (s String) Truth() bool     { return len(s) != 0 }

// runes lazily materializes the code-point slice for indexing; callers that
// only need Len should prefer utf8.RuneCountInString to avoid the
// allocation.
func (s String) runes() []rune { return []rune(string(s)) }

func (s String) Len() int { return utf8.RuneCountInString(string(s)) }

func (s String) normalizeIndex(i int) (int, error) {
	n := s.Len()
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index out of bounds: %d", i)
	}
	return i, nil
}

func (s String) Index(i int) (Value, error) {
	idx, err := s.normalizeIndex(i)
	if err != nil {
		return nil, err
	}
	return String(string(s.runes()[idx])), nil
}

func (s String) Slice(from, to int) (Value, error) {
	rs := s.runes()
	n := len(rs)
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
		return String(""), nil
	}
	return String(string(rs[from:to])), nil
}

func (s String) Iterate() Iterator { return &stringIterator{runes: s.runes()} }

type stringIterator struct {
	runes []rune
	pos   int
}

func (it *stringIterator) Next() (Value, bool, error) {
	if it.pos >= len(it.runes) {
		return nil, false, nil
	}
	r := it.runes[it.pos]
	it.pos++
	return String(string(r)), true, nil
}

func (s String) Cmp(y Value, depth int) (int, error) {
	other, ok := y.(String)
	if !ok {
		return 0, typeMismatch("<=>", s, y)
	}
	return strings.Compare(string(s), string(other)), nil
}

// Concat implements the '+' operator for strings, which also accepts any
// Value on the right via its toString() representation.
func (s String) Concat(y Value) String {
	return s + String(y.String())
}

// ToInt converts a one-character string to its Unicode code point, per
// spec §4.1 ("cast to int yields code point"); a string of any other length
// is an error.
func (s String) ToInt() (int32, error) {
	rs := s.runes()
	if len(rs) != 1 {
		return 0, fmt.Errorf("cannot cast string of length %d to int", len(rs))
	}
	return rs[0], nil
}
