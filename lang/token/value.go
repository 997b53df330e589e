package token

// Value carries the literal payload of a scanned token alongside its kind
// and position. Only the fields relevant to Token are meaningful.
type Value struct {
	Pos    Pos
	Raw    string // the exact source text of the lexeme
	String string // decoded value of a STRING_LIT/STRING_BEGIN/STRING_END
	Int    int64  // decoded value of an INT_LIT or LONG_LIT
	Double float64
	Mods   string // regex modifiers (i m s g n r) following a pattern string
}
