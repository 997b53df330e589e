package ast

import "github.com/jactl-lang/jactl/lang/token"

// Literal represents a constant int/long/double/Decimal/string/bool/null
// literal.
type Literal struct {
	Pos   token.Pos
	Kind  token.Token // INT_LIT, LONG_LIT, DOUBLE_LIT, DECIMAL_LIT, STRING_LIT, TRUE, FALSE, NULL
	Raw   string
	Str   string
	Int   int64
	Float float64
}

func (n *Literal) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *Literal) Walk(Visitor)                 {}
func (n *Literal) expr()                        {}

// Identifier is a bare name reference, resolved to a local/free/predeclared/
// universal binding by the resolver.
type Identifier struct {
	Pos  token.Pos
	Name string
}

func (n *Identifier) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *Identifier) Walk(Visitor)                 {}
func (n *Identifier) expr()                        {}

// CaptureVar is a regex capture-variable reference ($0..$n, §4.5), bound by
// the nearest preceding =~/!~ match in the same lexical region (function,
// closure or switch arm). Unlike Identifier, it names no declared binding:
// the compiler allocates its local slot on demand, keyed by Index.
type CaptureVar struct {
	Pos   token.Pos
	Index int
}

func (n *CaptureVar) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *CaptureVar) Walk(Visitor)                 {}
func (n *CaptureVar) expr()                        {}

// Binop is a binary operator expression.
type Binop struct {
	Pos   token.Pos
	Op    token.Token
	X, Y  Expr
}

func (n *Binop) Span() (token.Pos, token.Pos) { return n.X.Span() }
func (n *Binop) Walk(v Visitor)               { Walk(v, n.X); Walk(v, n.Y) }
func (n *Binop) expr()                        {}

// Unop is a unary prefix operator expression (!, -, +, ~, ++, --).
type Unop struct {
	Pos token.Pos
	Op  token.Token
	X   Expr
}

func (n *Unop) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *Unop) Walk(v Visitor)               { Walk(v, n.X) }
func (n *Unop) expr()                        {}

// PostOp is a postfix ++ or -- expression.
type PostOp struct {
	Pos token.Pos
	Op  token.Token
	X   Expr
}

func (n *PostOp) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *PostOp) Walk(v Visitor)               { Walk(v, n.X) }
func (n *PostOp) expr()                        {}

// Assign represents a simple or compound assignment to an assignable target
// (Identifier, FieldAccess or Index).
type Assign struct {
	Pos    token.Pos
	Op     token.Token // EQ, PLUSEQ, MINUSEQ, ...
	Target Expr
	Value  Expr
}

func (n *Assign) Span() (token.Pos, token.Pos) { return n.Target.Span() }
func (n *Assign) Walk(v Visitor)               { Walk(v, n.Target); Walk(v, n.Value) }
func (n *Assign) expr()                        {}

// CondAssign is "?:=" assignment: assigns Value to Target only if Target is
// currently falsy/null (Elvis-assign).
type CondAssign struct {
	Pos    token.Pos
	Target Expr
	Value  Expr
}

func (n *CondAssign) Span() (token.Pos, token.Pos) { return n.Target.Span() }
func (n *CondAssign) Walk(v Visitor)               { Walk(v, n.Target); Walk(v, n.Value) }
func (n *CondAssign) expr()                        {}

// MultiAssign represents "(a, b) = expr" or "(a, b) = (x, y)".
type MultiAssign struct {
	Pos     token.Pos
	Targets []Expr
	Value   Expr
}

func (n *MultiAssign) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *MultiAssign) Walk(v Visitor) {
	for _, t := range n.Targets {
		Walk(v, t)
	}
	Walk(v, n.Value)
}
func (n *MultiAssign) expr() {}

// Ternary is "cond ? then : else".
type Ternary struct {
	Pos              token.Pos
	Cond, Then, Else Expr
}

func (n *Ternary) Span() (token.Pos, token.Pos) { return n.Cond.Span() }
func (n *Ternary) Walk(v Visitor)               { Walk(v, n.Cond); Walk(v, n.Then); Walk(v, n.Else) }
func (n *Ternary) expr()                        {}

// Elvis is the binary "a ?: b" operator: yields a if truthy/non-null, else b.
type Elvis struct {
	Pos  token.Pos
	X, Y Expr
}

func (n *Elvis) Span() (token.Pos, token.Pos) { return n.X.Span() }
func (n *Elvis) Walk(v Visitor)               { Walk(v, n.X); Walk(v, n.Y) }
func (n *Elvis) expr()                        {}

// Arg is one call argument; Name is non-empty for a named argument.
type Arg struct {
	Name  string
	Value Expr
}

// Call is a function or method call. TrailingClosure holds a closure
// literal passed outside the argument parentheses (or in place of them),
// per spec §4.2.
type Call struct {
	Pos       token.Pos
	Func      Expr
	Args      []Arg
	TrailingClosure *ClosureLit // nil if none
	Rparen    token.Pos
}

func (n *Call) Span() (token.Pos, token.Pos) { return n.Func.Span() }
func (n *Call) Walk(v Visitor) {
	Walk(v, n.Func)
	for _, a := range n.Args {
		Walk(v, a.Value)
	}
	if n.TrailingClosure != nil {
		Walk(v, n.TrailingClosure)
	}
}
func (n *Call) expr() {}

// MethodCall is "recv.name(args)" or the safe-navigation "recv?.name(args)".
type MethodCall struct {
	Pos             token.Pos
	Recv            Expr
	Safe            bool
	Name            string
	Args            []Arg
	TrailingClosure *ClosureLit
}

func (n *MethodCall) Span() (token.Pos, token.Pos) { return n.Recv.Span() }
func (n *MethodCall) Walk(v Visitor) {
	Walk(v, n.Recv)
	for _, a := range n.Args {
		Walk(v, a.Value)
	}
	if n.TrailingClosure != nil {
		Walk(v, n.TrailingClosure)
	}
}
func (n *MethodCall) expr() {}

// FieldAccess is "recv.name" or the safe-navigation "recv?.name".
type FieldAccess struct {
	Pos  token.Pos
	Recv Expr
	Safe bool
	Name string
}

func (n *FieldAccess) Span() (token.Pos, token.Pos) { return n.Recv.Span() }
func (n *FieldAccess) Walk(v Visitor)               { Walk(v, n.Recv) }
func (n *FieldAccess) expr()                        {}

// Index is "recv[idx]" or the safe-navigation "recv?[idx]"; SliceEnd is
// non-nil for the "recv[from:to]" slice form.
type Index struct {
	Pos      token.Pos
	Recv     Expr
	Safe     bool
	Idx      Expr
	SliceEnd Expr // non-nil only for a[x:y]
}

func (n *Index) Span() (token.Pos, token.Pos) { return n.Recv.Span() }
func (n *Index) Walk(v Visitor) {
	Walk(v, n.Recv)
	Walk(v, n.Idx)
	if n.SliceEnd != nil {
		Walk(v, n.SliceEnd)
	}
}
func (n *Index) expr() {}

// NewInstance is "new Class(args)" or "new Class{field: value, ...}"
// (named-constructor form).
type NewInstance struct {
	Pos       token.Pos
	ClassName string
	Args      []Arg
	Named     bool
}

func (n *NewInstance) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *NewInstance) Walk(v Visitor) {
	for _, a := range n.Args {
		Walk(v, a.Value)
	}
}
func (n *NewInstance) expr() {}

// ListLit is "[e1, e2, ...]".
type ListLit struct {
	Pos, Rbrack token.Pos
	Elems       []Expr
}

func (n *ListLit) Span() (token.Pos, token.Pos) { return n.Pos, n.Rbrack }
func (n *ListLit) Walk(v Visitor) {
	for _, e := range n.Elems {
		Walk(v, e)
	}
}
func (n *ListLit) expr() {}

// MapEntry is one "key: value" pair of a MapLit; Key is nil for a
// shorthand "[:]" empty map marker handled specially by the parser.
type MapEntry struct {
	Key, Value Expr
}

// MapLit is "[k1: v1, k2: v2, ...]" or the empty-map literal "[:]".
type MapLit struct {
	Pos, Rbrack token.Pos
	Entries     []MapEntry
}

func (n *MapLit) Span() (token.Pos, token.Pos) { return n.Pos, n.Rbrack }
func (n *MapLit) Walk(v Visitor) {
	for _, e := range n.Entries {
		Walk(v, e.Key)
		Walk(v, e.Value)
	}
}
func (n *MapLit) expr() {}

// ClosureLit is "{ params -> body }" or, with no arrow, an implicit single
// parameter named "it".
type ClosureLit struct {
	Pos, Rbrace token.Pos
	Params      []Param
	Body        *Block
}

func (n *ClosureLit) Span() (token.Pos, token.Pos) { return n.Pos, n.Rbrace }
func (n *ClosureLit) Walk(v Visitor) {
	for _, p := range n.Params {
		if p.Default != nil {
			Walk(v, p.Default)
		}
	}
	Walk(v, n.Body)
}
func (n *ClosureLit) expr() {}

// RegexMatch is "subject =~ /pattern/mods".
type RegexMatch struct {
	Pos          token.Pos
	Subject      Expr
	Pattern      Expr // a StringInterp or Literal carrying the pattern text
	Mods         string
	Negate       bool // true for "!~"
}

func (n *RegexMatch) Span() (token.Pos, token.Pos) { return n.Subject.Span() }
func (n *RegexMatch) Walk(v Visitor)               { Walk(v, n.Subject); Walk(v, n.Pattern) }
func (n *RegexMatch) expr()                        {}

// RegexSubst is "subject =~ s/pattern/replacement/mods".
type RegexSubst struct {
	Pos         token.Pos
	Subject     Expr
	Pattern     Expr
	Replacement Expr
	Mods        string // 'r' present means non-mutating (returns a new value)
}

func (n *RegexSubst) Span() (token.Pos, token.Pos) { return n.Subject.Span() }
func (n *RegexSubst) Walk(v Visitor) {
	Walk(v, n.Subject)
	Walk(v, n.Pattern)
	Walk(v, n.Replacement)
}
func (n *RegexSubst) expr() {}

// StringPart is one piece of an interpolated string: either a literal Text
// chunk, or an embedded Expr (mutually exclusive).
type StringPart struct {
	Text string
	Expr Expr
}

// StringInterp is a (possibly trivial) interpolated string, the AST
// reduction of a STRING_BEGIN/EXPR_BEGIN/.../STRING_END token run.
type StringInterp struct {
	Pos, End token.Pos
	Parts    []StringPart
}

func (n *StringInterp) Span() (token.Pos, token.Pos) { return n.Pos, n.End }
func (n *StringInterp) Walk(v Visitor) {
	for _, p := range n.Parts {
		if p.Expr != nil {
			Walk(v, p.Expr)
		}
	}
}
func (n *StringInterp) expr() {}

// InstanceOf is "x instanceof Type".
type InstanceOf struct {
	Pos      token.Pos
	X        Expr
	TypeName string
	Negate   bool
}

func (n *InstanceOf) Span() (token.Pos, token.Pos) { return n.X.Span() }
func (n *InstanceOf) Walk(v Visitor)               { Walk(v, n.X) }
func (n *InstanceOf) expr()                        {}

// In is "x in y" / "x not in y".
type In struct {
	Pos    token.Pos
	X, Y   Expr
	Negate bool
}

func (n *In) Span() (token.Pos, token.Pos) { return n.X.Span() }
func (n *In) Walk(v Visitor)               { Walk(v, n.X); Walk(v, n.Y) }
func (n *In) expr()                        {}

// As is "x as Type", an explicit conversion that is less strict than Cast.
type As struct {
	Pos      token.Pos
	X        Expr
	TypeName string
}

func (n *As) Span() (token.Pos, token.Pos) { return n.X.Span() }
func (n *As) Walk(v Visitor)               { Walk(v, n.X) }
func (n *As) expr()                        {}

// Cast is "(Type) x", a narrowing conversion that errors at runtime if x is
// not compatible.
type Cast struct {
	Pos      token.Pos
	TypeName string
	X        Expr
}

func (n *Cast) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *Cast) Walk(v Visitor)               { Walk(v, n.X) }
func (n *Cast) expr()                        {}

// Eval is "eval(sourceExpr[, globalsExpr])", re-entering the compile
// pipeline at runtime.
type Eval struct {
	Pos      token.Pos
	Source   Expr
	Globals  Expr // nil if absent
}

func (n *Eval) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *Eval) Walk(v Visitor) {
	Walk(v, n.Source)
	if n.Globals != nil {
		Walk(v, n.Globals)
	}
}
func (n *Eval) expr() {}

// Paren is a parenthesized expression, kept as its own node only so that
// Span() reports the full "(...)" extent; it carries no other semantics.
type Paren struct {
	Pos, Rparen token.Pos
	X           Expr
}

func (n *Paren) Span() (token.Pos, token.Pos) { return n.Pos, n.Rparen }
func (n *Paren) Walk(v Visitor)               { Walk(v, n.X) }
func (n *Paren) expr()                        {}

// Bad is a placeholder inserted by the parser at a syntax error, allowing
// the walk to continue without a nil child.
type Bad struct {
	Pos, EndPos token.Pos
}

func (n *Bad) Span() (token.Pos, token.Pos) { return n.Pos, n.EndPos }
func (n *Bad) Walk(Visitor)                 {}
func (n *Bad) expr()                        {}
func (n *Bad) stmt()                        {}
