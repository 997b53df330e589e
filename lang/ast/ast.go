// Package ast defines Jactl's abstract syntax tree: two discriminated
// unions, Stmt and Expr, produced by lang/parser and consumed by
// lang/resolver.
package ast

import "github.com/jactl-lang/jactl/lang/token"

// Node is implemented by every statement and expression node.
type Node interface {
	// Span reports the node's start and end byte offsets in its source.
	Span() (start, end token.Pos)

	// Walk enters each direct child node in source order.
	Walk(v Visitor)
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmt()
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	expr()
}

// Script is the root node of one parsed compilation unit: an optional
// package declaration, zero or more imports, zero or more class
// declarations, and the top-level statements that form the script body (or
// none at all for a file containing only class declarations).
type Script struct {
	Name    string // source name, e.g. a file path or "<eval>"
	Package *Package
	Imports []*Import
	Classes []*ClassDecl
	Body    *Block
	EOF     token.Pos
}

func (n *Script) Span() (token.Pos, token.Pos) {
	if n.Body != nil {
		return n.Body.Span()
	}
	return n.EOF, n.EOF
}
func (n *Script) Walk(v Visitor) {
	if n.Package != nil {
		Walk(v, n.Package)
	}
	for _, im := range n.Imports {
		Walk(v, im)
	}
	for _, c := range n.Classes {
		Walk(v, c)
	}
	if n.Body != nil {
		Walk(v, n.Body)
	}
}

// Package represents the optional leading "package pkg.name" declaration.
type Package struct {
	Pos  token.Pos
	Name string
}

func (n *Package) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *Package) Walk(Visitor)                 {}
func (n *Package) stmt()                        {}

// Import represents "import pkg.Class [as Alias]" or a static/star variant.
type Import struct {
	Pos    token.Pos
	Path   []string // dotted package/class path components
	Static bool
	Star   bool
	Alias  string // empty if none
}

func (n *Import) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *Import) Walk(Visitor)                 {}
func (n *Import) stmt()                        {}

// Block is a sequence of statements delimited by '{' '}' (or the top level
// of a script/chunk).
type Block struct {
	Lbrace, Rbrace token.Pos
	Stmts          []Stmt
}

func (n *Block) Span() (token.Pos, token.Pos) { return n.Lbrace, n.Rbrace }
func (n *Block) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}
func (n *Block) stmt() {}
func (n *Block) expr() {} // a Block doubles as the body of a `do { }` expression

// Param describes one declared function/method/closure parameter.
type Param struct {
	Pos         token.Pos
	Name        string
	Type        string // source-level type name, "" means inferred/ANY
	Default     Expr   // nil if no default
	AsyncParam  bool
	VarArgs     bool // true for a trailing "...name" parameter
}

// FuncDecl represents a named function or method declaration, e.g.
// "int fib(int x) { ... }".
type FuncDecl struct {
	Pos        token.Pos
	ReturnType string
	Name       string
	Params     []Param
	Body       *Block
	Static     bool
	IsClosure  bool // true when parsed as a closure literal bound to a name
}

func (n *FuncDecl) Span() (token.Pos, token.Pos) { return n.Pos, n.Body.Rbrace }
func (n *FuncDecl) Walk(v Visitor) {
	for _, p := range n.Params {
		if p.Default != nil {
			Walk(v, p.Default)
		}
	}
	Walk(v, n.Body)
}
func (n *FuncDecl) stmt() {}

// VarDecl declares one or more "var"/"def"/typed local variables, optionally
// with initializers, e.g. "int a = 1, b = 2" or "var (a, b) = [1,2]".
type VarDecl struct {
	Pos     token.Pos
	Type    string // "var", "def", or a primitive/class type name
	Names   []string
	Inits   []Expr // parallel to Names; nil entry means no initializer
}

func (n *VarDecl) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *VarDecl) Walk(v Visitor) {
	for _, e := range n.Inits {
		if e != nil {
			Walk(v, e)
		}
	}
}
func (n *VarDecl) stmt() {}

// ConstDecl declares one const binding, e.g. "const PI = 3.14159".
type ConstDecl struct {
	Pos  token.Pos
	Name string
	Init Expr
}

func (n *ConstDecl) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *ConstDecl) Walk(v Visitor)               { Walk(v, n.Init) }
func (n *ConstDecl) stmt()                        {}

// Field describes one declared class field.
type Field struct {
	Pos     token.Pos
	Type    string
	Name    string
	Const   bool
	Static  bool // only valid combined with Const (§3.5 "no mutable static fields")
	Default Expr
}

// ClassDecl represents a class declaration.
type ClassDecl struct {
	Pos        token.Pos
	Name       string
	Extends    string // "" if none
	Implements []string
	Fields     []Field
	Methods    []*FuncDecl
	Statics    []*FuncDecl
	Rbrace     token.Pos
}

func (n *ClassDecl) Span() (token.Pos, token.Pos) { return n.Pos, n.Rbrace }
func (n *ClassDecl) Walk(v Visitor) {
	for _, f := range n.Fields {
		if f.Default != nil {
			Walk(v, f.Default)
		}
	}
	for _, m := range n.Methods {
		Walk(v, m)
	}
	for _, m := range n.Statics {
		Walk(v, m)
	}
}
func (n *ClassDecl) stmt() {}

// If represents "if (cond) then [else elseStmt]"; UnlessCond is true when
// parsed from a postfix "stmt unless cond" or "unless (cond) ...".
type If struct {
	Pos        token.Pos
	Cond       Expr
	UnlessCond bool
	Then       Stmt
	Else       Stmt // nil if absent
}

func (n *If) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *If) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Then)
	if n.Else != nil {
		Walk(v, n.Else)
	}
}
func (n *If) stmt() {}

// For represents a C-style "for (init; cond; update) body".
type For struct {
	Pos    token.Pos
	Init   Stmt // nil if absent
	Cond   Expr // nil if absent
	Update Stmt // nil if absent
	Body   Stmt
	Label  string
}

func (n *For) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *For) Walk(v Visitor) {
	if n.Init != nil {
		Walk(v, n.Init)
	}
	if n.Cond != nil {
		Walk(v, n.Cond)
	}
	if n.Update != nil {
		Walk(v, n.Update)
	}
	Walk(v, n.Body)
}
func (n *For) stmt() {}

// ForIn represents "for (x in iterable) body".
type ForIn struct {
	Pos      token.Pos
	VarName  string
	Iterable Expr
	Body     Stmt
	Label    string
}

func (n *ForIn) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *ForIn) Walk(v Visitor) {
	Walk(v, n.Iterable)
	Walk(v, n.Body)
}
func (n *ForIn) stmt() {}

// While represents "while (cond) body".
type While struct {
	Pos   token.Pos
	Cond  Expr
	Body  Stmt
	Label string
}

func (n *While) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *While) Walk(v Visitor)               { Walk(v, n.Cond); Walk(v, n.Body) }
func (n *While) stmt()                        {}

// DoUntil represents "do body while/until (cond)".
type DoUntil struct {
	Pos   token.Pos
	Body  Stmt
	Cond  Expr
	Until bool // true for "until", false for "while"
}

func (n *DoUntil) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *DoUntil) Walk(v Visitor)               { Walk(v, n.Body); Walk(v, n.Cond) }
func (n *DoUntil) stmt()                        {}

// Return represents "return [expr]".
type Return struct {
	Pos   token.Pos
	Value Expr // nil if bare return
}

func (n *Return) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *Return) Walk(v Visitor) {
	if n.Value != nil {
		Walk(v, n.Value)
	}
}
func (n *Return) stmt() {}

// Break represents "break [label]".
type Break struct {
	Pos   token.Pos
	Label string
}

func (n *Break) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *Break) Walk(Visitor)                 {}
func (n *Break) stmt()                        {}

// Continue represents "continue [label]".
type Continue struct {
	Pos   token.Pos
	Label string
}

func (n *Continue) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *Continue) Walk(Visitor)                 {}
func (n *Continue) stmt()                        {}

// Die represents "die expr", which at runtime raises a USER_DIE error.
type Die struct {
	Pos   token.Pos
	Value Expr
}

func (n *Die) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *Die) Walk(v Visitor)               { Walk(v, n.Value) }
func (n *Die) stmt()                        {}

// ExprStmt wraps an expression used as a statement.
type ExprStmt struct {
	X Expr
}

func (n *ExprStmt) Span() (token.Pos, token.Pos) { return n.X.Span() }
func (n *ExprStmt) Walk(v Visitor)               { Walk(v, n.X) }
func (n *ExprStmt) stmt()                        {}

// SwitchCase is one arm of a Switch: Patterns holds the comma-separated
// alternative patterns (as expressions; binding variables and wildcards are
// IdentExprs the resolver reinterprets), Guard is an optional "if cond"
// clause, and Body is the arm's result expression/statement.
type SwitchCase struct {
	Pos      token.Pos
	Patterns []Expr // empty means "default"
	Guard    Expr   // nil if absent
	Body     Stmt
}

// Switch represents both the statement and expression form of switch; as an
// expression its value is the matched arm's Body value.
type Switch struct {
	Pos     token.Pos
	Subject Expr
	Cases   []SwitchCase
	Rbrace  token.Pos
}

func (n *Switch) Span() (token.Pos, token.Pos) { return n.Pos, n.Rbrace }
func (n *Switch) Walk(v Visitor) {
	Walk(v, n.Subject)
	for _, c := range n.Cases {
		for _, p := range c.Patterns {
			Walk(v, p)
		}
		if c.Guard != nil {
			Walk(v, c.Guard)
		}
		Walk(v, c.Body)
	}
}
func (n *Switch) stmt() {}
func (n *Switch) expr() {}
