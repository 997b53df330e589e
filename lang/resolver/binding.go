package resolver

import (
	"fmt"

	"github.com/jactl-lang/jactl/lang/ast"
	"github.com/jactl-lang/jactl/lang/types"
)

// Scope indicates what kind of binding an identifier resolves to (§4.3).
type Scope uint8

const (
	Undefined   Scope = iota // name is not defined
	Local                    // local to its function
	Cell                     // function-local but captured by a nested closure
	Free                     // a cell of some enclosing function
	Predeclared              // provided to this CompilationContext's globals
	Universal                // a language built-in
)

var scopeNames = [...]string{
	Undefined:   "undefined",
	Local:       "local",
	Cell:        "cell",
	Free:        "free",
	Predeclared: "predeclared",
	Universal:   "universal",
}

func (s Scope) String() string {
	if int(s) >= len(scopeNames) {
		return fmt.Sprintf("<invalid Scope %d>", s)
	}
	return scopeNames[s]
}

// Binding ties together every Identifier that denotes the same variable.
type Binding struct {
	Scope Scope
	// Index is this binding's slot within the enclosing function's Locals
	// (Scope==Local or Cell) or FreeVars (Scope==Free). Unused otherwise.
	Index int
	Name  string
	Decl  *ast.Identifier // nil for synthesized bindings (e.g. loop variables)
	Const bool

	// ConstValue holds the folded value of a const binding (§4.3 item 4),
	// nil if not a const or not foldable.
	ConstValue types.Value

	// Mutated/Captured drive the closure capture/escape analysis (§4.3
	// item 7): Captured is set the moment a nested function reads or
	// writes this binding, which is also when Scope flips from Local to
	// Cell; Mutated is set by any assignment target, const bindings aside.
	Mutated  bool
	Captured bool

	// IsFunc marks a binding introduced by a FuncDecl statement, so the
	// async fixed-point pass (§4.3 item 5) can tell a direct call to a
	// known function apart from a call through an arbitrary variable
	// (which may hold a closure and is conservatively treated as async).
	IsFunc bool
}

// Function is the resolver's per-function-body bookkeeping: one instance
// per FuncDecl, ClosureLit, and the implicit top-level script function.
type Function struct {
	Definition ast.Node // *ast.Script, *ast.FuncDecl or *ast.ClosureLit
	Name       string
	IsMethod   bool
	Class      *ClassInfo

	Locals   []*Binding // parameters first, then locals, in declaration order
	FreeVars []*Binding // enclosing cells captured by this function

	HasVarArg     bool
	AsyncParams   map[string]bool // parameter name -> declared asyncParam
	AsyncInstance bool            // method declared asyncInstance (§4.3 item 5)

	// Async propagation state (§4.3 item 5).
	Async         bool
	AsyncFixed    bool // true once the fixed-point pass has settled this function
	directAsync   bool // calls a host-registered async descriptor directly
	callsDynamic  bool // makes an indirect/dynamic call, conservatively async
	calls         []*Function
}

// ClassInfo is the resolver's view of a declared class (§3.5), enough to
// validate field/method references and to build the ClassDef the compiler
// emits.
type ClassInfo struct {
	Name    string
	Decl    *ast.ClassDecl
	Parent  *ClassInfo
	Fields  map[string]*ast.Field
	Methods map[string]*Function
	Statics map[string]*Function
}

func (c *ClassInfo) lookupField(name string) (*ast.Field, *ClassInfo) {
	for cur := c; cur != nil; cur = cur.Parent {
		if f, ok := cur.Fields[name]; ok {
			return f, cur
		}
	}
	return nil, nil
}

func (c *ClassInfo) lookupMethod(name string) (*Function, *ClassInfo) {
	for cur := c; cur != nil; cur = cur.Parent {
		if m, ok := cur.Methods[name]; ok {
			return m, cur
		}
	}
	return nil, nil
}
