// Package resolver walks the untyped AST produced by lang/parser and
// resolves every identifier to a binding (§4.3): module/class/method/
// closure/block scopes, import handling, type inference, const folding,
// async fixed-point propagation, switch-case classification, closure
// capture analysis, and the validation rules of spec §4.3. The scoping
// model (local/cell/free promotion on closure capture) is adapted from
// nenuphar's lang/resolver, generalized from Lua's single-binding-kind
// grammar to Jactl's richer declaration set (typed locals, const fields,
// class methods, async functions).
package resolver

import (
	"fmt"

	"github.com/jactl-lang/jactl/lang/ast"
	"github.com/jactl-lang/jactl/lang/token"
	"github.com/jactl-lang/jactl/lang/types"
)

// Predeclared supplies the host-provided names available to a resolve
// pass: CompilationContext globals (Predeclared), language built-ins
// (Universal), and the async descriptor lookup used by rule 5 of §4.3.
type Predeclared interface {
	IsPredeclared(name string) bool
	IsUniversal(name string) bool
	// IsAsyncHostFunc reports whether the named host-registered function
	// or method (as it would appear in a Call/MethodCall) is marked async
	// by its descriptor.
	IsAsyncHostFunc(name string) bool
}

// Info is the resolver's output: every fact needed by lang/compiler to
// emit bytecode without re-deriving scope/type/async information.
type Info struct {
	Bindings    map[*ast.Identifier]*Binding
	Functions   map[ast.Node]*Function // keyed by *ast.Script, *ast.FuncDecl, *ast.ClosureLit
	Classes     map[string]*ClassInfo
	SwitchHints map[*ast.Switch]SwitchStrategy
}

type block struct {
	parent   *block
	fn       *Function
	bindings map[string]*Binding
	isLoop   bool
	label    string
}

type resolver struct {
	file   *token.File
	errors token.ErrorList
	pre    Predeclared

	env     *block
	globals map[string]*Binding

	info Info

	// functions accumulated across the whole resolve pass, used by the
	// async fixed-point (§4.3 item 5) after scoping completes.
	allFuncs []*Function

	// funcsByName holds every top-level FuncDecl's Function, so a Call to a
	// bare identifier known to be a function name (Binding.IsFunc) can add a
	// static call-graph edge instead of being treated as a call through an
	// arbitrary variable.
	funcsByName map[string]*Function

	loopStack []*block // enclosing loops, innermost last, for break/continue label lookup
}

// ResolveScript runs a full resolve pass over one parsed script (§4.3) and
// returns the annotated Info, or a *token.ErrorList-wrapped error collecting
// every error found (bounded error recovery continues past the first).
func ResolveScript(file *token.File, script *ast.Script, pre Predeclared) (*Info, error) {
	var r resolver
	r.file = file
	r.pre = pre
	r.globals = make(map[string]*Binding)
	r.funcsByName = make(map[string]*Function)
	r.info = Info{
		Bindings:    make(map[*ast.Identifier]*Binding),
		Functions:   make(map[ast.Node]*Function),
		Classes:     make(map[string]*ClassInfo),
		SwitchHints: make(map[*ast.Switch]SwitchStrategy),
	}

	// Classes are registered before resolving bodies, so forward/mutually
	// recursive references between classes and top-level functions work
	// (§3.5: classes are created exclusively by the compiler from these
	// declarations; the resolver only validates and annotates).
	for _, c := range script.Classes {
		r.declareClass(c)
	}
	for _, c := range script.Classes {
		r.resolveClass(c)
	}

	topFn := &Function{Definition: script, Name: "<script>"}
	r.info.Functions[script] = topFn
	r.allFuncs = append(r.allFuncs, topFn)
	r.push(&block{fn: topFn})
	if script.Body != nil {
		for _, s := range script.Body.Stmts {
			r.stmt(s)
		}
	}
	r.pop()

	propagateAsync(r.allFuncs)

	r.errors.Sort()
	if err := r.errors.Err(); err != nil {
		return nil, err
	}
	return &r.info, nil
}

func (r *resolver) errorf(p token.Pos, format string, args ...interface{}) {
	r.errors.Add(r.file.Position(p), fmt.Sprintf(format, args...))
}

func (r *resolver) push(b *block) {
	b.parent = r.env
	if b.bindings == nil {
		b.bindings = make(map[string]*Binding)
	}
	r.env = b
	if b.isLoop {
		r.loopStack = append(r.loopStack, b)
	}
}

func (r *resolver) pop() {
	if r.env.isLoop {
		r.loopStack = r.loopStack[:len(r.loopStack)-1]
	}
	r.env = r.env.parent
}

// declareClass registers a ClassInfo (fields/method signatures only, no
// bodies resolved yet) so sibling classes can reference each other.
func (r *resolver) declareClass(c *ast.ClassDecl) {
	ci := &ClassInfo{
		Name:    c.Name,
		Decl:    c,
		Fields:  make(map[string]*ast.Field),
		Methods: make(map[string]*Function),
		Statics: make(map[string]*Function),
	}
	for i := range c.Fields {
		f := &c.Fields[i]
		if _, dup := ci.Fields[f.Name]; dup {
			r.errorf(f.Pos, "field %q already declared in class %s", f.Name, c.Name)
			continue
		}
		ci.Fields[f.Name] = f
	}
	r.info.Classes[c.Name] = ci
}

func (r *resolver) resolveClass(c *ast.ClassDecl) {
	ci := r.info.Classes[c.Name]
	if c.Extends != "" {
		parent, ok := r.info.Classes[c.Extends]
		if !ok {
			r.errorf(c.Pos, "undefined parent class: %s", c.Extends)
		} else {
			ci.Parent = parent
		}
	}

	// Const folding (§4.3 item 4): const fields must have an initializer
	// and be primitive/string; fold simple constant expressions now so
	// later references (including in other const field defaults) can use
	// the folded value.
	for i := range c.Fields {
		f := &c.Fields[i]
		if f.Const {
			if f.Default == nil {
				r.errorf(f.Pos, "const field %q must have an initializer", f.Name)
				continue
			}
			if v, ok := r.foldConst(f.Default); ok {
				b := &Binding{Scope: Universal, Name: f.Name, Const: true, ConstValue: v}
				r.globals["."+c.Name+"."+f.Name] = b
			}
		}
	}

	// Validation rule (§4.3 item 8): reject mutable static fields — only
	// const fields of primitive/string type are permitted as statics
	// (§3.5 "No mutable static fields").
	for i := range c.Fields {
		f := &c.Fields[i]
		if f.Static && !f.Const {
			r.errorf(f.Pos, "static field %q must be const", f.Name)
		}
	}

	fn := &Function{Definition: c, Name: c.Name}
	r.info.Functions[c] = fn
	blk := &block{fn: fn}
	r.push(blk)
	for i := range c.Fields {
		f := &c.Fields[i]
		if f.Default != nil && !f.Const {
			r.expr(f.Default)
		}
		r.bind(f.Name, f.Pos, f.Const)
	}
	for _, m := range c.Methods {
		mfn := r.declareMethod(ci, m, false)
		ci.Methods[m.Name] = mfn
	}
	for _, m := range c.Statics {
		mfn := r.declareMethod(ci, m, true)
		ci.Statics[m.Name] = mfn
	}
	for _, m := range c.Methods {
		r.resolveFunc(ci.Methods[m.Name], m)
	}
	for _, m := range c.Statics {
		r.resolveFunc(ci.Statics[m.Name], m)
	}
	r.pop()
}

func (r *resolver) declareMethod(ci *ClassInfo, m *ast.FuncDecl, static bool) *Function {
	fn := &Function{
		Definition:  m,
		Name:        m.Name,
		IsMethod:    !static,
		Class:       ci,
		AsyncParams: make(map[string]bool),
	}
	for _, p := range m.Params {
		if p.AsyncParam {
			fn.AsyncParams[p.Name] = true
		}
		if p.VarArgs {
			fn.HasVarArg = true
		}
	}
	r.info.Functions[m] = fn
	r.allFuncs = append(r.allFuncs, fn)
	return fn
}

func (r *resolver) block(stmts []ast.Stmt) {
	r.push(&block{fn: r.env.fn})
	for _, s := range stmts {
		r.stmt(s)
	}
	r.pop()
}

func (r *resolver) resolveFunc(fn *Function, decl *ast.FuncDecl) {
	blk := &block{fn: fn}
	r.push(blk)
	for _, p := range decl.Params {
		if p.Default != nil {
			r.expr(p.Default)
		}
		r.bind(p.Name, p.Pos, false)
		if p.VarArgs {
			fn.HasVarArg = true
		}
	}
	if fn.IsMethod {
		// bound after the declared parameters so the compiler's positional
		// parameter slots (0..len(Params)-1) line up exactly with decl.Params;
		// the receiver itself always lands in the next slot (§3.5 "this").
		r.bind("this", decl.Pos, false)
	}
	for _, s := range decl.Body.Stmts {
		r.stmt(s)
	}
	r.pop()
}

func (r *resolver) bind(name string, pos token.Pos, isConst bool) *Binding {
	if name == "_" {
		// validation rule (§4.3 item 8): '_' is reserved for wildcard
		// patterns and cannot be used as a variable name.
		r.errorf(pos, "'_' is not a valid variable name")
	}
	if _, dup := r.env.bindings[name]; dup {
		r.errorf(pos, "already declared in this scope: %s", name)
	}
	b := &Binding{Scope: Local, Name: name, Const: isConst, Index: len(r.env.fn.Locals)}
	r.env.fn.Locals = append(r.env.fn.Locals, b)
	r.env.bindings[name] = b
	return b
}

func (r *resolver) bindIdent(id *ast.Identifier, isConst bool) {
	b := r.bind(id.Name, id.Pos, isConst)
	b.Decl = id
	r.info.Bindings[id] = b
}

func (r *resolver) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.VarDecl:
		for i, name := range s.Names {
			if i < len(s.Inits) && s.Inits[i] != nil {
				r.expr(s.Inits[i])
			}
			id := &ast.Identifier{Pos: s.Pos, Name: name}
			r.bindIdent(id, false)
		}

	case *ast.ConstDecl:
		r.expr(s.Init)
		id := &ast.Identifier{Pos: s.Pos, Name: s.Name}
		r.bindIdent(id, true)
		if v, ok := r.foldConst(s.Init); ok {
			r.info.Bindings[id].ConstValue = v
		} else {
			r.errorf(s.Pos, "const %q initializer is not a constant expression", s.Name)
		}

	case *ast.FuncDecl:
		id := &ast.Identifier{Pos: s.Pos, Name: s.Name}
		r.bindIdent(id, true)
		r.info.Bindings[id].IsFunc = true
		fn := &Function{Definition: s, Name: s.Name, AsyncParams: make(map[string]bool)}
		for _, p := range s.Params {
			if p.AsyncParam {
				fn.AsyncParams[p.Name] = true
			}
		}
		r.info.Functions[s] = fn
		r.allFuncs = append(r.allFuncs, fn)
		r.funcsByName[s.Name] = fn
		r.resolveFunc(fn, s)

	case *ast.ClassDecl:
		// nested/local classes are out of SPEC_FULL.md's scope (§3.5
		// classes are top-level, scoped to a CompilationContext); the
		// parser does not currently produce this inside a body, so this
		// case exists only defensively.
		r.errorf(s.Pos, "local class declarations are not supported")

	case *ast.Block:
		r.block(s.Stmts)

	case *ast.If:
		r.expr(s.Cond)
		r.stmt(s.Then)
		if s.Else != nil {
			r.stmt(s.Else)
		}

	case *ast.For:
		r.push(&block{fn: r.env.fn, isLoop: true, label: s.Label})
		if s.Init != nil {
			r.stmt(s.Init)
		}
		if s.Cond != nil {
			r.expr(s.Cond)
		}
		if s.Update != nil {
			r.stmt(s.Update)
		}
		r.stmt(s.Body)
		r.pop()

	case *ast.ForIn:
		r.expr(s.Iterable)
		r.push(&block{fn: r.env.fn, isLoop: true, label: s.Label})
		id := &ast.Identifier{Pos: s.Pos, Name: s.VarName}
		r.bindIdent(id, false)
		r.stmt(s.Body)
		r.pop()

	case *ast.While:
		r.expr(s.Cond)
		r.push(&block{fn: r.env.fn, isLoop: true, label: s.Label})
		r.stmt(s.Body)
		r.pop()

	case *ast.DoUntil:
		r.push(&block{fn: r.env.fn, isLoop: true})
		r.stmt(s.Body)
		r.pop()
		r.expr(s.Cond)

	case *ast.Return:
		if s.Value != nil {
			r.expr(s.Value)
		}

	case *ast.Break:
		r.useLabel(s.Pos, s.Label)
	case *ast.Continue:
		r.useLabel(s.Pos, s.Label)

	case *ast.Die:
		r.expr(s.Value)

	case *ast.ExprStmt:
		r.expr(s.X)

	case *ast.Switch:
		r.switchNode(s)

	case *ast.Package, *ast.Import:
		// no bindings introduced

	case *ast.Bad:
		// parser-inserted placeholder; nothing to resolve

	default:
		panic(fmt.Sprintf("resolver: unexpected stmt %T", s))
	}
}

func (r *resolver) useLabel(pos token.Pos, label string) {
	if len(r.loopStack) == 0 {
		r.errorf(pos, "break/continue outside of a loop")
		return
	}
	if label == "" {
		return // nearest enclosing loop, always valid
	}
	for i := len(r.loopStack) - 1; i >= 0; i-- {
		if r.loopStack[i].label == label {
			return
		}
	}
	r.errorf(pos, "undefined loop label: %s", label)
}

func (r *resolver) expr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.Literal:
		// nothing to resolve

	case *ast.Identifier:
		r.use(e)

	case *ast.CaptureVar:
		// nothing to resolve: the compiler allocates its local slot lazily,
		// keyed by Index, not via a declared Binding.

	case *ast.Binop:
		r.expr(e.X)
		r.expr(e.Y)

	case *ast.Unop:
		r.expr(e.X)

	case *ast.PostOp:
		r.expr(e.X)
		r.markMutated(e.X)

	case *ast.Assign:
		r.expr(e.Value)
		r.resolveTarget(e.Target)
		r.markMutated(e.Target)

	case *ast.CondAssign:
		r.expr(e.Value)
		r.resolveTarget(e.Target)
		r.markMutated(e.Target)

	case *ast.MultiAssign:
		r.expr(e.Value)
		for _, t := range e.Targets {
			r.resolveTarget(t)
			r.markMutated(t)
		}

	case *ast.Ternary:
		r.expr(e.Cond)
		r.expr(e.Then)
		r.expr(e.Else)

	case *ast.Elvis:
		r.expr(e.X)
		r.expr(e.Y)

	case *ast.Call:
		r.expr(e.Func)
		for _, a := range e.Args {
			r.expr(a.Value)
		}
		if e.TrailingClosure != nil {
			r.expr(e.TrailingClosure)
		}
		if id, ok := e.Func.(*ast.Identifier); ok {
			// A call through a bound function name is a known static edge
			// for the async fixed-point (§4.3 item 5); a call through any
			// other identifier (a local/free variable, which may hold a
			// closure) cannot be resolved statically and is conservatively
			// async, same as a dynamic callee expression.
			if b := r.info.Bindings[id]; b != nil && b.IsFunc {
				if callee, ok := r.funcsByName[id.Name]; ok {
					r.env.fn.calls = append(r.env.fn.calls, callee)
				}
			} else {
				r.env.fn.callsDynamic = true
			}
			if r.pre != nil && r.pre.IsAsyncHostFunc(id.Name) {
				r.env.fn.directAsync = true
			}
		} else {
			r.env.fn.callsDynamic = true
		}

	case *ast.MethodCall:
		r.expr(e.Recv)
		for _, a := range e.Args {
			r.expr(a.Value)
		}
		if e.TrailingClosure != nil {
			r.expr(e.TrailingClosure)
		}
		if r.pre != nil && r.pre.IsAsyncHostFunc(e.Name) {
			r.env.fn.directAsync = true
		} else {
			// Method dispatch is dynamic (the receiver's runtime class
			// decides which method body runs), so a user-defined method
			// that happens to be async cannot be resolved to a static call
			// edge here; conservatively async, per §4.3 item 5.
			r.env.fn.callsDynamic = true
		}

	case *ast.FieldAccess:
		r.expr(e.Recv)

	case *ast.Index:
		r.expr(e.Recv)
		r.expr(e.Idx)
		if e.SliceEnd != nil {
			r.expr(e.SliceEnd)
		}

	case *ast.NewInstance:
		if _, ok := r.info.Classes[e.ClassName]; !ok {
			r.errorf(e.Pos, "undefined class: %s", e.ClassName)
		}
		for _, a := range e.Args {
			r.expr(a.Value)
		}

	case *ast.ListLit:
		for _, el := range e.Elems {
			r.expr(el)
		}

	case *ast.MapLit:
		for _, ent := range e.Entries {
			if ent.Key != nil {
				r.expr(ent.Key)
			}
			r.expr(ent.Value)
		}

	case *ast.ClosureLit:
		r.closure(e)

	case *ast.RegexMatch:
		r.expr(e.Subject)
		r.expr(e.Pattern)

	case *ast.RegexSubst:
		r.expr(e.Subject)
		r.expr(e.Pattern)
		r.expr(e.Replacement)

	case *ast.StringInterp:
		for _, p := range e.Parts {
			if p.Expr != nil {
				r.expr(p.Expr)
			}
		}

	case *ast.InstanceOf:
		r.expr(e.X)
		if _, ok := r.info.Classes[e.TypeName]; !ok && !isBuiltinType(e.TypeName) {
			r.errorf(e.Pos, "undefined type: %s", e.TypeName)
		}

	case *ast.In:
		r.expr(e.X)
		r.expr(e.Y)

	case *ast.As:
		r.expr(e.X)

	case *ast.Cast:
		r.expr(e.X)

	case *ast.Eval:
		r.expr(e.Source)
		if e.Globals != nil {
			r.expr(e.Globals)
		}
		// eval() is conservatively async since it re-enters compilation and
		// may call anything.
		r.env.fn.callsDynamic = true

	case *ast.Paren:
		r.expr(e.X)

	case *ast.Switch:
		r.switchNode(e)

	case *ast.Block:
		r.block(e.Stmts)

	case *ast.Bad:
		// nothing to resolve

	default:
		panic(fmt.Sprintf("resolver: unexpected expr %T", e))
	}
}

func isBuiltinType(name string) bool {
	switch name {
	case "boolean", "byte", "int", "long", "double", "Decimal", "String", "List", "Map", "def":
		return true
	}
	return false
}

func (r *resolver) resolveTarget(target ast.Expr) {
	switch t := target.(type) {
	case *ast.Identifier:
		r.use(t)
	default:
		r.expr(target) // auto-vivification (§4.5) happens at runtime, not resolve time
	}
}

func (r *resolver) markMutated(target ast.Expr) {
	id, ok := target.(*ast.Identifier)
	if !ok {
		return
	}
	if b, ok := r.info.Bindings[id]; ok {
		if b.Const {
			r.errorf(id.Pos, "cannot assign to const %q", id.Name)
		}
		b.Mutated = true
	}
}

func (r *resolver) closure(c *ast.ClosureLit) {
	fn := &Function{Definition: c, Name: "<closure>", AsyncParams: make(map[string]bool)}
	r.info.Functions[c] = fn
	r.allFuncs = append(r.allFuncs, fn)
	r.push(&block{fn: fn})
	params := c.Params
	if len(params) == 0 {
		params = []ast.Param{{Pos: c.Pos, Name: "it"}}
	}
	for _, p := range params {
		if p.AsyncParam {
			fn.AsyncParams[p.Name] = true
		}
		if p.Default != nil {
			r.expr(p.Default)
		}
		r.bind(p.Name, p.Pos, false)
	}
	for _, s := range c.Body.Stmts {
		r.stmt(s)
	}
	r.pop()
}

// use resolves an identifier reference: local, cell-promoted (closure
// capture), free, predeclared, universal, or undefined (§4.3 item 1 and
// the "Bindings"/Scopes contract in the package doc).
func (r *resolver) use(id *ast.Identifier) {
	startFn := r.env.fn
	for env := r.env; env != nil; env = env.parent {
		b, ok := env.bindings[id.Name]
		if !ok {
			continue
		}
		if env.fn != startFn {
			// Found in an enclosing function: captured by reference (§4.3
			// item 1). The outer local is promoted to a cell; this
			// function's occurrence becomes a distinct Free binding
			// pointing at the same slot so the emitter knows to read it
			// through a cell reference.
			if b.Scope == Local {
				b.Scope = Cell
			}
			b.Captured = true
			free := &Binding{
				Scope: Free,
				Name:  b.Name,
				Const: b.Const,
				Index: len(r.env.fn.FreeVars),
				Decl:  b.Decl,
			}
			r.env.fn.FreeVars = append(r.env.fn.FreeVars, b)
			r.env.bindings[id.Name] = free
			r.info.Bindings[id] = free
			return
		}
		r.info.Bindings[id] = b
		return
	}

	key := "." + id.Name
	if r.pre != nil && r.pre.IsPredeclared(id.Name) {
		b, ok := r.globals[key]
		if !ok {
			b = &Binding{Scope: Predeclared, Name: id.Name}
			r.globals[key] = b
		}
		r.info.Bindings[id] = b
		return
	}
	if r.pre != nil && r.pre.IsUniversal(id.Name) {
		b, ok := r.globals[key]
		if !ok {
			b = &Binding{Scope: Universal, Name: id.Name}
			r.globals[key] = b
		}
		r.info.Bindings[id] = b
		return
	}

	r.errorf(id.Pos, "undefined: %s", id.Name)
	r.info.Bindings[id] = &Binding{Scope: Undefined, Name: id.Name}
}

// foldConst evaluates e if it is a compile-time constant expression over
// literals, other const bindings, and the arithmetic/string operators
// (§4.3 item 4). It returns ok=false (never an error) for anything it does
// not recognize as foldable, which simply disables folding for that
// expression rather than failing the resolve pass.
func (r *resolver) foldConst(e ast.Expr) (types.Value, bool) {
	switch e := e.(type) {
	case *ast.Literal:
		return literalValue(e)
	case *ast.Identifier:
		if b, ok := r.info.Bindings[e]; ok && b.Const && b.ConstValue != nil {
			return b.ConstValue, true
		}
		return nil, false
	case *ast.Binop:
		x, ok := r.foldConst(e.X)
		if !ok {
			return nil, false
		}
		y, ok := r.foldConst(e.Y)
		if !ok {
			return nil, false
		}
		if xs, ok := x.(types.String); ok {
			return xs.Concat(y), true
		}
		v, err := types.Binary(e.Op, x, y, types.DefaultMinScale)
		if err != nil {
			return nil, false
		}
		return v, true
	case *ast.Unop:
		x, ok := r.foldConst(e.X)
		if !ok {
			return nil, false
		}
		v, err := types.Unary(e.Op, x)
		if err != nil {
			return nil, false
		}
		return v, true
	case *ast.Paren:
		return r.foldConst(e.X)
	default:
		return nil, false
	}
}

func literalValue(lit *ast.Literal) (types.Value, bool) {
	switch lit.Kind {
	case token.INT_LIT:
		return types.Int(int32(lit.Int)), true
	case token.LONG_LIT:
		return types.Long(lit.Int), true
	case token.DOUBLE_LIT:
		return types.Double(lit.Float), true
	case token.STRING_LIT:
		return types.String(lit.Str), true
	case token.TRUE:
		return types.True, true
	case token.FALSE:
		return types.False, true
	case token.NULL:
		return types.Null, true
	default:
		return nil, false
	}
}
