// Package compiler takes a parsed, resolved AST (lang/resolver's Info) and
// compiles it to bytecode executed by lang/vm. The stack-machine shape —
// flat per-function bytecode, an operand stack plus a locals slice, cell
// boxing for captured variables — follows nenuphar's lang/compiler and
// lang/vm (in turn adapted from Starlark-go); the CFG/basic-block
// linearization pass nenuphar uses to compute jump addresses and maximum
// stack depth is not reproduced, since the retrieved compiler.go is itself
// incomplete (it calls fcomp.stmts/stmt/expr methods, and references a
// Position/Program/Binding/Defer type set, that do not exist anywhere in
// the retrieved package). Instead this compiler emits straight-line code in
// a single recursive pass with backpatched jump targets, a standard and
// simpler approach for a bytecode compiler with no exception-style control
// flow to linearize (Jactl has no try/catch, see DESIGN.md).
package compiler

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jactl-lang/jactl/lang/ast"
	"github.com/jactl-lang/jactl/lang/resolver"
	"github.com/jactl-lang/jactl/lang/token"
	"github.com/jactl-lang/jactl/lang/types"
)

// Compile turns one resolved script into a Program. resolve must have
// already succeeded (no errors): compiling an AST with unresolved
// identifiers or other resolve errors has undefined behavior, exactly as
// documented by the teacher's CompileFiles.
func Compile(file *token.File, script *ast.Script, info *resolver.Info) (prog *Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compiler: %v", r)
		}
	}()

	c := &compiler{
		file:    file,
		info:    info,
		nameIdx: make(map[string]uint32),
		fnIdx:   make(map[*resolver.Function]uint32),
	}
	c.prog = &Program{Filename: file.Name(), Classes: make(map[string]*ClassDesc)}

	for _, cd := range script.Classes {
		c.compileClass(cd)
	}

	topFn := info.Functions[script]
	topCode := c.compileFunc(topFn, script.Body)
	c.prog.Toplevel = topCode
	c.prog.Constants = c.constants
	c.prog.Names = c.names
	return c.prog, nil
}

type compiler struct {
	file *token.File
	info *resolver.Info
	prog *Program

	constants []types.Value
	names     []string
	nameIdx   map[string]uint32

	fnIdx map[*resolver.Function]uint32 // index into prog.Functions, once compiled
}

func (c *compiler) addConst(v types.Value) uint32 {
	c.constants = append(c.constants, v)
	return uint32(len(c.constants) - 1)
}

func (c *compiler) addName(name string) uint32 {
	if idx, ok := c.nameIdx[name]; ok {
		return idx
	}
	idx := uint32(len(c.names))
	c.names = append(c.names, name)
	c.nameIdx[name] = idx
	return idx
}

func (c *compiler) compileClass(cd *ast.ClassDecl) {
	ci := c.info.Classes[cd.Name]
	def := &types.ClassDef{ID: cd.Name, Name: cd.Name, Methods: make(map[string]*types.Function), Statics: make(map[string]*types.Function)}
	if ci.Parent != nil {
		def.Parent = c.prog.Classes[ci.Parent.Name].Def
	}
	desc := &ClassDesc{Def: def, Methods: make(map[string]*Funcode), Statics: make(map[string]*Funcode)}
	c.prog.Classes[cd.Name] = desc

	for i := range cd.Fields {
		fld := &cd.Fields[i]
		fd := types.FieldDef{Name: fld.Name, Type: tagFromTypeName(fld.Type), Const: fld.Const}
		// Only a const field's bare literal default is folded, into Init; no
		// other field default is compiled, so such a field starts out Null
		// unless the constructor's arguments set it.
		if fld.Const && fld.Default != nil {
			if lit, ok := fld.Default.(*ast.Literal); ok {
				fd.HasInit = true
				fd.Init = literalConst(lit)
			}
		}
		def.Fields = append(def.Fields, fd)
	}

	for _, m := range cd.Methods {
		mfn := ci.Methods[m.Name]
		funcode := c.compileFunc(mfn, m.Body)
		desc.Methods[m.Name] = funcode
		def.Methods[m.Name] = types.NewClosure(protoFunc{funcode}, nil)
	}
	for _, m := range cd.Statics {
		mfn := ci.Statics[m.Name]
		funcode := c.compileFunc(mfn, m.Body)
		desc.Statics[m.Name] = funcode
		def.Statics[m.Name] = types.NewClosure(protoFunc{funcode}, nil)
	}
}

// tagFromTypeName maps a field/parameter's source-level type name to the
// runtime Tag it declares, ANY for "def"/"var"/unrecognized names (user
// class names are fields of declared type INSTANCE but are not structurally
// checked beyond that, per §3.3's dynamic default).
func tagFromTypeName(name string) types.Tag {
	switch name {
	case "boolean":
		return types.BOOLEAN
	case "byte":
		return types.BYTE
	case "int":
		return types.INT
	case "long":
		return types.LONG
	case "double":
		return types.DOUBLE
	case "Decimal":
		return types.DECIMAL
	case "String":
		return types.STRING
	case "List":
		return types.LIST
	case "Map":
		return types.MAP
	default:
		return types.ANY
	}
}

// compileFunc compiles one resolver.Function's body (a *ast.Block for a
// class/script, or the Stmts of a FuncDecl/ClosureLit body) into a Funcode.
func (c *compiler) compileFunc(fn *resolver.Function, body *ast.Block) *Funcode {
	funcode := &Funcode{
		Prog:     c.prog,
		Name:     fn.Name,
		Async:    fn.Async,
		Receiver: fn.IsMethod,
	}
	for _, b := range fn.Locals {
		funcode.Locals = append(funcode.Locals, Binding{Name: b.Name, IsCell: b.Scope == resolver.Cell})
		if b.Scope == resolver.Cell {
			funcode.Cells = append(funcode.Cells, len(funcode.Locals)-1)
		}
	}
	for _, b := range fn.FreeVars {
		funcode.Freevars = append(funcode.Freevars, Binding{Name: b.Name})
	}

	c.prog.Functions = append(c.prog.Functions, funcode)
	c.fnIdx[fn] = uint32(len(c.prog.Functions) - 1)

	f := &fcomp{c: c, fn: fn, funcode: funcode, declCursor: paramCount(fn), scratch: -1, captureBase: -1, captureMax: -1}

	if max := maxCaptureIndex(body); max >= 0 {
		f.captureMax = max
		f.captureBase = f.newLocal("$0")
		for i := 1; i <= max; i++ {
			f.newLocal(fmt.Sprintf("$%d", i))
		}
	}

	if decl, ok := fn.Definition.(*ast.FuncDecl); ok {
		f.emitParamPrologue(decl.Params)
	} else if cl, ok := fn.Definition.(*ast.ClosureLit); ok {
		params := cl.Params
		if len(params) == 0 {
			params = []ast.Param{{Name: "it"}}
		}
		f.emitParamPrologue(params)
	}

	if body != nil {
		for _, s := range body.Stmts {
			f.stmt(s)
		}
	}
	// Fall off the end of the function body: implicit "return null".
	f.emitOp(NIL)
	f.push()
	f.emitArg(RETURN, 0)
	f.pop(1)

	funcode.MaxStack = f.maxstack
	funcode.Code = f.code
	funcode.lineTable = f.lineTable
	return funcode
}

func paramCount(fn *resolver.Function) int {
	switch d := fn.Definition.(type) {
	case *ast.FuncDecl:
		return len(d.Params)
	case *ast.ClosureLit:
		if len(d.Params) == 0 {
			return 1
		}
		return len(d.Params)
	default:
		return 0
	}
}

// fcomp holds per-function emission state.
type fcomp struct {
	c       *compiler
	fn      *resolver.Function
	funcode *Funcode

	code      []byte
	lineTable []lineEntry
	lastPos   token.Pos

	stack, maxstack int

	loops []loopCtx

	// declCursor walks fn.Locals in lockstep with this function's own
	// declaration-order AST traversal, letting nextDeclIndex recover each
	// VarDecl/ConstDecl/FuncDecl/ForIn binding's local slot without needing
	// an identifier-keyed lookup (the resolver's declaration-site
	// identifiers are synthesized throw-away nodes, never reachable again
	// once binding is done).
	declCursor int

	// scratch is a lazily allocated synthetic local slot used by
	// storeTarget and compileIncDec; -1 until first use.
	scratch int

	// captureBase/captureMax reserve this function's $0..$captureMax regex
	// capture-variable slots (§4.5: capture variables are local to the
	// enclosing function/closure/switch arm), pre-allocated up front from a
	// scan of the function body so that every REGEXMATCH in it writes into
	// the same fixed slots regardless of how many =~ sites precede a given
	// $N read. captureMax is -1 when the body references no capture
	// variable at all, in which case REGEXMATCH skips capture binding.
	captureBase, captureMax int
}

type loopCtx struct {
	label     string
	breaks    []int // patch positions (operand offset)
	continues []int
}

func (f *fcomp) push() {
	f.stack++
	if f.stack > f.maxstack {
		f.maxstack = f.stack
	}
}
func (f *fcomp) pop(n int) { f.stack -= n }

func (f *fcomp) setPos(p token.Pos) {
	if p == f.lastPos {
		return
	}
	f.lastPos = p
	f.lineTable = append(f.lineTable, lineEntry{pc: uint32(len(f.code)), pos: p})
}

func (f *fcomp) emitOp(op Opcode) {
	f.code = append(f.code, byte(op))
}

func (f *fcomp) emitArg(op Opcode, arg uint32) {
	f.code = append(f.code, byte(op))
	f.code = append(f.code,
		byte(arg), byte(arg>>8), byte(arg>>16), byte(arg>>24))
}

// emitJump emits op with a placeholder operand and returns the operand's
// offset in f.code, to be patched later via patch.
func (f *fcomp) emitJump(op Opcode) int {
	f.code = append(f.code, byte(op))
	pos := len(f.code)
	f.code = append(f.code, 0, 0, 0, 0)
	return pos
}

func (f *fcomp) here() uint32 { return uint32(len(f.code)) }

func (f *fcomp) patch(pos int, target uint32) {
	f.code[pos] = byte(target)
	f.code[pos+1] = byte(target >> 8)
	f.code[pos+2] = byte(target >> 16)
	f.code[pos+3] = byte(target >> 24)
}

func (f *fcomp) emitConst(v types.Value) {
	f.emitArg(CONST, f.c.addConst(v))
	f.push()
}

// emitParamPrologue reserves the parameters' local slots (already accounted
// for in fn.Locals / Funcode.Locals by declaration order) and emits the
// default-value substitution check for each parameter that has one: a
// missing trailing positional argument is filled with Null by the VM's
// argument binding, so "still null" stands in for "was not supplied".
func (f *fcomp) emitParamPrologue(params []ast.Param) {
	for i, p := range params {
		if p.VarArgs {
			f.funcode.Params = append(f.funcode.Params, ParamDesc{Name: p.Name, VarArgs: true})
			continue
		}
		pd := ParamDesc{Name: p.Name}
		if p.Default != nil {
			pd.HasDefault = true
			f.loadLocalSlot(i)
			f.push()
			f.emitOp(NIL)
			f.push()
			f.emitOp(EQL)
			f.pop(1)
			skip := f.emitJump(JMPFALSE)
			f.pop(1)
			f.expr(p.Default)
			f.storeLocalSlot(i)
			f.patch(skip, f.here())
		}
		f.funcode.Params = append(f.funcode.Params, pd)
	}
}

// storeLocalSlot stores the value on top of the stack into local slot idx,
// using SETCELL instead of SETLOCAL if that slot is a captured cell.
func (f *fcomp) storeLocalSlot(idx int) {
	if f.fn.Locals[idx].Scope == resolver.Cell {
		f.emitArg(SETCELL, uint32(idx))
	} else {
		f.emitArg(SETLOCAL, uint32(idx))
	}
	f.pop(1)
}

// loadLocalSlot is storeLocalSlot's read-side counterpart: a captured local
// is boxed into a cell before the function body's first instruction runs
// (lang/vm spills every Cells-listed slot right after argument binding), so
// reading it back for anything other than relaying the raw cell to a nested
// closure (pushCapturedCell's job) must go through GETCELL, not GETLOCAL.
func (f *fcomp) loadLocalSlot(idx int) {
	if f.fn.Locals[idx].Scope == resolver.Cell {
		f.emitArg(GETCELL, uint32(idx))
	} else {
		f.emitArg(GETLOCAL, uint32(idx))
	}
}

// ---- statements ----

func (f *fcomp) block(stmts []ast.Stmt) {
	for _, s := range stmts {
		f.stmt(s)
	}
}

func (f *fcomp) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.VarDecl:
		for i, name := range s.Names {
			idx := f.nextDeclIndex(name)
			if i < len(s.Inits) && s.Inits[i] != nil {
				f.expr(s.Inits[i])
			} else {
				f.emitOp(NIL)
				f.push()
			}
			f.storeLocalSlot(idx)
		}

	case *ast.ConstDecl:
		idx := f.nextDeclIndex(s.Name)
		f.expr(s.Init)
		f.storeLocalSlot(idx)

	case *ast.FuncDecl:
		idx := f.nextDeclIndex(s.Name)
		nestedFn := f.c.info.Functions[s]
		f.compileClosureValue(nestedFn, s.Body)
		f.storeLocalSlot(idx)

	case *ast.ClassDecl:
		// unreachable: resolver rejects nested class declarations.

	case *ast.Block:
		f.block(s.Stmts)

	case *ast.If:
		f.setPos(s.Pos)
		f.expr(s.Cond)
		cond := s.Cond
		negate := s.UnlessCond
		_ = cond
		var skipThen int
		if negate {
			skipThen = f.emitJump(JMPTRUE)
		} else {
			skipThen = f.emitJump(JMPFALSE)
		}
		f.pop(1)
		f.stmt(s.Then)
		if s.Else != nil {
			end := f.emitJump(JMP)
			f.patch(skipThen, f.here())
			f.stmt(s.Else)
			f.patch(end, f.here())
		} else {
			f.patch(skipThen, f.here())
		}

	case *ast.For:
		f.loops = append(f.loops, loopCtx{label: s.Label})
		if s.Init != nil {
			f.stmt(s.Init)
		}
		top := f.here()
		var exitPatch int
		hasCond := s.Cond != nil
		if hasCond {
			f.expr(s.Cond)
			exitPatch = f.emitJump(JMPFALSE)
			f.pop(1)
		}
		f.stmt(s.Body)
		contTarget := f.here()
		if s.Update != nil {
			f.stmt(s.Update)
		}
		back := f.emitJump(JMP)
		f.patch(back, top)
		if hasCond {
			f.patch(exitPatch, f.here())
		}
		f.finishLoop(contTarget, f.here())

	case *ast.ForIn:
		f.expr(s.Iterable)
		f.emitArg(ITERPUSH, 0)
		f.pop(1)
		f.loops = append(f.loops, loopCtx{label: s.Label})
		top := f.here()
		exitPatch := f.emitJump(ITERJMP)
		f.push() // the element the ITERJMP leaves on success
		idx := f.nextDeclIndex(s.VarName)
		f.storeLocalSlot(idx)
		f.stmt(s.Body)
		contTarget := f.here()
		back := f.emitJump(JMP)
		f.patch(back, top)
		f.patch(exitPatch, f.here())
		f.emitArg(ITERPOP, 0)
		f.finishLoop(contTarget, f.here())

	case *ast.While:
		f.loops = append(f.loops, loopCtx{label: s.Label})
		top := f.here()
		f.expr(s.Cond)
		exitPatch := f.emitJump(JMPFALSE)
		f.pop(1)
		f.stmt(s.Body)
		back := f.emitJump(JMP)
		f.patch(back, top)
		f.patch(exitPatch, f.here())
		f.finishLoop(top, f.here())

	case *ast.DoUntil:
		f.loops = append(f.loops, loopCtx{})
		top := f.here()
		f.stmt(s.Body)
		contTarget := f.here()
		f.expr(s.Cond)
		if s.Until {
			exitPatch := f.emitJump(JMPTRUE)
			f.pop(1)
			f.patch(exitPatch, f.here())
		} else {
			back := f.emitJump(JMPTRUE)
			f.pop(1)
			f.patch(back, top)
		}
		f.finishLoop(contTarget, f.here())

	case *ast.Return:
		f.setPos(s.Pos)
		if s.Value != nil {
			f.expr(s.Value)
		} else {
			f.emitOp(NIL)
			f.push()
		}
		f.emitArg(RETURN, 0)
		f.pop(1)

	case *ast.Break:
		f.patchBreakContinue(s.Label, true)
	case *ast.Continue:
		f.patchBreakContinue(s.Label, false)

	case *ast.Die:
		f.setPos(s.Pos)
		f.expr(s.Value)
		f.emitArg(DIE, 0)
		f.pop(1)

	case *ast.ExprStmt:
		f.expr(s.X)
		f.emitOp(POP)
		f.pop(1)

	case *ast.Switch:
		f.compileSwitch(s, false)

	case *ast.Package, *ast.Import:
		// no runtime effect

	case *ast.Bad:
		// nothing to compile

	default:
		panic(fmt.Sprintf("compiler: unexpected stmt %T", s))
	}
}

// nextDeclIndex finds the already-resolved Binding for the next
// not-yet-assigned local in declaration order and returns its index. Since
// the compiler visits declarations in the exact same order the resolver
// bound them in, a per-function cursor over fn.Locals always lines up.
func (f *fcomp) nextDeclIndex(name string) int {
	idx := f.declCursor
	if idx >= len(f.fn.Locals) || f.fn.Locals[idx].Name != name {
		panic(fmt.Sprintf("compiler: declaration order mismatch for %q at slot %d", name, idx))
	}
	f.declCursor++
	return idx
}

func (f *fcomp) finishLoop(continueTarget, breakTarget uint32) {
	top := f.loops[len(f.loops)-1]
	for _, pos := range top.continues {
		f.patch(pos, continueTarget)
	}
	for _, pos := range top.breaks {
		f.patch(pos, breakTarget)
	}
	f.loops = f.loops[:len(f.loops)-1]
}

func (f *fcomp) patchBreakContinue(label string, isBreak bool) {
	for i := len(f.loops) - 1; i >= 0; i-- {
		if label != "" && f.loops[i].label != label {
			continue
		}
		pos := f.emitJump(JMP)
		if isBreak {
			f.loops[i].breaks = append(f.loops[i].breaks, pos)
		} else {
			f.loops[i].continues = append(f.loops[i].continues, pos)
		}
		return
	}
	panic("compiler: break/continue outside of a loop (should have been caught by the resolver)")
}

// compileClosureValue compiles nestedFn (already resolved) as a nested
// Funcode, pushes its captured cells in FreeVars order, and emits
// MAKECLOSURE, leaving the resulting Function value on the stack.
func (f *fcomp) compileClosureValue(nestedFn *resolver.Function, body *ast.Block) {
	for _, ob := range nestedFn.FreeVars {
		f.pushCapturedCell(ob)
	}
	childCode := f.c.compileFunc(nestedFn, body)
	idx := f.c.fnIdx[nestedFn]
	_ = childCode
	f.emitArg(MAKECLOSURE, idx)
	f.pop(len(nestedFn.FreeVars))
	f.push()
}

// pushCapturedCell pushes the raw cell for an outer binding captured by a
// nested closure: a GETLOCAL if it belongs to this function's own Locals
// (now a Cell-scope slot), or a relayed GETFREE if this function itself
// captured it from a still-further-out scope.
func (f *fcomp) pushCapturedCell(ob *resolver.Binding) {
	for i, loc := range f.fn.Locals {
		if loc == ob {
			f.emitArg(GETLOCAL, uint32(i))
			f.push()
			return
		}
	}
	for i, fv := range f.fn.FreeVars {
		if fv == ob {
			f.emitArg(GETFREE, uint32(i))
			f.push()
			return
		}
	}
	panic("compiler: captured binding " + ob.Name + " not found in enclosing function")
}

// ---- expressions ----

func (f *fcomp) expr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.Literal:
		f.emitConst(literalConst(e))

	case *ast.Identifier:
		f.emitLoad(e)

	case *ast.CaptureVar:
		f.emitArg(GETLOCAL, uint32(f.captureBase+e.Index))
		f.push()

	case *ast.Binop:
		f.expr(e.X)
		f.expr(e.Y)
		f.emitOp(binopOp(e.Op))
		f.pop(1)

	case *ast.Unop:
		if e.Op == token.INC || e.Op == token.DEC {
			f.compileIncDec(e.X, e.Op, true)
			break
		}
		f.expr(e.X)
		f.emitOp(unopOp(e.Op))

	case *ast.PostOp:
		f.compileIncDec(e.X, e.Op, false)

	case *ast.Assign:
		if e.Op == token.EQ {
			f.compileAssignExpr(e.Target, false, func() { f.expr(e.Value) })
			break
		}
		f.compileAssignExpr(e.Target, true, func() {
			f.expr(e.Value)
			f.emitOp(compoundOp(e.Op))
			f.pop(1)
		})

	case *ast.CondAssign:
		f.compileCondAssign(e.Target, e.Value)

	case *ast.MultiAssign:
		f.expr(e.Value)
		for i, t := range e.Targets {
			if i < len(e.Targets)-1 {
				f.emitOp(DUP)
				f.push()
			}
			f.emitConst(types.Int(int32(i)))
			f.emitArg(GETINDEX, 0)
			f.storeTarget(t)
		}

	case *ast.Ternary:
		f.expr(e.Cond)
		elseJump := f.emitJump(JMPFALSE)
		f.pop(1)
		f.expr(e.Then)
		end := f.emitJump(JMP)
		f.patch(elseJump, f.here())
		f.pop(1) // rebalance: Then's push is undone on the path that takes Else
		f.expr(e.Else)
		f.patch(end, f.here())

	case *ast.Elvis:
		f.expr(e.X)
		f.emitOp(DUP)
		f.push()
		skip := f.emitJump(JMPTRUE)
		f.pop(1)
		f.emitOp(POP)
		f.pop(1)
		f.expr(e.Y)
		f.patch(skip, f.here())

	case *ast.Call:
		f.expr(e.Func)
		n := f.emitArgs(e.Args, e.TrailingClosure)
		f.emitArg(CALL, uint32(n))
		f.pop(n)

	case *ast.MethodCall:
		f.expr(e.Recv)
		name := f.c.addName(e.Name)
		f.emitArg(GETATTR, name)
		n := f.emitArgs(e.Args, e.TrailingClosure)
		f.emitArg(CALL, uint32(n))
		f.pop(n)

	case *ast.FieldAccess:
		f.expr(e.Recv)
		f.emitArg(GETATTR, f.c.addName(e.Name))

	case *ast.Index:
		f.expr(e.Recv)
		f.expr(e.Idx)
		if e.SliceEnd != nil {
			f.expr(e.SliceEnd)
			f.emitArg(SLICE, 0)
			f.pop(2)
		} else {
			f.emitArg(GETINDEX, 0)
			f.pop(1)
		}

	case *ast.NewInstance:
		f.emitConst(types.String(e.ClassName))
		if e.Named {
			f.emitArg(MAKEMAP, 0)
			f.push()
			for _, a := range e.Args {
				f.emitOp(DUP)
				f.push()
				f.emitConst(types.String(a.Name))
				f.expr(a.Value)
				f.emitArg(SETMAPENTRY, 0)
				f.pop(3)
			}
			f.emitArg(NEWNAMED, 0)
			f.pop(1) // consumes the class-name constant and the named-args map, net one instance
		} else {
			for _, a := range e.Args {
				f.expr(a.Value)
			}
			f.emitArg(NEWPOS, uint32(len(e.Args)))
			f.pop(len(e.Args))
		}

	case *ast.ListLit:
		for _, el := range e.Elems {
			f.expr(el)
		}
		f.emitArg(MAKELIST, uint32(len(e.Elems)))
		f.pop(len(e.Elems))
		f.push()

	case *ast.MapLit:
		f.emitArg(MAKEMAP, 0)
		f.push()
		for _, ent := range e.Entries {
			if ent.Key == nil {
				continue // "[:]" empty-map marker
			}
			f.emitOp(DUP)
			f.push()
			f.expr(ent.Key)
			f.expr(ent.Value)
			f.emitArg(SETMAPENTRY, 0)
			f.pop(3)
		}

	case *ast.ClosureLit:
		nestedFn := f.c.info.Functions[e]
		f.compileClosureValue(nestedFn, e.Body)

	case *ast.RegexMatch:
		f.expr(e.Subject)
		f.compileRegexPattern(e.Pattern)
		mods := e.Mods
		if e.Negate {
			mods += "!"
		}
		if f.captureMax >= 0 {
			// "\x00baseSlot,count" suffix: lang/vm's REGEXMATCH handler
			// splits on the NUL and, on a match, binds that many groups
			// into fr.locals[baseSlot:] as this function's $0..$n.
			mods += "\x00" + fmt.Sprintf("%d,%d", f.captureBase, f.captureMax+1)
		}
		f.emitArg(REGEXMATCH, f.c.addName(mods))
		f.pop(1)

	case *ast.RegexSubst:
		f.expr(e.Subject)
		f.compileRegexPattern(e.Pattern)
		f.expr(e.Replacement)
		f.emitArg(REGEXSUBST, f.c.addName(e.Mods))
		f.pop(2)

	case *ast.StringInterp:
		if len(e.Parts) == 0 {
			f.emitConst(types.String(""))
			return
		}
		first := true
		for _, p := range e.Parts {
			if p.Expr != nil {
				f.expr(p.Expr)
				f.emitArg(GETATTR, f.c.addName("toString"))
			} else {
				f.emitConst(types.String(p.Text))
			}
			if !first {
				f.emitOp(ADD)
				f.pop(1)
			}
			first = false
		}

	case *ast.InstanceOf:
		f.expr(e.X)
		f.emitArg(GETATTR, f.c.addName("@instanceof:"+e.TypeName))
		if e.Negate {
			f.emitOp(NOT)
		}

	case *ast.In:
		f.expr(e.X)
		f.expr(e.Y)
		f.emitArg(GETATTR, f.c.addName("@contains"))
		f.pop(1) // @contains pops needle+container, pushes one bool
		if e.Negate {
			f.emitOp(NOT)
		}

	case *ast.As:
		f.expr(e.X)
		f.emitArg(GETATTR, f.c.addName("@as:"+e.TypeName))

	case *ast.Cast:
		f.expr(e.X)
		f.emitArg(GETATTR, f.c.addName("@cast:"+e.TypeName))

	case *ast.Eval:
		f.emitArg(GETUNIVERSAL, f.c.addName("eval"))
		f.push()
		f.expr(e.Source)
		if e.Globals != nil {
			f.expr(e.Globals)
		} else {
			f.emitOp(NIL)
			f.push()
		}
		// stack: evalFn source globals -> call with 2 positional args
		f.emitArg(CALL, 2)
		f.pop(2)

	case *ast.Paren:
		f.expr(e.X)

	case *ast.Switch:
		f.compileSwitch(e, true)

	case *ast.Block:
		f.compileExprBody(e)

	case *ast.Bad:
		f.emitOp(NIL)
		f.push()

	default:
		panic(fmt.Sprintf("compiler: unexpected expr %T", e))
	}
}

// emitArgs compiles a call's arguments, collapsing any named arguments into
// a single trailing Map (the convention this language's Arg.Name named-call
// syntax compiles to, mirroring how Groovy/Jactl desugar "f(a: 1)" into a
// single Map parameter). Returns the number of positional stack slots
// pushed (including the synthesized map, if any).
func (f *fcomp) emitArgs(args []ast.Arg, trailing *ast.ClosureLit) int {
	n := 0
	var named []ast.Arg
	for _, a := range args {
		if a.Name != "" {
			named = append(named, a)
			continue
		}
		f.expr(a.Value)
		n++
	}
	if len(named) > 0 {
		f.emitArg(MAKEMAP, 0)
		f.push()
		for _, a := range named {
			f.emitOp(DUP)
			f.push()
			f.emitConst(types.String(a.Name))
			f.expr(a.Value)
			f.emitArg(SETMAPENTRY, 0)
			f.pop(3)
		}
		n++
	}
	if trailing != nil {
		nestedFn := f.c.info.Functions[trailing]
		f.compileClosureValue(nestedFn, trailing.Body)
		n++
	}
	return n
}

// compileRegexPattern compiles the pattern operand of a regex match/subst:
// a bare string literal compiles straight to a constant; anything else
// (interpolation) compiles to its runtime string value, recompiled to a
// *types.Regex by the REGEXMATCH/REGEXSUBST opcode handler each time.
func (f *fcomp) compileRegexPattern(pattern ast.Expr) {
	f.expr(pattern)
}

// storeTarget stores the value on top of the stack into target, for a caller
// (MultiAssign element binding) that doesn't need the stored value back as a
// result. It stashes the value in
// a scratch local first so address components (Recv/Idx, for a FieldAccess
// or Index target) can be computed fresh afterward in the order the SETATTR/
// SETINDEX opcodes require, without needing a stack-rotation opcode this
// bytecode doesn't have.
func (f *fcomp) storeTarget(target ast.Expr) {
	if id, ok := target.(*ast.Identifier); ok {
		f.emitStore(id)
		return
	}
	kind := f.addrKind(target)
	scratch := f.scratchSlot()
	f.emitArg(SETLOCAL, uint32(scratch))
	f.pop(1)
	f.pushAddr(target, kind)
	f.emitArg(GETLOCAL, uint32(scratch))
	f.push()
	f.storeViaAddr(target, kind)
}

// addrKind classifies an assignable expression by how many "address"
// operand values (beyond the value being stored) its store opcode needs:
// 0 for a plain Identifier, 1 for a FieldAccess (its Recv), 2 for an Index
// (its Recv and Idx).
func (f *fcomp) addrKind(target ast.Expr) int {
	switch target.(type) {
	case *ast.Identifier:
		return 0
	case *ast.FieldAccess:
		return 1
	case *ast.Index:
		return 2
	default:
		panic(fmt.Sprintf("compiler: invalid assignment target %T", target))
	}
}

func (f *fcomp) pushAddr(target ast.Expr, kind int) {
	switch kind {
	case 1:
		f.autovivRecv(target.(*ast.FieldAccess).Recv, false)
	case 2:
		idx := target.(*ast.Index)
		f.autovivRecv(idx.Recv, true)
		f.expr(idx.Idx)
	}
}

// autovivRecv compiles target, the receiver of an assignment target one
// level up, leaving its value on the stack. When target is itself a
// FieldAccess or Index (an intermediate link in a chain like
// x.a.b[2].c = 7), a current null value there is replaced in place, and
// written back through target's own parent, with a freshly created empty
// List (if nextIsIndex, since the next accessor indexes it) or Map
// (otherwise) before being left on the stack — realizing chained
// auto-vivification (§4.5: "x.a.b[2].c = 7" shapes x to
// {a:{b:[null,null,{c:7}]}}). A bare identifier or any other expression is
// read normally: only a chain of field/index accesses auto-vivifies.
func (f *fcomp) autovivRecv(target ast.Expr, nextIsIndex bool) {
	fa, isField := target.(*ast.FieldAccess)
	idx, isIndex := target.(*ast.Index)
	if !isField && !isIndex {
		f.expr(target)
		return
	}

	var parentExpr ast.Expr
	var parentNextIsIndex bool
	if isField {
		parentExpr, parentNextIsIndex = fa.Recv, false
	} else {
		parentExpr, parentNextIsIndex = idx.Recv, true
	}
	f.autovivRecv(parentExpr, parentNextIsIndex)
	recvSlot := f.newLocal("$avrecv")
	f.emitArg(SETLOCAL, uint32(recvSlot))
	f.pop(1)

	f.emitArg(GETLOCAL, uint32(recvSlot))
	f.push()
	if isField {
		f.emitArg(GETATTR, f.c.addName(fa.Name))
		f.pop(1)
		f.push()
	} else {
		f.expr(idx.Idx)
		f.emitArg(GETINDEX, 0)
		f.pop(2)
		f.push()
	}
	valSlot := f.newLocal("$avval")
	f.emitArg(SETLOCAL, uint32(valSlot))
	f.pop(1)

	f.emitArg(GETLOCAL, uint32(valSlot))
	f.push()
	f.emitOp(NIL)
	f.push()
	f.emitOp(EQL)
	f.pop(1)
	skip := f.emitJump(JMPFALSE)
	f.pop(1)

	if nextIsIndex {
		f.emitArg(MAKELIST, 0)
	} else {
		f.emitArg(MAKEMAP, 0)
	}
	f.push()
	f.emitArg(SETLOCAL, uint32(valSlot))
	f.pop(1)

	f.emitArg(GETLOCAL, uint32(recvSlot))
	f.push()
	if isField {
		f.emitArg(GETLOCAL, uint32(valSlot))
		f.push()
		f.emitArg(SETATTR, f.c.addName(fa.Name))
		f.pop(2)
	} else {
		f.expr(idx.Idx)
		f.emitArg(GETLOCAL, uint32(valSlot))
		f.push()
		f.emitArg(SETINDEX, 0)
		f.pop(3)
	}

	f.patch(skip, f.here())
	f.emitArg(GETLOCAL, uint32(valSlot))
	f.push()
}

// dupAddr duplicates the address components already on the stack so one
// copy can be consumed by a load while the other survives for the matching
// store.
func (f *fcomp) dupAddr(kind int) {
	switch kind {
	case 1:
		f.emitOp(DUP)
		f.push()
	case 2:
		f.emitOp(DUP2)
		f.push()
		f.push()
	}
}

// loadViaAddr reads through target's address components (consuming them)
// for kind 1/2, or loads id directly for kind 0 (which has no address
// components on the stack at all).
func (f *fcomp) loadViaAddr(target ast.Expr, kind int) {
	switch kind {
	case 0:
		f.emitLoad(target.(*ast.Identifier))
	case 1:
		f.emitArg(GETATTR, f.c.addName(target.(*ast.FieldAccess).Name))
		f.pop(1)
		f.push()
	case 2:
		f.emitArg(GETINDEX, 0)
		f.pop(2)
		f.push()
	}
}

// storeViaAddr stores the value on top of the stack through target's
// address components, which must already be on the stack beneath it in
// Recv[, Idx] order (exactly the order pushAddr leaves them in).
func (f *fcomp) storeViaAddr(target ast.Expr, kind int) {
	switch kind {
	case 0:
		f.emitStore(target.(*ast.Identifier))
	case 1:
		f.emitArg(SETATTR, f.c.addName(target.(*ast.FieldAccess).Name))
		f.pop(2)
	case 2:
		f.emitArg(SETINDEX, 0)
		f.pop(3)
	}
}

// scratchSlot lazily allocates one synthetic local slot, beyond the
// resolver's own Locals list, used as scratch storage by storeTarget and
// compileIncDec. It is never captured by a closure, so it's always a plain
// (non-cell) slot.
func (f *fcomp) scratchSlot() int {
	if f.scratch < 0 {
		f.scratch = len(f.funcode.Locals)
		f.funcode.Locals = append(f.funcode.Locals, Binding{Name: "$tmp"})
	}
	return f.scratch
}

// compileAssignExpr compiles an assignment to target whose new value is
// produced by combine, leaving the final stored value on the stack as the
// expression's own result (assignment is an expression in this language).
// When needOld is set, combine runs with the old value already pushed (by
// an addressed load) so it can fold it into the new value, e.g. for a
// compound "+=" assignment.
func (f *fcomp) compileAssignExpr(target ast.Expr, needOld bool, combine func()) {
	kind := f.addrKind(target)
	f.pushAddr(target, kind)
	if needOld {
		f.dupAddr(kind)
		f.loadViaAddr(target, kind)
	}
	combine()
	f.storeViaAddr(target, kind)
	f.pushAddr(target, kind)
	f.loadViaAddr(target, kind)
}

// compileCondAssign compiles Elvis-assign ("target ?:= value"): target is
// left untouched and returned as-is when already truthy/non-null, otherwise
// value is computed and stored.
func (f *fcomp) compileCondAssign(target, value ast.Expr) {
	kind := f.addrKind(target)
	f.pushAddr(target, kind)
	f.loadViaAddr(target, kind)
	f.emitOp(DUP)
	f.push()
	skip := f.emitJump(JMPTRUE)
	f.pop(1)
	f.emitOp(POP)
	f.pop(1)
	f.pushAddr(target, kind)
	f.expr(value)
	f.storeViaAddr(target, kind)
	f.pushAddr(target, kind)
	f.loadViaAddr(target, kind)
	end := f.emitJump(JMP)
	f.patch(skip, f.here())
	f.patch(end, f.here())
}

// compileIncDec compiles prefix/postfix ++/--. Prefix leaves the updated
// value as the result; postfix stashes the pre-update value in a scratch
// local first (a store opcode always consumes its address components
// together with the value being stored, so there is no way to keep an extra
// copy of the old value sitting on the stack across it).
func (f *fcomp) compileIncDec(target ast.Expr, op token.Token, isPrefix bool) {
	kind := f.addrKind(target)
	scratch := -1
	f.pushAddr(target, kind)
	f.dupAddr(kind)
	f.loadViaAddr(target, kind)
	if !isPrefix {
		scratch = f.scratchSlot()
		f.emitOp(DUP)
		f.push()
		f.emitArg(SETLOCAL, uint32(scratch))
		f.pop(1)
	}
	f.emitConst(types.Int(1))
	if op == token.INC {
		f.emitOp(ADD)
	} else {
		f.emitOp(SUB)
	}
	f.pop(1)
	f.storeViaAddr(target, kind)
	if isPrefix {
		f.pushAddr(target, kind)
		f.loadViaAddr(target, kind)
	} else {
		f.emitArg(GETLOCAL, uint32(scratch))
		f.push()
	}
}

func (f *fcomp) emitLoad(id *ast.Identifier) {
	b := f.c.info.Bindings[id]
	switch b.Scope {
	case resolver.Local:
		if b.Const && b.ConstValue != nil {
			f.emitConst(b.ConstValue)
			return
		}
		f.emitArg(GETLOCAL, uint32(b.Index))
		f.push()
	case resolver.Cell:
		f.emitArg(GETCELL, uint32(b.Index))
		f.push()
	case resolver.Free:
		f.emitArg(GETFREECELL, uint32(b.Index))
		f.push()
	case resolver.Predeclared:
		f.emitArg(GETPREDECLARED, f.c.addName(b.Name))
		f.push()
	case resolver.Universal:
		f.emitArg(GETUNIVERSAL, f.c.addName(b.Name))
		f.push()
	default:
		panic("compiler: unresolved identifier reached compile stage: " + b.Name)
	}
}

func (f *fcomp) emitStore(id *ast.Identifier) {
	b := f.c.info.Bindings[id]
	switch b.Scope {
	case resolver.Local:
		f.emitArg(SETLOCAL, uint32(b.Index))
	case resolver.Cell:
		f.emitArg(SETCELL, uint32(b.Index))
	case resolver.Free:
		f.emitArg(SETFREECELL, uint32(b.Index))
	default:
		panic("compiler: cannot assign to a " + b.Scope.String() + " binding: " + b.Name)
	}
	f.pop(1)
}

// compileExprBody compiles stmt so that, when used as an expression (a
// do{} block or a switch-case arm), the last expression statement's value
// is left on the stack; any other trailing statement shape yields Null.
func (f *fcomp) compileExprBody(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.ExprStmt:
		f.expr(s.X)
	case *ast.Block:
		if len(s.Stmts) == 0 {
			f.emitOp(NIL)
			f.push()
			return
		}
		for _, inner := range s.Stmts[:len(s.Stmts)-1] {
			f.stmt(inner)
		}
		f.compileExprBody(s.Stmts[len(s.Stmts)-1])
	default:
		f.stmt(s)
		f.emitOp(NIL)
		f.push()
	}
}

func literalConst(lit *ast.Literal) types.Value {
	switch lit.Kind {
	case token.INT_LIT:
		return types.Int(int32(lit.Int))
	case token.LONG_LIT:
		return types.Long(lit.Int)
	case token.DOUBLE_LIT:
		return types.Double(lit.Float)
	case token.STRING_LIT:
		return types.String(lit.Str)
	case token.DECIMAL_LIT:
		d, _ := decimal.NewFromString(lit.Str)
		return types.Decimal{D: d}
	case token.TRUE:
		return types.True
	case token.FALSE:
		return types.False
	case token.NULL:
		return types.Null
	default:
		panic(fmt.Sprintf("compiler: unexpected literal kind %v", lit.Kind))
	}
}

func binopOp(t token.Token) Opcode {
	switch t {
	case token.LT:
		return LT
	case token.LE:
		return LE
	case token.GT:
		return GT
	case token.GE:
		return GE
	case token.EQEQ:
		return EQL
	case token.NEQ:
		return NEQ
	case token.CMP:
		return CMP
	case token.PLUS:
		return ADD
	case token.MINUS:
		return SUB
	case token.STAR:
		return MUL
	case token.SLASH:
		return DIV
	case token.PERCENT:
		return MOD
	case token.PERCENTPCT:
		return MODPCT
	case token.STARSTAR:
		return POW
	case token.AMP:
		return BITAND
	case token.PIPE:
		return BITOR
	case token.CARET:
		return BITXOR
	case token.LSHIFT:
		return SHL
	case token.RSHIFT:
		return SHR
	case token.URSHIFT:
		return USHR
	default:
		panic(fmt.Sprintf("compiler: unexpected binary operator %v", t))
	}
}

func compoundOp(t token.Token) Opcode {
	switch t {
	case token.PLUSEQ:
		return ADD
	case token.MINUSEQ:
		return SUB
	case token.STAREQ:
		return MUL
	case token.SLASHEQ:
		return DIV
	case token.PCTEQ:
		return MOD
	case token.AMPEQ:
		return BITAND
	case token.PIPEEQ:
		return BITOR
	case token.CARETEQ:
		return BITXOR
	case token.LSHEQ:
		return SHL
	case token.RSHEQ:
		return SHR
	case token.URSHEQ:
		return USHR
	case token.STAR2EQ:
		return POW
	default:
		panic(fmt.Sprintf("compiler: unexpected compound-assignment operator %v", t))
	}
}

func unopOp(t token.Token) Opcode {
	switch t {
	case token.PLUS:
		return UPLUS
	case token.MINUS:
		return UMINUS
	case token.TILDE:
		return BITNOT
	case token.NOT, token.BANG:
		return NOT
	default:
		panic(fmt.Sprintf("compiler: unexpected unary operator %v", t))
	}
}

// newLocal allocates a fresh synthetic local slot that nothing else aliases,
// unlike the single cached scratchSlot: a switch's subject (and any
// destructured sub-value) must stay alive across arbitrary case-body code,
// including code that itself uses scratchSlot, so it cannot share that one
// recycled slot.
func (f *fcomp) newLocal(name string) int {
	idx := len(f.funcode.Locals)
	f.funcode.Locals = append(f.funcode.Locals, Binding{Name: name})
	return idx
}

// maxCaptureIndex scans body for the highest $N capture-variable reference
// (ast.CaptureVar), not descending into a nested ClosureLit's body since
// that closure gets its own capture-variable scope compiled separately. It
// returns -1 if body references no capture variable.
func maxCaptureIndex(body *ast.Block) int {
	if body == nil {
		return -1
	}
	max := -1
	var v ast.VisitorFunc
	v = func(n ast.Node, dir ast.VisitDirection) ast.Visitor {
		if dir != ast.VisitEnter {
			return v
		}
		switch n := n.(type) {
		case *ast.ClosureLit:
			return nil
		case *ast.CaptureVar:
			if n.Index > max {
				max = n.Index
			}
		}
		return v
	}
	for _, s := range body.Stmts {
		ast.Walk(v, s)
	}
	return max
}

// compileSwitch lowers a switch (statement or expression form) to a
// sequential chain of pattern tests, in source order, regardless of the
// resolver's SwitchStrategy hint (§4.3 item 6): binary-search/jump-table
// dispatch is a performance optimization over the same semantics, not a
// distinct lowering, and is left for a future optimizing backend — see
// DESIGN.md.
func (f *fcomp) compileSwitch(sw *ast.Switch, isExpr bool) {
	subjSlot := f.newLocal("$subject")
	f.expr(sw.Subject)
	f.emitArg(SETLOCAL, uint32(subjSlot))
	f.pop(1)

	var endJumps []int
	for _, c := range sw.Cases {
		if len(c.Patterns) == 0 {
			// default: always matches, validated to be the last case
			if isExpr {
				f.compileExprBody(c.Body)
			} else {
				f.stmt(c.Body)
			}
			j := f.emitJump(JMP)
			endJumps = append(endJumps, j)
			continue
		}

		var altMatched []int // JMPTRUE positions: some alternative matched
		for _, p := range c.Patterns {
			f.compileCaseMatch(p, subjSlot)
			j := f.emitJump(JMPTRUE)
			f.pop(1)
			altMatched = append(altMatched, j)
		}
		// every alternative tested false: skip this case entirely
		tryNext := []int{f.emitJump(JMP)}

		matched := f.here()
		for _, j := range altMatched {
			f.patch(j, matched)
		}
		if c.Guard != nil {
			f.expr(c.Guard)
			gf := f.emitJump(JMPFALSE)
			f.pop(1)
			tryNext = append(tryNext, gf)
		}
		if isExpr {
			f.compileExprBody(c.Body)
		} else {
			f.stmt(c.Body)
		}
		j := f.emitJump(JMP)
		endJumps = append(endJumps, j)

		next := f.here()
		for _, p := range tryNext {
			f.patch(p, next)
		}
	}

	if isExpr {
		// nothing matched and there was no default: the expression yields
		// null, same as any other Jactl expression with no value.
		f.emitOp(NIL)
		f.push()
	}
	end := f.here()
	for _, j := range endJumps {
		f.patch(j, end)
	}
}

// compileCaseMatch compiles one switch-case pattern against the subject
// held in subjSlot, leaving a boolean match result on the stack. Binding
// variable patterns (a lowercase-first bare identifier, scoped to this arm
// by the resolver) always match and bind the subject as a side effect.
func (f *fcomp) compileCaseMatch(p ast.Expr, subjSlot int) {
	var fails []int
	f.matchCond(p, subjSlot, &fails)
	f.emitOp(TRUE)
	f.push()
	end := f.emitJump(JMP)
	failAt := f.here()
	for _, pos := range fails {
		f.patch(pos, failAt)
	}
	f.emitOp(FALSE)
	f.push()
	f.patch(end, f.here())
}

// matchCond emits the condition checks for pattern p against subjSlot. On
// any failing check it emits a JMPFALSE/JMP whose patch position is
// appended to *fails; on success, execution (and any pattern-variable
// binding side effects) simply falls through. It leaves no extra value on
// the stack of its own (stack-neutral on the fallthrough path).
func (f *fcomp) matchCond(p ast.Expr, subjSlot int, fails *[]int) {
	switch p := p.(type) {
	case *ast.Literal:
		f.emitArg(GETLOCAL, uint32(subjSlot))
		f.push()
		f.emitConst(literalConst(p))
		f.emitOp(TEQL)
		f.pop(1)
		pos := f.emitJump(JMPFALSE)
		f.pop(1)
		*fails = append(*fails, pos)

	case *ast.Identifier:
		_, isClass := f.c.info.Classes[p.Name]
		switch {
		case p.Name == "_" || p.Name == "*":
			// wildcard: always matches
		case isBuiltinTypeName(p.Name), isClass:
			f.emitArg(GETLOCAL, uint32(subjSlot))
			f.push()
			f.emitArg(GETATTR, f.c.addName("@instanceof:"+p.Name))
			f.pop(1)
			f.push()
			pos := f.emitJump(JMPFALSE)
			f.pop(1)
			*fails = append(*fails, pos)
		case isLowerFirst(p.Name):
			idx := f.nextDeclIndex(p.Name)
			f.emitArg(GETLOCAL, uint32(subjSlot))
			f.push()
			f.storeLocalSlot(idx)
		default:
			f.emitArg(GETLOCAL, uint32(subjSlot))
			f.push()
			f.emitLoad(p)
			f.emitOp(TEQL)
			f.pop(1)
			pos := f.emitJump(JMPFALSE)
			f.pop(1)
			*fails = append(*fails, pos)
		}

	case *ast.ListLit:
		f.emitArg(GETLOCAL, uint32(subjSlot))
		f.push()
		f.emitArg(GETATTR, f.c.addName("@instanceof:List"))
		f.pop(1)
		f.push()
		pos := f.emitJump(JMPFALSE)
		f.pop(1)
		*fails = append(*fails, pos)

		f.emitArg(GETLOCAL, uint32(subjSlot))
		f.push()
		f.emitArg(GETATTR, f.c.addName("@length"))
		f.pop(1)
		f.push()
		f.emitConst(types.Int(int32(len(p.Elems))))
		f.emitOp(EQL)
		f.pop(1)
		pos2 := f.emitJump(JMPFALSE)
		f.pop(1)
		*fails = append(*fails, pos2)

		for i, el := range p.Elems {
			elSlot := f.newLocal("$elem")
			f.emitArg(GETLOCAL, uint32(subjSlot))
			f.push()
			f.emitConst(types.Int(int32(i)))
			f.emitArg(GETINDEX, 0)
			f.pop(2)
			f.push()
			f.emitArg(SETLOCAL, uint32(elSlot))
			f.pop(1)
			f.matchCond(el, elSlot, fails)
		}

	case *ast.MapLit:
		f.emitArg(GETLOCAL, uint32(subjSlot))
		f.push()
		f.emitArg(GETATTR, f.c.addName("@instanceof:Map"))
		f.pop(1)
		f.push()
		pos := f.emitJump(JMPFALSE)
		f.pop(1)
		*fails = append(*fails, pos)

		for _, ent := range p.Entries {
			if ent.Key == nil {
				continue
			}
			valSlot := f.newLocal("$mval")
			f.emitArg(GETLOCAL, uint32(subjSlot))
			f.push()
			f.expr(ent.Key)
			f.emitArg(GETINDEX, 0)
			f.pop(2)
			f.push()
			f.emitArg(SETLOCAL, uint32(valSlot))
			f.pop(1)
			f.matchCond(ent.Value, valSlot, fails)
		}

	default:
		// an arbitrary expression pattern: matches when structurally equal
		// to the subject.
		f.emitArg(GETLOCAL, uint32(subjSlot))
		f.push()
		f.expr(p)
		f.emitOp(TEQL)
		f.pop(1)
		pos := f.emitJump(JMPFALSE)
		f.pop(1)
		*fails = append(*fails, pos)
	}
}

func isBuiltinTypeName(name string) bool {
	switch name {
	case "boolean", "byte", "int", "long", "double", "Decimal", "String", "List", "Map", "def":
		return true
	}
	return false
}

func isLowerFirst(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return r >= 'a' && r <= 'z'
}
