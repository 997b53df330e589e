package vm

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/jactl-lang/jactl/continuation"
	"github.com/jactl-lang/jactl/lang/compiler"
	"github.com/jactl-lang/jactl/lang/token"
	"github.com/jactl-lang/jactl/lang/types"
)

// decode reads the opcode at fr.pc and, if it carries one, its 4-byte
// little-endian operand, advancing fr.pc past both.
func decode(fr *frame) (compiler.Opcode, uint32) {
	op := compiler.Opcode(fr.fn.Code[fr.pc])
	fr.pc++
	if op < compiler.OpcodeArgMin {
		return op, 0
	}
	arg := binary.LittleEndian.Uint32(fr.fn.Code[fr.pc:])
	fr.pc += 4
	return op, arg
}

// runFromTop starts a fresh execution of prog's Toplevel function, the
// single entry point RunSync/RunAsync resume() funnels every first call
// through.
func (th *Thread) runFromTop(globals *types.Map) (types.Value, *suspended, *RuntimeError) {
	th.globals = globals
	// Every entry of the caller-supplied globals map becomes a Predeclared
	// binding by name (§4.3): a bare identifier reads the live value, and
	// since List/Map/Instance values are reference types, a compound
	// global's contents mutated through GETATTR/SETATTR/SETINDEX stay
	// aliased to the same object the host's globals map holds, matching
	// "scripts may mutate its entries" without needing a SETPREDECLARED
	// opcode (only reassigning the bare identifier itself is rejected, by
	// emitStore's panic on the Predeclared scope).
	for _, kv := range globals.Items() {
		if name, ok := kv.Key.(types.String); ok {
			th.Predeclared[string(name)] = kv.Value
		}
	}
	top := th.prog.Toplevel
	fnVal := types.NewClosure(compiler.NewProto(top), nil)
	fr := newFrame(top, fnVal)
	fr.boxCells()
	return th.exec(fr)
}

// resumeChain re-enters a suspended chain with the environment's delivered
// resumeValue, walking from the innermost (Child == nil) node — the frame
// that actually issued the suspending call — back out to the frame the
// chain's caller is holding (§4.6).
func (th *Thread) resumeChain(node *continuation.Node, resumeValue types.Value) (types.Value, *suspended, *RuntimeError) {
	var childResult types.Value
	if node.Child != nil {
		v, sus, rerr := th.resumeChain(node.Child, resumeValue)
		if rerr != nil {
			return nil, nil, rerr
		}
		if sus != nil {
			wrapped := &continuation.Node{
				FunctionFQID:   node.FunctionFQID,
				MethodLocation: node.MethodLocation,
				Locals:         node.Locals,
				Stack:          node.Stack,
				Child:          sus.chain,
			}
			return nil, &suspended{chain: wrapped}, nil
		}
		childResult = v
	} else {
		childResult = resumeValue
	}

	fn, ok := th.funcByFQID[node.FunctionFQID]
	if !ok {
		return nil, nil, &RuntimeError{Kind: RestoreError, Message: "unknown function " + node.FunctionFQID, SourceName: th.prog.Filename}
	}
	fnVal := types.NewClosure(compiler.NewProto(fn), nil)
	fr := newFrame(fn, fnVal)
	fr.restore(node.Locals, node.Stack, node.MethodLocation)
	fr.push(childResult)
	return th.exec(fr)
}

// exec runs fr until it returns, dies, suspends, or fails. A suspension
// wraps fr's own locals/stack into a new continuation.Node whose Child is
// the chain returned by the callee that suspended (§4.6 point 3/4).
func (th *Thread) exec(fr *frame) (types.Value, *suspended, *RuntimeError) {
	for {
		if rerr := th.checkResourceLimits(fr); rerr != nil {
			return nil, nil, rerr
		}
		if int(fr.pc) >= len(fr.fn.Code) {
			return nil, nil, th.newError(fr, Custom, "fell off the end of %s", fr.fn.Name)
		}
		op, arg := decode(fr)

		switch op {
		case compiler.NOP:

		case compiler.DUP:
			fr.push(fr.peek())
		case compiler.DUP2:
			a, b := fr.peekN(1), fr.peek()
			fr.push(a)
			fr.push(b)
		case compiler.POP:
			fr.pop()
		case compiler.SWAP:
			a, b := fr.pop(), fr.pop()
			fr.push(a)
			fr.push(b)

		case compiler.LT, compiler.LE, compiler.GT, compiler.GE:
			y, x := fr.pop(), fr.pop()
			cmp, err := compareOrd(th, x, y)
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			fr.push(types.Bool(compareResult(op, cmp)))
		case compiler.CMP:
			y, x := fr.pop(), fr.pop()
			cmp, err := compareOrd(th, x, y)
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			fr.push(types.Int(int32(cmp)))
		case compiler.EQL:
			y, x := fr.pop(), fr.pop()
			eq, err := types.Equal(x, y, th.MinScale)
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			fr.push(types.Bool(eq))
		case compiler.NEQ:
			y, x := fr.pop(), fr.pop()
			eq, err := types.Equal(x, y, th.MinScale)
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			fr.push(types.Bool(!eq))
		case compiler.TEQL:
			y, x := fr.pop(), fr.pop()
			eq, err := types.TypeStrictEqual(x, y, th.MinScale)
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			fr.push(types.Bool(eq))

		case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.INTDIV,
			compiler.MOD, compiler.MODPCT, compiler.POW,
			compiler.BITAND, compiler.BITOR, compiler.BITXOR,
			compiler.SHL, compiler.SHR, compiler.USHR:
			y, x := fr.pop(), fr.pop()
			v, err := th.binaryOp(op, x, y)
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			fr.push(v)

		case compiler.UPLUS:
			v, err := types.Unary(token.PLUS, fr.pop())
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			fr.push(v)
		case compiler.UMINUS:
			v, err := types.Unary(token.MINUS, fr.pop())
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			fr.push(v)
		case compiler.BITNOT:
			v, err := types.Unary(token.TILDE, fr.pop())
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			fr.push(v)
		case compiler.NOT:
			fr.push(types.Bool(!fr.pop().Truth()))

		case compiler.NIL:
			fr.push(types.Null)
		case compiler.TRUE:
			fr.push(types.Bool(true))
		case compiler.FALSE:
			fr.push(types.Bool(false))

		case compiler.JMP:
			fr.pc = arg
		case compiler.JMPFALSE:
			if !fr.pop().Truth() {
				fr.pc = arg
			}
		case compiler.JMPTRUE:
			if fr.pop().Truth() {
				fr.pc = arg
			}

		case compiler.CONST:
			fr.push(th.prog.Constants[arg])

		case compiler.MAKELIST:
			fr.push(types.NewList(fr.popN(int(arg))))
		case compiler.MAKEMAP:
			fr.push(types.NewMap(0))
		case compiler.SETMAPENTRY:
			value, key, m := fr.pop(), fr.pop(), fr.pop()
			mp := m.(*types.Map)
			if err := mp.SetKey(key, value); err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
		case compiler.APPEND:
			value, lst := fr.pop(), fr.pop()
			lst.(*types.List).Append(value)

		case compiler.MAKECLOSURE:
			childFn := th.prog.Functions[arg]
			captured := fr.popN(len(childFn.Freevars))
			fr.push(types.NewClosure(compiler.NewProto(childFn), captured))

		case compiler.GETLOCAL:
			fr.push(fr.locals[arg])
		case compiler.SETLOCAL:
			fr.locals[arg] = fr.pop()
		case compiler.GETCELL:
			fr.push(fr.local(int(arg)))
		case compiler.SETCELL:
			fr.setLocal(int(arg), fr.pop())
		case compiler.GETFREE, compiler.GETFREECELL:
			c := fr.fnVal.Captured[arg].(*cell)
			fr.push(c.v)
		case compiler.SETFREECELL:
			c := fr.fnVal.Captured[arg].(*cell)
			c.v = fr.pop()

		case compiler.GETPREDECLARED:
			name := th.prog.Names[arg]
			v, ok := th.Predeclared[name]
			if !ok {
				return nil, nil, th.newError(fr, UnknownField, "undefined global %q", name)
			}
			fr.push(v)
		case compiler.GETUNIVERSAL:
			name := th.prog.Names[arg]
			v, ok := th.Universal[name]
			if !ok {
				return nil, nil, th.newError(fr, UnknownField, "undefined built-in %q", name)
			}
			fr.push(v)

		case compiler.GETATTR:
			name := th.prog.Names[arg]
			recv := fr.pop()
			v, err := th.getAttr(fr, recv, name)
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			fr.push(v)
		case compiler.SETATTR:
			name := th.prog.Names[arg]
			value, recv := fr.pop(), fr.pop()
			if err := th.setAttr(recv, name, value); err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
		case compiler.GETINDEX:
			idx, recv := fr.pop(), fr.pop()
			v, err := th.getIndex(recv, idx)
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			fr.push(v)
		case compiler.SETINDEX:
			value, idx, recv := fr.pop(), fr.pop(), fr.pop()
			if err := th.setIndex(recv, idx, value); err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
		case compiler.SLICE:
			to, from, recv := fr.pop(), fr.pop(), fr.pop()
			sl, ok := recv.(types.Sliceable)
			if !ok {
				return nil, nil, th.newError(fr, TypeError, "%s is not sliceable", recv.Tag())
			}
			fromI, toI, err := sliceBounds(sl, from, to)
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			v, err := sl.Slice(fromI, toI)
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			fr.push(v)

		case compiler.NEWPOS:
			n := int(arg)
			args := fr.popN(n)
			className := fr.pop().(types.String)
			inst, err := th.newInstance(string(className), args, nil)
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			fr.push(inst)
		case compiler.NEWNAMED:
			m := fr.pop().(*types.Map)
			className := fr.pop().(types.String)
			named := make(map[string]types.Value, m.Len())
			for _, kv := range m.Items() {
				named[string(kv.Key.(types.String))] = kv.Value
			}
			inst, err := th.newInstance(string(className), nil, named)
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			fr.push(inst)

		case compiler.ITERPUSH:
			iterable, ok := fr.pop().(types.Iterable)
			if !ok {
				return nil, nil, th.newError(fr, TypeError, "value is not iterable")
			}
			fr.iters = append(fr.iters, iterable.Iterate())
		case compiler.ITERJMP:
			it := fr.iters[len(fr.iters)-1]
			v, hasNext, err := it.Next()
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			if !hasNext {
				fr.iters = fr.iters[:len(fr.iters)-1]
				fr.pc = arg
				continue
			}
			fr.push(v)
		case compiler.ITERPOP:
			fr.iters = fr.iters[:len(fr.iters)-1]

		case compiler.REGEXMATCH:
			raw := th.prog.Names[arg]
			mods, captureBase, captureCount := raw, -1, 0
			if i := strings.IndexByte(raw, capturesSep); i >= 0 {
				mods = raw[:i]
				captureBase, captureCount = parseCaptureSuffix(raw[i+1:])
			}
			negate := false
			if len(mods) > 0 && mods[len(mods)-1] == '!' {
				negate = true
				mods = mods[:len(mods)-1]
			}
			pattern, subject := fr.pop(), fr.pop()
			matched, groups, err := th.regexMatch(fr, pattern, subject, mods)
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			if captureBase >= 0 {
				for i := 0; i < captureCount; i++ {
					if matched && i < len(groups) {
						fr.locals[captureBase+i] = groups[i]
					} else {
						fr.locals[captureBase+i] = types.Null
					}
				}
			}
			if negate {
				matched = !matched
			}
			fr.push(types.Bool(matched))
		case compiler.REGEXSUBST:
			mods := th.prog.Names[arg]
			repl, pattern, subject := fr.pop(), fr.pop(), fr.pop()
			v, err := th.regexSubst(pattern, subject, repl, mods)
			if err != nil {
				return nil, nil, th.wrapErr(fr, err)
			}
			fr.push(v)

		case compiler.CALL:
			n := int(arg)
			args := fr.popN(n)
			calleeVal := fr.pop()
			fn, ok := calleeVal.(*types.Function)
			if !ok {
				return nil, nil, th.newError(fr, TypeError, "%s is not callable", calleeVal.Tag())
			}
			v, sus, rerr := th.call(fr, fn, args)
			if rerr != nil {
				return nil, nil, rerr
			}
			if sus != nil {
				locals, stack := fr.snapshot()
				node := &continuation.Node{
					FunctionFQID:   th.fqidOf(fr.fn),
					MethodLocation: fr.pc,
					Locals:         locals,
					Stack:          stack,
				}
				if sus.target != nil {
					node.ResumeTarget = *sus.target
				} else {
					node.Child = sus.chain
				}
				return nil, &suspended{chain: node}, nil
			}
			fr.push(v)

		case compiler.RETURN:
			return fr.pop(), nil, nil

		case compiler.DIE:
			v := fr.pop()
			return nil, nil, th.newError(fr, UserDie, "%s", v.String())

		default:
			return nil, nil, th.newError(fr, Custom, "illegal opcode %s", op)
		}
	}
}

// call dispatches a CALL to a native, async-host or script function. The
// caller's frame fr is used only for error positioning.
func (th *Thread) call(fr *frame, fn *types.Function, args []types.Value) (types.Value, *suspended, *RuntimeError) {
	switch {
	case fn == checkpointIntrinsic:
		return th.checkpointCall(fr, args)

	case fn == evalIntrinsic:
		return th.evalCall(fr, args)

	case fn.Native != nil:
		v, err := fn.Native(args)
		if err != nil {
			return nil, nil, th.wrapErr(fr, err)
		}
		return v, nil, nil

	case fn.AsyncHost != nil:
		v, req, err := fn.AsyncHost(args)
		if err != nil {
			return nil, nil, th.wrapErr(fr, err)
		}
		if req != nil {
			target := continuation.ResumeTarget{AsyncRequest: *req}
			return nil, &suspended{target: &target}, nil
		}
		return v, nil, nil

	default:
		childFn, ok := compiler.FuncodeOf(fn.Proto)
		if !ok {
			return nil, nil, th.newError(fr, TypeError, "value is not callable")
		}
		childFrame := newFrame(childFn, fn)
		if rerr := th.bindArgs(childFrame, childFn, args, fn.Bound); rerr != nil {
			return nil, nil, rerr
		}
		childFrame.boxCells()
		return th.exec(childFrame)
	}
}

// bindArgs binds args (already collapsed by emitArgs: trailing named
// arguments arrive as one Map when the call site had any) to fn's declared
// parameters, filling missing trailing defaults with Null and the vararg
// parameter, if any, with a List of the surplus (§3.2, grounded on
// nenuphar's machine.setArgs). A trailing Map argument beyond the fixed
// parameter count is treated as a named-argument bundle rather than a
// positional Map value whenever fn has no vararg parameter — a pragmatic
// simplification, since the bytecode carries no separate marker for "real
// positional map" vs "collapsed named args" (see DESIGN.md).
func (th *Thread) bindArgs(fr *frame, fn *compiler.Funcode, args []types.Value, bound *types.Instance) *RuntimeError {
	nparams := len(fn.Params)
	varIdx := -1
	if nparams > 0 && fn.Params[nparams-1].VarArgs {
		varIdx = nparams - 1
	}
	fixed := nparams
	if varIdx >= 0 {
		fixed = varIdx
	}

	positional := args
	var named map[string]types.Value
	if varIdx < 0 && len(args) > fixed {
		if m, ok := args[len(args)-1].(*types.Map); ok {
			positional = args[:len(args)-1]
			named = make(map[string]types.Value, m.Len())
			for _, kv := range m.Items() {
				if s, ok := kv.Key.(types.String); ok {
					named[string(s)] = kv.Value
				}
			}
		}
	}

	if varIdx < 0 && len(positional) > fixed {
		return th.newError(fr, ArityError, "%s: expected %d argument(s), got %d", fn.Name, fixed, len(positional))
	}

	for i := 0; i < fixed; i++ {
		switch {
		case i < len(positional):
			fr.setLocal(i, positional[i])
		case named != nil:
			if v, ok := named[fn.Params[i].Name]; ok {
				fr.setLocal(i, v)
			} else if fn.Params[i].HasDefault {
				fr.setLocal(i, types.Null)
			} else {
				return th.newError(fr, ArityError, "%s: missing required argument %q", fn.Name, fn.Params[i].Name)
			}
		case fn.Params[i].HasDefault:
			fr.setLocal(i, types.Null)
		default:
			return th.newError(fr, ArityError, "%s: missing required argument %q", fn.Name, fn.Params[i].Name)
		}
	}
	if varIdx >= 0 {
		var rest []types.Value
		if len(positional) > fixed {
			rest = append(rest, positional[fixed:]...)
		}
		fr.setLocal(varIdx, types.NewList(rest))
	}
	if fn.Receiver {
		fr.setLocal(nparams, bound)
	}
	return nil
}

func (th *Thread) binaryOp(op compiler.Opcode, x, y types.Value) (types.Value, error) {
	tok, ok := opcodeToken[op]
	if !ok {
		return nil, fmt.Errorf("type error: unsupported operator %s", op)
	}
	// HasBinary lets a user class (or a future container) override an
	// operator; tried on both operands before any built-in handling, same
	// precedence order as HasAttrs.Attr before the builtin method table.
	if hb, ok := x.(types.HasBinary); ok {
		if v, err, handled := hb.Binary(tok, y, types.Left); handled {
			return v, err
		}
	}
	if hb, ok := y.(types.HasBinary); ok {
		if v, err, handled := hb.Binary(tok, x, types.Right); handled {
			return v, err
		}
	}
	if s, ok := x.(types.String); ok {
		return s.Concat(y), nil
	}
	if op == compiler.ADD {
		if xl, ok := x.(*types.List); ok {
			if yl, ok := y.(*types.List); ok {
				return types.NewList(append(append([]types.Value{}, xl.Elems()...), yl.Elems()...)), nil
			}
		}
	}
	return types.Binary(tok, x, y, th.MinScale)
}

var opcodeToken = map[compiler.Opcode]token.Token{
	compiler.ADD:    token.PLUS,
	compiler.SUB:    token.MINUS,
	compiler.MUL:    token.STAR,
	compiler.DIV:    token.SLASH,
	compiler.INTDIV: token.SLASH,
	compiler.MOD:    token.PERCENT,
	compiler.MODPCT: token.PERCENTPCT,
	compiler.POW:    token.STARSTAR,
	compiler.BITAND: token.AMP,
	compiler.BITOR:  token.PIPE,
	compiler.BITXOR: token.CARET,
	compiler.SHL:    token.LSHIFT,
	compiler.SHR:    token.RSHIFT,
	compiler.USHR:   token.URSHIFT,
}

// compareOrd implements LT/LE/GT/GE/CMP uniformly via the Ordered
// capability interface; every Value that supports ordering (the numeric
// tower, String, List, user classes with a natural order) implements it.
func compareOrd(th *Thread, x, y types.Value) (int, error) {
	ord, ok := x.(types.Ordered)
	if !ok {
		return 0, fmt.Errorf("type error: %s is not ordered", x.Tag())
	}
	return ord.Cmp(y, th.MinScale)
}

func compareResult(op compiler.Opcode, cmp int) bool {
	switch op {
	case compiler.LT:
		return cmp < 0
	case compiler.LE:
		return cmp <= 0
	case compiler.GT:
		return cmp > 0
	default: // GE
		return cmp >= 0
	}
}

func sliceBounds(sl types.Sliceable, from, to types.Value) (int, int, error) {
	n := sl.Len()
	fromI, toI := 0, n
	if _, isNull := from.(types.NullType); !isNull {
		i, ok := asInt(from)
		if !ok {
			return 0, 0, fmt.Errorf("type error: slice bound must be numeric")
		}
		fromI = i
	}
	if _, isNull := to.(types.NullType); !isNull {
		i, ok := asInt(to)
		if !ok {
			return 0, 0, fmt.Errorf("type error: slice bound must be numeric")
		}
		toI = i
	}
	if fromI < 0 {
		fromI += n
	}
	if toI < 0 {
		toI += n
	}
	return fromI, toI, nil
}

func asInt(v types.Value) (int, bool) {
	switch n := v.(type) {
	case types.Byte:
		return int(n), true
	case types.Int:
		return int(n), true
	case types.Long:
		return int(n), true
	}
	return 0, false
}

func (th *Thread) getAttr(fr *frame, recv types.Value, name string) (types.Value, error) {
	if strings.HasPrefix(name, "@") {
		return th.getSyntheticAttr(fr, recv, name)
	}
	if ha, ok := recv.(types.HasAttrs); ok {
		v, err := ha.Attr(name)
		if err == nil {
			return v, nil
		}
		if _, ok := err.(types.NoSuchAttrError); !ok {
			return nil, err
		}
	}
	if m, ok := recv.(types.Mapping); ok && name != "toString" {
		if v, found := m.Get(types.String(name)); found {
			return v, nil
		}
	}
	if fn, ok := builtins[recv.Tag()][name]; ok {
		return types.NewNative(name, func(args []types.Value) (types.Value, error) { return fn(th, fr, recv, args) }), nil
	}
	if hm, ok := th.HostMethods[recv.Tag()][name]; ok {
		return bindHostMethod(recv, hm), nil
	}
	if name == "toString" {
		return types.NewNative("toString", func(args []types.Value) (types.Value, error) { return types.String(recv.String()), nil }), nil
	}
	return nil, types.NoSuchAttrError(name)
}

// getSyntheticAttr dispatches the compiler's synthetic "@..."-named
// pseudo-attributes (compiler.go's InstanceOf/In/As/Cast expressions and its
// switch-pattern matchCond emission): GETATTR is the only attribute-access
// opcode, so instanceof/in/as/cast and list/map pattern shape checks all
// piggyback on it rather than getting opcodes of their own.
func (th *Thread) getSyntheticAttr(fr *frame, recv types.Value, name string) (types.Value, error) {
	switch {
	case name == "@length":
		seq, ok := recv.(interface{ Len() int })
		if !ok {
			return nil, fmt.Errorf("type error: %s has no length", recv.Tag())
		}
		return types.Int(int32(seq.Len())), nil

	case name == "@contains":
		needle := fr.pop()
		found, err := containsValue(th, recv, needle)
		if err != nil {
			return nil, err
		}
		return types.Bool(found), nil

	case strings.HasPrefix(name, "@instanceof:"):
		return types.Bool(isInstanceOf(recv, name[len("@instanceof:"):])), nil

	case strings.HasPrefix(name, "@as:"):
		return types.ConvertTo(recv, name[len("@as:"):], false)

	case strings.HasPrefix(name, "@cast:"):
		return types.ConvertTo(recv, name[len("@cast:"):], true)
	}
	return nil, types.NoSuchAttrError(name)
}

// isInstanceOf implements the instanceof operator and switch-pattern type
// tests (§3.2): "def" matches anything, a builtin type name matches by Tag,
// and a user class name matches recv's class or any of its ancestors.
func isInstanceOf(recv types.Value, typeName string) bool {
	if typeName == "def" {
		return true
	}
	if recv.Tag().String() == typeName {
		return true
	}
	inst, ok := recv.(*types.Instance)
	if !ok {
		return false
	}
	for c := inst.Class; c != nil; c = c.Parent {
		if c.Name == typeName {
			return true
		}
	}
	return false
}

// containsValue implements the "in"/"!in" operators (§3.2): membership in a
// List is structural-equality search, in a Map is key lookup, and in a
// String is substring search.
func containsValue(th *Thread, container, needle types.Value) (bool, error) {
	switch c := container.(type) {
	case *types.List:
		for _, e := range c.Elems() {
			eq, err := types.Equal(e, needle, th.MinScale)
			if err != nil {
				return false, err
			}
			if eq {
				return true, nil
			}
		}
		return false, nil
	case types.Mapping:
		_, found := c.Get(needle)
		return found, nil
	case types.String:
		s, ok := needle.(types.String)
		if !ok {
			return false, fmt.Errorf("type error: cannot search String for %s", needle.Tag())
		}
		return strings.Contains(string(c), string(s)), nil
	}
	return false, fmt.Errorf("type error: %s does not support 'in'", container.Tag())
}

// bindHostMethod wraps a RegisterMethod-installed Function so a call site
// receives recv as its leading argument, the same convention the builtins
// table uses (fn(th, fr, recv, args)). A host registers a method with the
// receiver's own type left implicit in its Go signature (args[0]), since
// RegisterMethod has no way to thread th/fr/recv through like an internal
// builtin does.
func bindHostMethod(recv types.Value, hm *types.Function) *types.Function {
	switch {
	case hm.Native != nil:
		native := hm.Native
		return types.NewNative(hm.Name(), func(args []types.Value) (types.Value, error) {
			return native(append([]types.Value{recv}, args...))
		})
	case hm.AsyncHost != nil:
		asyncFn := hm.AsyncHost
		return types.NewAsyncNative(hm.Name(), func(args []types.Value) (types.Value, *types.AsyncRequest, error) {
			return asyncFn(append([]types.Value{recv}, args...))
		})
	default:
		return hm
	}
}

func (th *Thread) setAttr(recv types.Value, name string, value types.Value) error {
	sf, ok := recv.(types.HasSetField)
	if !ok {
		return fmt.Errorf("type error: %s has no settable field %q", recv.Tag(), name)
	}
	return sf.SetField(name, value)
}

func (th *Thread) getIndex(recv, idx types.Value) (types.Value, error) {
	if m, ok := recv.(types.Mapping); ok {
		v, found := m.Get(idx)
		if !found {
			return types.Null, nil
		}
		return v, nil
	}
	ix, ok := recv.(types.Indexable)
	if !ok {
		return nil, fmt.Errorf("type error: %s is not indexable", recv.Tag())
	}
	i, ok := asInt(idx)
	if !ok {
		return nil, fmt.Errorf("type error: index must be numeric")
	}
	return ix.Index(i)
}

func (th *Thread) setIndex(recv, idx, value types.Value) error {
	if sk, ok := recv.(types.HasSetKey); ok {
		return sk.SetKey(idx, value)
	}
	si, ok := recv.(types.HasSetIndex)
	if !ok {
		return fmt.Errorf("type error: %s does not support index assignment", recv.Tag())
	}
	i, ok := asInt(idx)
	if !ok {
		return fmt.Errorf("type error: index must be numeric")
	}
	return si.SetIndex(i, value)
}

func (th *Thread) newInstance(className string, positional []types.Value, named map[string]types.Value) (*types.Instance, error) {
	desc, ok := th.prog.Classes[className]
	if !ok {
		return nil, fmt.Errorf("type error: unknown class %q", className)
	}
	if named != nil {
		return types.NewNamed(desc.Def, named)
	}
	return types.NewPositional(desc.Def, positional)
}

type scanKey struct {
	fr *frame
	pc uint32
}

// capturesSep separates a REGEXMATCH opcode's modifier letters from its
// optional "baseSlot,count" capture-variable suffix (compiler.go's
// RegexMatch emission appends it only when the enclosing function
// references $0..$n); a plain match with no capture-variable usage in
// scope carries no suffix at all.
const capturesSep = 0

func parseCaptureSuffix(s string) (base, count int) {
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return -1, 0
	}
	b, err1 := strconv.Atoi(s[:comma])
	c, err2 := strconv.Atoi(s[comma+1:])
	if err1 != nil || err2 != nil {
		return -1, 0
	}
	return b, c
}

// regexMatch runs subjectVal =~ patternVal and returns whether it matched
// plus the match's capture groups (index 0 is the whole match, 1..n the
// parenthesized groups), for the REGEXMATCH opcode handler to bind into the
// enclosing lexical region's $0..$n capture variables (§4.5). groups is nil
// on a failed match.
func (th *Thread) regexMatch(fr *frame, patternVal, subjectVal types.Value, mods string) (bool, []types.Value, error) {
	re, err := types.CompileRegex(string(patternVal.(types.String)), mods)
	if err != nil {
		return false, nil, err
	}
	subject := string(subjectVal.(types.String))
	var scan *types.ScanState
	if re.Global {
		key := scanKey{fr: fr, pc: fr.pc}
		scan = th.scanStates[key]
		if scan == nil {
			scan = &types.ScanState{}
			th.scanStates[key] = scan
		}
	}
	result, ok := re.Match(subject, scan)
	if !ok {
		return false, nil, nil
	}
	return true, result.Groups, nil
}

func (th *Thread) regexSubst(patternVal, subjectVal, replVal types.Value, mods string) (types.Value, error) {
	re, err := types.CompileRegex(string(patternVal.(types.String)), mods)
	if err != nil {
		return nil, err
	}
	subject := string(subjectVal.(types.String))
	result := re.Substitute(subject, string(replVal.(types.String)))
	return types.String(result), nil
}

// fqidOf builds a stable, Program-scoped identifier for fn, used as
// continuation.Node.FunctionFQID. It is deliberately not a human-facing
// qualified name: uniqueness within this Program is all resume() needs.
// A checkpoint is not checked against the Program that resumes it as a
// whole (the chain-level ClassVersionDigest is not compared); a frame whose
// function name this Program does not know makes resumeChain fail.
func (th *Thread) fqidOf(fn *compiler.Funcode) string {
	if s, ok := th.fqidByFunc[fn]; ok {
		return s
	}
	return fn.Name
}
