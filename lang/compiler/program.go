package compiler

import (
	"github.com/jactl-lang/jactl/lang/token"
	"github.com/jactl-lang/jactl/lang/types"
)

// Binding is the compiled-form counterpart of resolver.Binding: just the bit
// the VM and disassembler need at runtime, stripped of resolve-time-only
// bookkeeping.
type Binding struct {
	Name   string
	IsCell bool
}

// ParamDesc describes one compiled parameter. A parameter with HasDefault
// set gets its default-value expression compiled inline at the top of the
// function body (checked against the Null sentinel bindArgs fills a missing
// trailing argument with), rather than as a separate thunk — simpler than
// the two-function approach and sufficient since defaults only ever close
// over what was visible at the point the function itself is declared.
type ParamDesc struct {
	Name       string
	HasDefault bool
	VarArgs    bool
}

// Funcode is one compiled function, method, or the implicit top-level script
// body. Unlike the teacher's Funcode, there is no separate catch/defer
// table: Jactl has no try/catch (§9 Open Questions decision), so control
// flow is just straight-line code plus jumps.
type Funcode struct {
	Prog     *Program
	Name     string
	Pos      token.Pos
	Code     []byte
	Locals   []Binding // parameters first, then locals, in declaration order
	Cells    []int     // indices into Locals that are captured and need a cell
	Freevars []Binding // for disassembly/diagnostics only
	Params   []ParamDesc
	MaxStack int
	Async    bool // settled by the resolver's async fixed point (§4.3 item 5)

	// Receiver is true for a compiled instance method: the resolver binds
	// an implicit "this" local right after the declared parameters (§3.5),
	// and lang/vm fills that slot from the call's bound instance rather
	// than from a positional argument.
	Receiver bool

	lineTable []lineEntry // pc -> source position, built during emission
}

type lineEntry struct {
	pc  uint32
	pos token.Pos
}

// Position returns the source position of the instruction at pc, the
// position of the nearest preceding recorded instruction otherwise.
func (fn *Funcode) Position(pc uint32) token.Pos {
	var best token.Pos
	for _, e := range fn.lineTable {
		if e.pc > pc {
			break
		}
		best = e.pos
	}
	return best
}

// protoFunc adapts a *Funcode to types.Proto: Funcode can't implement the
// interface directly since it already has a Name field of the same name as
// the required Name() method.
type protoFunc struct{ fn *Funcode }

func (p protoFunc) Name() string  { return p.fn.Name }
func (p protoFunc) IsAsync() bool { return p.fn.Async }

var _ types.Proto = protoFunc{}

// NewProto wraps fn as the types.Proto carried by the *types.Function the
// VM constructs for it, so lang/vm never needs its own Funcode-to-Proto
// adapter.
func NewProto(fn *Funcode) types.Proto { return protoFunc{fn: fn} }

// FuncodeOf recovers the *Funcode behind a types.Proto produced by this
// package, for lang/vm's dispatch loop and resume path. It reports false
// for a Proto from anywhere else (there is none, today, but a native
// function's Proto is always nil, not a protoFunc, so the check still
// matters).
func FuncodeOf(p types.Proto) (*Funcode, bool) {
	pf, ok := p.(protoFunc)
	if !ok {
		return nil, false
	}
	return pf.fn, true
}

// ClassDesc is the compiled form of one resolved class declaration (§3.5):
// a types.ClassDef with its method Funcodes wired up (a const field with a
// bare literal default carries it as FieldDef.Init), built once by Compile
// and shared by every instance.
type ClassDesc struct {
	Def     *types.ClassDef
	Methods map[string]*Funcode
	Statics map[string]*Funcode
}

// Program is the fully compiled form of one parsed, resolved script: every
// function body, the constant pool, the name table (attribute/predeclared/
// universal identifiers referenced by index), and the compiled classes.
type Program struct {
	Filename  string
	Toplevel  *Funcode
	Functions []*Funcode // in compile order: class methods/statics first, then Toplevel and its nested functions
	Constants []types.Value
	Names     []string
	Classes   map[string]*ClassDesc
}
