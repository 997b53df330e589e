package vm

import (
	"github.com/jactl-lang/jactl/lang/compiler"
	"github.com/jactl-lang/jactl/lang/types"
)

// frame is one live call's state: its compiled function, the locals it was
// entered with, and its private operand stack. Frames are heap-allocated
// (not pooled) since a suspended continuation.Node holds onto one past the
// call that created it, possibly long after the goroutine that ran it has
// moved on (§4.6).
type frame struct {
	fn     *compiler.Funcode
	fnVal  *types.Function // the Function value this frame is executing, for Captured access
	locals []types.Value
	stack  []types.Value
	sp     int
	pc     uint32

	// iters is the frame's private iterator stack, maintained by
	// ITERPUSH/ITERJMP/ITERPOP for for-in loops; separate from the operand
	// stack since a nested for-in's iterable expression still needs the
	// operand stack for its own evaluation.
	iters []types.Iterator

	// caller is the frame to resume when this one returns, nil for the
	// outermost frame of a Thread.Run invocation.
	caller *frame
}

func newFrame(fn *compiler.Funcode, fnVal *types.Function) *frame {
	locals := make([]types.Value, len(fn.Locals))
	for i := range locals {
		// Capture-variable slots ($0..$n, see lang/compiler's captureBase)
		// may be read before any =~ in their scope has run; null is the
		// correct default rather than a Go nil interface, which every
		// other local already relies on being unreachable before its own
		// declaring statement runs.
		locals[i] = types.Null
	}
	return &frame{
		fn:     fn,
		fnVal:  fnVal,
		locals: locals,
		stack:  make([]types.Value, fn.MaxStack),
	}
}

func (fr *frame) push(v types.Value) {
	fr.stack[fr.sp] = v
	fr.sp++
}

func (fr *frame) pop() types.Value {
	fr.sp--
	v := fr.stack[fr.sp]
	fr.stack[fr.sp] = nil
	return v
}

// popN returns the top n values in push order (oldest first), removing them
// from the stack. Used for MAKELIST/CALL/NEWPOS style opcodes that collect a
// run of pushed arguments.
func (fr *frame) popN(n int) []types.Value {
	out := make([]types.Value, n)
	copy(out, fr.stack[fr.sp-n:fr.sp])
	for i := fr.sp - n; i < fr.sp; i++ {
		fr.stack[i] = nil
	}
	fr.sp -= n
	return out
}

func (fr *frame) peek() types.Value { return fr.stack[fr.sp-1] }

func (fr *frame) peekN(n int) types.Value { return fr.stack[fr.sp-1-n] }

// local reads slot idx, dereferencing through a cell if the local is
// captured (IsCell). GETLOCAL relays the raw *cell instead by reading
// fr.locals[idx] directly, never through this helper.
func (fr *frame) local(idx int) types.Value {
	v := fr.locals[idx]
	if fr.fn.Locals[idx].IsCell {
		return v.(*cell).v
	}
	return v
}

func (fr *frame) setLocal(idx int, v types.Value) {
	if fr.fn.Locals[idx].IsCell {
		if c, ok := fr.locals[idx].(*cell); ok {
			c.v = v
			return
		}
		fr.locals[idx] = &cell{v: v}
		return
	}
	fr.locals[idx] = v
}

// boxCells wraps every Cells-listed local slot in a fresh *cell, run once
// right after argument binding and before the function body's first
// instruction (including any default-parameter null check, which reads the
// slot back through loadLocalSlot's GETCELL, see lang/compiler).
func (fr *frame) boxCells() {
	for _, idx := range fr.fn.Cells {
		if _, ok := fr.locals[idx].(*cell); !ok {
			fr.locals[idx] = &cell{v: fr.locals[idx]}
		}
	}
}

// snapshot captures this frame's locals, captured free variables and
// operand stack for a continuation.Node, deep enough to survive the frame
// itself being abandoned (§4.6). continuation.Node has no field of its own
// for a closure's captured cells, so they are appended after the declared
// locals; restore splits them back apart using len(fn.Locals) as the
// boundary. Cells are copied by reference: two frames sharing a closure
// must keep sharing the same box across a suspend/resume.
func (fr *frame) snapshot() (locals, stack []types.Value) {
	locals = make([]types.Value, 0, len(fr.locals)+len(fr.fnVal.Captured))
	locals = append(locals, fr.locals...)
	locals = append(locals, fr.fnVal.Captured...)
	stack = append([]types.Value(nil), fr.stack[:fr.sp]...)
	return locals, stack
}

// restore re-hydrates a frame from a continuation.Node's saved locals/stack
// at the pc the node recorded, leaving fr ready to resume at that exact
// instruction (the one immediately after the suspending CALL, since
// SAVEPOINT is never emitted — §4.6).
func (fr *frame) restore(locals, stack []types.Value, pc uint32) {
	n := len(fr.fn.Locals)
	copy(fr.locals, locals[:n])
	fr.fnVal.Captured = append([]types.Value(nil), locals[n:]...)
	copy(fr.stack, stack)
	fr.sp = len(stack)
	fr.pc = pc
}
