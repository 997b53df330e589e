// Package vm is the bytecode interpreter: it executes a *compiler.Program
// produced by lang/compiler, suspending through an env.Environment whenever
// it meets an async call (§4.6), and reports every failure as a
// *RuntimeError (§6).
package vm

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jactl-lang/jactl/checkpoint"
	"github.com/jactl-lang/jactl/continuation"
	"github.com/jactl-lang/jactl/env"
	"github.com/jactl-lang/jactl/lang/compiler"
	"github.com/jactl-lang/jactl/lang/types"
)

// Thread runs one script instance: a single logical call stack that may
// suspend across goroutine boundaries any number of times before reaching a
// terminal result (§4.6). A Thread is used once, for one CompiledScript
// invocation; RunSync/RunAsync each create a fresh one.
type Thread struct {
	prog *compiler.Program

	// Predeclared holds every name a script may read as a bare identifier
	// without a local declaration: CompilationContext-registered natives
	// passed to NewThread plus, once runFromTop seeds it, every entry of
	// the run's own globals map. Keyed directly by name (GETPREDECLARED's
	// operand indexes Program.Names to recover the string key).
	Predeclared map[string]types.Value
	// Universal holds the language's built-in global functions (println,
	// eval, checkpoint, sleep, ...), shared read-only across every Thread.
	Universal map[string]types.Value

	Env env.Environment

	// MinScale configures Decimal division (§3.3), sourced from the
	// embedding CompilationContext's build options; defaults to
	// types.DefaultMinScale when left zero.
	MinScale int

	// MaxSteps and MaxExecutionTime are the context's maxLoopIterations/
	// maxExecutionTime limits (§4.5 point 4, §4.6 "Cancellation/timeout"),
	// checked once per dispatched instruction rather than only at loop
	// back-edges: counting every instruction is a strictly tighter bound
	// than counting only loop iterations, so it also catches runaway
	// unbounded recursion, which the literal "loop iterations" wording
	// does not mention but which the same resource limit should plainly
	// cover too (see DESIGN.md). Zero means unlimited.
	MaxSteps         int64
	MaxExecutionTime time.Duration
	startedAt        time.Time
	steps            int64
	cancelled        int32

	// HostMethods holds methods registered through the embedding API's
	// RegisterMethod (§6), keyed by the receiver Tag they extend. Consulted
	// by getAttr after the language's own closed builtins table, so a host
	// registration can add a method to a Tag (e.g. "LIST") without being
	// able to shadow one of the built-in names.
	HostMethods map[types.Tag]map[string]*types.Function

	InstanceID         uuid.UUID
	ContextID          string
	ClassVersionDigest string
	classes            checkpoint.ClassResolver

	// lastCPID is the most recent checkpoint sequence number reached, sent
	// to Env.DeleteCheckpoint once the instance reaches a terminal state.
	lastCPID uint32

	// globals holds the script's top-level Map for the duration of one
	// run, set by runFromTop and consulted by the checkpoint() builtin.
	globals *types.Map

	// funcByFQID/fqidByFunc let a suspension record a stable
	// continuation.Node.FunctionFQID and let a resume look the *Funcode
	// back up again; built once from prog.Functions plus every class
	// method, keyed the same way checkpoint payloads name a function.
	funcByFQID map[string]*compiler.Funcode
	fqidByFunc map[*compiler.Funcode]string

	// scanStates backs the g (global) regex match modifier's position
	// memory, keyed by the live frame plus the instruction that issued the
	// match (§3.5). Entries are never copied into a continuation.Node: a
	// resumed frame is a fresh allocation, so a suspend/resume conservatively
	// forgets mid-scan position, matching the Open Question decision in
	// DESIGN.md.
	scanStates map[scanKey]*types.ScanState
}

// Cancel marks th for cancellation (spec's `cancel(instance)`): the next
// instruction dispatched by exec terminates the run with a CANCELLED error,
// safe to call from any goroutine while th is running on another.
func (th *Thread) Cancel() { atomic.StoreInt32(&th.cancelled, 1) }

// checkResourceLimits is exec's periodic check (§4.5 point 4, §4.6
// "Cancellation/timeout"), run once before every dispatched instruction.
func (th *Thread) checkResourceLimits(fr *frame) *RuntimeError {
	if atomic.LoadInt32(&th.cancelled) != 0 {
		return th.newError(fr, Cancelled, "script instance cancelled")
	}
	th.steps++
	if th.MaxSteps > 0 && th.steps > th.MaxSteps {
		return th.newError(fr, Timeout, "exceeded maxLoopIterations (%d)", th.MaxSteps)
	}
	if th.MaxExecutionTime > 0 && time.Since(th.startedAt) > th.MaxExecutionTime {
		return th.newError(fr, Timeout, "exceeded maxExecutionTime (%s)", th.MaxExecutionTime)
	}
	return nil
}

// NewThread creates a Thread ready to run prog. universal is shared,
// read-only, and supplied by the jactl embedding package; predeclared is
// this invocation's own globals map.
func NewThread(prog *compiler.Program, predeclared, universal map[string]types.Value, environment env.Environment, classes checkpoint.ClassResolver) *Thread {
	if predeclared == nil {
		predeclared = make(map[string]types.Value)
	}
	th := &Thread{
		prog:        prog,
		Predeclared: predeclared,
		Universal:   universal,
		Env:         environment,
		MinScale:    types.DefaultMinScale,
		startedAt:   time.Now(),
		InstanceID:  uuid.New(),
		classes:     classes,
		funcByFQID:  make(map[string]*compiler.Funcode),
		fqidByFunc:  make(map[*compiler.Funcode]string),
		scanStates:  make(map[scanKey]*types.ScanState),
	}
	th.indexFunctions()
	return th
}

// indexFunctions assigns every Funcode in prog a stable FQID: top-level
// functions by their own Name, class methods as "ClassName.methodName" so
// two classes may each define a same-named method without collision.
func (th *Thread) indexFunctions() {
	for _, fn := range th.prog.Functions {
		th.registerFQID(fn.Name, fn)
	}
	for className, desc := range th.prog.Classes {
		for name, fn := range desc.Methods {
			th.registerFQID(className+"."+name, fn)
		}
		for name, fn := range desc.Statics {
			th.registerFQID(className+"."+name, fn)
		}
	}
	th.registerFQID(th.prog.Toplevel.Name, th.prog.Toplevel)
}

func (th *Thread) registerFQID(fqid string, fn *compiler.Funcode) {
	th.funcByFQID[fqid] = fn
	th.fqidByFunc[fn] = fqid
}

// Suspended is returned up through RunSync/RunAsync's internal plumbing (it
// never escapes to a CompiledScript caller) when a frame chain suspended
// instead of returning a value.
type suspended struct {
	// chain is set when a deeper frame already built a complete Node chain
	// (its own innermost Node already carries a ResumeTarget); the current
	// frame only needs to wrap its own snapshot around it as Child.
	chain *continuation.Node
	// target is set instead of chain when the CURRENT frame is itself the
	// one suspending (it just issued a CALL that produced an AsyncRequest,
	// with no Funcode frame underneath it to snapshot) — the frame's own
	// new Node gets this as its ResumeTarget, and Child stays nil, making
	// it the chain's innermost Node.
	target *continuation.ResumeTarget
}

// RunSync runs the script to completion, blocking the calling goroutine
// across any number of suspensions (§6 run_sync). Every suspension's
// resumer is intercepted by a channel handoff rather than surfaced to the
// caller.
func (th *Thread) RunSync(globals *types.Map) (types.Value, *RuntimeError) {
	return th.driveSync(func() (types.Value, *suspended, *RuntimeError) {
		return th.runFromTop(globals)
	})
}

// RunAsync runs the script without blocking the calling goroutine: every
// suspension and final result is delivered through completion, which is
// called exactly once (§6 run_async).
func (th *Thread) RunAsync(globals *types.Map, completion func(types.Value, *RuntimeError)) {
	th.driveAsync(func() (types.Value, *suspended, *RuntimeError) {
		return th.runFromTop(globals)
	}, completion)
}

// ResumeSync restores a suspended run from a continuation chain decoded out
// of a checkpoint (§4.7) and resumes it with resumeValue, blocking the
// calling goroutine across any further suspensions exactly like RunSync —
// the only difference is where the frame stack comes from. globals is the
// Chain.Globals a checkpoint.Decode call recovered; th.InstanceID/ContextID/
// ClassVersionDigest should already be set from the same Chain by the
// caller, since resuming must keep using the original instance identity
// rather than the one NewThread generated for it.
func (th *Thread) ResumeSync(globals *types.Map, chain *continuation.Node, resumeValue types.Value) (types.Value, *RuntimeError) {
	th.globals = globals
	return th.driveSync(func() (types.Value, *suspended, *RuntimeError) {
		return th.resumeChain(chain, resumeValue)
	})
}

// ResumeAsync is ResumeSync's non-blocking counterpart, mirroring RunAsync.
func (th *Thread) ResumeAsync(globals *types.Map, chain *continuation.Node, resumeValue types.Value, completion func(types.Value, *RuntimeError)) {
	th.globals = globals
	th.driveAsync(func() (types.Value, *suspended, *RuntimeError) {
		return th.resumeChain(chain, resumeValue)
	}, completion)
}

// driveSync runs start to completion, following every suspension it meets
// through deliver/resumeChain, and blocks until a terminal value or error
// comes back. Shared by RunSync and ResumeSync — they differ only in how
// the first frame stack is produced.
func (th *Thread) driveSync(start func() (types.Value, *suspended, *RuntimeError)) (types.Value, *RuntimeError) {
	type outcome struct {
		v   types.Value
		err error
	}
	resultCh := make(chan outcome, 1)
	th.driveAsync(start, func(v types.Value, rerr *RuntimeError) {
		if rerr != nil {
			resultCh <- outcome{nil, rerr}
			return
		}
		resultCh <- outcome{v, nil}
	})
	out := <-resultCh
	if out.err != nil {
		if re, ok := out.err.(*RuntimeError); ok {
			return nil, re
		}
		return nil, &RuntimeError{Kind: Custom, Message: out.err.Error(), SourceName: th.prog.Filename}
	}
	return out.v, nil
}

// driveAsync is RunAsync/ResumeAsync's shared suspension-following loop.
func (th *Thread) driveAsync(start func() (types.Value, *suspended, *RuntimeError), completion func(types.Value, *RuntimeError)) {
	var step func(resume func() (types.Value, *suspended, *RuntimeError))
	step = func(resume func() (types.Value, *suspended, *RuntimeError)) {
		v, sus, rerr := resume()
		if rerr != nil {
			th.Env.DeleteCheckpoint(th.InstanceID.String(), th.lastCPID)
			completion(nil, rerr)
			return
		}
		if sus == nil {
			th.Env.DeleteCheckpoint(th.InstanceID.String(), th.lastCPID)
			completion(v, nil)
			return
		}
		th.deliver(sus.chain, func(resumeValue types.Value, deliverErr error) {
			if deliverErr != nil {
				completion(nil, &RuntimeError{Kind: Custom, Message: deliverErr.Error(), SourceName: th.prog.Filename})
				return
			}
			step(func() (types.Value, *suspended, *RuntimeError) {
				return th.resumeChain(sus.chain, resumeValue)
			})
		})
	}
	step(start)
}

// deliver dispatches chain's innermost ResumeTarget to the environment and
// arranges for next to be called exactly once with the eventual resume
// value (§4.6 point 4, testable property 4: resumer invoked at most once,
// and a second call must not disturb the first delivery).
func (th *Thread) deliver(chain *continuation.Node, next func(types.Value, error)) {
	delivered := false
	once := func(v types.Value, err error) {
		if delivered {
			return
		}
		delivered = true
		next(v, err)
	}

	target := chain.Innermost().ResumeTarget
	switch {
	case target.Blocking != nil:
		fn := target.Blocking.Fn
		th.Env.ScheduleBlocking(func() {
			v, err := fn()
			th.Env.ScheduleEvent(th.Env.ThreadContext(), func() { once(v, err) })
		})
	case target.NonBlocking != nil:
		target.NonBlocking.Starter(func(v types.Value, err error) {
			th.Env.ScheduleEvent(th.Env.ThreadContext(), func() { once(v, err) })
		})
	case target.Checkpoint != nil:
		cp := target.Checkpoint
		if cp.Bytes == nil {
			bytes, err := th.encodeChain(th.globals, cp.CPID, flattenChain(chain))
			if err != nil {
				once(nil, err)
				return
			}
			cp.Bytes = bytes
		}
		th.lastCPID = cp.CPID
		th.Env.SaveCheckpoint(cp.ID, cp.CPID, cp.Bytes, th.prog.Filename, 0, cp.Result, func(v types.Value, err error) {
			once(v, err)
		})
	default:
		once(nil, fmt.Errorf("continuation chain carries no resume target"))
	}
}

// encodeChain produces the checkpoint payload for chain, for the Checkpoint
// resume-target case assembled by the checkpoint() builtin itself (see
// checkpoint_builtin.go); exposed on Thread since it needs InstanceID/ContextID.
func (th *Thread) encodeChain(globals *types.Map, cpid uint32, chain []*continuation.Node) ([]byte, error) {
	return checkpoint.Encode(th.InstanceID, cpid, th.ContextID, th.ClassVersionDigest, globals, chain)
}
