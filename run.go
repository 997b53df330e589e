package jactl

import (
	"github.com/jactl-lang/jactl/checkpoint"
	"github.com/jactl-lang/jactl/lang/types"
	"github.com/jactl-lang/jactl/lang/vm"
)

// RunSync runs s to completion against globals, blocking the calling
// goroutine across any number of suspensions (§6 `run_sync(globals) ->
// Value | RuntimeError`).
func (s *CompiledScript) RunSync(globals *Globals) (types.Value, *RuntimeError) {
	if globals == nil {
		globals = NewGlobals()
	}
	return s.newThread().RunSync(globals.Map())
}

// RunAsync runs s against globals without blocking the calling goroutine;
// completion is invoked exactly once, with either the script's result or
// the RuntimeError that terminated it (§6 `run_async(globals, completion)`).
func (s *CompiledScript) RunAsync(globals *Globals, completion func(types.Value, *RuntimeError)) {
	if globals == nil {
		globals = NewGlobals()
	}
	s.newThread().RunAsync(globals.Map(), completion)
}

// Resume decodes a checkpoint previously produced by a suspended run of s
// (the bytes an Environment's SaveCheckpoint received) and resumes it with
// resumeValue — the value the host's `commit`/`recover` decision supplies
// where the script called `checkpoint()` (§4.7, scenario S5). It blocks
// the calling goroutine across any further suspensions, exactly like
// RunSync.
func (s *CompiledScript) Resume(data []byte, resumeValue types.Value) (types.Value, *RuntimeError) {
	chain, err := checkpoint.Decode(data, s.ctx.resolveClass)
	if err != nil {
		return nil, &RuntimeError{Kind: RestoreError, Message: err.Error()}
	}
	th := s.newThread()
	th.InstanceID = chain.InstanceID
	th.ContextID = chain.ContextID
	th.ClassVersionDigest = chain.ClassVersionDigest
	return th.ResumeSync(chain.Globals, chain.Root, resumeValue)
}

// ResumeAsync is Resume's non-blocking counterpart: completion is invoked
// exactly once with the eventual result or error.
func (s *CompiledScript) ResumeAsync(data []byte, resumeValue types.Value, completion func(types.Value, *RuntimeError)) {
	chain, err := checkpoint.Decode(data, s.ctx.resolveClass)
	if err != nil {
		completion(nil, &RuntimeError{Kind: RestoreError, Message: err.Error()})
		return
	}
	th := s.newThread()
	th.InstanceID = chain.InstanceID
	th.ContextID = chain.ContextID
	th.ClassVersionDigest = chain.ClassVersionDigest
	th.ResumeAsync(chain.Globals, chain.Root, resumeValue, completion)
}

// newThread builds a fresh vm.Thread for one run, wired against s's
// CompilationContext: its registered functions/methods/classes, its
// environment, and its §3.6 build options.
func (s *CompiledScript) newThread() *vm.Thread {
	ctx := s.ctx
	th := vm.NewThread(s.prog, clonePredeclared(ctx.predeclared), ctx.universal, ctx.env, ctx.resolveClass)
	th.HostMethods = ctx.hostMethods
	if ctx.cfg.MinScale > 0 {
		th.MinScale = ctx.cfg.MinScale
	}
	th.MaxSteps = ctx.cfg.MaxLoopIterations
	th.MaxExecutionTime = ctx.cfg.MaxExecutionTime
	th.ContextID = ctx.cfg.Namespace
	return th
}

// clonePredeclared copies ctx's registered-function table so concurrent
// runs of the same CompilationContext never share a Thread's own
// Predeclared map (runFromTop seeds run-specific entries into it from the
// globals passed to RunSync/RunAsync).
func clonePredeclared(src map[string]types.Value) map[string]types.Value {
	out := make(map[string]types.Value, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
