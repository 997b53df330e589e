package vm

import (
	"fmt"

	"github.com/jactl-lang/jactl/lang/compiler"
	"github.com/jactl-lang/jactl/lang/parser"
	"github.com/jactl-lang/jactl/lang/resolver"
	"github.com/jactl-lang/jactl/lang/token"
	"github.com/jactl-lang/jactl/lang/types"
)

// evalIntrinsic is Universal["eval"], installed by the jactl embedding
// package. Like checkpointIntrinsic it is recognized by pointer identity in
// Thread.call rather than through Native/AsyncHost, since running the
// compiled result needs a nested Thread sharing this one's classes/Universal
// (§9 "eval: invokes the same compile pipeline at runtime, sharing the
// current context").
var evalIntrinsic = types.NewNative("eval", func(args []types.Value) (types.Value, error) {
	return nil, fmt.Errorf("type error: eval is not callable as a value")
})

// EvalFunc exposes evalIntrinsic for the embedding package's default
// Universal table.
func EvalFunc() *types.Function { return evalIntrinsic }

// evalCall parses, resolves, compiles and runs args[0] (a String source) as
// a fresh top-level script, with args[1] (a Map, or null) merged into its
// own globals the same way runFromTop seeds Predeclared from the outer
// run's globals. The nested script shares this Thread's Predeclared,
// Universal, Env and class resolver, so a host function registered on the
// outer CompilationContext is visible to the evaluated source too.
//
// Simplification (see DESIGN.md): a suspension inside the evaluated source
// (e.g. it calls an async host function) is resolved synchronously here via
// resolveSync/callClosure's pattern, the same accepted limitation as
// map{}/filter{}/each{} — not propagated out as a suspension of the outer
// script's own call to eval(). §9 only requires that eval "not introduce
// new suspension semantics beyond those of the embedded script", which a
// synchronously-resolved nested run still satisfies observationally.
func (th *Thread) evalCall(fr *frame, args []types.Value) (types.Value, *suspended, *RuntimeError) {
	if len(args) < 1 || len(args) > 2 {
		return nil, nil, th.newError(fr, ArityError, "eval expects (source, globals?)")
	}
	src, ok := args[0].(types.String)
	if !ok {
		return nil, nil, th.newError(fr, TypeError, "eval: source must be a string")
	}
	var globals *types.Map
	if len(args) == 2 {
		if _, isNull := args[1].(types.NullType); !isNull {
			g, ok := args[1].(*types.Map)
			if !ok {
				return nil, nil, th.newError(fr, TypeError, "eval: globals must be a map")
			}
			globals = g
		}
	}
	if globals == nil {
		globals = types.NewMap(0)
	}

	prog, err := th.compileEval(string(src))
	if err != nil {
		return nil, nil, th.newError(fr, Custom, "eval: %s", err.Error())
	}

	nested := NewThread(prog, th.Predeclared, th.Universal, th.Env, th.classes)
	nested.ContextID = th.ContextID
	nested.ClassVersionDigest = th.ClassVersionDigest
	nested.HostMethods = th.HostMethods
	nested.MinScale = th.MinScale
	nested.MaxSteps = th.MaxSteps
	nested.MaxExecutionTime = th.MaxExecutionTime

	v, rerr := nested.RunSync(globals)
	if rerr != nil {
		return nil, nil, rerr
	}
	return v, nil, nil
}

func (th *Thread) compileEval(src string) (*compiler.Program, error) {
	fset := token.NewFileSet()
	name := "<eval>"
	sc, err := parser.ParseScript(fset, name, []byte(src))
	if err != nil {
		return nil, err
	}
	file := fset.File(name)
	info, err := resolver.ResolveScript(file, sc, evalPredeclared{th})
	if err != nil {
		return nil, err
	}
	return compiler.Compile(file, sc, info)
}

// evalPredeclared adapts Thread's own name tables to resolver.Predeclared
// so nested eval()'d source resolves against exactly the same names (host
// globals, Universal builtins, async descriptors) the outer script did.
type evalPredeclared struct{ th *Thread }

func (p evalPredeclared) IsPredeclared(name string) bool {
	_, ok := p.th.Predeclared[name]
	return ok
}

func (p evalPredeclared) IsUniversal(name string) bool {
	_, ok := p.th.Universal[name]
	return ok
}

func (p evalPredeclared) IsAsyncHostFunc(name string) bool {
	if fn, ok := p.th.Predeclared[name].(*types.Function); ok {
		return fn.IsAsync()
	}
	if fn, ok := p.th.Universal[name].(*types.Function); ok {
		return fn.IsAsync()
	}
	return false
}
