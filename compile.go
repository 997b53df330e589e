package jactl

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/jactl-lang/jactl/lang/ast"
	"github.com/jactl-lang/jactl/lang/compiler"
	"github.com/jactl-lang/jactl/lang/parser"
	"github.com/jactl-lang/jactl/lang/resolver"
	"github.com/jactl-lang/jactl/lang/token"
	"github.com/jactl-lang/jactl/lang/types"
)

// CompiledScript is the output of CompileScript: a compiled, runnable
// program bound to the CompilationContext it was compiled against (§6
// `CompiledScript.run_sync`/`run_async`).
type CompiledScript struct {
	ctx  *CompilationContext
	prog *compiler.Program
}

// compileUnit runs the parser/resolver/compiler pipeline shared by
// CompileScript and CompileClass, registering any class declarations src
// contains into ctx's class registry.
func (ctx *CompilationContext) compileUnit(name, src string) (*compiler.Program, error) {
	fset := token.NewFileSet()
	script, err := parser.ParseScript(fset, name, []byte(src))
	if err != nil {
		return nil, err
	}
	file := fset.File(name)
	info, err := resolver.ResolveScript(file, script, ctx)
	if err != nil {
		return nil, err
	}
	prog, err := compiler.Compile(file, script, info)
	if err != nil {
		return nil, err
	}
	ctx.registerClasses(script, prog)
	return prog, nil
}

// CompileScript compiles text into a runnable CompiledScript (§6
// `compile_script`). pkg, when non-empty, overrides ctx's Config.Namespace
// for any classes this script declares (the explicit per-call "optional
// package" argument of the literal surface); an empty pkg keeps ctx's own
// default.
func CompileScript(ctx *CompilationContext, name, text string, pkg ...string) (*CompiledScript, error) {
	if len(pkg) > 0 && pkg[0] != "" {
		defer ctx.withNamespace(pkg[0])()
	}
	prog, err := ctx.compileUnit(name, text)
	if err != nil {
		return nil, fmt.Errorf("jactl: compile script %q: %w", name, err)
	}
	return &CompiledScript{ctx: ctx, prog: prog}, nil
}

// CompileClass compiles text's class declarations into ctx's registry
// (§6 `compile_class`). Unlike CompileScript it returns no CompiledScript:
// a standalone class-definition unit has no top-level body meant to run,
// matching the literal `compile_class(text, context) -> () | CompileError`
// surface. Any top-level statements text does contain are compiled (the
// grammar makes no distinction at parse time) but simply never executed,
// since nothing calls this unit's Toplevel.
func CompileClass(ctx *CompilationContext, name, text string, pkg ...string) error {
	if len(pkg) > 0 && pkg[0] != "" {
		defer ctx.withNamespace(pkg[0])()
	}
	_, err := ctx.compileUnit(name, text)
	if err != nil {
		return fmt.Errorf("jactl: compile class %q: %w", name, err)
	}
	return nil
}

// withNamespace temporarily overrides ctx's namespace for the duration of
// one compile call, returning a restore function. CompilationContext is
// not safe for concurrent CompileScript/CompileClass calls while a
// temporary namespace override is in flight (compiling is expected to
// happen once at startup, not on a request path).
func (ctx *CompilationContext) withNamespace(ns string) func() {
	prev := ctx.cfg.Namespace
	ctx.cfg.Namespace = ns
	return func() { ctx.cfg.Namespace = prev }
}

// registerClasses namespaces and digests every class prog just compiled,
// then adds it to ctx's registry (§3.6's process-wide named registry).
func (ctx *CompilationContext) registerClasses(script *ast.Script, prog *compiler.Program) {
	for _, cd := range script.Classes {
		desc, ok := prog.Classes[cd.Name]
		if !ok {
			continue
		}
		def := desc.Def
		def.Package = ctx.cfg.Namespace
		def.ID = ctx.namespaced(cd.Name)
		def.VersionDigest = classVersionDigest(def)
		ctx.classes[def.ID] = def
	}
}

// classVersionDigest hashes a class's observable shape (its own fields,
// its own method/static names, and its parent's id) so that a checkpoint
// taken under one build of a class and restored against a differently
// shaped rebuild is rejected as a RESTORE_ERROR (§4.7) rather than
// silently misreading field slots. Built on crypto/sha256: no structural
// hashing library appears anywhere in the retrieved corpus, and this is a
// one-shot digest computed once per class at compile time, not a hot-path
// concern a third-party hashing library would meaningfully improve on
// (see DESIGN.md).
func classVersionDigest(def *types.ClassDef) string {
	var sb strings.Builder
	sb.WriteString(def.ID)
	sb.WriteByte('\n')
	if def.Parent != nil {
		sb.WriteString(def.Parent.ID)
	}
	sb.WriteByte('\n')

	fieldLines := make([]string, len(def.Fields))
	for i, f := range def.Fields {
		fieldLines[i] = fmt.Sprintf("%s:%s:%v", f.Name, f.Type, f.Const)
	}
	sort.Strings(fieldLines)
	for _, l := range fieldLines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}

	methodNames := make([]string, 0, len(def.Methods))
	for n := range def.Methods {
		methodNames = append(methodNames, n)
	}
	sort.Strings(methodNames)
	for _, n := range methodNames {
		sb.WriteString("method:")
		sb.WriteString(n)
		sb.WriteByte('\n')
	}

	staticNames := make([]string, 0, len(def.Statics))
	for n := range def.Statics {
		staticNames = append(staticNames, n)
	}
	sort.Strings(staticNames)
	for _, n := range staticNames {
		sb.WriteString("static:")
		sb.WriteString(n)
		sb.WriteByte('\n')
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
