// Package jactl is the embedding API (§6): compile Jactl source into a
// CompiledScript against a CompilationContext, then run it synchronously
// or asynchronously against a host-supplied env.Environment.
package jactl

import (
	"fmt"
	"time"

	caarlosenv "github.com/caarlos0/env/v6"

	"github.com/jactl-lang/jactl/env"
	"github.com/jactl-lang/jactl/lang/resolver"
	"github.com/jactl-lang/jactl/lang/types"
	"github.com/jactl-lang/jactl/lang/vm"
)

// Config holds the CompilationContext build options of §3.6: minScale,
// a javaPackage-equivalent namespace, a debug verbosity level, the
// maxLoopIterations/maxExecutionTime resource limits, and the
// dateTime*-family flags. Every field can be populated from the process
// environment via ContextOptionsFromEnv, for a host that wants
// ops-configurable limits without editing Go code.
type Config struct {
	// Namespace is prefixed onto class ids compiled under this context,
	// the javaPackage-equivalent (§3.6) grouping classes from one embedder
	// into their own id space so two unrelated embedders sharing a
	// process never collide on ClassDef.ID.
	Namespace string `env:"JACTL_NAMESPACE"`

	// MinScale is the minimum scale (§3.3) added to the larger operand's
	// scale on Decimal division. Zero means types.DefaultMinScale.
	MinScale int `env:"JACTL_MIN_SCALE" envDefault:"0"`

	// DebugLevel gates diagnostic verbosity a host may choose to log;
	// lang/vm itself never logs, so this is carried for hosts that want
	// to gate their own tracing around RunSync/RunAsync calls.
	DebugLevel int `env:"JACTL_DEBUG_LEVEL" envDefault:"0"`

	// MaxLoopIterations and MaxExecutionTime are the resource limits of
	// §4.5 point 4 / §4.6's cancellation paragraph. Zero means unlimited.
	MaxLoopIterations int64         `env:"JACTL_MAX_LOOP_ITERATIONS" envDefault:"0"`
	MaxExecutionTime  time.Duration `env:"JACTL_MAX_EXECUTION_TIME" envDefault:"0"`

	// DateTimeEnabled/DateTimeAutoImport gate the date/time standard
	// library surface (§3.6); both are out of SPEC_FULL.md's scope (no
	// date/time component is specified), carried here only so a Config
	// struct populated from the environment round-trips every option
	// §3.6 names instead of silently dropping two of them.
	DateTimeEnabled    bool `env:"JACTL_DATETIME_ENABLED" envDefault:"false"`
	DateTimeAutoImport bool `env:"JACTL_DATETIME_AUTO_IMPORT" envDefault:"false"`
}

// ContextOptionsFromEnv populates a Config from the process environment
// using struct tags (§3.6's enrichment, grounded on the teacher's
// indirect-only caarlos0/env/v6 dependency promoted to direct use here).
func ContextOptionsFromEnv() (Config, error) {
	var cfg Config
	if err := caarlosenv.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("jactl: reading config from environment: %w", err)
	}
	return cfg, nil
}

// CompilationContext is the process-wide registry of §3.6: host-registered
// functions/methods, compiled classes, and build options, built once and
// then used to compile and run any number of scripts. It implements
// resolver.Predeclared directly so it can be passed straight to
// lang/resolver's ResolveScript.
type CompilationContext struct {
	cfg Config
	env env.Environment

	predeclared map[string]types.Value
	universal   map[string]types.Value
	hostMethods map[types.Tag]map[string]*types.Function
	classes     map[string]*types.ClassDef
}

// NewContext builds a CompilationContext from cfg and environment,
// installing the language's own intrinsics (checkpoint, eval) into the
// Universal table. environment is held for the lifetime of the context and
// passed by reference into every VM instance a CompiledScript of this
// context creates (§9 "hold the registry in the CompilationContext"),
// which is why CompiledScript.RunSync/RunAsync take no Environment
// parameter of their own — a context is built against exactly one
// scheduling backend. Per §9's "Global lookup of built-ins ... freeze
// after build", the returned context is ready to compile and run scripts
// immediately; RegisterFunction/RegisterMethod may still be called before
// the first CompileScript (the context is not literally frozen — see
// DESIGN.md).
func NewContext(cfg Config, environment env.Environment) *CompilationContext {
	return &CompilationContext{
		cfg: cfg,
		env: environment,
		predeclared: make(map[string]types.Value),
		universal: map[string]types.Value{
			"checkpoint": vm.CheckpointFunc(),
			"eval":       vm.EvalFunc(),
		},
		hostMethods: make(map[types.Tag]map[string]*types.Function),
		classes:     make(map[string]*types.ClassDef),
	}
}

// RegisterFunction installs a host function under name, callable from any
// script compiled against ctx as a bare identifier (§6 `register_function`).
// fn must be built with types.NewNative or types.NewAsyncNative; an
// AsyncHost function participates in suspension (§4.4/§4.6), matching the
// param_specs `async_param` flag's intent without needing a separate
// descriptor type, since types.Function already self-reports IsAsync().
func (ctx *CompilationContext) RegisterFunction(name string, fn *types.Function) {
	ctx.predeclared[name] = fn
}

// RegisterMethod installs fn as a method named name on every receiver
// value of tag (§6 `register_method`), resolved by lang/vm's getAttr
// after the language's own closed builtin method table, so a host cannot
// accidentally shadow map/filter/each/etc.
func (ctx *CompilationContext) RegisterMethod(tag types.Tag, name string, fn *types.Function) {
	m, ok := ctx.hostMethods[tag]
	if !ok {
		m = make(map[string]*types.Function)
		ctx.hostMethods[tag] = m
	}
	m[name] = fn
}

// namespaced applies cfg.Namespace to a bare class name the way a
// javaPackage equivalent would, giving two contexts in one process their
// own class id space (§3.6).
func (ctx *CompilationContext) namespaced(name string) string {
	if ctx.cfg.Namespace == "" {
		return name
	}
	return ctx.cfg.Namespace + "." + name
}

// resolveClass implements checkpoint.ClassResolver against ctx's class
// registry, used both by lang/vm at runtime (INSTANCE dispatch) and by
// package checkpoint on restore.
func (ctx *CompilationContext) resolveClass(fqid string) (*types.ClassDef, bool) {
	c, ok := ctx.classes[fqid]
	return c, ok
}

// IsPredeclared implements resolver.Predeclared.
func (ctx *CompilationContext) IsPredeclared(name string) bool {
	_, ok := ctx.predeclared[name]
	return ok
}

// IsUniversal implements resolver.Predeclared.
func (ctx *CompilationContext) IsUniversal(name string) bool {
	_, ok := ctx.universal[name]
	return ok
}

// IsAsyncHostFunc implements resolver.Predeclared (§4.3 rule 5): a name is
// async if it resolves, at compile time, to a host function registered
// with types.NewAsyncNative.
func (ctx *CompilationContext) IsAsyncHostFunc(name string) bool {
	if fn, ok := ctx.predeclared[name].(*types.Function); ok {
		return fn.IsAsync()
	}
	if fn, ok := ctx.universal[name].(*types.Function); ok {
		return fn.IsAsync()
	}
	return false
}

var _ resolver.Predeclared = (*CompilationContext)(nil)
