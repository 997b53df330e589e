package vm

import (
	"fmt"

	"github.com/jactl-lang/jactl/continuation"
	"github.com/jactl-lang/jactl/lang/types"
)

// checkpointIntrinsic is the sentinel value installed under
// Universal["checkpoint"] by the jactl embedding package. th.call recognizes
// it by pointer identity rather than through the Native/AsyncHost dispatch
// every other builtin uses, because encoding a checkpoint payload needs the
// full continuation chain built by the suspension's ancestor CALLs as it
// propagates back out — information no single call site has to hand. The
// Native func is never actually invoked (call() intercepts fn before
// reaching the Native case); it exists only so Name()/Tag()/String() work if
// a script ever holds the value itself (e.g. passes it as an argument).
var checkpointIntrinsic = types.NewNative("checkpoint", func(args []types.Value) (types.Value, error) {
	return nil, fmt.Errorf("type error: checkpoint is not callable as a value")
})

// CheckpointFunc is checkpointIntrinsic exposed for the jactl embedding
// package's default Universal table.
func CheckpointFunc() *types.Function { return checkpointIntrinsic }

// checkpointCall implements `checkpoint(commit, recover)` (§4.7): it always
// suspends with a Checkpoint resume target whose Result is commit's value,
// matching the documented delivery path — "env.saveCheckpoint(...) and
// calls resumer after durable save" always resumes with the same result it
// was given. The recover argument names what a host SHOULD supply when it
// decodes the persisted bytes into a fresh VM and calls resume(chain, v)
// directly to simulate recovery (exactly as §8's S5 scenario does), but the
// VM itself never reads it back out: that path bypasses env.SaveCheckpoint
// entirely, so there is nothing here for the VM to enforce. This is an
// accepted Open Question resolution (see DESIGN.md): "recover" is
// documentation for the host, not state the VM threads through.
func (th *Thread) checkpointCall(fr *frame, args []types.Value) (types.Value, *suspended, *RuntimeError) {
	named, err := checkpointArgs(args)
	if err != nil {
		return nil, nil, th.wrapErr(fr, err)
	}
	commit, err := th.resolveCheckpointArg(fr, named, "commit")
	if err != nil {
		return nil, nil, th.wrapErr(fr, err)
	}
	if _, err := th.resolveCheckpointArg(fr, named, "recover"); err != nil {
		return nil, nil, th.wrapErr(fr, err)
	}

	th.lastCPID++
	target := &continuation.ResumeTarget{Checkpoint: &continuation.CheckpointRequest{
		ID:     th.InstanceID.String(),
		CPID:   th.lastCPID,
		Result: commit,
	}}
	return nil, &suspended{target: target}, nil
}

func checkpointArgs(args []types.Value) (map[string]types.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("arity error: checkpoint expects commit/recover named arguments")
	}
	m, ok := args[0].(*types.Map)
	if !ok {
		return nil, fmt.Errorf("type error: checkpoint expects commit/recover named arguments")
	}
	named := make(map[string]types.Value, m.Len())
	for _, kv := range m.Items() {
		if s, ok := kv.Key.(types.String); ok {
			named[string(s)] = kv.Value
		}
	}
	return named, nil
}

// resolveCheckpointArg reads name out of named, calling it through as a
// zero-arg closure if it was written as a block literal (`commit:{false}`),
// since Jactl's closure-argument syntax passes a Function rather than the
// literal value it evaluates to.
func (th *Thread) resolveCheckpointArg(fr *frame, named map[string]types.Value, name string) (types.Value, error) {
	v, ok := named[name]
	if !ok {
		return nil, fmt.Errorf("arity error: checkpoint missing required argument %q", name)
	}
	if fn, ok := v.(*types.Function); ok {
		return th.callClosure(fr, fn, nil)
	}
	return v, nil
}

// flattenChain walks a continuation.Node chain outer-most first (the order
// checkpoint.Encode requires), the reverse of how resumeChain recurses
// inward through Child.
func flattenChain(node *continuation.Node) []*continuation.Node {
	var out []*continuation.Node
	for n := node; n != nil; n = n.Child {
		out = append(out, n)
	}
	return out
}
