package vm

import (
	"fmt"

	"github.com/jactl-lang/jactl/lang/compiler"
	"github.com/jactl-lang/jactl/lang/types"
)

// builtinFn is a VM-implemented method on a receiver of a given Tag, bound
// to that receiver by getAttr before being handed back as a *types.Function
// via types.NewNative (§6 "Iterator built-ins restricted to the small set
// illustrating async/iterator semantics"). th/fr are the enclosing Thread
// and calling frame at the GETATTR site, kept alive by the closure getAttr
// wraps this in, so a built-in that itself takes a closure argument
// (map/filter/each) can call back into the interpreter through th.call.
type builtinFn func(th *Thread, fr *frame, recv types.Value, args []types.Value) (types.Value, error)

// builtins is the closed, deliberately small method table described in
// SPEC_FULL.md §6: map/filter/each/collect/sum/limit on List and Iterator
// values, the same set minus sum on Map, and the size/len shortcut (which
// doesn't need to walk an Iterator) on List, Map and String. A lookup miss
// here falls through to getAttr's host-method table, then to its toString
// default (only for the name "toString"), then to a NoSuchAttrError.
var builtins = map[types.Tag]map[string]builtinFn{
	types.LIST: {
		"size":    sequenceSize,
		"len":     sequenceSize,
		"map":     iterableMap,
		"filter":  iterableFilter,
		"each":    iterableEach,
		"collect": iterableCollect,
		"sum":     iterableSum,
		"limit":   iterableLimit,
	},
	types.MAP: {
		"size":    sequenceSize,
		"len":     sequenceSize,
		"map":     iterableMap,
		"filter":  iterableFilter,
		"each":    iterableEach,
		"collect": iterableCollect,
		"limit":   iterableLimit,
	},
	types.STRING: {
		"size": sequenceSize,
		"len":  sequenceSize,
	},
	types.ITERATOR: {
		"map":     iterableMap,
		"filter":  iterableFilter,
		"each":    iterableEach,
		"collect": iterableCollect,
		"sum":     iterableSum,
		"limit":   iterableLimit,
	},
}

func sequenceSize(th *Thread, fr *frame, recv types.Value, args []types.Value) (types.Value, error) {
	seq, ok := recv.(interface{ Len() int })
	if !ok {
		return nil, fmt.Errorf("type error: %s has no size", recv.Tag())
	}
	return types.Int(int32(seq.Len())), nil
}

func oneFunc(args []types.Value, name string) (*types.Function, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("arity error: %s expects one closure argument", name)
	}
	fn, ok := args[0].(*types.Function)
	if !ok {
		return nil, fmt.Errorf("type error: %s expects a function argument", name)
	}
	return fn, nil
}

func asIterable(recv types.Value) (types.Iterable, error) {
	it, ok := recv.(types.Iterable)
	if !ok {
		return nil, fmt.Errorf("type error: %s is not iterable", recv.Tag())
	}
	return it, nil
}

// iterElemArgs adapts one Iterator element into the argument list a closure
// is invoked with. A Map's Iterate yields each entry already boxed as a
// two-element [key, value] List (see container.go's mapIterator), which is
// spread as two closure arguments; every other Iterable yields its element
// as the sole argument.
func iterElemArgs(recv, v types.Value) []types.Value {
	if _, isMap := recv.(*types.Map); isMap {
		if kv, ok := v.(*types.List); ok {
			return kv.Elems()
		}
	}
	return []types.Value{v}
}

func iterableMap(th *Thread, fr *frame, recv types.Value, args []types.Value) (types.Value, error) {
	fn, err := oneFunc(args, "map")
	if err != nil {
		return nil, err
	}
	it, err := asIterable(recv)
	if err != nil {
		return nil, err
	}
	return &lazyIterator{
		src: it.Iterate(),
		transform: func(v types.Value) (types.Value, bool, error) {
			out, err := th.callClosure(fr, fn, iterElemArgs(recv, v))
			if err != nil {
				return nil, false, err
			}
			return out, true, nil
		},
	}, nil
}

func iterableFilter(th *Thread, fr *frame, recv types.Value, args []types.Value) (types.Value, error) {
	fn, err := oneFunc(args, "filter")
	if err != nil {
		return nil, err
	}
	it, err := asIterable(recv)
	if err != nil {
		return nil, err
	}
	return &lazyIterator{
		src: it.Iterate(),
		transform: func(v types.Value) (types.Value, bool, error) {
			out, err := th.callClosure(fr, fn, iterElemArgs(recv, v))
			if err != nil {
				return nil, false, err
			}
			return v, out.Truth(), nil
		},
	}, nil
}

func iterableEach(th *Thread, fr *frame, recv types.Value, args []types.Value) (types.Value, error) {
	fn, err := oneFunc(args, "each")
	if err != nil {
		return nil, err
	}
	it, err := asIterable(recv)
	if err != nil {
		return nil, err
	}
	iter := it.Iterate()
	for {
		v, hasNext, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if !hasNext {
			break
		}
		if _, err := th.callClosure(fr, fn, iterElemArgs(recv, v)); err != nil {
			return nil, err
		}
	}
	return types.Null, nil
}

func iterableCollect(th *Thread, fr *frame, recv types.Value, args []types.Value) (types.Value, error) {
	it, err := asIterable(recv)
	if err != nil {
		return nil, err
	}
	iter := it.Iterate()
	var out []types.Value
	for {
		v, hasNext, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if !hasNext {
			break
		}
		out = append(out, v)
	}
	return types.NewList(out), nil
}

func iterableSum(th *Thread, fr *frame, recv types.Value, args []types.Value) (types.Value, error) {
	it, err := asIterable(recv)
	if err != nil {
		return nil, err
	}
	iter := it.Iterate()
	var total types.Value = types.Int(0)
	for {
		v, hasNext, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if !hasNext {
			break
		}
		total, err = th.binaryOp(compiler.ADD, total, v)
		if err != nil {
			return nil, err
		}
	}
	return total, nil
}

func iterableLimit(th *Thread, fr *frame, recv types.Value, args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("arity error: limit expects one count argument")
	}
	n, ok := asInt(args[0])
	if !ok {
		return nil, fmt.Errorf("type error: limit expects a numeric count")
	}
	it, err := asIterable(recv)
	if err != nil {
		return nil, err
	}
	src := it.Iterate()
	remaining := n
	return &lazyIterator{
		src: iteratorFunc(func() (types.Value, bool, error) {
			if remaining <= 0 {
				return nil, false, nil
			}
			remaining--
			return src.Next()
		}),
		transform: func(v types.Value) (types.Value, bool, error) { return v, true, nil },
	}, nil
}

// lazyIterator composes a source Iterator with a per-element transform that
// may also drop the element (filter's false case), staying lazy the way
// map/filter/collect chain in the spec's own example
// (`[1,2,3].map{...}.filter{...}.sum()`), so no intermediate List is ever
// materialized unless collect() or sum() is reached.
type lazyIterator struct {
	src       types.Iterator
	transform func(types.Value) (types.Value, bool, error)
}

func (l *lazyIterator) Tag() types.Tag          { return types.ITERATOR }
func (l *lazyIterator) String() string          { return "iterator" }
func (l *lazyIterator) Truth() bool             { return true }
func (l *lazyIterator) Iterate() types.Iterator { return l }

func (l *lazyIterator) Next() (types.Value, bool, error) {
	for {
		v, hasNext, err := l.src.Next()
		if err != nil || !hasNext {
			return nil, hasNext, err
		}
		out, keep, err := l.transform(v)
		if err != nil {
			return nil, false, err
		}
		if keep {
			return out, true, nil
		}
	}
}

var _ types.Iterable = (*lazyIterator)(nil)

type iteratorFunc func() (types.Value, bool, error)

func (f iteratorFunc) Next() (types.Value, bool, error) { return f() }

// callClosure invokes a user-supplied closure argument (map{}/filter{}/
// each{}'s trailing block) to completion on the calling goroutine. If the
// call suspends (e.g. the block itself calls an async host function like
// sleep(), §8 S4's `.map{ sleep(1, it*it) }`), the suspension is resolved
// synchronously here via resolveSync rather than propagated out through
// exec's own CALL handling: a built-in method's internal Go loop (the
// lazyIterator/each loop) has no bytecode pc of its own to record in a
// continuation.Node. This means a checkpoint taken while execution is
// inside map{}/filter{}/each{} cannot resume that in-progress iteration
// across a process restart, only once it returns to genuine bytecode — an
// accepted limitation of implementing these as native methods rather than
// compiled bytecode (see DESIGN.md).
func (th *Thread) callClosure(fr *frame, fn *types.Function, args []types.Value) (types.Value, error) {
	v, sus, rerr := th.call(fr, fn, args)
	if rerr != nil {
		return nil, rerr
	}
	if sus == nil {
		return v, nil
	}
	return th.resolveSync(sus)
}

// resolveSync blocks the calling goroutine until sus's chain reaches a
// terminal value, by repeatedly handing its innermost ResumeTarget to
// Env.deliver and resuming with whatever value comes back, exactly like
// RunSync's own step loop but inline rather than driven through a channel
// returned to an external caller.
func (th *Thread) resolveSync(sus *suspended) (types.Value, error) {
	chain := sus.chain
	for {
		type result struct {
			v   types.Value
			err error
		}
		ch := make(chan result, 1)
		th.deliver(chain, func(v types.Value, err error) {
			ch <- result{v, err}
		})
		res := <-ch
		if res.err != nil {
			return nil, res.err
		}
		v, nextSus, rerr := th.resumeChain(chain, res.v)
		if rerr != nil {
			return nil, rerr
		}
		if nextSus == nil {
			return v, nil
		}
		chain = nextSus.chain
	}
}
