package resolver

// propagateAsync runs the §4.3 item 5 fixed-point: a function is async if it
// directly calls a host-registered async descriptor (directAsync), makes any
// call whose callee cannot be resolved statically (callsDynamic — a call
// through a variable, a method call, or eval()), declares asyncInstance, or
// transitively calls another function already known to be async. The pass
// iterates to a fixed point since call edges can run in any declaration
// order, including mutual recursion.
func propagateAsync(funcs []*Function) {
	for changed := true; changed; {
		changed = false
		for _, fn := range funcs {
			if fn.Async {
				continue
			}
			if fn.directAsync || fn.callsDynamic || fn.AsyncInstance {
				fn.Async = true
				changed = true
				continue
			}
			for _, callee := range fn.calls {
				if callee.Async {
					fn.Async = true
					changed = true
					break
				}
			}
		}
	}
	for _, fn := range funcs {
		fn.AsyncFixed = true
	}
}
