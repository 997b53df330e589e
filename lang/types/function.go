package types

import "fmt"

// Proto is the compiled body a Function points to. lang/compiler produces
// concrete implementations; lang/types only needs to name and call one, so
// the dependency runs the other way round to avoid an import cycle (the
// compiler and vm packages import lang/types, not vice versa), mirroring
// how nenuphar's machine.Function references compiler.Funcode without
// lang/compiler importing lang/machine.
type Proto interface {
	Name() string
	IsAsync() bool
}

// Function is a runtime closure: either a script-defined function/method
// (Proto set, Native nil) or a host function registered through the
// embedding API's RegisterFunction/RegisterMethod (§6) (Native set, Proto
// nil).
type Function struct {
	Proto    Proto
	Captured []Value // free variables captured at closure-creation time
	Bound    *Instance

	Native     func(args []Value) (Value, error)
	nativeName string

	// AsyncHost, when set, is a host function that may suspend instead of
	// returning synchronously: it returns either a result (err == nil, req
	// == nil) or a suspension request (result == nil, req != nil), never
	// both. Mutually exclusive with Native.
	AsyncHost     func(args []Value) (Value, *AsyncRequest, error)
	asyncHostName string
}

func NewClosure(p Proto, captured []Value) *Function {
	return &Function{Proto: p, Captured: captured}
}

func NewNative(name string, fn func(args []Value) (Value, error)) *Function {
	return &Function{Native: fn, nativeName: name}
}

// NewAsyncNative registers a host function that participates in suspension
// (§4.6), such as the demonstration sleep() function used to exercise it.
func NewAsyncNative(name string, fn func(args []Value) (Value, *AsyncRequest, error)) *Function {
	return &Function{AsyncHost: fn, asyncHostName: name}
}

func (fn *Function) Tag() Tag { return FUNCTION }

func (fn *Function) Name() string {
	if fn.Native != nil {
		return fn.nativeName
	}
	if fn.AsyncHost != nil {
		return fn.asyncHostName
	}
	if fn.Proto != nil {
		return fn.Proto.Name()
	}
	return "anonymous"
}

func (fn *Function) String() string { return fmt.Sprintf("function(%p %s)", fn, fn.Name()) }
func (fn *Function) Truth() bool    { return true }

// IsAsync reports whether the function may suspend (§4.4): true for a
// script function the resolver's async fixed point marked async, and for
// any host function registered via NewAsyncNative. A plain Native function
// is always synchronous from the VM's point of view, even if it internally
// calls back into host async machinery, since suspension is only ever
// initiated by the VM recognizing one of these two cases at a CALL.
func (fn *Function) IsAsync() bool {
	return (fn.Proto != nil && fn.Proto.IsAsync()) || fn.AsyncHost != nil
}

