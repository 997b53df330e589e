// Package continuation implements the suspended-call-chain representation
// of spec §4.6. Capturing a continuation is nothing more than "stop
// appending to the Go call stack and start appending to a linked list of
// Nodes" — the same Frame shape lang/vm already keeps for a live call, just
// detached from the goroutine stack so it can be resumed (or serialized by
// package checkpoint) independently of the call that produced it.
package continuation

import "github.com/jactl-lang/jactl/lang/types"

// Node is one suspended frame, outermost first: Node.Child is the frame
// that was itself suspended one level deeper (the function Node called),
// and is nil for the innermost (deepest) frame — the one actually waiting
// on a ResumeTarget.
type Node struct {
	FunctionFQID   string // class-qualified or package-qualified function name, for checkpoint/diagnostics
	MethodLocation uint32 // SAVE_POINT id / resume pc within FunctionFQID's code
	Locals         []types.Value
	Stack          []types.Value // spilled operand stack at the SAVE_POINT
	Child          *Node

	// ResumeTarget is set only on the innermost Node of a chain (Child ==
	// nil, the one Innermost() finds) — the frame that actually issued the
	// suspending call. Every other Node exists only to let a resume walk
	// back out to the frame that made the call which is now suspended one
	// level deeper.
	ResumeTarget ResumeTarget
}

// Innermost walks to the deepest suspended frame, the one a resume value
// is ultimately delivered to.
func (n *Node) Innermost() *Node {
	for n.Child != nil {
		n = n.Child
	}
	return n
}

// ResumeTarget is exactly one of Blocking, NonBlocking (both defined in
// lang/types since a host-registered async native function needs to
// produce one without importing this package) or Checkpoint (§4.6 point
// 4); the zero value is never valid on a real suspension.
type ResumeTarget struct {
	types.AsyncRequest
	Checkpoint *CheckpointRequest
}

// CheckpointRequest asks the environment to durably persist Bytes (the
// encoded form of the whole chain, produced by package checkpoint) before
// resuming with Result.
type CheckpointRequest struct {
	ID      string // script instance UUID
	CPID    uint32 // monotonically increasing checkpoint sequence number
	Bytes   []byte
	Result  types.Value // the value checkpoint() itself evaluates to on resume
	Resumer func(types.Value, error)
}
