package types

// AsyncRequest is how a host-registered native function (one with Function's
// AsyncHost field set, rather than Native) tells the VM it needs to suspend
// instead of returning a value synchronously (§4.6 point 4, Blocking and
// NonBlocking resume-target kinds). Exactly one of Blocking or NonBlocking
// is set; the Checkpoint resume-target kind is assembled by the VM itself,
// from the script-level checkpoint() builtin, not by a host function, so it
// has no counterpart here.
type AsyncRequest struct {
	Blocking    *BlockingCall
	NonBlocking *NonBlockingCall
}

// BlockingCall asks the environment to run Fn on a worker goroutine/thread
// and deliver its result as the resume value of the call that requested it.
type BlockingCall struct {
	Fn func() (Value, error)
}

// NonBlockingCall asks the environment to invoke Starter, which must
// arrange for its resumer argument to be called exactly once, eventually,
// from any thread.
type NonBlockingCall struct {
	Starter func(resumer func(Value, error))
}
