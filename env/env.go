// Package env defines the collaborator contract lang/vm suspends through
// (spec §4.8): the VM never spawns a thread or touches a clock directly,
// it only ever hands work to an Environment and waits to be resumed.
package env

import "github.com/jactl-lang/jactl/lang/types"

// Opaque identifies a host event-loop thread; its zero value means "not on
// an event loop".
type Opaque any

// Environment is the full set of host operations a running script instance
// may require. lang/vm holds one Environment per Thread and never makes any
// other call that crosses a thread boundary.
type Environment interface {
	// ThreadContext returns an opaque handle for the calling goroutine's
	// event loop, or nil if the caller is not on one.
	ThreadContext() Opaque

	// ScheduleEvent enqueues fn on ctx's event loop (or any event loop, if
	// ctx is nil).
	ScheduleEvent(ctx Opaque, fn func())

	// ScheduleEventAfter is ScheduleEvent with a minimum delay.
	ScheduleEventAfter(ctx Opaque, fn func(), delayMS int64)

	// ScheduleBlocking enqueues fn on a worker goroutine dedicated to
	// blocking host calls.
	ScheduleBlocking(fn func())

	// SaveCheckpoint persists bytes (an encoded checkpoint.Chain) durably,
	// then invokes resumer(result, nil) on an event thread. A persistence
	// failure is reported by calling resumer with a non-nil error instead,
	// which the VM surfaces to the script as a RuntimeError.
	SaveCheckpoint(id string, cpid uint32, bytes []byte, source string, offset int, result types.Value, resumer func(types.Value, error))

	// DeleteCheckpoint is a best-effort cleanup signal sent once a script
	// instance reaches a terminal state; lastCPID is the most recent
	// checkpoint sequence number the instance is known to have reached.
	DeleteCheckpoint(id string, lastCPID uint32)
}
