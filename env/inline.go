package env

import (
	"sync"
	"time"

	"github.com/jactl-lang/jactl/lang/types"
)

// Inline is a minimal Environment suitable for embedding a script
// synchronously in a single process: one goroutine runs the event-loop
// queue, ScheduleBlocking runs fn on its own goroutine (no pool bound,
// fine for tests and small embeddings, not for a production host under
// load), and checkpoints are kept in memory rather than written durably.
// It is the reference implementation SPEC_FULL.md's test helpers build
// on, not a production deployment target.
type Inline struct {
	mu     sync.Mutex
	events chan func()
	done   chan struct{}

	checkpoints map[string][]byte // instance id -> last saved bytes, for test assertions
}

// NewInline starts an Inline environment's event loop goroutine. Call
// Close to stop it.
func NewInline() *Inline {
	e := &Inline{
		events:      make(chan func(), 64),
		done:        make(chan struct{}),
		checkpoints: make(map[string][]byte),
	}
	go e.loop()
	return e
}

func (e *Inline) loop() {
	for {
		select {
		case fn := <-e.events:
			fn()
		case <-e.done:
			return
		}
	}
}

// Close stops the event loop. Pending events are dropped.
func (e *Inline) Close() {
	close(e.done)
}

func (e *Inline) ThreadContext() Opaque { return nil }

func (e *Inline) ScheduleEvent(_ Opaque, fn func()) {
	e.events <- fn
}

func (e *Inline) ScheduleEventAfter(ctx Opaque, fn func(), delayMS int64) {
	time.AfterFunc(time.Duration(delayMS)*time.Millisecond, func() {
		e.ScheduleEvent(ctx, fn)
	})
}

func (e *Inline) ScheduleBlocking(fn func()) {
	go fn()
}

func (e *Inline) SaveCheckpoint(id string, cpid uint32, bytes []byte, source string, offset int, result types.Value, resumer func(types.Value, error)) {
	e.mu.Lock()
	e.checkpoints[id] = bytes
	e.mu.Unlock()
	e.ScheduleEvent(nil, func() {
		resumer(result, nil)
	})
}

func (e *Inline) DeleteCheckpoint(id string, lastCPID uint32) {
	e.mu.Lock()
	delete(e.checkpoints, id)
	e.mu.Unlock()
}

// LastCheckpoint returns the most recently saved checkpoint bytes for id,
// for use in tests that want to assert on or replay a saved checkpoint.
func (e *Inline) LastCheckpoint(id string) ([]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.checkpoints[id]
	return b, ok
}

var _ Environment = (*Inline)(nil)
