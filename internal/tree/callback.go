package tree

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// Yield suspends a tick-synchronized callback until the next time its node is
// advanced, which is normally the next external Tick of the tree. It returns
// the node context's error once the node has been cancelled, and callbacks are
// expected to return promptly when it does.
//
// A Yield must only be called from the callback it was handed to.
type Yield func() error

type callbackShape uint8

const (
	shapeSync callbackShape = iota
	shapeAsync
	shapeTicked
)

// Callback is a lifecycle hook, tagged with how it executes.
//
// The zero value is not usable; construct with Sync, Async or Ticked.
type Callback struct {
	shape  callbackShape
	sync   func() error
	async  func(ctx context.Context) error
	ticked func(ctx context.Context, yield Yield) error
}

// Sync returns a callback that runs to completion before the phase advances.
func Sync(fn func()) Callback {
	if fn == nil {
		panic("tree: nil sync callback")
	}
	return Callback{shape: shapeSync, sync: func() error { fn(); return nil }}
}

// Async returns a callback that runs on its own goroutine and may block on
// arbitrary work. The phase does not advance until it returns. Completion is
// observed at the earliest on the next advance of the node, so async callbacks
// always span at least one tick. ctx is cancelled when the node is reset.
//
// Async callbacks run concurrently with the tree and must not touch node state
// other than through values that are safe for concurrent use (see
// blackboard.Blackboard).
func Async(fn func(ctx context.Context) error) Callback {
	if fn == nil {
		panic("tree: nil async callback")
	}
	return Callback{shape: shapeAsync, async: fn}
}

// Ticked returns a tick-synchronized callback. It runs in lockstep with the
// tree: the tree is blocked while the callback executes, and the callback is
// blocked while the tree executes, so it may freely access node state.
// Calling yield hands control back to the tree until the next advance.
func Ticked(fn func(ctx context.Context, yield Yield) error) Callback {
	if fn == nil {
		panic("tree: nil ticked callback")
	}
	return Callback{shape: shapeTicked, ticked: fn}
}

// PanicError is a recovered panic from user code.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

var errYieldGoroutine = errors.New("tree: yield called outside its callback goroutine")

// protect runs fn, converting a panic into a *PanicError.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// routine is one in-flight suspendable callback.
type routine struct {
	ctx    context.Context
	ticked bool

	gid     atomic.Int64
	resume  chan struct{}
	yielded chan struct{}
	kill    chan struct{}
	done    chan struct{}

	// err is written before done is closed
	err      error
	finished bool
	killed   bool
}

func startAsync(ctx context.Context, fn func(context.Context) error) *routine {
	r := &routine{ctx: ctx, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		r.err = protect(func() error { return fn(ctx) })
	}()
	return r
}

// startTicked launches fn and blocks until it first yields or returns.
func startTicked(ctx context.Context, fn func(context.Context, Yield) error) *routine {
	r := &routine{
		ctx:     ctx,
		ticked:  true,
		resume:  make(chan struct{}),
		yielded: make(chan struct{}),
		kill:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		r.gid.Store(goid.Get())
		r.err = protect(func() error { return fn(ctx, r.yield) })
	}()
	r.wait()
	return r
}

func (r *routine) yield() error {
	if goid.Get() != r.gid.Load() {
		panic(errYieldGoroutine)
	}
	select {
	case r.yielded <- struct{}{}:
	case <-r.kill:
		return r.abandonedErr()
	}
	select {
	case <-r.resume:
	case <-r.kill:
		return r.abandonedErr()
	}
	return r.ctx.Err()
}

func (r *routine) abandonedErr() error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	return context.Canceled
}

func (r *routine) wait() {
	select {
	case <-r.yielded:
	case <-r.done:
		r.finished = true
	}
}

// step resumes a suspended ticked routine and blocks until it yields again or
// returns.
func (r *routine) step() {
	select {
	case r.resume <- struct{}{}:
		r.wait()
	case <-r.done:
		r.finished = true
	}
}

// poll reports whether an async routine has returned, without blocking.
func (r *routine) poll() bool {
	select {
	case <-r.done:
		r.finished = true
	default:
	}
	return r.finished
}

// abandon releases a ticked routine that the tree will never resume again.
// Its pending and future yields return a cancellation error.
func (r *routine) abandon() {
	if r.ticked && !r.killed {
		r.killed = true
		close(r.kill)
	}
}

// result returns the routine's error, absorbing the cancellation it was asked
// to observe.
func (r *routine) result() error {
	if r.err == nil {
		return nil
	}
	if r.ctx.Err() != nil && (errors.Is(r.err, context.Canceled) || errors.Is(r.err, context.DeadlineExceeded)) {
		return nil
	}
	return r.err
}

// phaseRun executes the callbacks of one lifecycle phase, in order, across as
// many advances as they need.
type phaseRun struct {
	sub  SubStatus
	cbs  []Callback
	next int
	cur  *routine
}

func newPhase(sub SubStatus, cbs []Callback) *phaseRun {
	return &phaseRun{sub: sub, cbs: cbs}
}

// advance runs the phase forward and reports whether every callback has
// completed. A suspended ticked callback is resumed at most once per call, and
// only when resume is set or its context has been cancelled. ctx supplies the
// context for callbacks started by this call.
func (p *phaseRun) advance(ctx func() context.Context, resume bool) (bool, error) {
	var fresh *routine
	resumed := false
	for {
		if r := p.cur; r != nil {
			if !r.finished {
				if r.ticked {
					if r == fresh || resumed || (!resume && r.ctx.Err() == nil) {
						return false, nil
					}
					resumed = true
					r.step()
				} else if r == fresh || !r.poll() {
					return false, nil
				}
				if !r.finished {
					return false, nil
				}
			}
			p.cur = nil
			if err := r.result(); err != nil {
				return false, err
			}
			continue
		}
		if p.next >= len(p.cbs) {
			return true, nil
		}
		cb := p.cbs[p.next]
		p.next++
		switch cb.shape {
		case shapeSync:
			if err := protect(cb.sync); err != nil {
				return false, err
			}
		case shapeAsync:
			p.cur = startAsync(ctx(), cb.async)
			fresh = p.cur
		case shapeTicked:
			p.cur = startTicked(ctx(), cb.ticked)
			fresh = p.cur
		}
	}
}

// unwind waits for the in-flight callback to return, after its context was
// cancelled, and then drops the rest of the phase.
func (p *phaseRun) unwind() (bool, error) {
	r := p.cur
	if r == nil {
		p.next = len(p.cbs)
		return true, nil
	}
	if !r.finished {
		if r.ticked {
			r.step()
		} else {
			r.poll()
		}
		if !r.finished {
			return false, nil
		}
	}
	p.cur = nil
	p.next = len(p.cbs)
	return true, r.result()
}

// drop abandons the phase without waiting for in-flight work.
func (p *phaseRun) drop() {
	if p != nil && p.cur != nil && !p.cur.finished {
		p.cur.abandon()
	}
}
