package coro

import (
	"context"
	"runtime"
)

// Yield suspends the currently running Async/Generator/Collector body,
// handing control back to whatever last called resume, until resumed
// again. It has no return value: a resumed frame simply continues from
// where it called Yield.
type Yield func()

// errCoroutineLeaked is the panic value a suspended frame raises when
// nothing will ever resume it again — either its driving handle was
// garbage collected, or its binding context was cancelled.
type errCoroutineLeaked struct{ cause error }

func (e errCoroutineLeaked) Error() string {
	if e.cause != nil {
		return "coro: suspended frame abandoned: " + e.cause.Error()
	}
	return "coro: suspended frame abandoned"
}

func (e errCoroutineLeaked) Unwrap() error { return e.cause }

// coroutine is the goroutine+channel suspend/resume handshake shared by
// Async, Generator, and Collector: a dedicated goroutine that only runs
// between a resume and the next yield (or return). At most one of the
// driver (whoever calls resume) and the body goroutine ever runs at once,
// which is what lets a single Async/Generator frame be treated as "running
// on at most one goroutine at a time" despite being backed by a real one.
//
// Grounded on github.com/tcard/coro's New/Resume/yield protocol, carrying
// this package's own types through instead of opaque interface{} values,
// and reusing its finalizer-based leak detection: if the handle driving a
// suspended frame is collected, the frame's next blocking point panics
// instead of leaking the goroutine forever.
type coroutine struct {
	resumeCh  chan struct{}
	yieldCh   chan struct{}
	collected chan struct{}
	token     *int
	ctx       context.Context
	done      bool
}

func startCoroutine(ctx context.Context, body func(yield Yield)) *coroutine {
	c := &coroutine{
		resumeCh:  make(chan struct{}),
		yieldCh:   make(chan struct{}),
		collected: make(chan struct{}),
		ctx:       ctx,
	}
	c.token = new(int)
	runtime.SetFinalizer(c.token, func(*int) { close(c.collected) })

	yield := func() {
		c.yieldCh <- struct{}{}
		select {
		case <-c.resumeCh:
		case <-c.collected:
			panic(errCoroutineLeaked{})
		case <-c.ctxDone():
			panic(errCoroutineLeaked{cause: ctx.Err()})
		}
	}

	go func() {
		select {
		case <-c.resumeCh:
		case <-c.collected:
			return
		}
		defer close(c.yieldCh)
		// An abandoned frame unwinds through errCoroutineLeaked; end the
		// goroutine quietly instead of crashing the process.
		defer func() {
			if r := recover(); r != nil {
				if _, leaked := r.(errCoroutineLeaked); !leaked {
					panic(r)
				}
			}
		}()
		body(yield)
	}()
	return c
}

func (c *coroutine) ctxDone() <-chan struct{} {
	if c.ctx == nil {
		return nil
	}
	return c.ctx.Done()
}

// resume runs the body until its next yield or return. alive is false
// once the body has returned, meaning there is nothing left to resume.
// resume also races the same cancellation signals yield does: if the
// frame's context is cancelled (or its handle collected) concurrently
// with a resume call, at most one side of the resumeCh rendezvous wins,
// and the other independently observes the same signal instead of
// blocking forever on an unmatched send.
func (c *coroutine) resume() (alive bool) {
	if c.done {
		return false
	}
	select {
	case c.resumeCh <- struct{}{}:
	case <-c.collected:
		c.done = true
		return false
	case <-c.ctxDone():
		c.done = true
		return false
	}
	_, ok := <-c.yieldCh
	if !ok {
		c.done = true
		runtime.SetFinalizer(c.token, nil)
	}
	return ok
}

// release disarms leak detection without resuming, for a frame that was
// never started (Start/Run/DeferStart never called) and is simply being
// dropped.
func (c *coroutine) release() {
	runtime.SetFinalizer(c.token, nil)
}
