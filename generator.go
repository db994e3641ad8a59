package coro

import "context"

// GeneratorBody is a generator coroutine's body. It runs on its own
// goroutine and pushes values to its consumer one at a time by calling
// yield, which blocks until the consumer pulls the next one. Returning
// from body (normally or via panic) ends the stream.
type GeneratorBody[T any] func(yield func(T))

// Generator produces a pull-driven stream of T, one value per Next call.
// Not safe for concurrent pulls from more than one goroutine at a time —
// exactly like pulling from the same iterator twice concurrently in any
// other single-consumer generator design.
type Generator[T any] struct {
	c    *coroutine
	slot *Promise[T]
}

// NewGenerator wraps body as a Generator. The underlying goroutine is
// spawned at once but waits; body does not run until the first call to
// Next or All.
func NewGenerator[T any](ctx context.Context, body GeneratorBody[T]) *Generator[T] {
	g := &Generator[T]{}
	g.c = startCoroutine(ctx, func(yield Yield) {
		defer func() {
			if r := recover(); r != nil {
				g.settle(r)
			}
		}()
		body(func(v T) {
			g.deliver(v)
			yield()
		})
		g.settle(nil)
	})
	return g
}

func (g *Generator[T]) deliver(v T) {
	p := g.slot
	g.slot = nil
	if p != nil {
		p.Fulfill(v)
	}
}

// settle resolves whatever slot is currently installed to signal
// end-of-stream (r == nil), cancellation (r is an errCoroutineLeaked), or
// a body panic (anything else) — mirroring Async's settleFromPanic, but
// the "normal" end-of-stream outcome is itself a broken promise (Result =
// NotSet), not a value.
func (g *Generator[T]) settle(r any) {
	p := g.slot
	g.slot = nil
	if p == nil {
		return
	}
	if r == nil {
		p.Cancel().Deliver()
		return
	}
	settleFromPanic(p, r)
}

// Next pulls the next value. It returns ok == false with a nil error once
// the generator body has returned normally; a non-nil error means the
// body panicked or ctx was cancelled mid-pull.
func (g *Generator[T]) Next(ctx context.Context) (v T, ok bool, err error) {
	f := &Future[T]{state: newStateWord(statePending)}
	p := newPromise(f)
	g.slot = p

	if !g.c.resume() && f.IsPending() {
		// The body never reached this slot at all: either the coroutine
		// was already finished by an earlier call, or it was abandoned
		// (bound context cancelled, handle collected) before ever
		// resuming into the frame that would have delivered to it.
		g.slot = nil
		var zero T
		if g.c.ctx != nil && g.c.ctx.Err() != nil {
			return zero, false, &AwaitCanceledError{Cause: g.c.ctx.Err()}
		}
		return zero, false, nil
	}

	v, err = f.GetContext(ctx)
	if err != nil {
		var zero T
		if _, broken := err.(*BrokenPromiseError); broken {
			return zero, false, nil
		}
		return zero, false, err
	}
	return v, true, nil
}

// All adapts the generator to a range-over-func iterator (Go 1.23+),
// stopping early (without error) if yield returns false. Any error
// encountered while pulling is silently treated as end-of-stream; use
// Next directly when the error needs to be observed.
func (g *Generator[T]) All(ctx context.Context) func(yield func(T) bool) {
	return func(yield func(T) bool) {
		for {
			v, ok, err := g.Next(ctx)
			if err != nil || !ok {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}
