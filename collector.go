package coro

import "context"

// CollectorBody is a collector coroutine's body: the dual of
// GeneratorBody. It repeatedly calls recv to consume the next pushed
// item — ok is false once the producer has called Close and every
// pushed item has been drained — and eventually returns a final result.
type CollectorBody[T, R any] func(recv func() (T, bool)) (R, error)

// Collector consumes a push-driven stream of T and produces a single
// result R once its body decides it has seen enough (or the producer
// closes it). Pushing is expected from a single producer goroutine at a
// time, symmetric with Generator's single-consumer assumption.
type Collector[T, R any] struct {
	c          *coroutine
	pending    T
	hasPending bool
	closed     bool
	result     *Future[R]
}

// NewCollector wraps body as a Collector. The underlying goroutine is
// spawned at once but waits; body does not run until the first Push or
// Close.
func NewCollector[T, R any](ctx context.Context, body CollectorBody[T, R]) *Collector[T, R] {
	f := &Future[R]{state: newStateWord(statePending)}
	p := newPromise(f)
	col := &Collector[T, R]{result: f}

	col.c = startCoroutine(ctx, func(yield Yield) {
		recv := func() (T, bool) {
			if !col.hasPending && !col.closed {
				yield()
			}
			if col.closed && !col.hasPending {
				var zero T
				return zero, false
			}
			v := col.pending
			col.hasPending = false
			var zero T
			col.pending = zero
			return v, true
		}

		defer func() {
			if r := recover(); r != nil {
				settleFromPanic(p, r)
			}
		}()
		v, err := body(recv)
		if err != nil {
			p.Reject(err).Deliver()
		} else {
			p.Resolve(v).Deliver()
		}
	})
	return col
}

// Push feeds v to the collector's body and drives it forward one step.
// Reports whether the body is still running afterwards; once it returns
// false, further Push calls are no-ops.
func (col *Collector[T, R]) Push(v T) bool {
	if col.closed || col.c.done {
		return false
	}
	col.pending = v
	col.hasPending = true
	return col.c.resume()
}

// Close signals end-of-stream: the body's next (or current) recv call
// returns ok == false. Safe to call more than once.
func (col *Collector[T, R]) Close() {
	if col.closed {
		return
	}
	col.closed = true
	col.c.resume()
}

// Result is the Future that resolves with the body's return value once
// it stops consuming, either because it decided it had enough or because
// Close drained it to end-of-stream.
func (col *Collector[T, R]) Result() *Future[R] { return col.result }
