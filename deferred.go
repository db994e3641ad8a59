package coro

import "context"

// DeferredFuture wraps a Future whose producer thunk has not yet run. It
// may be freely copied by value while still deferred; every copy shares
// the same underlying Future, so starting it through any copy starts it
// for all of them.
type DeferredFuture[T any] struct {
	f *Future[T]
}

// NewDeferred constructs a DeferredFuture holding fn, not invoked until
// the wrapper (or its underlying Future) is first awaited.
func NewDeferred[T any](fn func(p *Promise[T]) Resumption) DeferredFuture[T] {
	return DeferredFuture[T]{f: NewDeferredFuture(fn)}
}

// IsDeferred reports whether the underlying future has not yet started.
func (d DeferredFuture[T]) IsDeferred() bool { return d.f.IsDeferred() }

// Start runs the deferred thunk if it hasn't already, converting the
// wrapper into an eager future. Safe to call more than once; only the
// first call has any effect.
func (d DeferredFuture[T]) Start() *Future[T] {
	d.f.startDeferred()
	return d.f
}

// Future returns the underlying Future without starting it.
func (d DeferredFuture[T]) Future() *Future[T] { return d.f }

// Wait starts the future if necessary and blocks until it resolves.
func (d DeferredFuture[T]) Wait() { d.Start().Wait() }

// Get starts the future if necessary, blocks until it resolves, and
// returns its result.
func (d DeferredFuture[T]) Get() (T, error) { return d.Start().Get() }

// GetContext is Get with context cancellation support.
func (d DeferredFuture[T]) GetContext(ctx context.Context) (T, error) {
	return d.Start().GetContext(ctx)
}

// Then starts the future if necessary and installs cb as in Future.Then.
func (d DeferredFuture[T]) Then(cb func()) bool { return d.Start().Then(cb) }
