package coro

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// resultKind tags which of Future's value/exception fields is meaningful.
type resultKind int32

const (
	resultNotSet resultKind = iota
	resultValue
	resultException
)

// chainNode links a Future into another Future's broadcast chain (see
// Promise.Combine).
type chainNode[T any] struct {
	target *Future[T]
	next   *chainNode[T]
}

// Future is an asynchronous cell holding "not yet / value / exception". Its
// zero value is not usable; construct one with Resolved, Rejected,
// NewFuture, or NewDeferredFuture.
type Future[T any] struct {
	state *stateWord

	mu        sync.Mutex
	kind      resultKind
	value     T
	exception error
	awaiter   *Target
	thunk     func(*Promise[T]) Resumption

	chain atomic.Pointer[chainNode[T]]
}

// Resolved constructs an already-resolved future holding v.
func Resolved[T any](v T) *Future[T] {
	f := &Future[T]{state: newStateWord(stateResolved), kind: resultValue, value: v}
	return f
}

// Rejected constructs an already-resolved future holding err.
func Rejected[T any](err error) *Future[T] {
	f := &Future[T]{state: newStateWord(stateResolved), kind: resultException, exception: err}
	return f
}

// NewFuture constructs a Pending future and immediately invokes fn with its
// Promise. fn may resolve synchronously (the future is then Resolved by
// the time NewFuture returns) or stash the promise for later use.
func NewFuture[T any](fn func(p *Promise[T])) *Future[T] {
	f := &Future[T]{state: newStateWord(statePending)}
	p := newPromise(f)
	fn(p)
	return f
}

// NewDeferredFuture constructs a Deferred future holding fn. fn is not
// invoked until the future is first awaited (Subscribe, Wait, Get, Then).
func NewDeferredFuture[T any](fn func(p *Promise[T]) Resumption) *Future[T] {
	return &Future[T]{state: newStateWord(stateDeferred), thunk: fn}
}

// IsPending reports whether the future is in the Pending state.
func (f *Future[T]) IsPending() bool { return f.state.Load() == statePending }

// IsDeferred reports whether the future is in the Deferred state.
func (f *Future[T]) IsDeferred() bool { return f.state.Load() == stateDeferred }

// IsAwaited reports whether the future currently has an installed awaiter.
func (f *Future[T]) IsAwaited() bool { return f.state.Load() == stateAwaited }

// HasValue reports whether a Resolved future's result is a value. Only
// meaningful once the future is Resolved.
func (f *Future[T]) HasValue() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kind == resultValue
}

// HasException reports whether a Resolved future's result is an exception.
func (f *Future[T]) HasException() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kind == resultException
}

// GetPromise recycles a Resolved or Deferred future into a fresh Pending
// one, returning its new Promise. It is an error to call this on a future
// that is Pending, Awaited, or Evaluating.
func (f *Future[T]) GetPromise() (*Promise[T], error) {
	for {
		switch cur := f.state.Load(); cur {
		case stateResolved:
			if f.state.CAS(stateResolved, statePending) {
				f.mu.Lock()
				f.kind = resultNotSet
				var zero T
				f.value = zero
				f.exception = nil
				f.mu.Unlock()
				return newPromise(f), nil
			}
		case stateDeferred:
			if f.state.CAS(stateDeferred, statePending) {
				f.mu.Lock()
				f.thunk = nil
				f.mu.Unlock()
				return newPromise(f), nil
			}
		default:
			return nil, &StillPendingError{}
		}
	}
}

// Subscribe installs t to fire exactly once when f settles. It returns true
// if t was installed and will fire later (from the resolving writer's
// context). A Deferred future is started by Subscribe itself before t is
// installed. It returns false if f was already resolved at the time of the
// call (including by a deferred thunk that resolved synchronously) — in
// that case t was never installed, and the caller is responsible for
// activating it.
func (f *Future[T]) Subscribe(t *Target) bool {
	for {
		switch cur := f.state.Load(); cur {
		case stateResolved:
			return false
		case stateDeferred:
			f.startDeferred()
			// retry against whatever state startDeferred left us in
		case stateEvaluating:
			runtime.Gosched()
		case statePending, stateAwaited:
			if !f.state.CAS(cur, stateEvaluating) {
				continue
			}
			f.mu.Lock()
			f.awaiter = t
			f.mu.Unlock()
			if f.state.CAS(stateEvaluating, stateAwaited) {
				return true
			}
			// A concurrent Resolve exchanged state to Resolved while we
			// were installing; the awaiter we stored must be discarded,
			// and the caller fires t itself.
			f.mu.Lock()
			f.awaiter = nil
			f.mu.Unlock()
			return false
		default:
			return false
		}
	}
}

// SetCallback installs cb to run with no arguments when f settles. Returns
// true if installed, false if f was already resolved (cb is NOT invoked in
// that case — unlike Then).
func (f *Future[T]) SetCallback(cb func()) bool {
	return f.Subscribe(NewTarget(func(bool) Resumption {
		cb()
		return nil
	}))
}

// Then installs cb to run with no arguments when f settles, or, if f is
// already resolved, invokes cb inline immediately. Returns true if the
// call was deferred (f was pending), false if cb already ran inline.
func (f *Future[T]) Then(cb func()) bool {
	if f.Subscribe(NewTarget(func(bool) Resumption {
		cb()
		return nil
	})) {
		return true
	}
	cb()
	return false
}

// Wait blocks the calling goroutine until f is Resolved.
func (f *Future[T]) Wait() {
	if f.state.Load() == stateResolved {
		return
	}
	done := make(chan struct{})
	if f.Subscribe(NewTarget(func(bool) Resumption {
		close(done)
		return nil
	})) {
		<-done
	}
}

// WaitContext blocks until f is Resolved or ctx is cancelled, whichever
// happens first. On cancellation it returns ctx.Err() wrapped as an
// AwaitCanceledError; the future itself is left exactly as it was (this
// does not cancel the producer, only the caller's wait).
func (f *Future[T]) WaitContext(ctx context.Context) error {
	if f.state.Load() == stateResolved {
		return nil
	}
	done := make(chan struct{})
	if !f.Subscribe(NewTarget(func(bool) Resumption {
		close(done)
		return nil
	})) {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return &AwaitCanceledError{Cause: ctx.Err()}
	}
}

// Get blocks until f is Resolved and returns its value, or the stored
// exception, or a BrokenPromiseError if the future resolved with no
// result set (its promise was dropped without being fulfilled/rejected).
func (f *Future[T]) Get() (T, error) {
	f.Wait()
	return f.result()
}

// GetContext is Get with context cancellation support; see WaitContext.
func (f *Future[T]) GetContext(ctx context.Context) (T, error) {
	if err := f.WaitContext(ctx); err != nil {
		var zero T
		return zero, err
	}
	return f.result()
}

func (f *Future[T]) result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.kind {
	case resultValue:
		return f.value, nil
	case resultException:
		var zero T
		return zero, f.exception
	default:
		var zero T
		return zero, &BrokenPromiseError{}
	}
}

// ForwardTo subscribes to f and, on resolution, forwards f's result into p.
func (f *Future[T]) ForwardTo(p *Promise[T]) {
	f.Then(func() {
		v, err := f.result()
		if err != nil {
			p.Reject(err).Deliver()
			return
		}
		p.Resolve(v).Deliver()
	})
}

// ConvertTo subscribes to f and, on resolution, forwards mapFn(f's value)
// into p, or f's exception unchanged if f rejected.
func ConvertTo[T, R any](f *Future[T], p *Promise[R], mapFn func(T) R) {
	f.Then(func() {
		v, err := f.result()
		if err != nil {
			p.Reject(err).Deliver()
			return
		}
		p.Resolve(mapFn(v)).Deliver()
	})
}

// startDeferred runs f's deferred thunk, promoting Deferred to Pending (or
// directly to Resolved, if the thunk resolves synchronously).
func (f *Future[T]) startDeferred() {
	if !f.state.CAS(stateDeferred, stateEvaluating) {
		return
	}
	f.mu.Lock()
	thunk := f.thunk
	f.thunk = nil
	f.mu.Unlock()
	if thunk == nil {
		f.state.CAS(stateEvaluating, statePending)
		return
	}
	p := newPromise(f)
	r := thunk(p)
	if !f.state.CAS(stateEvaluating, statePending) {
		// Thunk resolved synchronously: state is already Resolved.
	}
	if r != nil {
		r()
	}
}

// complete stores v/err as f's result, propagates to the chain, and
// publishes the Resolved state. It returns a Notify carrying whatever
// awaiter was installed (nil Target if none) for the caller (a Promise) to
// fire at a time of its choosing.
func (f *Future[T]) complete(v T, err error) *Notify {
	f.mu.Lock()
	if err != nil {
		f.kind = resultException
		f.exception = err
	} else {
		f.kind = resultValue
		f.value = v
	}
	f.mu.Unlock()

	f.propagateChain(v, err)

	prev := f.state.Swap(stateResolved)

	if prev == stateAwaited {
		f.mu.Lock()
		t := f.awaiter
		f.awaiter = nil
		f.mu.Unlock()
		return &Notify{target: t}
	}
	return &Notify{}
}

// propagateChain detaches the chain and delivers to every linked future,
// leaving a drained sentinel (a node with a nil target) in f.chain so that
// any pushChain racing against this call can tell it arrived too late
// instead of silently linking onto a chain nothing will ever drain again.
func (f *Future[T]) propagateChain(v T, err error) {
	node := f.chain.Swap(&chainNode[T]{})
	for n := node; n != nil; n = n.next {
		n.target.complete(v, err).Deliver()
	}
}

// pushChain appends g onto f's broadcast chain (Treiber stack push). If f
// has already been resolved and drained its chain by the time pushChain
// runs — the only way f.chain can ever hold the nil-target drained
// sentinel — g would never be delivered by a future propagateChain call
// that isn't coming, so pushChain instead forwards f's already-settled
// result into g directly, inline.
func (f *Future[T]) pushChain(g *Future[T]) {
	for {
		head := f.chain.Load()
		if head != nil && head.target == nil {
			v, err := f.result()
			g.complete(v, err).Deliver()
			return
		}
		node := &chainNode[T]{target: g, next: head}
		if f.chain.CompareAndSwap(head, node) {
			return
		}
	}
}
