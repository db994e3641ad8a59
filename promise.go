package coro

import (
	"runtime"
	"sync/atomic"
)

// Promise is the single writer handle paired with a Future. Promise[T]'s
// zero value is not usable; obtain one from Future.GetPromise, NewFuture,
// or NewDeferredFuture's thunk.
//
// A Promise that is garbage collected while still holding an unclaimed
// future resolves that future with a BrokenPromiseError, via a finalizer —
// the same technique github.com/tcard/coro uses to detect an abandoned
// resume token, repurposed here from "panic a blocked yield" to "resolve
// as broken".
type Promise[T any] struct {
	fut atomic.Pointer[Future[T]]
}

func newPromise[T any](f *Future[T]) *Promise[T] {
	p := &Promise[T]{}
	p.fut.Store(f)
	runtime.SetFinalizer(p, func(p *Promise[T]) {
		p.Cancel().Deliver()
	})
	return p
}

// claim atomically takes ownership of the paired future, returning nil if
// it was already claimed by a prior Resolve/Reject/Cancel/Combine.
func (p *Promise[T]) claim() *Future[T] {
	return p.fut.Swap(nil)
}

// Resolve fulfils the paired future with v. Returns a Notify the caller
// uses to decide when the resolution's awaiter (if any) actually runs; see
// Notify.Deliver and Notify.IntoResumption. Calling Resolve a second time,
// or after Reject/Cancel/Combine already claimed the future, is a no-op
// returning an already-delivered Notify.
func (p *Promise[T]) Resolve(v T) *Notify {
	f := p.claim()
	if f == nil {
		return &Notify{}
	}
	return f.complete(v, nil)
}

// Reject resolves the paired future with err as its exception.
func (p *Promise[T]) Reject(err error) *Notify {
	f := p.claim()
	if f == nil {
		return &Notify{}
	}
	var zero T
	return f.complete(zero, err)
}

// Cancel resolves the paired future with Result=NotSet (a broken promise).
// This is what happens implicitly if a Promise is dropped unresolved.
func (p *Promise[T]) Cancel() *Notify {
	f := p.claim()
	if f == nil {
		return &Notify{}
	}
	var zero T
	return f.complete(zero, nil)
}

// Fulfill resolves the paired future with v and delivers the resumption
// inline. Equivalent to Resolve(v).Deliver(), which is what the large
// majority of callers want.
func (p *Promise[T]) Fulfill(v T) { p.Resolve(v).Deliver() }

// Fail rejects the paired future with err and delivers the resumption
// inline. Equivalent to Reject(err).Deliver().
func (p *Promise[T]) Fail(err error) { p.Reject(err).Deliver() }

// Release returns the paired future without resolving it, claiming
// ownership away from this Promise (a further Resolve/Reject/Cancel/
// Combine on p is a no-op). For manual resumption protocols that need the
// Future but intend to resolve it by some other path (e.g. GetPromise'ing
// it again is not meaningful here; Release exists for callers building
// their own Promise-alike wrapper around the same Future).
func (p *Promise[T]) Release() *Future[T] {
	runtime.SetFinalizer(p, nil)
	return p.claim()
}

// Combine merges other into p's future's broadcast chain: resolving p's
// future also resolves other's future with the same value or exception.
// other's own promise becomes inert (any later call on it is a no-op) and
// its implicit-cancel finalizer is disarmed, since its future is now owned
// by p's chain rather than by other's eventual drop.
func (p *Promise[T]) Combine(other *Promise[T]) {
	f := p.fut.Load()
	if f == nil {
		return
	}
	runtime.SetFinalizer(other, nil)
	g := other.claim()
	if g == nil {
		return
	}
	f.pushChain(g)
}

// Notify is returned by Resolve/Reject/Cancel. It defers firing the
// resolution's installed awaiter (if any) until Deliver or IntoResumption
// is called, so the caller can choose the resumption context — e.g. a
// scheduler extracting the resumption via IntoResumption to run it on a
// worker goroutine instead of inline on the resolving goroutine.
type Notify struct {
	target    *Target
	delivered bool
}

// Deliver runs the pending resumption, if any, inline on the calling
// goroutine. Safe to call multiple times or on a nil Notify; only the
// first call has any effect.
func (n *Notify) Deliver() {
	if n == nil || n.delivered {
		return
	}
	n.delivered = true
	if n.target == nil {
		return
	}
	if r := n.target.Activate(true); r != nil {
		r()
	}
}

// IntoResumption extracts the pending resumption (if any) without running
// it, returning a Resumption the caller can hand to a scheduler for
// symmetric transfer. Returns nil if there is nothing to resume. After
// this call, Deliver is a no-op (the resumption has been handed off).
func (n *Notify) IntoResumption() Resumption {
	if n == nil || n.delivered || n.target == nil {
		return nil
	}
	n.delivered = true
	t := n.target
	n.target = nil
	return func() {
		if r := t.Activate(true); r != nil {
			r()
		}
	}
}

// Drop activates the pending resumption (if any) with ok=false instead of
// the normal ok=true, as if the subject it was waiting on had been
// cancelled. Used when a Notify is abandoned before it ever gets to run —
// e.g. still sitting in a Scheduler's queue when the Scheduler is closed.
// Safe to call multiple times or on a nil Notify; only the first call
// across Deliver/Drop/IntoResumption has any effect.
func (n *Notify) Drop() {
	if n == nil || n.delivered {
		return
	}
	n.delivered = true
	if n.target == nil {
		return
	}
	if r := n.target.Activate(false); r != nil {
		r()
	}
}
