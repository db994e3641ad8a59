package coro

import "sync/atomic"

// sharedState is the reference-counted (via Go's GC) state behind every
// SharedFuture copy produced from the same NewShared call.
type sharedState[T any] struct {
	inner       *Future[T]
	subscribers TargetList
	started     atomic.Bool
}

// SharedFuture wraps a Future so that many independent consumers can each
// await its result. Copying a SharedFuture by value is cheap and shares
// the same underlying inner future and subscriber list.
type SharedFuture[T any] struct {
	s *sharedState[T]
}

// NewShared wraps inner for fan-out consumption.
func NewShared[T any](inner *Future[T]) SharedFuture[T] {
	return SharedFuture[T]{s: &sharedState[T]{inner: inner}}
}

// Clone returns a SharedFuture referring to the same underlying state,
// provided for API symmetry with the original's copy-constructor; since
// SharedFuture already shares state by reference, this is just `s`.
func (s SharedFuture[T]) Clone() SharedFuture[T] { return s }

func (s SharedFuture[T]) ensureDispatch() {
	if s.s.started.CompareAndSwap(false, true) {
		dispatch := func() {
			for _, t := range s.s.subscribers.DrainAndDisable() {
				t.Activate(true)
			}
		}
		if !s.s.inner.SetCallback(dispatch) {
			// Already resolved before the first subscriber arrived:
			// disable the (empty) list so every later Subscribe takes the
			// synchronous fast path below instead of waiting forever.
			dispatch()
		}
	}
}

// Subscribe returns a fresh Future that resolves with the shared inner
// future's result. Each call produces an independent Future[T], so many
// consumers can each Wait/Get/Then on their own copy concurrently.
func (s SharedFuture[T]) Subscribe() *Future[T] {
	s.ensureDispatch()

	out := &Future[T]{state: newStateWord(statePending)}
	p := newPromise(out)

	deliver := func() {
		v, err := s.s.inner.result()
		if err != nil {
			p.Fail(err)
		} else {
			p.Fulfill(v)
		}
	}

	t := NewTarget(func(bool) Resumption {
		deliver()
		return nil
	})
	if !s.s.subscribers.Push(t) {
		// The dispatch chain is already disabled: either the inner future
		// resolved before we got here, or a concurrent dispatch just
		// drained it. Either way the result is available now.
		deliver()
	}
	return out
}

// Wait blocks until the shared future resolves.
func (s SharedFuture[T]) Wait() { s.Subscribe().Wait() }

// Get blocks until the shared future resolves and returns its result.
func (s SharedFuture[T]) Get() (T, error) { return s.Subscribe().Get() }

// Then subscribes and installs cb as in Future.Then.
func (s SharedFuture[T]) Then(cb func()) bool { return s.Subscribe().Then(cb) }
