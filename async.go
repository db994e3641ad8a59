package coro

import "context"

// AsyncBody is a producer coroutine's body: it runs on its own goroutine,
// is handed the Promise it must eventually settle and a Yield for
// cooperative suspension, and returns the value (or error) to settle that
// Promise with. Calling yield() suspends the body until driven forward
// again; if the Async was bound to a context via WithContext and that
// context is cancelled while suspended, the yield call panics and unwinds
// the body, settling the future with an AwaitCanceledError instead.
//
// A body may instead resolve p itself (directly, or via p.Combine with
// some other promise) and simply return afterwards; its return value is
// then ignored, since p is already claimed.
type AsyncBody[T any] func(p *Promise[T], yield Yield) (T, error)

// Async is a lazily-started producer coroutine. Its zero value is not
// usable; construct one with NewAsync.
type Async[T any] struct {
	body AsyncBody[T]
	ctx  context.Context
}

// NewAsync wraps body as a producer coroutine. Nothing runs until Run,
// Start, DeferStart, or SharedStart is called.
func NewAsync[T any](body AsyncBody[T]) Async[T] {
	return Async[T]{body: body}
}

// WithContext binds a's frame to ctx and returns the updated value; a
// itself is unmodified (Async is a plain value type).
func (a Async[T]) WithContext(ctx context.Context) Async[T] {
	a.ctx = ctx
	return a
}

func (a Async[T]) frame(p *Promise[T]) *coroutine {
	return startCoroutine(a.ctx, func(yield Yield) {
		runAsyncBody(p, func() (T, error) { return a.body(p, yield) })
	})
}

func runAsyncBody[T any](p *Promise[T], call func() (T, error)) {
	defer func() {
		if r := recover(); r != nil {
			settleFromPanic(p, r)
		}
	}()
	v, err := call()
	if err != nil {
		p.Reject(err).Deliver()
	} else {
		p.Resolve(v).Deliver()
	}
}

func settleFromPanic[T any](p *Promise[T], r any) {
	if leaked, ok := r.(errCoroutineLeaked); ok {
		if leaked.cause != nil {
			p.Reject(&AwaitCanceledError{Cause: leaked.cause}).Deliver()
		} else {
			p.Cancel().Deliver()
		}
		return
	}
	p.Reject(recoverPanic(r)).Deliver()
}

func driveToCompletion(c *coroutine) {
	for c.resume() {
	}
}

// Run starts a's frame on the calling goroutine and blocks until it
// completes, returning its result directly without going through a
// Future at all.
func (a Async[T]) Run() (T, error) {
	f := &Future[T]{state: newStateWord(statePending)}
	p := newPromise(f)
	c := a.frame(p)
	driveToCompletion(c)
	return f.result()
}

// Start begins running a's frame in the background and returns
// immediately with a Future that resolves once it completes.
func (a Async[T]) Start() *Future[T] {
	f := &Future[T]{state: newStateWord(statePending)}
	p := newPromise(f)
	c := a.frame(p)
	go driveToCompletion(c)
	return f
}

// DeferStart wraps a as a DeferredFuture: nothing runs until the wrapper
// is first awaited.
func (a Async[T]) DeferStart() DeferredFuture[T] {
	return NewDeferred(func(p *Promise[T]) Resumption {
		c := a.frame(p)
		go driveToCompletion(c)
		return nil
	})
}

// SharedStart is Start followed by NewShared, for a producer whose result
// many consumers need to observe.
func (a Async[T]) SharedStart() SharedFuture[T] {
	return NewShared(a.Start())
}
