// Package coro provides an asynchronous-value abstraction (a "future")
// together with the suspension/resumption machinery that lets user-written
// goroutines produce and consume those values cooperatively.
//
// # Architecture
//
// A [Future] is a cell holding "not yet / value / exception", with a small
// lifecycle state machine (Resolved, Deferred, Pending, Awaited). A
// [Promise] is the single writer handle paired with a future. Producers
// resolve a future through its promise; consumers either block ([Future.
// Wait], [Future.Get]) or register a callback ([Future.SetCallback], [Future.
// Then]). Every cross-component wakeup in this package — a future
// resolving, a mutex unlocking, a timer firing — uses the same uniform
// [Target] abstraction.
//
// [Async] builds a lazy producer coroutine out of a goroutine, using an
// unbuffered-channel handshake so that exactly one side runs at a time.
// [Generator] and [Collector] are built the same way, for lazy sequences.
// [Scheduler] is a worker pool plus a timer heap that consumes notification
// targets and resumes coroutines.
//
// [Mutex], [Semaphore], [Queue], and [Distributor] are concurrency
// primitives layered on futures: instead of blocking a thread, acquiring
// one of these returns a future that resolves once the resource is
// available.
//
// # Error handling
//
// Operations that fail return one of the sentinel-wrapping error types in
// errors.go: [BrokenPromiseError], [StillPendingError], [AwaitCanceledError],
// [NoActiveSchedulerError], [PanicError]. All implement [errors.Unwrap]
// against the matching sentinel ([ErrBrokenPromise], etc.) for [errors.Is]
// matching.
//
// # Logging
//
// The [Scheduler] accepts a [Logger] via [WithLogger] (see logging.go); the
// default is a no-op.
// [NewLogifaceLogger] adapts github.com/joeycumines/logiface for
// structured output.
//
// # Usage
//
//	f := coro.NewFuture(func(p *coro.Promise[int]) {
//	    p.Fulfill(42)
//	})
//	v, err := f.Get()
//
//	sched := coro.NewScheduler(coro.WithWorkers(4))
//	defer sched.Close()
//	sched.Schedule(func() { fmt.Println("hello") })
package coro
