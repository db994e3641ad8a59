package coro

import (
	"context"
	"iter"
	"sync/atomic"
)

// Indexed pairs a value with the index of the future (or generator) it
// came from, as returned by AnyOf.
type Indexed[T any] struct {
	Index int
	Value T
}

// AllOf resolves once every input future has settled. It carries no
// error of its own; inspect each input future afterwards for its
// individual result.
//
// Grounded on spec.md §4.9's all-of combinator, with the original's
// "callbacks replacing themselves" fairness question sidestepped
// entirely: one SetCallback is installed per input up front and
// completions are counted down via a single atomic.Int32, so there is no
// replacement and therefore no fairness question to answer.
func AllOf[T any](futures ...*Future[T]) *Future[struct{}] {
	f := &Future[struct{}]{state: newStateWord(statePending)}
	p := newPromise(f)

	if len(futures) == 0 {
		p.Fulfill(struct{}{})
		return f
	}

	var remaining atomic.Int32
	remaining.Store(int32(len(futures)))
	countDown := func() {
		if remaining.Add(-1) == 0 {
			p.Fulfill(struct{}{})
		}
	}
	for _, in := range futures {
		if !in.SetCallback(countDown) {
			countDown()
		}
	}
	return f
}

// AnyOf resolves with the value (and originating index) of whichever
// input future settles first. If that future rejected, AnyOf rejects
// with the same error. With zero inputs there is no winner and nothing
// fulfils the returned future; it settles as a broken promise only once
// its unreferenced Promise is garbage collected.
func AnyOf[T any](futures ...*Future[T]) *Future[Indexed[T]] {
	f := &Future[Indexed[T]]{state: newStateWord(statePending)}
	p := newPromise(f)

	for i, in := range futures {
		i, in := i, in
		deliver := func() {
			v, err := in.result()
			if err != nil {
				p.Reject(err).Deliver()
			} else {
				p.Resolve(Indexed[T]{Index: i, Value: v}).Deliver()
			}
		}
		if !in.SetCallback(deliver) {
			deliver()
		}
	}
	return f
}

type indexedFuture[T any] struct {
	index  int
	future *Future[T]
}

// EachOf exposes a range-over-func iterator over (index, future) pairs
// in finish order, one per input.
//
// Grounded on spec.md §4.9 and the Open Question resolution recorded in
// SPEC_FULL.md/DESIGN.md: rather than reconstructing the original's
// sentinel-count bookkeeping, completions are pushed through a shared
// Queue[indexedFuture[T]] as each input settles, and the iterator simply
// pulls from that queue N times.
func EachOf[T any](ctx context.Context, futures ...*Future[T]) iter.Seq2[int, *Future[T]] {
	q := NewQueue[indexedFuture[T]]()
	for i, in := range futures {
		item := indexedFuture[T]{index: i, future: in}
		push := func() { _ = q.Push(item) }
		if !in.SetCallback(push) {
			push()
		}
	}
	total := len(futures)

	return func(yield func(int, *Future[T]) bool) {
		for done := 0; done < total; done++ {
			item, err := q.Pop(ctx).Get()
			if err != nil {
				return
			}
			if !yield(item.index, item.future) {
				return
			}
		}
	}
}

// AggregatedValue is what an Aggregator yields: which input generator
// produced Value, or the error it ended with.
type AggregatedValue[T any] struct {
	Index int
	Value T
	Err   error
}

// Aggregator multiplexes N generators into a single stream, interleaved
// in whatever order their values actually become ready.
//
// Grounded on spec.md §4.9's "install one shared target per generator,
// read a queue of completed indices, yield then restart" design: each
// input is pulled concurrently on its own goroutine (the "restart" spec.md
// describes is simply Generator.Next's own pull loop, run again
// immediately after each push), and completions funnel through one shared
// Queue[AggregatedValue[T]] that the merged generator drains.
type Aggregator[T any] struct {
	gen *Generator[AggregatedValue[T]]
}

// NewAggregator starts pulling every input concurrently and returns the
// merged stream.
func NewAggregator[T any](ctx context.Context, inputs ...*Generator[T]) *Aggregator[T] {
	q := NewQueue[AggregatedValue[T]]()

	if len(inputs) == 0 {
		q.Close(nil)
	} else {
		var remaining atomic.Int32
		remaining.Store(int32(len(inputs)))
		for i, g := range inputs {
			i, g := i, g
			go func() {
				for {
					v, ok, err := g.Next(ctx)
					if err != nil {
						_ = q.Push(AggregatedValue[T]{Index: i, Err: err})
						break
					}
					if !ok {
						break
					}
					if q.Push(AggregatedValue[T]{Index: i, Value: v}) != nil {
						break
					}
				}
				if remaining.Add(-1) == 0 {
					q.Close(nil)
				}
			}()
		}
	}

	gen := NewGenerator[AggregatedValue[T]](ctx, func(yield func(AggregatedValue[T])) {
		for {
			v, err := q.Pop(ctx).Get()
			if err != nil {
				return
			}
			yield(v)
		}
	})
	return &Aggregator[T]{gen: gen}
}

// Next pulls the next aggregated value; ok is false once every input
// generator has finished.
func (a *Aggregator[T]) Next(ctx context.Context) (AggregatedValue[T], bool, error) {
	return a.gen.Next(ctx)
}
