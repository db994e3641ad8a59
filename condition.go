package coro

import (
	"context"
	"sync"
	"unsafe"
)

// conditionShards is the width of the sharded condition-variable table,
// keyed by watched address, so many distinct watched variables don't
// serialize behind one mutex the way a single global table would.
const conditionShards = 32

type conditionWaiter struct {
	pred func() bool
	p    *Promise[struct{}]
}

type conditionBucket struct {
	mu      sync.Mutex
	waiters map[unsafe.Pointer][]*conditionWaiter
}

var conditionTable [conditionShards]conditionBucket

func init() {
	for i := range conditionTable {
		conditionTable[i].waiters = make(map[unsafe.Pointer][]*conditionWaiter)
	}
}

func conditionShard(addr unsafe.Pointer) *conditionBucket {
	return &conditionTable[uintptr(addr)%conditionShards]
}

// WaitCondition returns a future that resolves once some NotifyCondition
// call against addr finds pred true. pred is evaluated once immediately,
// before registering, and again just after registering under the
// bucket's lock — both checks exist to close the missed-wakeup race
// where a notification lands between "the caller noticed the condition
// doesn't hold yet" and "the caller actually registered to be told".
func WaitCondition(ctx context.Context, addr unsafe.Pointer, pred func() bool) *Future[struct{}] {
	if pred() {
		return Resolved(struct{}{})
	}

	b := conditionShard(addr)
	f := &Future[struct{}]{state: newStateWord(statePending)}
	p := newPromise(f)
	w := &conditionWaiter{pred: pred, p: p}

	b.mu.Lock()
	if pred() {
		b.mu.Unlock()
		p.Fulfill(struct{}{})
		return f
	}
	b.waiters[addr] = append(b.waiters[addr], w)
	b.mu.Unlock()

	if ctx != nil {
		if done := ctx.Done(); done != nil {
			go func() {
				<-done
				b.removeWaiter(addr, w)
				p.Reject(&AwaitCanceledError{Cause: ctx.Err()}).Deliver()
			}()
		}
	}
	return f
}

func (b *conditionBucket) removeWaiter(addr unsafe.Pointer, w *conditionWaiter) {
	b.mu.Lock()
	list := b.waiters[addr]
	for i, x := range list {
		if x == w {
			b.waiters[addr] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(b.waiters[addr]) == 0 {
		delete(b.waiters, addr)
	}
	b.mu.Unlock()
}

// NotifyCondition re-evaluates every waiter currently registered against
// addr and resumes those whose predicate now holds, leaving the rest
// registered.
func NotifyCondition(addr unsafe.Pointer) {
	b := conditionShard(addr)

	b.mu.Lock()
	list := b.waiters[addr]
	var ready []*conditionWaiter
	remaining := list[:0]
	for _, w := range list {
		if w.pred() {
			ready = append(ready, w)
		} else {
			remaining = append(remaining, w)
		}
	}
	if len(remaining) == 0 {
		delete(b.waiters, addr)
	} else {
		b.waiters[addr] = remaining
	}
	b.mu.Unlock()

	for _, w := range ready {
		w.p.Fulfill(struct{}{})
	}
}
