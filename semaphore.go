package coro

import (
	"context"
	"sync"
	"sync/atomic"
)

// Semaphore is a futures-based counting semaphore: Acquire returns a
// Future[struct{}] resolved immediately if the count allows, or once a
// matching Release frees up a slot. Grounded on spec.md's counter-plus-
// FIFO-wait-list design.
type Semaphore struct {
	count   atomic.Int64
	mu      sync.Mutex
	waiters []*Promise[struct{}]
}

// NewSemaphore constructs a Semaphore with n initially available slots.
func NewSemaphore(n int64) *Semaphore {
	s := &Semaphore{}
	s.count.Store(n)
	return s
}

// Acquire claims one slot, waiting if none are currently available. If
// ctx is cancelled before a slot frees up, the returned future rejects
// with an AwaitCanceledError instead.
func (s *Semaphore) Acquire(ctx context.Context) *Future[struct{}] {
	for {
		cur := s.count.Load()
		if cur <= 0 {
			break
		}
		if s.count.CompareAndSwap(cur, cur-1) {
			return Resolved(struct{}{})
		}
	}

	f := &Future[struct{}]{state: newStateWord(statePending)}
	p := newPromise(f)

	s.mu.Lock()
	// Re-check under the lock: a concurrent Release may have freed a
	// slot between the lock-free loop above and here.
	if cur := s.count.Load(); cur > 0 && s.count.CompareAndSwap(cur, cur-1) {
		s.mu.Unlock()
		p.Fulfill(struct{}{})
		return f
	}
	s.waiters = append(s.waiters, p)
	s.mu.Unlock()

	if ctx != nil {
		if done := ctx.Done(); done != nil {
			go func() {
				<-done
				s.removeWaiter(p)
				p.Reject(&AwaitCanceledError{Cause: ctx.Err()}).Deliver()
			}()
		}
	}
	return f
}

// Release frees one slot, handing it directly to the oldest waiter if
// there is one, or incrementing the counter otherwise. Both the
// waiter-or-increment decision here and Acquire's re-check-then-enqueue
// happen under the same mutex, so a Release can never land between an
// Acquire's failed fast-path check and its enqueue and be missed.
func (s *Semaphore) Release() {
	s.mu.Lock()
	if len(s.waiters) > 0 {
		p := s.waiters[0]
		s.waiters = s.waiters[1:]
		s.mu.Unlock()
		p.Fulfill(struct{}{})
		return
	}
	s.count.Add(1)
	s.mu.Unlock()
}

func (s *Semaphore) removeWaiter(p *Promise[struct{}]) {
	s.mu.Lock()
	for i, w := range s.waiters {
		if w == p {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}
