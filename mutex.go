package coro

import (
	"runtime"
	"sync/atomic"
)

type mutexNode struct {
	p    *Promise[Token]
	next *mutexNode
}

// lockedNoQueue is the sentinel terminating every waiter chain: "locked,
// nobody (else) waiting", distinct from nil ("unlocked").
var lockedNoQueue = &mutexNode{}

// Mutex is a futures-based mutual exclusion lock: instead of blocking a
// goroutine, Lock returns a Future[Token] that resolves once ownership is
// granted. Grounded on spec.md's lock-free request-stack design: new
// waiters CAS themselves onto a Treiber stack rooted at state; whoever
// empties that stack (on Unlock) reverses it once into an owned FIFO so
// handoff order matches arrival order despite the stack itself being
// LIFO.
type Mutex struct {
	state atomic.Pointer[mutexNode]
	// owned is the current holder's private FIFO of already-reversed
	// waiters; only ever touched by whoever currently holds the lock, so
	// it needs no synchronization of its own.
	owned []*mutexNode
}

// NewMutex constructs an unlocked Mutex.
func NewMutex() *Mutex { return &Mutex{} }

// TryLock attempts to acquire the lock without queueing. It only
// succeeds against a Mutex with no holder and no waiters at all.
func (m *Mutex) TryLock() (Token, bool) {
	if m.state.CompareAndSwap(nil, lockedNoQueue) {
		return newToken(m), true
	}
	return Token{}, false
}

// Lock returns a Future resolving to a Token once ownership is granted.
// If the mutex is free, the future is already Resolved; otherwise the
// caller is queued and the future resolves once its turn comes.
func (m *Mutex) Lock() *Future[Token] {
	if m.state.CompareAndSwap(nil, lockedNoQueue) {
		return Resolved(newToken(m))
	}

	f := &Future[Token]{state: newStateWord(statePending)}
	p := newPromise(f)
	w := &mutexNode{p: p}
	for {
		head := m.state.Load()
		if head == nil {
			if m.state.CompareAndSwap(nil, lockedNoQueue) {
				p.Fulfill(newToken(m))
				return f
			}
			continue
		}
		w.next = head
		if m.state.CompareAndSwap(head, w) {
			return f
		}
	}
}

// unlock releases ownership, handing it directly to the next queued
// waiter if there is one.
func (m *Mutex) unlock() {
	if len(m.owned) > 0 {
		w := m.owned[0]
		m.owned = m.owned[1:]
		w.p.Fulfill(newToken(m))
		return
	}

	for {
		head := m.state.Load()
		if head == lockedNoQueue {
			if m.state.CompareAndSwap(lockedNoQueue, nil) {
				return
			}
			continue
		}

		if m.state.CompareAndSwap(head, lockedNoQueue) {
			var nodes []*mutexNode
			for n := head; n != nil && n != lockedNoQueue; n = n.next {
				nodes = append(nodes, n)
			}
			// nodes is in LIFO (most-recent-push-first) order; reverse
			// it once so handoff proceeds in arrival (FIFO) order.
			for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
				nodes[i], nodes[j] = nodes[j], nodes[i]
			}
			m.owned = nodes[1:]
			nodes[0].p.Fulfill(newToken(m))
			return
		}
	}
}

type tokenState struct {
	m        *Mutex
	released atomic.Bool
}

func (s *tokenState) release() {
	if s.released.CompareAndSwap(false, true) {
		runtime.SetFinalizer(s, nil)
		s.m.unlock()
	}
}

// Token represents ownership of a locked Mutex. Release unlocks it; a
// Token dropped without Release is still reclaimed via a finalizer, same
// drop-resolves-as-cleanup story as Promise's implicit cancel, so a
// forgotten Release can't wedge every other waiter forever.
type Token struct {
	s *tokenState
}

func newToken(m *Mutex) Token {
	s := &tokenState{m: m}
	runtime.SetFinalizer(s, func(s *tokenState) { s.release() })
	return Token{s: s}
}

// Release unlocks the Mutex this Token was granted from. Safe to call
// more than once; only the first call has any effect. The zero Token is
// a no-op.
func (t Token) Release() {
	if t.s != nil {
		t.s.release()
	}
}
