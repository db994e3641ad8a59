package coro

import (
	"sync"
	"weak"
)

// scavengeThreshold is how many stale subscriptions a Distributor
// tolerates accumulating before the next Subscribe call pays to compact
// them out.
const scavengeThreshold = 64

type distSub[T any] struct {
	future weak.Pointer[Future[T]]
}

// Distributor fans a single published value out to every future
// subscribed at the time of Publish. Each subscription is one-shot: once
// fired (or found abandoned), it's gone.
//
// Grounded on eventloop/registry.go's weak-pointer scavenging for
// reclaiming subscriptions whose consumer dropped the returned Future
// without ever awaiting it — simplified to a single whole-list compaction
// pass on Subscribe (rather than a ring-buffer-chunked background
// scavenger), since Distributor's subscriber churn is lighter than the
// teacher's promise registry. Unlike the registry, which weakly tracks the
// exact handle it hands back to the caller, a subscription here is
// recorded as nothing but that weak pointer: a Promise's fut field would
// otherwise keep retaining its own Future strongly for as long as the
// Promise itself is reachable, which — since d.subs is what keeps a
// pending Promise reachable in the first place — would make every
// subscription immortal and the weak tracking a no-op. Publish instead
// settles the future directly via its package-private complete method,
// the same primitive Promise.Resolve itself bottoms out to, which is safe
// here because a subscription is delivered to at most once before being
// dropped from d.subs.
type Distributor[T any] struct {
	mu   sync.Mutex
	subs []distSub[T]
}

// NewDistributor constructs an empty Distributor.
func NewDistributor[T any]() *Distributor[T] { return &Distributor[T]{} }

// Subscribe returns a future fulfilled by the next Publish call.
func (d *Distributor[T]) Subscribe() *Future[T] {
	f := &Future[T]{state: newStateWord(statePending)}

	d.mu.Lock()
	if len(d.subs) >= scavengeThreshold {
		d.scavengeLocked()
	}
	d.subs = append(d.subs, distSub[T]{future: weak.Make(f)})
	d.mu.Unlock()

	return f
}

// Publish fulfills every currently-subscribed future with v (T is always
// copyable in Go, so every subscriber gets its own independent copy), then
// clears the subscriber list.
func (d *Distributor[T]) Publish(v T) {
	d.mu.Lock()
	subs := d.subs
	d.subs = nil
	d.mu.Unlock()

	for _, s := range subs {
		f := s.future.Value()
		if f == nil {
			continue // consumer dropped their future; nothing to deliver
		}
		f.complete(v, nil).Deliver()
	}
}

// scavengeLocked drops subscriptions whose future has already been
// garbage collected. Caller must hold d.mu.
func (d *Distributor[T]) scavengeLocked() {
	live := d.subs[:0]
	for _, s := range d.subs {
		if s.future.Value() != nil {
			live = append(live, s)
		}
	}
	d.subs = live
}

// SubscribeQueue bridges fan-out publication into a Queue: it resubscribes
// internally on every receipt, so the returned Queue sees every future
// Publish call rather than just the next one.
func (d *Distributor[T]) SubscribeQueue() *Queue[T] {
	q := NewQueue[T]()
	var pull func()
	pull = func() {
		f := d.Subscribe()
		f.Then(func() {
			if v, err := f.Get(); err == nil {
				_ = q.Push(v)
			}
			pull()
		})
	}
	pull()
	return q
}
