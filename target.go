package coro

import "sync/atomic"

// Resumption is work handed back by an activated Target: "run this next".
// A nil Resumption means there is nothing to run. This is the package's
// stand-in for a coroutine handle passed to a runtime for symmetric
// transfer: the runtime (or caller) decides when and where to invoke it.
type Resumption func()

// Target is the uniform notification callback used for every cross-
// component wakeup in this package: a future resolving, a mutex releasing,
// a timer firing, a condition becoming satisfied. Activating a target
// consumes it — a target fires at most once; Activate clears the stored
// function before returning so a second call is always a no-op.
type Target struct {
	fn   func(ok bool) Resumption
	next atomic.Pointer[Target]
}

// disabledTarget is the sentinel installed as a TargetList head once the
// list is drained-and-disabled. It is never itself activated; its identity
// (not its contents) is what Push checks for.
var disabledTarget = &Target{}

// NewTarget wraps fn as a Target.
func NewTarget(fn func(ok bool) Resumption) *Target {
	return &Target{fn: fn}
}

// Activate invokes the target's callback with the given outcome flag
// (true = the subject is ready; false = cancelled) and returns whatever
// resumption it produced. Safe to call on a nil Target (a no-op). Calling
// Activate twice on the same Target is safe: the second call is a no-op
// returning nil, since the first call already cleared the stored function.
func (t *Target) Activate(ok bool) Resumption {
	if t == nil || t.fn == nil {
		return nil
	}
	fn := t.fn
	t.fn = nil
	return fn(ok)
}

// TargetList is an intrusive, lock-free singly linked list of Targets,
// linked through their own next pointers. Nodes are never allocated by the
// list itself — callers own the Target values and push them in.
type TargetList struct {
	head atomic.Pointer[Target]
}

// Push adds t to the list head. Returns false if the list has already been
// disabled (see DrainAndDisable or Disable), in which case t was not
// linked and the caller must activate it itself.
func (l *TargetList) Push(t *Target) bool {
	for {
		head := l.head.Load()
		if head == disabledTarget {
			return false
		}
		t.next.Store(head)
		if l.head.CompareAndSwap(head, t) {
			return true
		}
	}
}

// DrainAndDisable atomically detaches the current list and marks it so
// that all further Push calls fail. Returns the detached nodes in
// most-recently-pushed-first order; callers needing FIFO delivery order
// should reverse the result themselves (the targets don't know the order
// they were meant to fire in beyond "push order").
func (l *TargetList) DrainAndDisable() []*Target {
	head := l.head.Swap(disabledTarget)
	return snapshotFrom(head)
}

// Drain detaches the current list without disabling further pushes.
func (l *TargetList) Drain() []*Target {
	for {
		head := l.head.Load()
		if l.head.CompareAndSwap(head, nil) {
			return snapshotFrom(head)
		}
	}
}

// Disable marks the list disabled without requiring the caller to consume
// a snapshot (used when the caller already knows the list is empty, or
// handled whatever was in it through some other path).
func (l *TargetList) Disable() {
	l.head.Store(disabledTarget)
}

// Disabled reports whether the list has been drained-and-disabled.
func (l *TargetList) Disabled() bool {
	return l.head.Load() == disabledTarget
}

func snapshotFrom(head *Target) []*Target {
	if head == nil || head == disabledTarget {
		return nil
	}
	var out []*Target
	for n := head; n != nil && n != disabledTarget; n = n.next.Load() {
		out = append(out, n)
	}
	return out
}
