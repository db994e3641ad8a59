package coro

import (
	"fmt"
	"sync/atomic"
)

// lifecycleState is a Future's state word. The zero value is never used on
// a live future (every constructor sets an explicit initial state).
type lifecycleState int32

const (
	stateResolved lifecycleState = iota
	stateDeferred
	statePending
	stateAwaited
	stateEvaluating
)

func (s lifecycleState) String() string {
	switch s {
	case stateResolved:
		return "resolved"
	case stateDeferred:
		return "deferred"
	case statePending:
		return "pending"
	case stateAwaited:
		return "awaited"
	case stateEvaluating:
		return "evaluating"
	default:
		return fmt.Sprintf("lifecycleState(%d)", int32(s))
	}
}

// stateWord is a CAS-able lifecycle state, the same wrapper shape as the
// teacher's own run-state word: a single atomic.Int32 with typed
// convenience methods instead of raw int32 traffic at every call site.
type stateWord struct {
	v atomic.Int32
}

func newStateWord(s lifecycleState) *stateWord {
	w := &stateWord{}
	w.v.Store(int32(s))
	return w
}

func (w *stateWord) Load() lifecycleState {
	return lifecycleState(w.v.Load())
}

func (w *stateWord) Store(s lifecycleState) {
	w.v.Store(int32(s))
}

// Swap exchanges in s unconditionally and returns the previous value. Used
// by the resolving writer, which always wins regardless of what state the
// future happened to be in (even stateEvaluating, mid awaiter-registration
// — see future.go's Subscribe for why that race is safe).
func (w *stateWord) Swap(s lifecycleState) lifecycleState {
	return lifecycleState(w.v.Swap(int32(s)))
}

// CAS attempts from -> to, returning whether it succeeded.
func (w *stateWord) CAS(from, to lifecycleState) bool {
	return w.v.CompareAndSwap(int32(from), int32(to))
}
