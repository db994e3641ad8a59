package coro

import (
	"container/heap"
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// TimerID identifies a single ScheduleAt registration, for Cancel.
type TimerID uint64

// timerEntry is one pending ScheduleAt registration, ordered by deadline
// in Scheduler.timers (a container/heap.Interface min-heap), grounded on
// eventloop/loop.go's timerHeap.
type timerEntry struct {
	id       TimerID
	deadline time.Time
	fn       func(ok bool)
	index    int
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *timerHeap) Push(x any)         { e := x.(*timerEntry); e.index = len(*h); *h = append(*h, e) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler is a pool of worker goroutines draining one shared task queue
// and timer heap. It is this package's answer to spec.md's scheduler
// module: Schedule/ScheduleNotify/ScheduleAt feed work in, Await cooperatively
// drives the pool inline from a blocked caller, and Close tears the pool
// down, rejecting whatever never ran.
//
// Grounded on eventloop/loop.go's Loop, generalized from one dedicated
// loop goroutine to a configurable worker pool: the per-tick ordering
// (migrate expired timers, then drain the queue, then wait) is the same
// shape as Loop.tick, and Close's drain-then-reject-everything mirrors
// Loop.shutdown's registry.RejectAll sweep.
type Scheduler struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  schedQueue
	timers timerHeap
	byID   map[TimerID]*timerEntry
	nextID uint64

	closed   bool
	workers  int
	idle     int32
	logger   Logger
	idlePoll time.Duration

	unblockMu    sync.Mutex
	unblockHooks []*Target

	wg sync.WaitGroup
}

// NewScheduler starts a Scheduler with its worker pool running. Workers
// exit once Close is called and the queue and timer heap are empty.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	cfg, err := resolveSchedulerOptions(opts)
	if err != nil {
		// Every built-in option is infallible; a non-nil error here only
		// happens for a caller-supplied SchedulerOption that rejects
		// itself, and NewScheduler has no error return to report it
		// through. Fall back to defaults rather than returning a Scheduler
		// with meaningless configuration.
		cfg, _ = resolveSchedulerOptions(nil)
	}

	s := &Scheduler{
		byID:         make(map[TimerID]*timerEntry),
		workers:      cfg.workers,
		logger:       cfg.logger,
		idlePoll:     cfg.idlePoll,
		unblockHooks: append([]*Target(nil), cfg.unblockHooks...),
	}
	s.cond = sync.NewCond(&s.mu)

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.workerLoop()
	}
	return s
}

var currentScheduler sync.Map // goroutine id (uint64) -> *Scheduler

// getGoroutineID parses the numeric ID out of runtime.Stack's header
// line. Grounded verbatim on eventloop/loop.go's getGoroutineID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

// Current reports the Scheduler currently driving the calling goroutine,
// i.e. whether the caller is running from inside one of that Scheduler's
// workers (or an Await call on it). Grounded on Loop.isLoopThread, widened
// from a single comparison to a goroutine-keyed table since a Scheduler
// may have many worker goroutines rather than one.
func Current() (*Scheduler, bool) {
	v, ok := currentScheduler.Load(getGoroutineID())
	if !ok {
		return nil, false
	}
	return v.(*Scheduler), true
}

// MustCurrent is Current with an error return instead of a bool, for
// call sites that want to propagate "no active scheduler" as a regular
// error rather than branch on it inline.
func MustCurrent() (*Scheduler, error) {
	s, ok := Current()
	if !ok {
		return nil, &NoActiveSchedulerError{}
	}
	return s, nil
}

func (s *Scheduler) workerLoop() {
	defer s.wg.Done()
	gid := getGoroutineID()
	currentScheduler.Store(gid, s)
	defer currentScheduler.Delete(gid)

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if s.stepLocked() {
			continue
		}
		if s.closed {
			return
		}
		s.waitLocked()
	}
}

// stepLocked migrates any expired timers onto the queue, then runs at
// most one queued task. Caller holds s.mu; stepLocked releases and
// reacquires it around the actual task invocation so a long-running task
// never blocks other workers from observing new work.
func (s *Scheduler) stepLocked() bool {
	s.migrateExpiredTimersLocked()
	t, ok := s.queue.pop()
	if !ok {
		return false
	}
	s.mu.Unlock()
	s.runTask(t)
	s.mu.Lock()
	return true
}

func (s *Scheduler) migrateExpiredTimersLocked() {
	now := time.Now()
	for len(s.timers) > 0 && !s.timers[0].deadline.After(now) {
		e := heap.Pop(&s.timers).(*timerEntry)
		delete(s.byID, e.id)
		fn := e.fn
		s.queue.push(schedTask{
			run:    func() { fn(true) },
			cancel: func() { fn(false) },
		})
	}
}

// waitLocked blocks until there's a reason to look again: new work,
// shutdown, or the next timer's deadline. Caller holds s.mu.
func (s *Scheduler) waitLocked() {
	s.idle++
	defer func() { s.idle-- }()

	wait := s.idlePoll
	if len(s.timers) > 0 {
		if until := time.Until(s.timers[0].deadline); until <= 0 {
			return
		} else if wait <= 0 || until < wait {
			wait = until
		}
	}
	if wait <= 0 {
		s.cond.Wait()
		return
	}
	timer := time.AfterFunc(wait, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	s.cond.Wait()
	timer.Stop()
}

func (s *Scheduler) runTask(t schedTask) {
	defer func() {
		if r := recover(); r != nil {
			logError(s.logger, "scheduler: task panicked", recoverPanic(r), nil)
		}
	}()
	t.run()
}

// Schedule enqueues fn to run on some worker goroutine. If no worker is
// currently idle, any registered unblock hooks are fired to ask for more
// run capacity (see RegisterUnblock) before fn gets its turn.
func (s *Scheduler) Schedule(fn func()) {
	s.mu.Lock()
	wasIdle := s.idle > 0
	s.queue.push(schedTask{run: fn})
	s.cond.Signal()
	s.mu.Unlock()

	if !wasIdle {
		s.fireUnblockHooks()
	}
}

// ScheduleNotify enqueues n to be delivered on some worker goroutine. If
// the Scheduler is closed before n runs, n is instead dropped with
// ok=false (see Notify.Drop), the same treatment ScheduleAt gives a timer
// that never fires.
func (s *Scheduler) ScheduleNotify(n *Notify) {
	s.mu.Lock()
	wasIdle := s.idle > 0
	s.queue.push(schedTask{run: func() { n.Deliver() }, cancel: func() {
		logWarn(s.logger, "scheduler: notify dropped unresolved at shutdown", nil)
		n.Drop()
	}})
	s.cond.Signal()
	s.mu.Unlock()

	if !wasIdle {
		s.fireUnblockHooks()
	}
}

// Enqueue returns a future that resolves once a task it queues has had its
// turn on a worker goroutine — the Go spelling of `co_await scheduler`.
func (s *Scheduler) Enqueue(ctx context.Context) *Future[struct{}] {
	f := &Future[struct{}]{state: newStateWord(statePending)}
	p := newPromise(f)
	s.Schedule(func() { p.Fulfill(struct{}{}) })
	if ctx == nil {
		return f
	}
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			p.Reject(&AwaitCanceledError{Cause: ctx.Err()}).Deliver()
		}()
	}
	return f
}

// SleepUntil returns a future that resolves once deadline passes (or
// rejects with AwaitCanceledError if ctx is cancelled first).
func (s *Scheduler) SleepUntil(ctx context.Context, deadline time.Time) *Future[struct{}] {
	f := &Future[struct{}]{state: newStateWord(statePending)}
	p := newPromise(f)
	id, err := s.ScheduleAt(deadline, func(ok bool) {
		if ok {
			p.Fulfill(struct{}{})
		} else {
			p.Reject(&AwaitCanceledError{}).Deliver()
		}
	})
	if err != nil {
		p.Fail(err)
		return f
	}
	if ctx != nil {
		if done := ctx.Done(); done != nil {
			go func() {
				<-done
				if cerr := s.Cancel(id); cerr == nil {
					p.Reject(&AwaitCanceledError{Cause: ctx.Err()}).Deliver()
				}
			}()
		}
	}
	return f
}

// SleepFor is SleepUntil(ctx, time.Now().Add(d)).
func (s *Scheduler) SleepFor(ctx context.Context, d time.Duration) *Future[struct{}] {
	return s.SleepUntil(ctx, time.Now().Add(d))
}

// Run schedules fn on s and blocks the calling goroutine, cooperatively
// driving s's worker loop (via Await), until fn has run.
func (s *Scheduler) Run(ctx context.Context, fn func()) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return &AwaitCanceledError{Cause: err}
		}
	}
	f := &Future[struct{}]{state: newStateWord(statePending)}
	p := newPromise(f)
	s.Schedule(func() {
		fn()
		p.Fulfill(struct{}{})
	})
	_, err := Await(s, f)
	return err
}

// ScheduleAt arranges for fn to run once, at or after deadline: fn(true)
// if its time comes, fn(false) if it is Cancelled first or still pending
// when the Scheduler is Closed. The returned TimerID is only valid for a
// matching Cancel call before the timer fires.
func (s *Scheduler) ScheduleAt(deadline time.Time, fn func(ok bool)) (TimerID, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	s.nextID++
	id := TimerID(s.nextID)
	e := &timerEntry{id: id, deadline: deadline, fn: fn}
	s.byID[id] = e
	heap.Push(&s.timers, e)
	s.cond.Signal()
	s.mu.Unlock()
	logDebug(s.logger, "scheduler: timer armed", map[string]any{"timer_id": id, "deadline": deadline})
	return id, nil
}

// Cancel removes a pending ScheduleAt timer, invoking its callback with
// ok=false. Returns an error if id does not name a still-pending timer
// (it already fired, or was already cancelled).
func (s *Scheduler) Cancel(id TimerID) error {
	s.mu.Lock()
	e, found := s.byID[id]
	if !found {
		s.mu.Unlock()
		return &TimerNotFoundError{ID: id}
	}
	delete(s.byID, id)
	heap.Remove(&s.timers, e.index)
	s.mu.Unlock()

	logWarn(s.logger, "scheduler: timer cancelled", map[string]any{"timer_id": id})
	e.fn(false)
	return nil
}

// IsIdle reports whether at least one worker is currently parked waiting
// for work.
func (s *Scheduler) IsIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idle > 0
}

// IdleInterval reports how long until the next scheduled timer would fire,
// or 0 if there is queued work or no timer pending at all.
func (s *Scheduler) IdleInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.len() > 0 || len(s.timers) == 0 {
		return 0
	}
	if d := time.Until(s.timers[0].deadline); d > 0 {
		return d
	}
	return 0
}

// RegisterUnblock adds a one-shot hook activated (with ok=true) the next
// time Schedule or ScheduleNotify is called while every worker is busy —
// a signal that the caller may want to supply more run capacity (e.g.
// spin up a temporary extra worker, or nudge some external executor).
// The hook fires at most once; register again after it fires to keep
// watching.
func (s *Scheduler) RegisterUnblock(t *Target) {
	s.unblockMu.Lock()
	s.unblockHooks = append(s.unblockHooks, t)
	s.unblockMu.Unlock()
}

// UnregisterUnblock removes a hook added via RegisterUnblock, provided it
// has not already fired.
func (s *Scheduler) UnregisterUnblock(t *Target) {
	s.unblockMu.Lock()
	for i, x := range s.unblockHooks {
		if x == t {
			s.unblockHooks = append(s.unblockHooks[:i], s.unblockHooks[i+1:]...)
			break
		}
	}
	s.unblockMu.Unlock()
}

func (s *Scheduler) fireUnblockHooks() {
	s.unblockMu.Lock()
	hooks := s.unblockHooks
	s.unblockHooks = nil
	s.unblockMu.Unlock()

	for _, t := range hooks {
		if r := t.Activate(true); r != nil {
			r()
		}
	}
}

// Close stops accepting new work, wakes every worker, and waits for them
// to exit. Every timer and ScheduleNotify task still pending is invoked as
// cancelled (ok=false) rather than simply discarded, so promises it would
// have settled resolve as cancelled instead of hanging forever. Plain
// Schedule tasks still queued are dropped without running; a promise one
// of them captured (as Enqueue's and Run's tasks do) is not settled by
// Close. Grounded on Loop.shutdown's registry.RejectAll sweep.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := s.queue.drainAll()
	for len(s.timers) > 0 {
		e := heap.Pop(&s.timers).(*timerEntry)
		delete(s.byID, e.id)
		pending = append(pending, schedTask{cancel: func() { e.fn(false) }})
	}
	s.mu.Unlock()

	if len(pending) > 0 {
		logWarn(s.logger, "scheduler: closing with pending work", map[string]any{"count": len(pending)})
	}
	for _, t := range pending {
		if t.cancel != nil {
			t.cancel()
		} else if t.run != nil {
			// A plain Schedule task has no cancel callback, so it is
			// dropped without running; a promise it captured is left
			// unsettled here.
			continue
		}
	}

	// Broadcast only after every drained timer/notify has actually been
	// cancelled: an Await blocked on one of their futures must see the
	// settled result, not just s.closed, when it wakes up.
	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()

	s.wg.Wait()
}

// Await blocks the calling goroutine until f settles, cooperatively
// running s's own worker loop inline in the meantime. This lets a single
// goroutine both drive a Scheduler and wait on one of the futures it
// produces without needing a second worker free to make progress.
func Await[T any](s *Scheduler, f *Future[T]) (T, error) {
	var done atomic.Bool
	installed := f.Subscribe(NewTarget(func(bool) Resumption {
		done.Store(true)
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
		return nil
	}))
	if !installed {
		return f.result()
	}

	gid := getGoroutineID()
	currentScheduler.Store(gid, s)
	defer currentScheduler.Delete(gid)

	s.mu.Lock()
	for !done.Load() {
		if s.stepLocked() {
			continue
		}
		if s.closed {
			break
		}
		s.waitLocked()
	}
	s.mu.Unlock()

	return f.result()
}
