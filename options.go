package coro

import (
	"runtime"
	"time"
)

// schedulerOptions holds the resolved configuration for a Scheduler.
type schedulerOptions struct {
	workers      int
	logger       Logger
	unblockHooks []*Target
	idlePoll     time.Duration
}

// SchedulerOption configures a Scheduler at construction. Grounded on
// eventloop/options.go's LoopOption / resolveLoopOptions pattern.
type SchedulerOption interface {
	applyScheduler(*schedulerOptions) error
}

type schedulerOptionImpl struct {
	fn func(*schedulerOptions) error
}

func (o *schedulerOptionImpl) applyScheduler(opts *schedulerOptions) error {
	return o.fn(opts)
}

// WithWorkers sets the number of worker goroutines a Scheduler runs. n <=
// 0 is treated as runtime.GOMAXPROCS(0), which is also the default when
// this option is omitted entirely.
func WithWorkers(n int) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.workers = n
		return nil
	}}
}

// WithLogger sets the Logger a Scheduler reports panics and shutdown
// diagnostics through. The default is NoOpLogger.
func WithLogger(l Logger) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.logger = l
		return nil
	}}
}

// WithUnblockHook pre-registers t as an unblock hook (see
// Scheduler.RegisterUnblock), active from the moment the Scheduler starts
// rather than requiring a separate call after construction.
func WithUnblockHook(t *Target) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		if t != nil {
			opts.unblockHooks = append(opts.unblockHooks, t)
		}
		return nil
	}}
}

// WithIdlePollInterval bounds how long a worker with no queued work and no
// pending timer will block before re-checking its state, instead of
// parking indefinitely. The default, zero, means block indefinitely (the
// common case: something will eventually call Schedule/ScheduleAt/Close).
func WithIdlePollInterval(d time.Duration) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.idlePoll = d
		return nil
	}}
}

func resolveSchedulerOptions(opts []SchedulerOption) (*schedulerOptions, error) {
	cfg := &schedulerOptions{
		workers: runtime.GOMAXPROCS(0),
		logger:  NoOpLogger{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyScheduler(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.workers <= 0 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}
	if cfg.logger == nil {
		cfg.logger = NoOpLogger{}
	}
	return cfg, nil
}
