// Package scheduler runs the dashboard refresh loops on cron timers. Every
// loop owns a Slot: a tick that arrives while the previous run of the same
// slot is still busy is dropped, never queued.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ErrInvalidPeriod = errors.New("scheduler: period must be positive")

// Task is one refresh pass.
type Task func(ctx context.Context) error

// Slot is a named task with an in-flight guard. It implements cron.Job.
type Slot struct {
	name    string
	task    Task
	logger  *zap.Logger
	ctx     context.Context
	running atomic.Bool
	dropped atomic.Int64
	runs    atomic.Int64
}

func NewSlot(name string, task Task, logger *zap.Logger) *Slot {
	return &Slot{name: name, task: task, logger: logger, ctx: context.Background()}
}

func (s *Slot) Name() string { return s.name }

// Dropped counts ticks skipped because a run was still in flight.
func (s *Slot) Dropped() int64 { return s.dropped.Load() }

// Runs counts started runs.
func (s *Slot) Runs() int64 { return s.runs.Load() }

// Run executes the task unless a previous run is still busy. A panicking
// task is logged and frees the slot.
func (s *Slot) Run() {
	if !s.running.CompareAndSwap(false, true) {
		s.dropped.Add(1)
		s.logger.Debug("Tick dropped, previous run still busy", zap.String("slot", s.name))
		return
	}
	defer s.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Task panicked", zap.String("slot", s.name), zap.Any("panic", r))
		}
	}()

	s.runs.Add(1)
	start := time.Now()
	if err := s.task(s.ctx); err != nil {
		s.logger.Warn("Task failed", zap.String("slot", s.name), zap.Error(err))
		return
	}
	s.logger.Debug("Task done", zap.String("slot", s.name), zap.Duration("took", time.Since(start)))
}

type entry struct {
	slot       *Slot
	period     time.Duration
	runAtStart bool
}

type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	mu      sync.Mutex
	entries []entry
	started bool
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		logger: logger,
	}
}

// Every registers task to run each period. With runAtStart the task also
// runs once, synchronously, inside Start.
func (s *Scheduler) Every(name string, period time.Duration, task Task, runAtStart bool) (*Slot, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: %s=%s", ErrInvalidPeriod, name, period)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil, fmt.Errorf("scheduler: %s registered after start", name)
	}

	slot := NewSlot(name, task, s.logger)
	s.cron.Schedule(cron.Every(period), slot)
	s.entries = append(s.entries, entry{slot: slot, period: period, runAtStart: runAtStart})
	return slot, nil
}

// Start runs the start-up tasks in registration order, then starts the
// timers. Tasks see ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.started = true
	entries := append([]entry(nil), s.entries...)
	s.mu.Unlock()

	for _, e := range entries {
		e.slot.ctx = ctx
	}
	for _, e := range entries {
		if e.runAtStart {
			e.slot.Run()
		}
		s.logger.Info("Timer armed", zap.String("slot", e.slot.name), zap.Duration("period", e.period))
	}
	s.cron.Start()
}

// Stop halts the timers and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
