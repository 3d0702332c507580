package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// OverlapPolicy controls what happens when a tick fires while the previous
// run of the same task is still in flight
type OverlapPolicy string

const (
	// OverlapAllow runs every tick regardless of in-flight work (fire-and-forget)
	OverlapAllow OverlapPolicy = "allow"
	// OverlapSkip drops a tick while the previous run is still in flight
	OverlapSkip OverlapPolicy = "skip"
	// OverlapQueue delays a tick until the previous run completes
	OverlapQueue OverlapPolicy = "queue"
)

// ErrStopped is returned when adding a task to a stopped scheduler
var ErrStopped = errors.New("scheduler stopped")

// Task is a periodic unit of work
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler drives independent periodic tasks on top of cron
// Stop is the single cancellation token: it is safe to call more than once and
// no task body starts after the first call.
type Scheduler struct {
	cron   *cron.Cron
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	stopOnce sync.Once
	stopped  atomic.Bool
	started  atomic.Bool
}

// New creates a new scheduler
func New(log zerolog.Logger, policy OverlapPolicy) *Scheduler {
	log = log.With().Str("component", "scheduler").Logger()
	cronLog := NewCronLogger(log)

	wrappers := []cron.JobWrapper{cron.Recover(cronLog)}
	switch policy {
	case OverlapSkip:
		wrappers = append(wrappers, cron.SkipIfStillRunning(cronLog))
	case OverlapQueue:
		wrappers = append(wrappers, cron.DelayIfStillRunning(cronLog))
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(wrappers...),
		),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a task to run every task.Interval
// Cron rounds intervals below one second up to one second.
func (s *Scheduler) Add(task Task) error {
	if s.stopped.Load() {
		return ErrStopped
	}
	if task.Name == "" {
		return errors.New("task name cannot be empty")
	}
	if task.Interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive", task.Name)
	}
	if task.Run == nil {
		return fmt.Errorf("task %s: run function cannot be nil", task.Name)
	}

	s.cron.Schedule(cron.Every(task.Interval), cron.FuncJob(func() {
		s.runTask(task)
	}))

	s.log.Info().
		Str("task", task.Name).
		Dur("interval", task.Interval).
		Msg("Task registered")

	return nil
}

// runTask executes one tick; errors are logged and never stop the scheduler
func (s *Scheduler) runTask(task Task) {
	if s.stopped.Load() {
		return
	}

	s.log.Debug().Str("task", task.Name).Msg("Running task")

	if err := task.Run(s.ctx); err != nil {
		s.log.Warn().
			Err(err).
			Str("task", task.Name).
			Msg("Task failed")
		return
	}

	s.log.Debug().Str("task", task.Name).Msg("Task completed")
}

// Start starts firing registered tasks
func (s *Scheduler) Start() {
	if s.stopped.Load() || !s.started.CompareAndSwap(false, true) {
		return
	}
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop cancels all tasks and waits for running ones to return
// Idempotent: only the first call has an effect.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		s.cancel()

		done := s.cron.Stop()
		<-done.Done()

		s.log.Info().Msg("Scheduler stopped")
	})
}

// Stopped reports whether Stop has been called
func (s *Scheduler) Stopped() bool {
	return s.stopped.Load()
}

// Context returns the context handed to task bodies; it is cancelled by Stop
func (s *Scheduler) Context() context.Context {
	return s.ctx
}
