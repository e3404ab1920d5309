// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"
)

// TaskFn is a job body. The context is cancelled when the scheduler stops.
type TaskFn func(ctx context.Context) error

// Scheduler wraps a cron runner. Jobs never overlap with themselves and panics are
// recovered and logged.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// New creates a scheduler. timeout bounds a single job run; zero means no bound.
func New(timeout time.Duration) *Scheduler {
	logger := cronLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.SkipIfStillRunning(logger)),
		),
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
	}
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling, cancels running jobs and waits for them to return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
	case <-ctx.Done():
		slog.Warn("scheduler stop timed out")
	}
}

// AddJob registers fn under spec, a five-field cron expression or a descriptor such as
// "@every 15m".
func (s *Scheduler) AddJob(name, spec string, fn TaskFn) error {
	if _, err := s.cron.AddFunc(spec, s.wrap(name, fn)); err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	slog.Info("job scheduled", "job", name, "spec", spec)
	return nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// RunNow executes a job body synchronously with the scheduler's recovery and logging.
func (s *Scheduler) RunNow(name string, fn TaskFn) {
	s.wrap(name, fn)()
}

func (s *Scheduler) wrap(name string, fn TaskFn) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic recovered in scheduled job",
					"job", name,
					"panic", r,
					"stacktrace", string(debug.Stack()),
				)
			}
		}()

		ctx := s.ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		start := time.Now()
		slog.Debug("job started", "job", name)
		if err := fn(ctx); err != nil {
			slog.Error("job failed", "job", name, "error", err, "duration", time.Since(start))
			return
		}
		slog.Info("job completed", "job", name, "duration", time.Since(start))
	}
}

// cronLogger routes the cron runner's own messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
