package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of periodic work. Implementations must tolerate being
// invoked again before a prior slow run finished being observed externally;
// the scheduler itself never overlaps runs of the same task.
type Task func(ctx context.Context)

// IntervalFunc returns the delay before the next run, evaluated after each
// run completes. This allows cadence to vary, e.g. denser during daytime.
type IntervalFunc func(now time.Time) time.Duration

// Fixed returns an IntervalFunc with a constant cadence.
func Fixed(d time.Duration) IntervalFunc {
	return func(time.Time) time.Duration { return d }
}

// Scheduler owns repeating background tasks for the lifetime of the process.
// Every task gets its own goroutine and timer; Stop cancels them all and
// waits for in-flight runs to return.
type Scheduler struct {
	logger *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New constructs a Scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{logger: logger}
}

// Start prepares the scheduler for task registration. Safe to call once.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
}

// Stop cancels all tasks and blocks until they exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Sugar().Infow("scheduler stopped")
}

// Every registers a task running at the cadence produced by interval. The
// first run happens after the first interval elapses, not immediately.
func (s *Scheduler) Every(name string, interval IntervalFunc, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.logger.Sugar().Warnw("scheduler not started, task dropped", "task", name)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(interval(time.Now()))
		defer timer.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-timer.C:
				task(s.ctx)
				timer.Reset(interval(time.Now()))
			}
		}
	}()
	s.logger.Sugar().Infow("scheduled periodic task", "task", name)
}

// WindowedInterval alternates between a dense interval inside the
// [start, end) clock window and a base interval outside it. Start and end are
// zero-padded "HH:MM" strings compared against the local wall clock.
func WindowedInterval(base, dense time.Duration, start, end string) IntervalFunc {
	return func(now time.Time) time.Duration {
		clock := now.Format("15:04")
		if clock >= start && clock < end {
			return dense
		}
		return base
	}
}
