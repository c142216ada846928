// Package schedule runs recurring background tasks on fixed intervals.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const defaultTick = time.Minute

var (
	// ErrInvalidTask is returned for a task without a name, a positive
	// interval or a function to run.
	ErrInvalidTask = errors.New("invalid scheduled task")

	// ErrDuplicateTask is returned when two tasks share a name.
	ErrDuplicateTask = errors.New("duplicate scheduled task")
)

// Task is a recurring job.
type Task struct {
	Name     string
	Interval time.Duration
	// RunOnStart makes the task due as soon as the scheduler starts instead
	// of one interval later.
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// TaskStatus describes a task's last and next execution.
type TaskStatus struct {
	Name        string
	Interval    time.Duration
	LastRun     time.Time
	LastSuccess time.Time
	NextRun     time.Time
	LastError   string
	Running     bool
}

type taskState struct {
	task   Task
	status TaskStatus
}

// Scheduler checks for due tasks on every tick and runs each due task in
// its own goroutine. A task still executing from an earlier tick is not
// started again.
type Scheduler struct {
	tasks  []*taskState
	tick   time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithTick sets how often due tasks are checked. Default is one minute.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) error {
		if d <= 0 {
			return fmt.Errorf("tick must be positive, got %s", d)
		}
		s.tick = d
		return nil
	}
}

// WithClock sets the clock used to compute due times.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScheduler creates a scheduler for tasks.
func NewScheduler(tasks []Task, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		tick:   defaultTick,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "scheduler")

	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.Name == "" || t.Interval <= 0 || t.Run == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTask, t.Name)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTask, t.Name)
		}
		seen[t.Name] = true
		s.tasks = append(s.tasks, &taskState{
			task:   t,
			status: TaskStatus{Name: t.Name, Interval: t.Interval},
		})
	}
	return s, nil
}

// Start runs the scheduler loop. It blocks until Stop is called or ctx is
// done. Calling Start on a running scheduler returns at once.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh

	now := s.now()
	for _, ts := range s.tasks {
		if ts.task.RunOnStart {
			ts.status.NextRun = now
		} else {
			ts.status.NextRun = now.Add(ts.task.Interval)
		}
	}
	s.mu.Unlock()

	s.logger.Info("scheduler started", "tasks", len(s.tasks), "tick", s.tick)
	s.runDue(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// Stop ends the loop and waits for executing tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Debug("scheduler stopped")
	return nil
}

// Status returns a snapshot of every task.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskStatus, len(s.tasks))
	for i, ts := range s.tasks {
		out[i] = ts.status
	}
	return out
}

func (s *Scheduler) runDue(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, ts := range s.tasks {
		if ts.status.Running || now.Before(ts.status.NextRun) {
			continue
		}
		ts.status.Running = true
		ts.status.LastRun = now
		s.wg.Add(1)
		go s.runTask(ctx, ts)
	}
}

func (s *Scheduler) runTask(ctx context.Context, ts *taskState) {
	defer s.wg.Done()
	logger := s.logger.With("task", ts.task.Name)
	logger.Debug("task started")

	err := ts.task.Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	ended := s.now()
	ts.status.Running = false
	ts.status.NextRun = ended.Add(ts.task.Interval)
	if err != nil {
		ts.status.LastError = err.Error()
		logger.Error("task failed", "err", err)
		return
	}
	ts.status.LastError = ""
	ts.status.LastSuccess = ended
	logger.Debug("task finished", "next_run", ts.status.NextRun)
}
