// Package schedule provides a cron-driven polling scheduler for automation
// tasks. It uses the robfig/cron/v3 expression parser to compute task
// due-ness from the most recent implied fire time and persisted run history.
//
// The scheduler is deliberately not wall-clock exact: it polls on a fixed
// interval in a single cooperative loop and awaits full completion of a
// triggered task before the next due-check. A missed slot stays eligible only
// within the catch-up window, so downtime never produces a backlog of stale
// "due" tasks.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/linkpilot/internal/logger"
	"github.com/aatumaykin/linkpilot/internal/metrics"
	"github.com/aatumaykin/linkpilot/internal/store"
	"github.com/robfig/cron/v3"
)

// TaskFunc executes one scheduled task. The returned detail string is
// recorded in the scheduler state alongside the outcome.
type TaskFunc func(ctx context.Context) (detail string, err error)

// GateFunc reports whether a due task may run right now. A gated task is
// silently skipped, not marked completed, and re-evaluated on the next tick.
type GateFunc func() bool

// Task is a registered scheduled task.
type Task struct {
	Name     string
	Expr     string
	schedule cron.Schedule
	gate     GateFunc
	run      TaskFunc
}

// Scheduler computes task due-ness from cron expressions and run history and
// drives the top-level polling loop.
type Scheduler struct {
	store         *store.Store
	logger        *logger.Logger
	location      *time.Location
	catchUpWindow time.Duration
	pollInterval  time.Duration

	tasks []*Task
	state State

	// now is replaceable in tests.
	now func() time.Time
}

// NewScheduler creates a scheduler backed by the given store.
func NewScheduler(st *store.Store, catchUpWindow, pollInterval time.Duration, location *time.Location, log *logger.Logger) *Scheduler {
	s := &Scheduler{
		store:         st,
		logger:        log,
		location:      location,
		catchUpWindow: catchUpWindow,
		pollInterval:  pollInterval,
		now:           time.Now,
	}

	s.store.Load(documentName, &s.state)
	if s.state.LastRun == nil {
		s.state.LastRun = make(map[string]time.Time)
	}
	if s.state.CreatedAt.IsZero() {
		s.state.CreatedAt = s.now().In(location)
	}

	return s
}

// Register adds a task with a standard 5-field cron expression. gate may be
// nil for ungated tasks.
func (s *Scheduler) Register(name, expr string, gate GateFunc, run TaskFunc) error {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("invalid cron expression for task %s: %w", name, err)
	}

	s.tasks = append(s.tasks, &Task{
		Name:     name,
		Expr:     expr,
		schedule: schedule,
		gate:     gate,
		run:      run,
	})

	s.logger.Info("scheduled task registered",
		logger.Field{Key: "task", Value: name},
		logger.Field{Key: "schedule", Value: expr})

	return nil
}

// Due reports whether the named task is due at the current time.
func (s *Scheduler) Due(name string) bool {
	for _, task := range s.tasks {
		if task.Name == name {
			return s.isDue(task, s.now().In(s.location))
		}
	}
	return false
}

// isDue computes due-ness: the task is due iff a fire time is implied within
// the catch-up window ending now, and no run has been recorded since that
// fire time.
func (s *Scheduler) isDue(task *Task, now time.Time) bool {
	lastScheduled, ok := s.lastScheduled(task.schedule, now)
	if !ok {
		return false
	}

	if now.Sub(lastScheduled) > s.catchUpWindow {
		return false
	}

	if lastRun, ok := s.state.LastRun[task.Name]; ok && !lastRun.Before(lastScheduled) {
		return false
	}

	return true
}

// lastScheduled returns the most recent fire time implied by the schedule at
// or before now. Only fire times within the catch-up window matter for
// due-ness, so the scan starts just before the window opens; no fire in that
// range means the task cannot be due.
func (s *Scheduler) lastScheduled(schedule cron.Schedule, now time.Time) (time.Time, bool) {
	scan := now.Add(-s.catchUpWindow - time.Minute)

	var last time.Time
	for next := schedule.Next(scan); !next.After(now); next = schedule.Next(next) {
		last = next
	}

	if last.IsZero() {
		return time.Time{}, false
	}
	return last, true
}

// MarkCompleted records a run for the task, successful or not. Updating
// lastRun unconditionally prevents a failing task from hot-retrying every
// tick; failures are surfaced via LastError instead.
func (s *Scheduler) MarkCompleted(name string, success bool, detail string) {
	now := s.now().In(s.location)

	s.state.LastRun[name] = now
	s.state.TotalRuns++

	result := "success"
	if success {
		s.state.LastError = nil
	} else {
		result = "failure"
		s.state.LastError = &TaskError{
			Task:      name,
			Timestamp: now,
			Detail:    detail,
		}
	}
	metrics.ScheduledRuns.WithLabelValues(name, result).Inc()

	if err := s.store.Save(documentName, &s.state); err != nil {
		s.logger.Error("failed to persist scheduler state", err,
			logger.Field{Key: "task", Value: name})
	}

	s.logger.Info("task marked completed",
		logger.Field{Key: "task", Value: name},
		logger.Field{Key: "success", Value: success},
		logger.Field{Key: "detail", Value: detail})
}

// LastError returns the most recent task failure, or nil.
func (s *Scheduler) LastError() *TaskError {
	return s.state.LastError
}

// TotalRuns returns the number of recorded task completions.
func (s *Scheduler) TotalRuns() int {
	return s.state.TotalRuns
}

// NextRuns returns the next fire time per registered task.
func (s *Scheduler) NextRuns() map[string]time.Time {
	now := s.now().In(s.location)
	next := make(map[string]time.Time, len(s.tasks))
	for _, task := range s.tasks {
		next[task.Name] = task.schedule.Next(now)
	}
	return next
}

// Loop runs the polling loop until the context is cancelled. Each tick
// evaluates tasks in registration order; a triggered task runs to completion
// before the next task is considered. Cancellation is cooperative and checked
// at loop and task boundaries only, so an in-flight task always completes or
// fails cleanly.
func (s *Scheduler) Loop(ctx context.Context) {
	s.logger.Info("scheduler loop started",
		logger.Field{Key: "poll_interval", Value: s.pollInterval.String()},
		logger.Field{Key: "catch_up_window", Value: s.catchUpWindow.String()})

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		s.tick(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler loop stopped")
			return
		case <-ticker.C:
		}
	}
}

// tick evaluates and runs every due, ungated task once.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now().In(s.location)

	for _, task := range s.tasks {
		if ctx.Err() != nil {
			return
		}

		if !s.isDue(task, now) {
			continue
		}

		if task.gate != nil && !task.gate() {
			s.logger.Info("due task skipped, quota exhausted",
				logger.Field{Key: "task", Value: task.Name})
			continue
		}

		s.logger.Info("triggering scheduled task",
			logger.Field{Key: "task", Value: task.Name})

		detail, err := task.run(ctx)
		if err != nil {
			s.MarkCompleted(task.Name, false, err.Error())
			continue
		}
		s.MarkCompleted(task.Name, true, detail)
	}
}
