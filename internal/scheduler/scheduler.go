// Package scheduler runs the periodic ticks of the betting daemon on a
// cron-backed timer set: daily planning, the two odds sampling cadences, the
// decision tick with its sweeper, and reconciliation.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// TickFunc is one unit of periodic work. The context carries the tick's
// time budget.
type TickFunc func(ctx context.Context) error

// Scheduler manages the periodic jobs of the daemon
type Scheduler struct {
	cron      *cron.Cron
	logger    *logrus.Logger
	mu        sync.RWMutex
	isRunning bool
	jobIDs    []cron.EntryID
}

// NewScheduler creates a scheduler running in the given location; deadlines
// are civil-time so the ticks follow the operating timezone.
func NewScheduler(location *time.Location, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(location)),
		logger: logger,
		jobIDs: make([]cron.EntryID, 0),
	}
}

// ScheduleCron registers a job on a cron expression, e.g. daily planning at
// "0 8 * * *".
func (s *Scheduler) ScheduleCron(name, expression string, fn TickFunc) error {
	return s.schedule(name, expression, time.Hour, fn)
}

// ScheduleEvery registers a job on a fixed period. The tick's context is
// canceled just before the next run so work never overlaps its own period.
func (s *Scheduler) ScheduleEvery(name string, period time.Duration, fn TickFunc) error {
	if period < time.Second {
		period = time.Second
	}
	expression := fmt.Sprintf("@every %ds", int(period.Seconds()))
	return s.schedule(name, expression, period, fn)
}

func (s *Scheduler) schedule(name, expression string, budget time.Duration, fn TickFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), budget)
		defer cancel()

		if err := fn(ctx); err != nil {
			s.logger.WithError(err).WithField("job", name).Error("Scheduled job failed")
		}
	}

	entryID, err := s.cron.AddFunc(expression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"schedule": expression,
	}).Info("Scheduled job")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop stops the scheduler, waiting for in-flight jobs to finish
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}
	return nextRun
}
