package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"account-provisioner-go/internal/config"
	"account-provisioner-go/internal/model"
	"account-provisioner-go/internal/poller"
)

// Scheduler manages the periodic mailbox poll.
type Scheduler struct {
	cron      *cron.Cron
	entryID   cron.EntryID
	config    *config.SchedulerConfig
	poller    *poller.Poller
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *config.SchedulerConfig, p *poller.Poller) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		config: cfg,
		poller: p,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}

	// True fixed interval from the moment the scheduler starts; a cron
	// minute field would break above 59 and fire on wall-clock divisibility.
	schedule := fmt.Sprintf("@every %dm", s.config.IntervalMinutes)

	entryID, err := s.cron.AddFunc(schedule, s.runCycle)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.config.IntervalMinutes)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	// Cancel context to stop any running operations
	s.cancel()

	// Stop the cron scheduler
	ctx := s.cron.Stop()

	// Wait for all jobs to complete
	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// runCycle executes one bounded poll cycle on the cron schedule.
func (s *Scheduler) runCycle() {
	s.wg.Add(1)
	defer s.wg.Done()

	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		logrus.Info("Scheduler not running, skipping poll cycle")
		return
	}
	s.mu.RUnlock()

	if _, err := s.RunOnce(); err != nil {
		logrus.Errorf("Poll cycle failed: %v", err)
	}
}

// RunOnce runs one poll cycle with the configured hard timeout. It is also
// the entry point for the external trigger.
func (s *Scheduler) RunOnce() (model.RunSummary, error) {
	timeout := s.config.RunTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	return s.poller.Run(ctx)
}

// GetNextRun returns the time of the next scheduled run
func (s *Scheduler) GetNextRun() time.Time {
	if !s.IsRunning() {
		return time.Time{}
	}

	entry := s.cron.Entry(s.entryID)
	return entry.Next
}

// GetLastRun returns the time of the last run
func (s *Scheduler) GetLastRun() time.Time {
	if !s.IsRunning() {
		return time.Time{}
	}

	entry := s.cron.Entry(s.entryID)
	return entry.Prev
}

// Wait waits for in-flight cycles to finish
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
