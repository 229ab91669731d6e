package retention

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/telemetry/logging"
)

// Scheduled job names.
const (
	JobScan   = "scan"
	JobDelete = "delete"
)

// ScheduleConfig configures the Scheduler.
type ScheduleConfig struct {
	// ScanSchedule is the cron expression for retention scans. Empty
	// disables scanning.
	ScanSchedule string

	// DeleteSchedule is the cron expression for automatic deletion. Runs
	// only do anything while the stored policy enables auto-delete. Empty
	// disables the job.
	DeleteSchedule string

	Actor      string
	BatchSize  int
	RunTimeout time.Duration // Zero means no timeout
}

// Scheduler runs scans and automatic deletion on cron schedules.
type Scheduler struct {
	deleter  *Deleter
	scanner  *Scanner
	policies *PolicyService
	config   ScheduleConfig
	cron     *cron.Cron
	entries  map[string]cron.EntryID
	mu       sync.Mutex
	running  bool
	deps
}

// NewScheduler creates a scheduler. Overlapping runs of the same job are
// skipped.
func NewScheduler(deleter *Deleter, scanner *Scanner, policies *PolicyService, cfg ScheduleConfig, opts ...Option) *Scheduler {
	return &Scheduler{
		deleter:  deleter,
		scanner:  scanner,
		policies: policies,
		config:   cfg,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DiscardLogger),
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		entries: make(map[string]cron.EntryID),
		deps:    newDeps("audit.retention.scheduler", opts),
	}
}

// Start registers the configured jobs and starts the cron runner. It stops
// when ctx is cancelled.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 * * * *"    - Hourly
//   - "0 0 * * 0"    - Weekly on Sunday at midnight
//
// With both schedules empty, the scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("retention scheduler already running")
	}

	jobs := []struct {
		name     string
		schedule string
		run      func(context.Context)
	}{
		{JobScan, s.config.ScanSchedule, s.runScan},
		{JobDelete, s.config.DeleteSchedule, s.runDeletion},
	}

	for _, job := range jobs {
		if job.schedule == "" {
			s.logger.Info("schedule not configured, skipping job", "job", job.name)
			continue
		}
		if _, err := cron.ParseStandard(job.schedule); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", job.name, job.schedule, err)
		}
		run := job.run
		id, err := s.cron.AddFunc(job.schedule, func() { run(ctx) })
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
		s.entries[job.name] = id
	}

	if len(s.entries) == 0 {
		return nil
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"scan_schedule", s.config.ScanSchedule,
		"delete_schedule", s.config.DeleteSchedule,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runScan executes one scheduled scan.
func (s *Scheduler) runScan(ctx context.Context) {
	ctx, cancel := s.runContext(ctx, JobScan)
	defer cancel()

	result, err := s.scanner.Scan(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled retention scan failed", "error", err)
		return
	}
	s.logger.DebugContext(ctx, "scheduled retention scan completed",
		"eligible", len(result.Eligible),
		"marked", result.Marked,
	)
}

// runDeletion executes one scheduled deletion if the policy allows it.
func (s *Scheduler) runDeletion(ctx context.Context) {
	policy, _, err := s.policies.Get(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load retention policy", "error", err)
		return
	}
	if !policy.AutoDeleteEnabled {
		s.logger.DebugContext(ctx, "auto-delete disabled, skipping scheduled deletion")
		return
	}

	ctx, cancel := s.runContext(ctx, JobDelete)
	defer cancel()

	receipt, err := s.deleter.DeleteEligible(ctx, DeleteRequest{
		Actor:     s.config.Actor,
		BatchSize: s.config.BatchSize,
	})

	var partial *audit.PartialDeletionError
	switch {
	case errors.Is(err, audit.ErrNoEligibleEvents):
		s.logger.DebugContext(ctx, "scheduled deletion completed, no events eligible")
	case errors.As(err, &partial):
		s.logger.ErrorContext(ctx, "scheduled deletion stopped early",
			"failed_batch", partial.FailedBatch,
			"total_batches", partial.TotalBatches,
			"error", partial.Cause,
		)
	case err != nil:
		s.logger.ErrorContext(ctx, "scheduled deletion failed", "error", err)
	default:
		s.logger.InfoContext(ctx, "scheduled deletion completed",
			"deleted_count", receipt.DeletedCount,
			"receipt_id", receipt.ID,
		)
	}
}

// runContext tags ctx with a fresh run ID, the job and the actor, so every
// log line of the run can be correlated, and applies the run timeout.
func (s *Scheduler) runContext(ctx context.Context, job string) (context.Context, context.CancelFunc) {
	ctx = logging.WithRunID(ctx, uuid.New().String())
	ctx = logging.WithOperation(ctx, "retention."+job)
	ctx = logging.WithActor(ctx, s.config.Actor)
	if s.config.RunTimeout > 0 {
		return context.WithTimeout(ctx, s.config.RunTimeout)
	}
	return context.WithCancel(ctx)
}

// Stop stops the scheduler and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled time of job, or nil when the job is
// not scheduled or the scheduler is stopped.
func (s *Scheduler) NextRun(job string) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[job]
	if !ok || !s.running {
		return nil
	}
	next := s.cron.Entry(id).Next
	if next.IsZero() {
		return nil
	}
	return &next
}
