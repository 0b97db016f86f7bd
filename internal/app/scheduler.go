package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

// Job is a unit of background work run by the Scheduler.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs background jobs on cron schedules. A job still running
// when its next tick fires is skipped for that tick.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *common.Logger
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(logger *common.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.WithComponent("scheduler"),
	}
}

// everySpec turns an interval into a cron descriptor.
func everySpec(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}

// AddJob registers a job. Schedule examples:
//   - "@every 1h"      every hour from start
//   - "*/15 * * * *"   every 15 minutes
//   - "0 18 * * 1-5"   18:00 on weekdays
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.run(job)
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	s.logger.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run(s.ctx)
}

func (s *Scheduler) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job", job.Name()).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Job panicked")
		}
	}()

	start := time.Now()
	s.logger.Debug().Str("job", job.Name()).Msg("Running job")

	if err := job.Run(s.ctx); err != nil {
		s.logger.Error().Err(err).Str("job", job.Name()).Msg("Job failed")
		return
	}
	s.logger.Debug().Str("job", job.Name()).Dur("elapsed", time.Since(start)).Msg("Job completed")
}

// refreshJob runs the stock data refresher.
type refreshJob struct {
	service interfaces.StockDataService
	logger  *common.Logger
}

func (j *refreshJob) Name() string { return "stockdata_refresh" }

func (j *refreshJob) Run(ctx context.Context) error {
	report, err := j.service.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("stock data refresh: %w", err)
	}
	j.logger.Info().
		Int("funds", report.Funds).
		Int("equities", report.Equities).
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Int("sectors_updated", report.SectorsUpdated).
		Dur("elapsed", report.Elapsed).
		Msg("Stock data refresh: complete")
	return nil
}

// inboxJob imports CSV files dropped into the inbox directory.
type inboxJob struct {
	service interfaces.ImportService
	userID  string
	logger  *common.Logger
}

func (j *inboxJob) Name() string { return "inbox_import" }

func (j *inboxJob) Run(ctx context.Context) error {
	results, err := j.service.ImportInbox(ctx, j.userID)
	if err != nil {
		return fmt.Errorf("inbox import: %w", err)
	}
	if len(results) > 0 {
		j.logger.Info().Int("files", len(results)).Str("user_id", j.userID).Msg("Inbox import: complete")
	}
	return nil
}
