// Package scheduler runs the daily export at a configured local time
// using cron under the hood.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a scheduled task.
type Job func(ctx context.Context) error

const jobTimeout = 30 * time.Minute

// Scheduler manages periodic jobs in a fixed time zone.
type Scheduler struct {
	cron *cron.Cron
	loc  *time.Location
	log  *zap.Logger
}

// New creates a Scheduler whose schedules are interpreted in loc.
func New(loc *time.Location, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		loc:  loc,
		log:  log,
	}
}

// AddDailyJob schedules job to run every day at timeStr ("HH:MM"),
// local to the scheduler's time zone.
func (s *Scheduler) AddDailyJob(name, timeStr string, job Job) error {
	at, err := time.Parse("15:04", timeStr)
	if err != nil {
		return fmt.Errorf("invalid time format %q: %w", timeStr, err)
	}
	schedule := fmt.Sprintf("%d %d * * *", at.Minute(), at.Hour())

	_, err = s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		s.log.Info("job starting", zap.String("job", name))
		start := time.Now()
		if err := job(ctx); err != nil {
			s.log.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.log.Info("job completed", zap.String("job", name), zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}

	s.log.Info("job scheduled", zap.String("job", name), zap.String("at", timeStr))
	return nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
