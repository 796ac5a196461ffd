package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// RetentionJob purges audit records older than the retention window on a
// cron schedule, daily by default.
type RetentionJob struct {
	store    *Store
	days     int
	schedule string
	cron     *cron.Cron
}

// RetentionOption adjusts a RetentionJob.
type RetentionOption func(*RetentionJob)

// WithSchedule replaces the default @daily cron spec.
func WithSchedule(spec string) RetentionOption {
	return func(j *RetentionJob) { j.schedule = spec }
}

// NewRetentionJob creates a job purging records older than days.
func NewRetentionJob(store *Store, days int, opts ...RetentionOption) *RetentionJob {
	j := &RetentionJob{store: store, days: days, schedule: "@daily", cron: cron.New()}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start schedules the recurring purge. Returns an error only if the
// schedule spec fails to parse.
func (j *RetentionJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		if _, err := j.RunOnce(context.Background()); err != nil {
			log.Error().Err(err).Msg("audit retention purge failed")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling retention job: %w", err)
	}
	j.cron.Start()
	return nil
}

// Stop halts the schedule. Running purges finish.
func (j *RetentionJob) Stop() {
	j.cron.Stop()
}

// RunOnce purges immediately and returns how many records were removed.
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -j.days)
	n, err := j.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("purged", n).Time("cutoff", cutoff).Msg("audit retention purge complete")
	}
	return n, nil
}
