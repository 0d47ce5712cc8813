package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/clips-backend/pkg/logger"
)

const (
	defaultOutboxRetention   = 30 * 24 * time.Hour
	defaultParkedMinAttempts = 10
)

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

// OutboxRetentionJobParams configure the outbox cleanup. ParkedAttempts must
// equal the publisher's max attempts, the count parked rows are pinned to.
type OutboxRetentionJobParams struct {
	Logger         *logger.Logger
	Repository     outboxPruner
	Retention      time.Duration
	ParkedAttempts int
	Now            func() time.Time
}

// NewOutboxRetentionJob builds the job that drops clip events that were
// published, or parked, longer ago than the retention window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:           params.Logger,
		repo:           params.Repository,
		retention:      params.Retention,
		parkedAttempts: params.ParkedAttempts,
		now:            params.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultOutboxRetention
	}
	if job.parkedAttempts <= 0 {
		job.parkedAttempts = defaultParkedMinAttempts
	}
	if job.now == nil {
		job.now = time.Now
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg           *logger.Logger
	repo           outboxPruner
	retention      time.Duration
	parkedAttempts int
	now            func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeletePublishedBefore(ctx, nil, cutoff, j.parkedAttempts)
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":          cutoff,
		"parked_attempts": j.parkedAttempts,
		"rows_deleted":    deleted,
	}), "outbox retention cleanup complete")
	return nil
}
