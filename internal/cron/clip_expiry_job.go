package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/clips-backend/pkg/logger"
)

const (
	defaultExpiryBatchSize = 200
	maxExpiryBatches       = 50
)

type clipExpirer interface {
	ExpireDue(ctx context.Context, limit int) (int, error)
}

// ClipExpiryJobParams configure the clip expiry sweep.
type ClipExpiryJobParams struct {
	Logger    *logger.Logger
	Expirer   clipExpirer
	BatchSize int
}

// NewClipExpiryJob builds the job that expires paid plans whose window closed.
func NewClipExpiryJob(params ClipExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("clip expirer required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &clipExpiryJob{
		logg:    params.Logger,
		expirer: params.Expirer,
		batch:   batch,
	}, nil
}

type clipExpiryJob struct {
	logg    *logger.Logger
	expirer clipExpirer
	batch   int
}

func (j *clipExpiryJob) Name() string { return "clip-expiry" }

// Run drains due plans batch by batch. A batch with failures ends the run so
// rows that keep failing are retried on the next cycle instead of looping.
func (j *clipExpiryJob) Run(ctx context.Context) error {
	total := 0
	for i := 0; i < maxExpiryBatches; i++ {
		expired, err := j.expirer.ExpireDue(ctx, j.batch)
		total += expired
		if err != nil {
			j.logSummary(ctx, total, i+1)
			return fmt.Errorf("clip expiry: %w", err)
		}
		if expired < j.batch {
			j.logSummary(ctx, total, i+1)
			return nil
		}
	}
	j.logSummary(ctx, total, maxExpiryBatches)
	j.logg.Warn(ctx, "clip expiry stopped at batch cap; remaining plans roll to next cycle")
	return nil
}

func (j *clipExpiryJob) logSummary(ctx context.Context, expired, batches int) {
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"expired_count": expired,
		"batches":       batches,
		"batch_size":    j.batch,
	})
	j.logg.Info(logCtx, "clip expiry sweep complete")
}
