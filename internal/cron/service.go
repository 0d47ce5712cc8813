package cron

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/clips-backend/pkg/logger"
	"github.com/angelmondragon/clips-backend/pkg/metrics"
)

const maxTick = time.Minute

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Schedule *Schedule
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Now      func() time.Time
}

// Service wakes up on a short tick and runs every job whose cadence has come
// round, each under its own distributed lock.
type Service struct {
	logg     *logger.Logger
	schedule *Schedule
	lock     Lock
	metrics  *metrics.CronJobMetrics
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	schedule := params.Schedule
	if schedule == nil {
		schedule = NewSchedule()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:     params.Logger,
		schedule: schedule,
		lock:     params.Lock,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// Run blocks until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.runDue(ctx)

	ticker := time.NewTicker(s.schedule.tick(maxTick))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// runDue runs the due jobs one after another. A failing job never stops the
// others.
func (s *Service) runDue(ctx context.Context) {
	for _, entry := range s.schedule.due(s.now()) {
		s.runJob(ctx, entry)
	}
}

func (s *Service) runJob(ctx context.Context, entry *scheduled) {
	name := entry.job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})

	locked, err := s.lock.Acquire(jobCtx, name, entry.every)
	if err != nil {
		s.logg.Error(jobCtx, "cron lock acquire failed", err)
		s.metrics.ObserveRun(name, err, 0, s.now())
		return
	}
	if !locked {
		s.logg.Info(jobCtx, "job held by another cron instance; skipping")
		s.metrics.MarkSkipped(name)
		return
	}
	defer func() {
		if err := s.lock.Release(jobCtx, name); err != nil {
			s.logg.Error(jobCtx, "failed to release cron lock", err)
		}
	}()

	start := s.now()
	err = entry.job.Run(jobCtx)
	finished := s.now()
	took := finished.Sub(start)
	s.metrics.ObserveRun(name, err, took, finished)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return
	}
	s.logg.Info(jobCtx, "job completed")
}
