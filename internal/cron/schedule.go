package cron

import (
	"context"
	"time"
)

// Job is one periodic maintenance task of the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type scheduled struct {
	job   Job
	every time.Duration
	next  time.Time
}

// Schedule pairs jobs with their own cadence. Every job is due on the first
// pass after startup.
type Schedule struct {
	entries []*scheduled
}

func NewSchedule() *Schedule {
	return &Schedule{}
}

// Every adds job at the given cadence. Nil jobs and non-positive cadences are
// ignored.
func (s *Schedule) Every(every time.Duration, job Job) *Schedule {
	if job == nil || every <= 0 {
		return s
	}
	s.entries = append(s.entries, &scheduled{job: job, every: every})
	return s
}

// Jobs lists the scheduled jobs in insertion order.
func (s *Schedule) Jobs() []Job {
	jobs := make([]Job, 0, len(s.entries))
	for _, entry := range s.entries {
		jobs = append(jobs, entry.job)
	}
	return jobs
}

// due returns the entries whose next run is at or before now and books their
// following run.
func (s *Schedule) due(now time.Time) []*scheduled {
	var out []*scheduled
	for _, entry := range s.entries {
		if entry.next.After(now) {
			continue
		}
		entry.next = now.Add(entry.every)
		out = append(out, entry)
	}
	return out
}

// tick is how often the service should look for due work.
func (s *Schedule) tick(ceiling time.Duration) time.Duration {
	tick := ceiling
	for _, entry := range s.entries {
		if entry.every < tick {
			tick = entry.every
		}
	}
	return tick
}
