package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestScheduleKeepsOrderAndSkipsInvalid(t *testing.T) {
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	schedule := NewSchedule().
		Every(time.Hour, jobA).
		Every(0, &stubJob{name: "never"}).
		Every(time.Hour, nil).
		Every(time.Minute, jobB)

	jobs := schedule.Jobs()
	if len(jobs) != 2 || jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	if tick := schedule.tick(time.Hour); tick != time.Minute {
		t.Fatalf("expected tick to follow the shortest cadence, got %s", tick)
	}
	if tick := NewSchedule().tick(time.Minute); tick != time.Minute {
		t.Fatalf("expected ceiling for an empty schedule, got %s", tick)
	}
}

func TestScheduleDueBooksNextRun(t *testing.T) {
	start := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	schedule := NewSchedule().Every(time.Hour, &stubJob{name: "a"})

	if due := schedule.due(start); len(due) != 1 {
		t.Fatalf("expected job due at startup, got %d", len(due))
	}
	if due := schedule.due(start.Add(59 * time.Minute)); len(due) != 0 {
		t.Fatalf("expected nothing due before the cadence, got %d", len(due))
	}
	if due := schedule.due(start.Add(time.Hour)); len(due) != 1 {
		t.Fatalf("expected job due after the cadence, got %d", len(due))
	}
}
