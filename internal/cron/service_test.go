package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/clips-backend/pkg/logger"
	"github.com/angelmondragon/clips-backend/pkg/metrics"
)

type fakeLock struct {
	held     map[string]bool
	ttls     map[string]time.Duration
	released []string
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: map[string]bool{}, ttls: map[string]time.Duration{}}
}

func (f *fakeLock) Acquire(_ context.Context, job string, ttl time.Duration) (bool, error) {
	if f.held[job] {
		return false, nil
	}
	f.held[job] = true
	f.ttls[job] = ttl
	return true, nil
}

func (f *fakeLock) Release(_ context.Context, job string) error {
	f.held[job] = false
	f.released = append(f.released, job)
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestService(t *testing.T, schedule *Schedule, lock Lock, m *metrics.CronJobMetrics, c *clock) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Schedule: schedule,
		Lock:     lock,
		Metrics:  m,
		Now:      c.Now,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestRunDueRunsEveryJobEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "clip-expiry"}
	failing := &testJob{name: "outbox-retention", err: errors.New("boom")}
	lock := newFakeLock()
	c := &clock{now: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}
	svc := newTestService(t, NewSchedule().Every(time.Hour, ok).Every(24*time.Hour, failing), lock, nil, c)

	svc.runDue(context.Background())
	if ok.runs != 1 || failing.runs != 1 {
		t.Fatalf("expected both jobs to run once, got %d and %d", ok.runs, failing.runs)
	}
	if len(lock.released) != 2 {
		t.Fatalf("expected both locks released, got %v", lock.released)
	}
	if lock.ttls["outbox-retention"] != 24*time.Hour {
		t.Fatalf("expected lock ttl to follow the cadence, got %s", lock.ttls["outbox-retention"])
	}
}

func TestRunDueHonoursEachCadence(t *testing.T) {
	expiry := &testJob{name: "clip-expiry"}
	retention := &testJob{name: "outbox-retention"}
	c := &clock{now: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}
	svc := newTestService(t, NewSchedule().Every(time.Hour, expiry).Every(24*time.Hour, retention), newFakeLock(), nil, c)

	svc.runDue(context.Background())
	for i := 0; i < 3; i++ {
		c.now = c.now.Add(time.Hour)
		svc.runDue(context.Background())
	}
	if expiry.runs != 4 {
		t.Fatalf("expected hourly job to run 4 times, ran %d", expiry.runs)
	}
	if retention.runs != 1 {
		t.Fatalf("expected daily job to run once, ran %d", retention.runs)
	}
}

func TestRunDueRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	expiry := &testJob{name: "clip-expiry"}
	retention := &testJob{name: "outbox-retention", err: errors.New("db down")}
	lock := newFakeLock()
	lock.held["clip-expiry"] = true
	c := &clock{now: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}
	svc := newTestService(t, NewSchedule().Every(time.Hour, expiry).Every(time.Hour, retention), lock, metrics.NewCronJobMetrics(reg), c)

	svc.runDue(context.Background())

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	counts := map[string]float64{}
	for _, mf := range mfs {
		if mf.GetName() != "clips_cron_job_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			var job, outcome string
			for _, label := range m.GetLabel() {
				switch label.GetName() {
				case "job":
					job = label.GetValue()
				case "outcome":
					outcome = label.GetValue()
				}
			}
			counts[job+"/"+outcome] = m.GetCounter().GetValue()
		}
	}
	if counts["clip-expiry/skipped"] != 1 {
		t.Fatalf("expected clip-expiry skipped, got %v", counts)
	}
	if counts["outbox-retention/failure"] != 1 {
		t.Fatalf("expected outbox-retention failure, got %v", counts)
	}
	if expiry.runs != 0 {
		t.Fatalf("expected locked job to be skipped, ran %d", expiry.runs)
	}
}

func TestNewServiceValidates(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: newFakeLock()}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewService(ServiceParams{Logger: logger.New(logger.Options{Output: io.Discard})}); err == nil {
		t.Fatal("expected error without lock")
	}
}
