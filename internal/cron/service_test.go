package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/attos/attos-backend/internal/orders"
	"github.com/attos/attos-backend/pkg/logger"
	"github.com/attos/attos-backend/pkg/metrics"
)

type fakeLock struct {
	acquired bool
	err      error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

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

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	reg := prometheus.NewRegistry()
	jobMetrics := metrics.NewCronJobMetrics(reg)
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(success, failure),
		Lock:     &fakeLock{},
		Metrics:  jobMetrics,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if service.Interval() != defaultInterval {
		t.Fatalf("expected default interval, got %s", service.Interval())
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if success.runs != 1 || failure.runs != 1 {
		t.Fatalf("expected both jobs to run once, got %d and %d", success.runs, failure.runs)
	}
	got, err := testutil.GatherAndCount(reg, "attos_cron_job_failure_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected one failure series, got %d", got)
	}
}

func TestServiceSkipsCycleWhenLockHeld(t *testing.T) {
	job := &testJob{name: "job"}
	lock := &fakeLock{acquired: true}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran without the lock")
	}

	lock.err = errors.New("redis down")
	if err := service.runCycle(context.Background()); err == nil {
		t.Fatalf("expected lock error")
	}
}

type countingJob struct{ runs atomic.Int32 }

func (c *countingJob) Name() string { return "counting" }

func (c *countingJob) Run(context.Context) error {
	c.runs.Add(1)
	return nil
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	job := &countingJob{}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(job),
		Lock:     &LocalLock{},
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for job.runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("first cycle never ran")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: &LocalLock{}}); err == nil {
		t.Fatalf("expected logger error")
	}
	if _, err := NewService(ServiceParams{Logger: logger.Nop()}); err == nil {
		t.Fatalf("expected lock error")
	}
}

type stubTicker struct{ calls int }

func (s *stubTicker) Tick(context.Context) int { s.calls++; return 0 }

func TestStageWatchdogJobTicksManager(t *testing.T) {
	ticker := &stubTicker{}
	job, err := NewStageWatchdogJob(logger.Nop(), ticker)
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != StageWatchdogJobName {
		t.Fatalf("unexpected name %q", job.Name())
	}
	for i := 0; i < 3; i++ {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("run: %v", err)
		}
	}
	if ticker.calls != 3 {
		t.Fatalf("expected 3 ticks, got %d", ticker.calls)
	}
	if _, err := NewStageWatchdogJob(logger.Nop(), nil); err == nil {
		t.Fatalf("expected error without ticker")
	}
}

type stubLister struct{ list []orders.Order }

func (s stubLister) ListOrders() []orders.Order { return s.list }

type stubRebuilder struct {
	got []orders.Order
	err error
}

func (s *stubRebuilder) Rebuild(_ context.Context, history []orders.Order) error {
	s.got = history
	return s.err
}

func TestRankingRebuildJobPassesHistory(t *testing.T) {
	rebuilder := &stubRebuilder{}
	job, err := NewRankingRebuildJob(stubLister{list: []orders.Order{{ID: "a"}, {ID: "b"}}}, rebuilder)
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rebuilder.got) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(rebuilder.got))
	}
	rebuilder.err = errors.New("redis down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected rebuild error to surface")
	}
}
