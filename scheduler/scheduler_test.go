package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"hogar_scrooper/config"
)

type countingRunner struct {
	calls atomic.Int32
	block chan struct{}
}

func (r *countingRunner) ProcessBatch(ctx context.Context) (int, int) {
	r.calls.Add(1)
	if r.block != nil {
		<-r.block
	}
	return 0, 0
}

func TestIntervalSchedulerRuns(t *testing.T) {
	runner := &countingRunner{}
	s := New(config.SchedulerConfig{Interval: 10 * time.Millisecond}, runner)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for runner.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least 2 runs, got %d", runner.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestInvalidCron(t *testing.T) {
	s := New(config.SchedulerConfig{Cron: "not a cron"}, &countingRunner{})
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
	s.Stop()
}

func TestTriggerSkipsWhileRunning(t *testing.T) {
	runner := &countingRunner{block: make(chan struct{})}
	s := New(config.SchedulerConfig{}, runner)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	done := make(chan bool)
	go func() { done <- s.TriggerNow(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for runner.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first batch never started")
		}
		time.Sleep(time.Millisecond)
	}
	if s.TriggerNow(context.Background()) {
		t.Fatal("expected an overlapping trigger to be skipped")
	}
	close(runner.block)
	if !<-done {
		t.Fatal("expected the first trigger to run")
	}
	if runner.calls.Load() != 1 {
		t.Fatalf("expected a single run, got %d", runner.calls.Load())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s := New(config.SchedulerConfig{Interval: time.Hour}, &countingRunner{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
	s.Stop()
}
