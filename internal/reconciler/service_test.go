package reconciler

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
)

type fakeLock struct {
	held bool
	busy bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.busy {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.held = false; return nil }

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

func TestRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "reconciler-test"})
	first := &testJob{name: "fail", err: errors.New("boom")}
	second := &testJob{name: "ok"}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(first, second),
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if first.runs != 1 {
		t.Fatalf("expected failing job to run once, ran %d", first.runs)
	}
	if second.runs != 1 {
		t.Fatalf("expected ok job to run once, ran %d", second.runs)
	}
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "reconciler-test"})
	job := &testJob{name: "ok"}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(job),
		Lock:     &fakeLock{busy: true},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job to be skipped, ran %d", job.runs)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "reconciler-test"})
	service, err := NewService(ServiceParams{
		Logger: logg,
		Lock:   &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
