package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_AddJob(t *testing.T) {
	s := New(time.Second)

	t.Run("valid descriptor", func(t *testing.T) {
		if err := s.AddJob("refresh", "@every 15m", func(context.Context) error { return nil }); err != nil {
			t.Fatalf("AddJob() error = %v", err)
		}
		if s.Jobs() != 1 {
			t.Errorf("Expected 1 job, got %d", s.Jobs())
		}
	})

	t.Run("invalid spec", func(t *testing.T) {
		if err := s.AddJob("broken", "every now and then", func(context.Context) error { return nil }); err == nil {
			t.Error("Expected error for invalid spec")
		}
		if s.Jobs() != 1 {
			t.Errorf("Expected job count unchanged, got %d", s.Jobs())
		}
	})
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(time.Second)
	var runs atomic.Int32
	done := make(chan struct{}, 1)

	err := s.AddJob("tick", "@every 1s", func(context.Context) error {
		runs.Add(1)
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("AddJob() error = %v", err)
	}

	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Expected job to run within 3s")
	}
	if runs.Load() < 1 {
		t.Errorf("Expected at least one run, got %d", runs.Load())
	}
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(50 * time.Millisecond)

	t.Run("recovers from panic", func(t *testing.T) {
		s.RunNow("panicky", func(context.Context) error {
			panic("boom")
		})
	})

	t.Run("job errors are swallowed", func(t *testing.T) {
		s.RunNow("failing", func(context.Context) error {
			return errors.New("vendor down")
		})
	})

	t.Run("job context has timeout", func(t *testing.T) {
		var hadDeadline bool
		s.RunNow("deadline", func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			return nil
		})
		if !hadDeadline {
			t.Error("Expected job context to carry a deadline")
		}
	})

	t.Run("stop cancels job context", func(t *testing.T) {
		s2 := New(0)
		s2.Stop(context.Background())
		var cancelled bool
		s2.RunNow("after-stop", func(ctx context.Context) error {
			cancelled = ctx.Err() != nil
			return nil
		})
		if !cancelled {
			t.Error("Expected job context to be cancelled after Stop")
		}
	})
}
