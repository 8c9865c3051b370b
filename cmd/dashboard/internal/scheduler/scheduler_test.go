package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/cmd/dashboard/internal/scheduler"
)

func TestSlot_OverlappingTicksRunOnce(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32

	slot := scheduler.NewSlot("fast", func(ctx context.Context) error {
		calls.Add(1)
		close(started)
		<-release
		return nil
	}, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		slot.Run()
	}()
	<-started

	// Ticks while busy are dropped.
	slot.Run()
	slot.Run()

	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("Expected 1 call, got %d", calls.Load())
	}
	if slot.Dropped() != 2 {
		t.Errorf("Expected 2 dropped ticks, got %d", slot.Dropped())
	}
}

func TestSlot_PanicFreesSlot(t *testing.T) {
	var calls int
	slot := scheduler.NewSlot("boom", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			panic("upstream exploded")
		}
		return nil
	}, zap.NewNop())

	slot.Run()
	slot.Run()

	if calls != 2 || slot.Runs() != 2 {
		t.Errorf("Slot wedged after panic: calls=%d runs=%d", calls, slot.Runs())
	}
}

func TestSlot_ErrorDoesNotStopFutureRuns(t *testing.T) {
	var calls int
	slot := scheduler.NewSlot("flaky", func(ctx context.Context) error {
		calls++
		return errors.New("timeout")
	}, zap.NewNop())

	slot.Run()
	slot.Run()
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestScheduler_RejectsNonPositivePeriod(t *testing.T) {
	s := scheduler.NewScheduler(zap.NewNop())
	noop := func(context.Context) error { return nil }

	if _, err := s.Every("zero", 0, noop, false); !errors.Is(err, scheduler.ErrInvalidPeriod) {
		t.Errorf("Expected invalid period, got %v", err)
	}
	if _, err := s.Every("neg", -time.Second, noop, false); !errors.Is(err, scheduler.ErrInvalidPeriod) {
		t.Errorf("Expected invalid period, got %v", err)
	}
}

func TestScheduler_RunAtStartIsSynchronousAndOrdered(t *testing.T) {
	s := scheduler.NewScheduler(zap.NewNop())
	var order []string
	record := func(name string) scheduler.Task {
		return func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	if _, err := s.Every("market", time.Hour, record("market"), true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Every("age", time.Hour, record("age"), false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Every("summary", time.Hour, record("summary"), true); err != nil {
		t.Fatal(err)
	}

	s.Start(context.Background())
	defer s.Stop()

	if len(order) != 2 || order[0] != "market" || order[1] != "summary" {
		t.Errorf("Unexpected start-up runs %v", order)
	}
	if _, err := s.Every("late", time.Hour, record("late"), false); err == nil {
		t.Error("Registering after start should fail")
	}
}

func TestScheduler_TicksAndStops(t *testing.T) {
	s := scheduler.NewScheduler(zap.NewNop())
	ticked := make(chan struct{}, 10)
	slot, err := s.Every("age", time.Second, func(ctx context.Context) error {
		ticked <- struct{}{}
		return nil
	}, false)
	if err != nil {
		t.Fatal(err)
	}

	s.Start(context.Background())
	select {
	case <-ticked:
	case <-time.After(3 * time.Second):
		t.Fatal("Timer never fired")
	}
	s.Stop()

	runs := slot.Runs()
	time.Sleep(1500 * time.Millisecond)
	if slot.Runs() != runs {
		t.Errorf("Slot ran after Stop")
	}
}
