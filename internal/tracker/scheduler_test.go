package tracker

import (
	"context"
	"sync"
	"testing"
	"time"
)

func schedulerFixture(t *testing.T, upstream *fakeUpstream, interval time.Duration) (*Scheduler, *Cache) {
	t.Helper()
	cache := NewCache()
	p := testPipeline(t, upstream, cache, PipelineConfig{})
	return NewScheduler(p, interval), cache
}

func statesCalls(f *fakeUpstream) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statesCalls
}

func TestSchedulerRunsImmediately(t *testing.T) {
	upstream := &fakeUpstream{}
	s, cache := schedulerFixture(t, upstream, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for cache.Read() == nil {
		select {
		case <-deadline:
			t.Fatal("Expected an immediate first cycle")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	wg.Wait()

	if got := statesCalls(upstream); got != 1 {
		t.Errorf("Expected exactly 1 cycle before the first tick, got %d", got)
	}
}

func TestSchedulerTicks(t *testing.T) {
	upstream := &fakeUpstream{}
	s, _ := schedulerFixture(t, upstream, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	// Immediate run plus ~5 ticks; allow slack for scheduling jitter.
	got := statesCalls(upstream)
	if got < 3 {
		t.Errorf("Expected at least 3 cycles over 5 intervals, got %d", got)
	}
}

func TestSchedulerForceRefresh(t *testing.T) {
	upstream := &fakeUpstream{}
	s, _ := schedulerFixture(t, upstream, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for statesCalls(upstream) < 1 {
		select {
		case <-deadline:
			t.Fatal("First cycle never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}

	s.ForceRefresh()
	for statesCalls(upstream) < 2 {
		select {
		case <-deadline:
			t.Fatal("Forced refresh never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	wg.Wait()
}

func TestSchedulerForceRefreshNeverBlocks(t *testing.T) {
	upstream := &fakeUpstream{}
	s, _ := schedulerFixture(t, upstream, time.Hour)

	// Without a running loop, repeated requests coalesce instead of
	// blocking the caller.
	if !s.ForceRefresh() {
		t.Error("Expected first request accepted")
	}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			if s.ForceRefresh() {
				t.Error("Expected coalesced request rejected while one is pending")
				break
			}
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ForceRefresh blocked")
	}
}

func TestSchedulerStops(t *testing.T) {
	upstream := &fakeUpstream{}
	s, _ := schedulerFixture(t, upstream, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Scheduler did not stop on cancellation")
	}
}
