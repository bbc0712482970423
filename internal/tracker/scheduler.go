package tracker

import (
	"context"
	"log"
	"time"
)

// Scheduler drives the pipeline: one immediate cycle at startup, then one
// per interval. Cycles never overlap; a tick that fires while a cycle is
// still running collapses into a single follow-up run instead of queueing.
type Scheduler struct {
	pipeline *Pipeline
	interval time.Duration
	force    chan struct{}
}

// NewScheduler creates a scheduler for the given pipeline and interval.
func NewScheduler(pipeline *Pipeline, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 20 * time.Second
	}
	return &Scheduler{
		pipeline: pipeline,
		interval: interval,
		force:    make(chan struct{}, 1),
	}
}

// ForceRefresh requests an out-of-band cycle. It never blocks: if a
// forced refresh is already pending, the request coalesces with it and
// ForceRefresh returns false.
func (s *Scheduler) ForceRefresh() bool {
	select {
	case s.force <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run blocks until the context is cancelled, executing refresh cycles.
// Cycle errors are already recorded in the cache by the pipeline; the
// scheduler keeps ticking regardless.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("Scheduler started: refreshing every %v", s.interval)

	// First cycle runs immediately so the cache fills without waiting
	// a full interval.
	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler stopped")
			return
		case <-s.force:
			s.runCycle(ctx)
		case <-ticker.C:
			s.runCycle(ctx)
			// A slow cycle can leave a stale tick queued; drop it so
			// the next run happens a full interval from now.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// Errors are recorded in the cache and logged by the pipeline.
	_ = s.pipeline.Run(ctx)
}
