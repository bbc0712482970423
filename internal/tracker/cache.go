package tracker

import (
	"sync"
	"time"
)

// Cache holds the latest published snapshot behind a read-write mutex.
// Readers always see either the previous complete snapshot or the new
// complete snapshot, never a partially built one. Refresh failures bump
// a counter without touching the data, so the last good snapshot keeps
// serving while the upstream is down.
type Cache struct {
	mu sync.RWMutex

	snapshot            *Snapshot
	consecutiveFailures int
	lastError           string
	lastErrorAt         time.Time

	subscribers []chan *Snapshot
}

// NewCache returns an empty cache. Read returns nil until the first
// successful Publish.
func NewCache() *Cache {
	return &Cache{}
}

// Read returns the latest published snapshot, or nil if no cycle has
// succeeded yet. The returned snapshot is shared and must not be mutated.
func (c *Cache) Read() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Publish atomically replaces the snapshot and resets the failure counter.
// Subscribers are notified without blocking; a subscriber that has fallen
// behind misses intermediate snapshots rather than stalling the pipeline.
func (c *Cache) Publish(snap *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = snap
	c.consecutiveFailures = 0
	c.lastError = ""

	for _, ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
}

// RecordFailure increments the consecutive-failure counter and remembers
// the error, leaving the published snapshot untouched.
func (c *Cache) RecordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures++
	if err != nil {
		c.lastError = err.Error()
	}
	c.lastErrorAt = time.Now()
}

// Status describes cache health for the health endpoint.
type Status struct {
	HasSnapshot         bool
	FetchedAt           time.Time
	FlightCount         int
	ConsecutiveFailures int
	LastError           string
	LastErrorAt         time.Time
}

// Status returns a consistent view of the cache state.
func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Status{
		ConsecutiveFailures: c.consecutiveFailures,
		LastError:           c.lastError,
		LastErrorAt:         c.lastErrorAt,
	}
	if c.snapshot != nil {
		st.HasSnapshot = true
		st.FetchedAt = c.snapshot.FetchedAt
		st.FlightCount = len(c.snapshot.Flights)
	}
	return st
}

// Subscribe registers a channel that receives each newly published
// snapshot. The channel is buffered so a slow consumer drops updates
// instead of blocking publication. The returned func removes the
// subscription; callers must invoke it when done or the channel stays
// registered for the life of the process.
func (c *Cache) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, ch)

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, sub := range c.subscribers {
			if sub == ch {
				c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
				return
			}
		}
	}
}
