package tracker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/adembek/corridorwatch/pkg/airspace"
	"github.com/adembek/corridorwatch/pkg/opensky"
)

// Upstream is the slice of the feed client the pipeline needs. It is
// satisfied by *opensky.Client and by fakes in tests.
type Upstream interface {
	States(ctx context.Context, bbox *opensky.BoundingBox) ([]opensky.StateVector, error)
	FlightsByAircraft(ctx context.Context, icao24 string, begin, end time.Time) ([]opensky.Flight, error)
	Authenticated() bool
}

// Archiver persists published snapshots. Archiving is best-effort: a
// failed write is logged and never fails the cycle.
type Archiver interface {
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
}

// PipelineConfig carries the tunables of a refresh cycle.
type PipelineConfig struct {
	// HistoryWindow is how far back flight history is examined.
	HistoryWindow time.Duration

	// MaxCandidates caps per-cycle history lookups. Zero means no cap.
	MaxCandidates int

	// TargetAirports are the ICAO codes matched against history records.
	TargetAirports []string

	// Retry governs upstream call retries within a cycle.
	Retry opensky.RetryConfig
}

// Pipeline runs one full refresh cycle: fetch states, filter to the
// boundary, cross-reference history, publish a snapshot.
type Pipeline struct {
	upstream Upstream
	boundary *airspace.Boundary
	cache    *Cache
	metrics  *Metrics
	archiver Archiver
	targets  map[string]struct{}
	cfg      PipelineConfig
}

// NewPipeline wires a pipeline. archiver and metrics may be nil.
func NewPipeline(upstream Upstream, boundary *airspace.Boundary, cache *Cache, metrics *Metrics, archiver Archiver, cfg PipelineConfig) *Pipeline {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 6 * time.Hour
	}
	return &Pipeline{
		upstream: upstream,
		boundary: boundary,
		cache:    cache,
		metrics:  metrics,
		archiver: archiver,
		targets:  NormalizeAirportCodes(cfg.TargetAirports),
		cfg:      cfg,
	}
}

// Run executes one refresh cycle. On success the cache gets a new
// snapshot; on failure the failure counter is bumped and the previous
// snapshot keeps serving. A panic inside the cycle is recovered and
// counted as a failed cycle so the scheduler survives.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh cycle panicked: %v", r)
		}
		if p.metrics != nil {
			p.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
			result := "success"
			if err != nil {
				result = "failure"
			}
			p.metrics.RefreshCycles.WithLabelValues(result).Inc()
		}
		if err != nil {
			p.cache.RecordFailure(err)
			log.Printf("Refresh cycle failed: %v", err)
		}
	}()

	latMin, latMax, lonMin, lonMax := p.boundary.BoundingBox()
	bbox := &opensky.BoundingBox{
		LatMin: latMin, LatMax: latMax,
		LonMin: lonMin, LonMax: lonMax,
	}

	states, err := opensky.RetryWithBackoffResult(ctx, p.cfg.Retry, func() ([]opensky.StateVector, error) {
		return p.upstream.States(ctx, bbox)
	})
	if err != nil {
		return fmt.Errorf("failed to fetch state vectors: %w", err)
	}

	candidates := p.filterCandidates(states)
	if p.cfg.MaxCandidates > 0 && len(candidates) > p.cfg.MaxCandidates {
		log.Printf("Capping history lookups: %d candidates, querying first %d",
			len(candidates), p.cfg.MaxCandidates)
		candidates = candidates[:p.cfg.MaxCandidates]
	}

	end := time.Now()
	begin := end.Add(-p.cfg.HistoryWindow)

	flights := make([]TrackedFlight, 0, len(candidates))
	skipped := 0
	for _, sv := range candidates {
		history, err := opensky.RetryWithBackoffResult(ctx, p.cfg.Retry, func() ([]opensky.Flight, error) {
			return p.upstream.FlightsByAircraft(ctx, sv.ICAO24, begin, end)
		})
		if err != nil {
			// One aircraft's history failing must not sink the cycle,
			// but cancellation should stop the loop promptly.
			if ctx.Err() != nil {
				return fmt.Errorf("refresh cancelled: %w", ctx.Err())
			}
			skipped++
			if p.metrics != nil {
				p.metrics.HistorySkips.Inc()
			}
			log.Printf("Skipping %s: history lookup failed: %v", sv.ICAO24, err)
			continue
		}

		matched := MatchFlights(history, p.targets)
		if len(matched) == 0 {
			continue
		}

		flights = append(flights, trackedFromState(sv, matched))
	}

	snap := &Snapshot{
		FetchedAt:     time.Now().UTC(),
		Flights:       flights,
		Authenticated: p.upstream.Authenticated(),
	}
	p.cache.Publish(snap)

	if p.metrics != nil {
		p.metrics.TrackedFlights.Set(float64(len(flights)))
	}
	if p.archiver != nil {
		if archiveErr := p.archiver.SaveSnapshot(ctx, snap); archiveErr != nil {
			log.Printf("Failed to archive snapshot: %v", archiveErr)
		}
	}

	log.Printf("Refresh complete: %d in airspace, %d matched, %d skipped (%.1fs)",
		len(candidates), len(flights), skipped, time.Since(start).Seconds())
	return nil
}

// filterCandidates keeps vectors with a reported position inside the
// monitored polygon. The upstream bounding-box query is a coarse
// prefilter; the polygon test is authoritative.
func (p *Pipeline) filterCandidates(states []opensky.StateVector) []opensky.StateVector {
	var out []opensky.StateVector
	for _, sv := range states {
		if !sv.HasPosition() {
			continue
		}
		if !p.boundary.Contains(*sv.Latitude, *sv.Longitude) {
			continue
		}
		out = append(out, sv)
	}
	return out
}

func trackedFromState(sv opensky.StateVector, matched []MatchedFlight) TrackedFlight {
	tf := TrackedFlight{
		ICAO24:         sv.ICAO24,
		Callsign:       sv.Callsign,
		Latitude:       *sv.Latitude,
		Longitude:      *sv.Longitude,
		Altitude:       sv.Altitude(),
		OriginCountry:  sv.OriginCountry,
		MatchedFlights: matched,
	}
	if sv.Velocity != nil {
		tf.GroundSpeed = *sv.Velocity
	}
	if sv.TrueTrack != nil {
		tf.Heading = *sv.TrueTrack
	}
	return tf
}
