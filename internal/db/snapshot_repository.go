package db

import (
	"context"
	"fmt"
	"time"

	"github.com/adembek/corridorwatch/internal/tracker"
)

// SnapshotRepository archives published snapshots. It satisfies the
// pipeline's Archiver interface.
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a repository backed by the given database.
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// SaveSnapshot writes a snapshot and its flights in one transaction, so a
// partial write never appears in the archive.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, snap *tracker.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var snapshotID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO snapshots (fetched_at, flight_count, authenticated)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		snap.FetchedAt, len(snap.Flights), snap.Authenticated,
	).Scan(&snapshotID)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for _, f := range snap.Flights {
		var flightID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO tracked_flights
			 (snapshot_id, icao24, callsign, latitude, longitude, altitude, ground_speed, heading, origin_country)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id`,
			snapshotID, f.ICAO24, f.Callsign, f.Latitude, f.Longitude,
			f.Altitude, f.GroundSpeed, f.Heading, f.OriginCountry,
		).Scan(&flightID)
		if err != nil {
			return fmt.Errorf("failed to insert tracked flight %s: %w", f.ICAO24, err)
		}

		for _, m := range f.MatchedFlights {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO matched_flights
				 (tracked_flight_id, est_departure_airport, est_arrival_airport, first_seen, last_seen)
				 VALUES ($1, $2, $3, $4, $5)`,
				flightID, m.EstDepartureAirport, m.EstArrivalAirport, m.FirstSeen, m.LastSeen,
			)
			if err != nil {
				return fmt.Errorf("failed to insert matched flight: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// RecentSnapshots returns metadata for the most recent archived snapshots.
func (r *SnapshotRepository) RecentSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, fetched_at, flight_count, authenticated
		 FROM snapshots
		 ORDER BY fetched_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		var rec SnapshotRecord
		if err := rows.Scan(&rec.ID, &rec.FetchedAt, &rec.FlightCount, &rec.Authenticated); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SnapshotRecord is one archived snapshot's metadata.
type SnapshotRecord struct {
	ID            int64     `json:"id"`
	FetchedAt     time.Time `json:"fetched_at"`
	FlightCount   int       `json:"flight_count"`
	Authenticated bool      `json:"authenticated"`
}
