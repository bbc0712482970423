// Package tracker implements the refresh pipeline that polls the upstream
// feed, filters aircraft to the monitored airspace, cross-references recent
// flight history against the target airport set, and publishes the result
// as an atomically replaced snapshot for HTTP readers.
package tracker

import "time"

// MatchedFlight is one flight-history record whose departure or arrival
// airport matched the target set. Field names mirror the upstream flights
// endpoint so downstream consumers see familiar keys.
type MatchedFlight struct {
	EstDepartureAirport *string `json:"estDepartureAirport"`
	EstArrivalAirport   *string `json:"estArrivalAirport"`
	FirstSeen           int64   `json:"firstSeen"`
	LastSeen            int64   `json:"lastSeen"`
}

// TrackedFlight is an aircraft currently inside the monitored airspace
// whose recent history touched a target airport.
type TrackedFlight struct {
	ICAO24         string          `json:"icao24"`
	Callsign       string          `json:"callsign"`
	Latitude       float64         `json:"lat"`
	Longitude      float64         `json:"lon"`
	Altitude       float64         `json:"altitude"`
	GroundSpeed    float64         `json:"speed"`
	Heading        float64         `json:"heading"`
	OriginCountry  string          `json:"origin_country"`
	MatchedFlights []MatchedFlight `json:"matched_flights"`
}

// Snapshot is one complete, self-consistent result of a refresh cycle.
// Snapshots are immutable after publication; a new cycle produces a new
// snapshot rather than mutating the old one.
type Snapshot struct {
	// FetchedAt is when the cycle that produced this snapshot completed.
	FetchedAt time.Time `json:"fetched_at"`

	// Flights are the matched aircraft, in upstream feed order.
	Flights []TrackedFlight `json:"flights"`

	// Authenticated reports whether the upstream session had credentials
	// when the snapshot was taken. Anonymous sessions see a shallower
	// history window.
	Authenticated bool `json:"authenticated"`
}
