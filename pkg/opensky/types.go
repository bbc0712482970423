package opensky

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StateVector is one aircraft's instantaneous report from the /states/all
// endpoint. The upstream encodes each vector as a positional JSON array, so
// the type carries a custom unmarshaler. Nullable upstream fields are
// pointers; a nil Latitude/Longitude means the feed has no position fix.
type StateVector struct {
	// ICAO24 is the unique 24-bit transponder address in hex (e.g. "4b1805")
	ICAO24 string

	// Callsign is the flight callsign, trimmed of the upstream's padding.
	// Empty when the aircraft broadcasts none.
	Callsign string

	// OriginCountry is the country label inferred from the ICAO24 range
	OriginCountry string

	// TimePosition is the unix timestamp of the last position report
	TimePosition *int64

	// LastContact is the unix timestamp of the last received message
	LastContact int64

	// Longitude in decimal degrees, nil when unknown
	Longitude *float64

	// Latitude in decimal degrees, nil when unknown
	Latitude *float64

	// BaroAltitude is the barometric altitude in meters, nil when unknown
	BaroAltitude *float64

	// OnGround reports whether the aircraft is on the ground
	OnGround bool

	// Velocity is the ground speed in m/s, nil when unknown
	Velocity *float64

	// TrueTrack is the ground track in degrees (0 = north), nil when unknown
	TrueTrack *float64

	// VerticalRate in m/s (positive = climbing), nil when unknown
	VerticalRate *float64

	// GeoAltitude is the geometric (GPS) altitude in meters, nil when unknown
	GeoAltitude *float64
}

// Positions of the fields inside the upstream state-vector array.
const (
	idxICAO24 = iota
	idxCallsign
	idxOriginCountry
	idxTimePosition
	idxLastContact
	idxLongitude
	idxLatitude
	idxBaroAltitude
	idxOnGround
	idxVelocity
	idxTrueTrack
	idxVerticalRate
	_ // sensors
	idxGeoAltitude
)

// UnmarshalJSON decodes the positional array form of a state vector.
func (s *StateVector) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("state vector is not an array: %w", err)
	}
	if len(raw) <= idxOnGround {
		return fmt.Errorf("state vector has %d fields, want at least %d", len(raw), idxOnGround+1)
	}

	s.ICAO24, _ = raw[idxICAO24].(string)
	if cs, ok := raw[idxCallsign].(string); ok {
		// The upstream pads callsigns with trailing spaces.
		s.Callsign = strings.TrimSpace(cs)
	}
	s.OriginCountry, _ = raw[idxOriginCountry].(string)
	s.TimePosition = asInt64(raw[idxTimePosition])
	if lc := asInt64(raw[idxLastContact]); lc != nil {
		s.LastContact = *lc
	}
	s.Longitude = asFloat(raw[idxLongitude])
	s.Latitude = asFloat(raw[idxLatitude])
	s.BaroAltitude = asFloat(raw[idxBaroAltitude])
	if og, ok := raw[idxOnGround].(bool); ok {
		s.OnGround = og
	}
	if len(raw) > idxVelocity {
		s.Velocity = asFloat(raw[idxVelocity])
	}
	if len(raw) > idxTrueTrack {
		s.TrueTrack = asFloat(raw[idxTrueTrack])
	}
	if len(raw) > idxVerticalRate {
		s.VerticalRate = asFloat(raw[idxVerticalRate])
	}
	if len(raw) > idxGeoAltitude {
		s.GeoAltitude = asFloat(raw[idxGeoAltitude])
	}
	return nil
}

// Altitude returns the best available altitude in meters, preferring the
// geometric value over barometric. Returns 0 when neither is reported.
func (s *StateVector) Altitude() float64 {
	if s.GeoAltitude != nil {
		return *s.GeoAltitude
	}
	if s.BaroAltitude != nil {
		return *s.BaroAltitude
	}
	return 0
}

// HasPosition reports whether the vector carries a latitude and longitude.
func (s *StateVector) HasPosition() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// statesResponse is the envelope of the /states/all endpoint.
type statesResponse struct {
	Time   int64         `json:"time"`
	States []StateVector `json:"states"`
}

// Flight is one past flight segment from the /flights/aircraft endpoint.
// Departure and arrival airports are the upstream's best estimates and may
// be null when unknown.
type Flight struct {
	ICAO24              string  `json:"icao24"`
	FirstSeen           int64   `json:"firstSeen"`
	EstDepartureAirport *string `json:"estDepartureAirport"`
	LastSeen            int64   `json:"lastSeen"`
	EstArrivalAirport   *string `json:"estArrivalAirport"`
	Callsign            *string `json:"callsign"`
}

func asFloat(v any) *float64 {
	if f, ok := v.(float64); ok {
		return &f
	}
	return nil
}

func asInt64(v any) *int64 {
	if f, ok := v.(float64); ok {
		i := int64(f)
		return &i
	}
	return nil
}
