package tracker

import (
	"strings"

	"github.com/adembek/corridorwatch/pkg/opensky"
)

// NormalizeAirportCodes upper-cases and trims a configured airport list,
// dropping empties, so matching can compare exact four-letter ICAO codes.
func NormalizeAirportCodes(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		set[code] = struct{}{}
	}
	return set
}

// MatchFlights returns the history records whose estimated departure or
// arrival airport is in the target set. Matching is case-insensitive and
// exact: "LLBG" matches, "LL" or "LLBG1" does not. Records with both
// endpoints unknown never match. Input order is preserved.
func MatchFlights(records []opensky.Flight, targets map[string]struct{}) []MatchedFlight {
	var matched []MatchedFlight
	for _, rec := range records {
		if !airportInSet(rec.EstDepartureAirport, targets) &&
			!airportInSet(rec.EstArrivalAirport, targets) {
			continue
		}
		matched = append(matched, MatchedFlight{
			EstDepartureAirport: rec.EstDepartureAirport,
			EstArrivalAirport:   rec.EstArrivalAirport,
			FirstSeen:           rec.FirstSeen,
			LastSeen:            rec.LastSeen,
		})
	}
	return matched
}

func airportInSet(airport *string, targets map[string]struct{}) bool {
	if airport == nil {
		return false
	}
	code := strings.ToUpper(strings.TrimSpace(*airport))
	if code == "" {
		return false
	}
	_, ok := targets[code]
	return ok
}
