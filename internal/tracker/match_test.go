package tracker

import (
	"testing"

	"github.com/adembek/corridorwatch/pkg/opensky"
)

func strPtr(s string) *string { return &s }

func israeliAirports() map[string]struct{} {
	return NormalizeAirportCodes([]string{"LLBG", "LLIA", "LLIB", "LLHB", "LLMZ", "LLES"})
}

func TestNormalizeAirportCodes(t *testing.T) {
	set := NormalizeAirportCodes([]string{" llbg ", "LLIA", "", "llib"})
	if len(set) != 3 {
		t.Fatalf("Expected 3 codes, got %d", len(set))
	}
	for _, want := range []string{"LLBG", "LLIA", "LLIB"} {
		if _, ok := set[want]; !ok {
			t.Errorf("Expected %s in normalized set", want)
		}
	}
}

func TestMatchFlights(t *testing.T) {
	targets := israeliAirports()

	t.Run("Departure match", func(t *testing.T) {
		records := []opensky.Flight{
			{ICAO24: "738065", FirstSeen: 100, LastSeen: 200, EstDepartureAirport: strPtr("LLBG"), EstArrivalAirport: strPtr("LTFM")},
		}
		matched := MatchFlights(records, targets)
		if len(matched) != 1 {
			t.Fatalf("Expected 1 match, got %d", len(matched))
		}
		if *matched[0].EstDepartureAirport != "LLBG" {
			t.Errorf("Unexpected departure: %v", *matched[0].EstDepartureAirport)
		}
	})

	t.Run("Arrival match", func(t *testing.T) {
		records := []opensky.Flight{
			{EstDepartureAirport: strPtr("LTBA"), EstArrivalAirport: strPtr("LLES")},
		}
		if got := len(MatchFlights(records, targets)); got != 1 {
			t.Errorf("Expected 1 match, got %d", got)
		}
	})

	t.Run("Case-insensitive", func(t *testing.T) {
		records := []opensky.Flight{
			{EstDepartureAirport: strPtr("llbg")},
			{EstArrivalAirport: strPtr("Llia")},
		}
		if got := len(MatchFlights(records, targets)); got != 2 {
			t.Errorf("Expected case-insensitive matches, got %d", got)
		}
	})

	t.Run("Exact code only, no prefix matching", func(t *testing.T) {
		records := []opensky.Flight{
			{EstDepartureAirport: strPtr("LL")},
			{EstDepartureAirport: strPtr("LLBG1")},
			{EstArrivalAirport: strPtr("LLXX")},
		}
		if got := len(MatchFlights(records, targets)); got != 0 {
			t.Errorf("Expected no prefix/near matches, got %d", got)
		}
	})

	t.Run("Unknown endpoints never match", func(t *testing.T) {
		records := []opensky.Flight{
			{EstDepartureAirport: nil, EstArrivalAirport: nil},
			{EstDepartureAirport: strPtr(""), EstArrivalAirport: strPtr("  ")},
		}
		if got := len(MatchFlights(records, targets)); got != 0 {
			t.Errorf("Expected no matches for unknown endpoints, got %d", got)
		}
	})

	t.Run("Order preserved", func(t *testing.T) {
		records := []opensky.Flight{
			{FirstSeen: 1, EstDepartureAirport: strPtr("LLBG")},
			{FirstSeen: 2, EstDepartureAirport: strPtr("LTBA")},
			{FirstSeen: 3, EstArrivalAirport: strPtr("LLIA")},
		}
		matched := MatchFlights(records, targets)
		if len(matched) != 2 {
			t.Fatalf("Expected 2 matches, got %d", len(matched))
		}
		if matched[0].FirstSeen != 1 || matched[1].FirstSeen != 3 {
			t.Errorf("Expected input order preserved: %+v", matched)
		}
	})

	t.Run("Empty input", func(t *testing.T) {
		if got := len(MatchFlights(nil, targets)); got != 0 {
			t.Errorf("Expected no matches for empty input, got %d", got)
		}
	})
}
