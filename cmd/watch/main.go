// Corridor Watch terminal client
// Polls the web server's /api/turkey-israel-flights endpoint and renders
// the latest snapshot as a live table, route matches included.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	serverURL = flag.String("server", "http://localhost:8080", "Corridor Watch server URL")
	interval  = flag.Duration("interval", 5*time.Second, "Polling interval")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// flightRow mirrors the server's flight payload.
type flightRow struct {
	ICAO24         string  `json:"icao24"`
	Callsign       string  `json:"callsign"`
	Latitude       float64 `json:"lat"`
	Longitude      float64 `json:"lon"`
	Altitude       float64 `json:"altitude"`
	GroundSpeed    float64 `json:"speed"`
	Heading        float64 `json:"heading"`
	OriginCountry  string  `json:"origin_country"`
	MatchedFlights []struct {
		EstDepartureAirport *string `json:"estDepartureAirport"`
		EstArrivalAirport   *string `json:"estArrivalAirport"`
	} `json:"matched_flights"`
}

type flightsResponse struct {
	Results       []flightRow `json:"results"`
	Count         int         `json:"count"`
	FetchedAt     int64       `json:"fetched_at"`
	Authenticated bool        `json:"authenticated"`
}

type model struct {
	client   *http.Client
	url      string
	interval time.Duration

	flights    []flightRow
	lastUpdate string
	fetchedAt  time.Time
	err        error
}

type tickMsg time.Time

type fetchResult struct {
	resp *flightsResponse
	err  error
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) fetch() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.Get(m.url + "/api/turkey-israel-flights")
		if err != nil {
			return fetchResult{err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fetchResult{err: fmt.Errorf("server returned %s", resp.Status)}
		}

		var body flightsResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fetchResult{err: fmt.Errorf("bad response: %w", err)}
		}
		return fetchResult{resp: &body}
	}
}

func (m model) Init() tea.Cmd {
	return m.fetch()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.fetch()
		}

	case tickMsg:
		return m, m.fetch()

	case fetchResult:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.flights = msg.resp.Results
			m.fetchedAt = time.Now()
			if msg.resp.FetchedAt > 0 {
				m.lastUpdate = time.Unix(msg.resp.FetchedAt, 0).Local().Format("15:04:05")
			} else {
				m.lastUpdate = "never"
			}
		}
		return m, tick(m.interval)
	}

	return m, nil
}

func (m model) View() string {
	var b []byte
	out := func(s string) { b = append(b, s...) }

	out(titleStyle.Render("✈  Corridor Watch") + "\n")

	if m.err != nil {
		out(errStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n")
	}

	out(headerStyle.Render(fmt.Sprintf("%-8s %-9s %9s %10s %8s %7s %5s  %s",
		"ICAO24", "CALLSIGN", "LAT", "LON", "ALT(m)", "SPD", "HDG", "ROUTE")) + "\n")

	if len(m.flights) == 0 {
		out(rowStyle.Render("  no matched aircraft in the corridor") + "\n")
	}

	for _, f := range m.flights {
		callsign := f.Callsign
		if callsign == "" {
			callsign = "-"
		}
		out(rowStyle.Render(fmt.Sprintf("%-8s %-9s %9.4f %10.4f %8.0f %7.0f %5.0f  ",
			f.ICAO24, callsign, f.Latitude, f.Longitude, f.Altitude, f.GroundSpeed, f.Heading)))
		out(matchStyle.Render(routeSummary(f)) + "\n")
	}

	status := fmt.Sprintf("%d aircraft | feed updated %s | q quit, r refresh", len(m.flights), m.lastUpdate)
	out(statusStyle.Render(status) + "\n")

	return string(b)
}

// routeSummary renders the first matched history record as DEP→ARR.
func routeSummary(f flightRow) string {
	if len(f.MatchedFlights) == 0 {
		return ""
	}
	m := f.MatchedFlights[0]
	dep, arr := "????", "????"
	if m.EstDepartureAirport != nil {
		dep = *m.EstDepartureAirport
	}
	if m.EstArrivalAirport != nil {
		arr = *m.EstArrivalAirport
	}
	s := dep + " > " + arr
	if len(f.MatchedFlights) > 1 {
		s += fmt.Sprintf(" (+%d)", len(f.MatchedFlights)-1)
	}
	return s
}

func main() {
	flag.Parse()

	m := model{
		client:   &http.Client{Timeout: 10 * time.Second},
		url:      *serverURL,
		interval: *interval,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
