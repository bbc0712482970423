// Package opensky provides a client for the OpenSky Network REST API.
//
// Two endpoints are used: /states/all for live state vectors inside a
// bounding box, and /flights/aircraft for an aircraft's recent flight
// segments. Anonymous access works with reduced rate limits and history
// depth; HTTP basic credentials are attached when configured.
//
// API documentation: https://openskynetwork.github.io/opensky-api/rest.html
package opensky

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public OpenSky REST endpoint.
	DefaultBaseURL = "https://opensky-network.org/api"

	// DefaultTimeout bounds every request; there is no unbounded wait.
	DefaultTimeout = 15 * time.Second
)

// BoundingBox narrows a /states/all query server-side. It is a payload and
// rate-limit optimization only; callers must still filter authoritatively.
type BoundingBox struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
}

// Config contains configuration for the OpenSky client.
type Config struct {
	// BaseURL overrides the API endpoint (used by tests)
	BaseURL string

	// Username/Password enable authenticated access. Both empty means
	// anonymous mode.
	Username string
	Password string

	// Timeout per request (default: DefaultTimeout)
	Timeout time.Duration

	// RequestsPerSecond caps the client-side call rate (default: 1.0).
	// Anonymous OpenSky access allows roughly 1 request per 10 seconds
	// on the states endpoint; keep this conservative in production.
	RequestsPerSecond float64
}

// Client is a rate-limited OpenSky API client. Safe for concurrent use.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates an OpenSky client from cfg, applying defaults for any
// zero fields.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 1.0
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// Authenticated reports whether credentials are configured.
func (c *Client) Authenticated() bool {
	return c.username != ""
}

// States returns the live state vectors, optionally narrowed to bbox.
// Vectors without a position fix are returned as-is; filtering is the
// caller's responsibility.
func (c *Client) States(ctx context.Context, bbox *BoundingBox) ([]StateVector, error) {
	q := url.Values{}
	if bbox != nil {
		q.Set("lamin", formatCoord(bbox.LatMin))
		q.Set("lamax", formatCoord(bbox.LatMax))
		q.Set("lomin", formatCoord(bbox.LonMin))
		q.Set("lomax", formatCoord(bbox.LonMax))
	}

	var resp statesResponse
	if err := c.get(ctx, "/states/all", q, &resp); err != nil {
		return nil, err
	}
	return resp.States, nil
}

// FlightsByAircraft returns the flight segments for one aircraft within
// [begin, end]. An upstream 404 means no data for that aircraft and yields
// an empty slice, not an error.
func (c *Client) FlightsByAircraft(ctx context.Context, icao24 string, begin, end time.Time) ([]Flight, error) {
	q := url.Values{}
	q.Set("icao24", icao24)
	q.Set("begin", strconv.FormatInt(begin.Unix(), 10))
	q.Set("end", strconv.FormatInt(end.Unix(), 10))

	var flights []Flight
	if err := c.get(ctx, "/flights/aircraft", q, &flights); err != nil {
		var ue *UpstreamError
		if errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return flights, nil
}

// get performs one rate-limited, authenticated GET and decodes the JSON
// body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return classifyStatus(resp, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Kind: KindFatal, Message: "malformed response", Err: err}
	}
	return nil
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
