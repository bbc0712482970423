// Package config loads the application configuration from a JSON file with
// environment-variable overrides. Configuration is read once at startup;
// runtime changes are not supported.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/adembek/corridorwatch/pkg/airspace"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `json:"server"`
	OpenSky  OpenSkyConfig  `json:"opensky"`
	Poll     PollConfig     `json:"poll"`
	Airspace AirspaceConfig `json:"airspace"`
	Database DatabaseConfig `json:"database"`
	Auth     AuthConfig     `json:"auth"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port string `json:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host"`
}

// OpenSkyConfig contains upstream feed settings.
type OpenSkyConfig struct {
	// BaseURL is the API endpoint (default: the public OpenSky API)
	BaseURL string `json:"base_url"`

	// Username/Password enable authenticated access. Leave empty for
	// anonymous mode; the flights endpoints have reduced history depth
	// without credentials.
	Username string `json:"username"`
	Password string `json:"password"`

	// RequestTimeoutSeconds bounds each upstream call (default: 15)
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`

	// RequestsPerSecond is the client-side rate cap (default: 1.0)
	RequestsPerSecond float64 `json:"requests_per_second"`
}

// PollConfig controls the background refresh pipeline.
type PollConfig struct {
	// IntervalSeconds between refresh cycles (default: 20)
	IntervalSeconds int `json:"interval_seconds"`

	// HistoryWindowHours is the flight-history look-back window (default: 6)
	HistoryWindowHours int `json:"history_window_hours"`

	// MaxCandidates caps how many aircraft are queried for history per
	// cycle, protecting the upstream from request bursts (default: 120)
	MaxCandidates int `json:"max_candidates"`

	// FailureThreshold is the consecutive-failure count past which
	// /health reports degraded (default: 3)
	FailureThreshold int `json:"failure_threshold"`

	// TargetAirports is the ICAO code set matched against flight history.
	// Matching is case-insensitive and exact (default: Israeli airports).
	TargetAirports []string `json:"target_airports"`
}

// AirspaceConfig describes the monitored region polygon.
type AirspaceConfig struct {
	// Name is a friendly identifier for the region
	Name string `json:"name"`

	// Vertices is the ordered polygon outline in lat/lon degrees.
	// The ring is closed automatically.
	Vertices []airspace.Vertex `json:"vertices"`
}

// DatabaseConfig contains the optional Postgres snapshot archive settings.
type DatabaseConfig struct {
	// Enabled turns snapshot archiving on. All other fields are ignored
	// when false.
	Enabled bool `json:"enabled"`

	// Host is the database server hostname
	Host string `json:"host"`

	// Port is the database server port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// Username for database authentication
	Username string `json:"username"`

	// Password for database authentication (prefer the environment override)
	Password string `json:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns"`

	// RetentionHours is how long archived snapshots are kept before the
	// periodic cleanup removes them (default: 168, one week)
	RetentionHours int `json:"retention_hours"`
}

// AuthConfig configures the operator account guarding the refresh trigger.
type AuthConfig struct {
	// JWTSecret signs operator tokens (prefer the environment override)
	JWTSecret string `json:"jwt_secret"`

	// TokenDurationHours is the token lifetime (default: 24)
	TokenDurationHours int `json:"token_duration_hours"`

	// OperatorUsername is the login name for the refresh endpoint
	OperatorUsername string `json:"operator_username"`

	// OperatorPasswordHash is the bcrypt hash of the operator password
	OperatorPasswordHash string `json:"operator_password_hash"`
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns the default configuration.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults: the public
// OpenSky endpoint, the Turkish-airspace box, and the Israeli airport set.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		OpenSky: OpenSkyConfig{
			BaseURL:               "https://opensky-network.org/api",
			RequestTimeoutSeconds: 15,
			RequestsPerSecond:     1.0,
		},
		Poll: PollConfig{
			IntervalSeconds:    20,
			HistoryWindowHours: 6,
			MaxCandidates:      120,
			FailureThreshold:   3,
			TargetAirports: []string{
				"LLBG", // Ben Gurion
				"LLIA", // Ramon
				"LLIB", // Ovda
				"LLHB", // Haifa
				"LLMZ", // Tel Aviv Sde Dov
				"LLES", // Eilat
			},
		},
		Airspace: AirspaceConfig{
			Name: "Turkey",
			Vertices: []airspace.Vertex{
				{Latitude: 35.0, Longitude: 25.0},
				{Latitude: 35.0, Longitude: 45.5},
				{Latitude: 42.5, Longitude: 45.5},
				{Latitude: 42.5, Longitude: 25.0},
			},
		},
		Database: DatabaseConfig{
			Enabled:        false,
			Host:           "localhost",
			Port:           5432,
			Database:       "corridorwatch",
			Username:       "corridorwatch",
			SSLMode:        "disable",
			MaxOpenConns:   25,
			MaxIdleConns:   5,
			RetentionHours: 168,
		},
		Auth: AuthConfig{
			TokenDurationHours: 24,
			OperatorUsername:   "operator",
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides.
// The OpenSky and poll variables keep the names the deployment already
// uses; secrets should come from the environment rather than the file.
// Unparseable numeric values are ignored.
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if username := os.Getenv("OPENSKY_USERNAME"); username != "" {
		c.OpenSky.Username = username
	}
	if password := os.Getenv("OPENSKY_PASSWORD"); password != "" {
		c.OpenSky.Password = password
	}
	if v, ok := envInt("POLL_INTERVAL"); ok {
		c.Poll.IntervalSeconds = v
	}
	if v, ok := envInt("RECENT_WINDOW_HOURS"); ok {
		c.Poll.HistoryWindowHours = v
	}
	if v, ok := envInt("MAX_AIRCRAFT_TO_QUERY"); ok {
		c.Poll.MaxCandidates = v
	}
	if dbPassword := os.Getenv("CORRIDORWATCH_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
	if secret := os.Getenv("CORRIDORWATCH_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if hash := os.Getenv("CORRIDORWATCH_OPERATOR_PASSWORD_HASH"); hash != "" {
		c.Auth.OperatorPasswordHash = hash
	}
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
