package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Poll.IntervalSeconds != 20 {
		t.Errorf("Expected default poll interval 20s, got %d", cfg.Poll.IntervalSeconds)
	}
	if cfg.Poll.HistoryWindowHours != 6 {
		t.Errorf("Expected default history window 6h, got %d", cfg.Poll.HistoryWindowHours)
	}
	if cfg.Poll.MaxCandidates != 120 {
		t.Errorf("Expected default candidate cap 120, got %d", cfg.Poll.MaxCandidates)
	}
	if cfg.Poll.FailureThreshold != 3 {
		t.Errorf("Expected default failure threshold 3, got %d", cfg.Poll.FailureThreshold)
	}
	if len(cfg.Poll.TargetAirports) != 6 {
		t.Errorf("Expected 6 default target airports, got %d", len(cfg.Poll.TargetAirports))
	}
	if len(cfg.Airspace.Vertices) < 3 {
		t.Errorf("Expected a usable default polygon, got %d vertices", len(cfg.Airspace.Vertices))
	}
	if cfg.Database.Enabled {
		t.Error("Expected database archiving disabled by default")
	}
	if cfg.Database.RetentionHours != 168 {
		t.Errorf("Expected one-week default retention, got %d hours", cfg.Database.RetentionHours)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got error: %v", err)
	}
	if cfg.Poll.IntervalSeconds != 20 {
		t.Errorf("Expected default config, got interval %d", cfg.Poll.IntervalSeconds)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	data := `{
		"server": {"port": "9090"},
		"poll": {
			"interval_seconds": 45,
			"target_airports": ["LLBG", "LLIA"]
		},
		"opensky": {"username": "watcher"}
	}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Poll.IntervalSeconds != 45 {
		t.Errorf("Expected interval 45, got %d", cfg.Poll.IntervalSeconds)
	}
	if len(cfg.Poll.TargetAirports) != 2 {
		t.Errorf("Expected airport list replaced, got %v", cfg.Poll.TargetAirports)
	}
	if cfg.OpenSky.Username != "watcher" {
		t.Errorf("Expected username watcher, got %s", cfg.OpenSky.Username)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Poll.HistoryWindowHours != 6 {
		t.Errorf("Expected default history window preserved, got %d", cfg.Poll.HistoryWindowHours)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed config file")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("OPENSKY_USERNAME", "envuser")
	t.Setenv("OPENSKY_PASSWORD", "envpass")
	t.Setenv("POLL_INTERVAL", "30")
	t.Setenv("RECENT_WINDOW_HOURS", "12")
	t.Setenv("MAX_AIRCRAFT_TO_QUERY", "50")
	t.Setenv("CORRIDORWATCH_JWT_SECRET", "env-secret")

	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Server.Port != "3000" {
		t.Errorf("Expected PORT override, got %s", cfg.Server.Port)
	}
	if cfg.OpenSky.Username != "envuser" || cfg.OpenSky.Password != "envpass" {
		t.Error("Expected OpenSky credential overrides")
	}
	if cfg.Poll.IntervalSeconds != 30 {
		t.Errorf("Expected POLL_INTERVAL override, got %d", cfg.Poll.IntervalSeconds)
	}
	if cfg.Poll.HistoryWindowHours != 12 {
		t.Errorf("Expected RECENT_WINDOW_HOURS override, got %d", cfg.Poll.HistoryWindowHours)
	}
	if cfg.Poll.MaxCandidates != 50 {
		t.Errorf("Expected MAX_AIRCRAFT_TO_QUERY override, got %d", cfg.Poll.MaxCandidates)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Error("Expected JWT secret override")
	}
}

func TestEnvironmentOverridesIgnoreGarbage(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "not-a-number")
	t.Setenv("MAX_AIRCRAFT_TO_QUERY", "-5")

	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.Poll.IntervalSeconds != 20 {
		t.Errorf("Expected unparseable interval ignored, got %d", cfg.Poll.IntervalSeconds)
	}
	if cfg.Poll.MaxCandidates != 120 {
		t.Errorf("Expected non-positive cap ignored, got %d", cfg.Poll.MaxCandidates)
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Server.Port = "8181"
	cfg.Airspace.Name = "TestRegion"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Expected no error saving, got: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error loading, got: %v", err)
	}
	if loaded.Server.Port != "8181" {
		t.Errorf("Expected port 8181 after reload, got %s", loaded.Server.Port)
	}
	if loaded.Airspace.Name != "TestRegion" {
		t.Errorf("Expected airspace name preserved, got %s", loaded.Airspace.Name)
	}
}
