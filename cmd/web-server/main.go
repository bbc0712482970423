// Corridor Watch Web Server
// Polls the OpenSky feed in the background and serves the latest snapshot
// of matched aircraft over a REST API + WebSocket endpoint.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/adembek/corridorwatch/internal/auth"
	"github.com/adembek/corridorwatch/internal/db"
	"github.com/adembek/corridorwatch/internal/tracker"
	"github.com/adembek/corridorwatch/pkg/airspace"
	"github.com/adembek/corridorwatch/pkg/config"
	"github.com/adembek/corridorwatch/pkg/opensky"
)

var (
	configPath = flag.String("config", "configs/config.json", "Path to configuration file")
)

// Server holds the HTTP server and its dependencies
type Server struct {
	router       *chi.Mux
	cache        *tracker.Cache
	scheduler    *tracker.Scheduler
	authSvc      *auth.Service
	metrics      *tracker.Metrics
	boundary     *airspace.Boundary
	archive      *db.SnapshotRepository
	upstreamAuth bool
	cfg          *config.Config
}

func main() {
	flag.Parse()

	log.Println("🚀 Starting Corridor Watch...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	boundary, err := airspace.NewBoundary(cfg.Airspace.Name, cfg.Airspace.Vertices)
	if err != nil {
		log.Fatalf("Invalid airspace polygon: %v", err)
	}

	client := opensky.NewClient(opensky.Config{
		BaseURL:           cfg.OpenSky.BaseURL,
		Username:          cfg.OpenSky.Username,
		Password:          cfg.OpenSky.Password,
		Timeout:           time.Duration(cfg.OpenSky.RequestTimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.OpenSky.RequestsPerSecond,
	})
	if client.Authenticated() {
		log.Printf("📡 OpenSky session: authenticated as %s", cfg.OpenSky.Username)
	} else {
		log.Println("📡 OpenSky session: anonymous (reduced history depth)")
	}

	// Optional snapshot archive
	var archive *db.SnapshotRepository
	var database *db.DB
	if cfg.Database.Enabled {
		database, err = db.Connect(cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := database.InitSchema(ctx); err != nil {
			cancel()
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		cancel()

		archive = db.NewSnapshotRepository(database)
		log.Println("✅ Snapshot archive enabled")
	}

	authSvc := auth.NewService(auth.Config{
		JWTSecret:            cfg.Auth.JWTSecret,
		TokenDuration:        time.Duration(cfg.Auth.TokenDurationHours) * time.Hour,
		OperatorUsername:     cfg.Auth.OperatorUsername,
		OperatorPasswordHash: cfg.Auth.OperatorPasswordHash,
	})

	cache := tracker.NewCache()
	metrics := tracker.NewMetrics()

	// A nil *SnapshotRepository must stay a nil interface.
	var archiver tracker.Archiver
	if archive != nil {
		archiver = archive
	}
	pipeline := tracker.NewPipeline(client, boundary, cache, metrics, archiver, tracker.PipelineConfig{
		HistoryWindow:  time.Duration(cfg.Poll.HistoryWindowHours) * time.Hour,
		MaxCandidates:  cfg.Poll.MaxCandidates,
		TargetAirports: cfg.Poll.TargetAirports,
		Retry:          opensky.DefaultRetryConfig(),
	})
	scheduler := tracker.NewScheduler(pipeline, time.Duration(cfg.Poll.IntervalSeconds)*time.Second)

	schedCtx, stopScheduler := context.WithCancel(context.Background())
	go scheduler.Run(schedCtx)

	if database != nil {
		retention := time.Duration(cfg.Database.RetentionHours) * time.Hour
		go database.CleanupLoop(schedCtx, time.Hour, retention)
		log.Printf("🧹 Archive retention: %s", retention)
	}

	srv := &Server{
		router:       chi.NewRouter(),
		cache:        cache,
		scheduler:    scheduler,
		authSvc:      authSvc,
		metrics:      metrics,
		boundary:     boundary,
		archive:      archive,
		upstreamAuth: client.Authenticated(),
		cfg:          cfg,
	}
	srv.setupRoutes()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("📡 Server listening on http://%s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n👋 Shutting down server...")
	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped")
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Snapshot readers. These only ever touch the cache; the background
	// scheduler is the sole caller of the upstream feed.
	r.Get("/api/turkey-israel-flights", s.handleGetCorridorFlights)
	r.Get("/api/flights", s.handleGetFlightsSimple)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Get("/ws", s.handleWebSocket)

		// Operator-only routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/refresh", s.handleRefresh)
			r.Get("/snapshots", s.handleRecentSnapshots)
		})
	})
}

// Auth middleware
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing authorization header", http.StatusUnauthorized)
			return
		}

		var token string
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		} else {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		if _, err := s.authSvc.ValidateToken(token); err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleGetCorridorFlights returns the latest published snapshot verbatim.
// Before the first successful refresh, fetched_at is zero and results empty.
func (s *Server) handleGetCorridorFlights(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.Read()
	if snap == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"fetched_at":    0,
			"count":         0,
			"results":       []tracker.TrackedFlight{},
			"authenticated": s.upstreamAuth,
		})
		return
	}

	results := snap.Flights
	if results == nil {
		results = []tracker.TrackedFlight{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"fetched_at":    snap.FetchedAt.Unix(),
		"count":         len(results),
		"results":       results,
		"authenticated": snap.Authenticated,
	})
}

// simpleFlight is the reduced projection served on /api/flights.
type simpleFlight struct {
	ICAO     string  `json:"icao"`
	Callsign string  `json:"callsign"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Altitude float64 `json:"altitude"`
	Speed    float64 `json:"speed"`
	Heading  float64 `json:"heading"`
}

// handleGetFlightsSimple serves a position-only projection of the same
// snapshot, plus the monitored bounding box for map-less consumers.
func (s *Server) handleGetFlightsSimple(w http.ResponseWriter, r *http.Request) {
	latMin, latMax, lonMin, lonMax := s.boundary.BoundingBox()
	bounds := map[string]float64{
		"lat_min": latMin, "lat_max": latMax,
		"lon_min": lonMin, "lon_max": lonMax,
	}

	snap := s.cache.Read()
	flights := []simpleFlight{}
	var lastUpdate interface{}
	if snap != nil {
		lastUpdate = snap.FetchedAt.Unix()
		for _, f := range snap.Flights {
			flights = append(flights, simpleFlight{
				ICAO:     f.ICAO24,
				Callsign: f.Callsign,
				Lat:      f.Latitude,
				Lon:      f.Longitude,
				Altitude: f.Altitude,
				Speed:    f.GroundSpeed,
				Heading:  f.Heading,
			})
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"flights":     flights,
		"count":       len(flights),
		"last_update": lastUpdate,
		"bounds":      bounds,
	})
}

// handleHealth reports service health. The service is degraded when the
// refresh pipeline has failed several times in a row; stale data keeps
// serving but readers deserve to know.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.cache.Status()

	status := "ok"
	httpStatus := http.StatusOK
	if st.ConsecutiveFailures > s.cfg.Poll.FailureThreshold {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	body := map[string]interface{}{
		"status":               status,
		"auth_configured":      s.upstreamAuth,
		"consecutive_failures": st.ConsecutiveFailures,
		"cached_flights":       st.FlightCount,
	}
	if st.HasSnapshot {
		body["last_fetch"] = st.FetchedAt.Unix()
	} else {
		body["last_fetch"] = nil
	}
	if st.LastError != "" {
		body["last_error"] = st.LastError
	}

	respondJSON(w, httpStatus, body)
}

// handleLogin authenticates the operator and issues a token for the
// refresh endpoint.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := s.authSvc.Authenticate(req.Username, req.Password)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
	})
}

// handleRefresh requests an out-of-band refresh cycle. The request is
// queued for the scheduler, never executed inline, so a burst of refresh
// calls cannot hammer the upstream.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	queued := s.scheduler.ForceRefresh()
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"queued":  queued,
	})
}

// handleRecentSnapshots lists recent archived snapshot metadata. Only
// available when the archive is enabled.
func (s *Server) handleRecentSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "Snapshot archive is not enabled", http.StatusNotFound)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}

	records, err := s.archive.RecentSnapshots(r.Context(), limit)
	if err != nil {
		log.Printf("Error listing archived snapshots: %v", err)
		http.Error(w, "Failed to list snapshots", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []db.SnapshotRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": records,
		"count":     len(records),
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
