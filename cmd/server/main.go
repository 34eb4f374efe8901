// Package main runs the signal engine as a long-lived service:
// - Window processing (scheduled): detection → correlation → scoring → emission
// - Persistence: signals to PostgreSQL, raw windows to ClickHouse
// - Egress: WebSocket stream of emitted batches, Prometheus metrics
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
	"strings"
	"sync"
	"syscall"
	"time"

	"signal-lab/internal/correlation"
	"signal-lab/internal/detection"
	"signal-lab/internal/engine"
	"signal-lab/internal/observability"
	"signal-lab/internal/storage"
	chstore "signal-lab/internal/storage/clickhouse"
	"signal-lab/internal/storage/memory"
	"signal-lab/internal/storage/migrations"
	pgstore "signal-lab/internal/storage/postgres"
	"signal-lab/internal/stream"
)

// Server holds all components of the service.
type Server struct {
	// Configuration
	windowInterval time.Duration
	windowPoints   int
	detectorBudget time.Duration

	// Components
	engine *engine.Engine
	hub    *stream.Hub
	logger *log.Logger

	// State
	mu            sync.Mutex
	lastWindowRun time.Time
	windowRunning bool
	started       time.Time

	// Stats
	windowRuns    int
	signalsTotal  int
	lastEmitted   int
	lastErrorText string
}

// serverStores holds the storage implementations.
type serverStores struct {
	signalStore    storage.SignalStore
	dataPointStore storage.DataPointStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	windowInterval := flag.Duration("window-interval", 1*time.Minute, "Window processing interval")
	windowPoints := flag.Int("window-points", 200, "Synthetic points per window")
	detectorBudget := flag.Duration("detector-budget", 30*time.Second, "Per-detector execution budget (0 disables)")
	mergeThreshold := flag.Float64("merge-threshold", 0.8, "Correlation merge threshold")
	relateThreshold := flag.Float64("relate-threshold", 0.5, "Correlation relate threshold")
	addr := flag.String("addr", ":8080", "HTTP address for /health, /status, /metrics, /ws")
	verbose := flag.Bool("verbose", false, "Verbose pipeline logging")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Create stream hub
	hub := stream.NewHub(nil)
	defer hub.Close()

	// Create engine
	coordinator := detection.NewCoordinator(
		detection.NewStatisticalDetector(detection.StatisticalConfig{}),
		detection.NewPatternDetector(detection.PatternConfig{}, nil),
	).WithBudget(*detectorBudget).WithVerbose(*verbose)

	eng := engine.New(engine.Options{
		Coordinator: coordinator,
		Correlation: correlation.Config{
			MergeThreshold:  *mergeThreshold,
			RelateThreshold: *relateThreshold,
		},
		SignalStore:    stores.signalStore,
		DataPointStore: stores.dataPointStore,
		Broadcaster:    hub,
		Verbose:        *verbose,
	})

	server := &Server{
		windowInterval: *windowInterval,
		windowPoints:   *windowPoints,
		detectorBudget: *detectorBudget,
		engine:         eng,
		hub:            hub,
		logger:         logger,
		started:        time.Now(),
	}

	// Handle shutdown signals
	done := make(chan error, 1)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*addr)

	// Run window scheduler
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the required stores, applying migrations for the
// database-backed configuration.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*serverStores, func(), error) {
	if useMemory {
		stores := &serverStores{
			signalStore:    memory.NewSignalStore(),
			dataPointStore: memory.NewDataPointStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("apply clickhouse migrations: %w", err)
	}

	stores := &serverStores{
		signalStore:    pgstore.NewSignalStore(pool),
		dataPointStore: chstore.NewDataPointStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run processes windows on the configured interval until the context ends.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("Starting window scheduler (interval: %v, points: %d)...", s.windowInterval, s.windowPoints)

	// Run immediately on start
	s.runWindow(ctx)

	ticker := time.NewTicker(s.windowInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runWindow(ctx)
		}
	}
}

// runWindow processes one synthetic window through the engine.
func (s *Server) runWindow(ctx context.Context) {
	s.mu.Lock()
	if s.windowRunning {
		s.mu.Unlock()
		s.logger.Println("Window already processing, skipping...")
		return
	}
	s.windowRunning = true
	runs := s.windowRuns
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.windowRunning = false
		s.lastWindowRun = time.Now()
		s.windowRuns++
		s.mu.Unlock()
	}()

	start := time.Now()

	cfg := engine.DefaultFixtureConfig()
	cfg.Points = s.windowPoints
	cfg.Seed = int64(runs + 1)
	cfg.StartMs = time.Now().Add(-time.Duration(s.windowPoints) * time.Minute).UnixMilli()
	window := engine.SyntheticWindow(cfg)

	result, err := s.engine.ProcessWindow(ctx, window)
	if err != nil {
		s.logger.Printf("Window error: %v", err)
		s.mu.Lock()
		s.lastErrorText = err.Error()
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.signalsTotal += len(result.Emitted)
	s.lastEmitted = len(result.Emitted)
	if len(result.Errors) > 0 {
		s.lastErrorText = strings.Join(result.Errors, "; ")
	} else {
		s.lastErrorText = ""
	}
	s.mu.Unlock()

	s.logger.Printf("Window completed in %v: %d points, %d candidates, %d emitted",
		time.Since(start), result.Points, result.Candidates, len(result.Emitted))
}

// startHTTPServer starts the HTTP server for health/metrics/status/stream.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Signal stream
	mux.Handle("/ws", s.hub)

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	LastWindowRun time.Time `json:"last_window_run,omitempty"`
	WindowRuns    int       `json:"window_runs"`
	WindowRunning bool      `json:"window_running"`
	SignalsTotal  int       `json:"signals_total"`
	LastEmitted   int       `json:"last_emitted"`
	Subscribers   int       `json:"subscribers"`
	LastError     string    `json:"last_error,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).String(),
		LastWindowRun: s.lastWindowRun,
		WindowRuns:    s.windowRuns,
		WindowRunning: s.windowRunning,
		SignalsTotal:  s.signalsTotal,
		LastEmitted:   s.lastEmitted,
		LastError:     s.lastErrorText,
	}
	s.mu.Unlock()
	resp.Subscribers = s.hub.SubscriberCount()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
