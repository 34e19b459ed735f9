package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	arbhttp "github.com/arbiterhq/arbiter/internal/adapter/http"
	arbotel "github.com/arbiterhq/arbiter/internal/adapter/otel"
	"github.com/arbiterhq/arbiter/internal/adapter/ristretto"
	"github.com/arbiterhq/arbiter/internal/adapter/ws"
	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/logger"
	"github.com/arbiterhq/arbiter/internal/middleware"
	"github.com/arbiterhq/arbiter/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"checkpoints_enabled", cfg.Checkpoint.Enabled,
		"default_threshold", cfg.Checkpoint.DefaultThreshold,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---
	cache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	metrics, err := arbotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Services ---
	hub := ws.NewHub()
	gate := service.NewGate(cfg.Checkpoint)
	scorer := service.NewScorer()
	calibration := service.NewCalibrationService(cfg.Calibration, gate)
	checkpoints := service.NewCheckpointService(gate, calibration, hub, metrics)
	janitor := service.NewJanitor(checkpoints, cfg.Retention)

	// --- HTTP ---
	handlers := &arbhttp.Handlers{
		Checkpoints: checkpoints,
		Calibration: calibration,
		Scorer:      scorer,
		Gate:        gate,
		BodyLimit:   cfg.Server.BodyLimitKB << 10,
	}

	r := chi.NewRouter()
	r.Use(arbhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(arbhttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Throttle(cfg.Server.MaxInFlight))
	r.Use(arbotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(middleware.Idempotency(cache, cfg.Idempotency.TTL))

	r.Get("/health", healthHandler(cfg, hub))
	r.Get("/ws", hub.HandleWS)
	arbhttp.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout: create requests legitimately block until an
		// operator acts, and /ws connections are long-lived.
		IdleTimeout: 120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	if janitor != nil {
		g.Go(func() error {
			return janitor.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// healthHandler reports service health and basic activity counters.
func healthHandler(cfg *config.Config, hub *ws.Hub) http.HandlerFunc {
	type healthStatus struct {
		Status             string `json:"status"`
		CheckpointsEnabled bool   `json:"checkpoints_enabled"`
		OperatorClients    int    `json:"operator_clients"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		status := healthStatus{
			Status:             "ok",
			CheckpointsEnabled: cfg.Checkpoint.Enabled,
			OperatorClients:    hub.ConnectionCount(),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
