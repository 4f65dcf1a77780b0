package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/RealistikOsu/FastStreamDB/internal/config"
)

// HealthStatus represents the overall health state.
type HealthStatus struct {
	OK      bool  `json:"ok"`
	Streams int   `json:"streams"`
	Bytes   int64 `json:"buffered_bytes"`
}

// StreamStats is the view of the registry the health checker needs.
type StreamStats interface {
	Stats() (streams int, bufferedBytes int64)
}

// HealthChecker runs health probes.
type HealthChecker struct {
	stats StreamStats
}

// NewHealthChecker creates a new health checker.
func NewHealthChecker(stats StreamStats) *HealthChecker {
	return &HealthChecker{stats: stats}
}

// Liveness checks if the process is alive.
func (h *HealthChecker) Liveness() HealthStatus {
	return HealthStatus{OK: true}
}

// Readiness checks if the service can handle requests. The store is purely
// in-memory, so readiness is reachability plus current registry stats.
func (h *HealthChecker) Readiness() HealthStatus {
	status := HealthStatus{OK: true}
	if h.stats != nil {
		status.Streams, status.Bytes = h.stats.Stats()
	}
	return status
}

// RunHealthServer starts the health check HTTP server.
func RunHealthServer(ctx context.Context, cfg config.HealthConfig, checker *HealthChecker) error {
	mux := http.NewServeMux()

	livenessPath := cfg.LivenessPath
	if livenessPath == "" {
		livenessPath = "/healthz"
	}
	readinessPath := cfg.ReadinessPath
	if readinessPath == "" {
		readinessPath = "/readyz"
	}

	mux.HandleFunc(livenessPath, func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness())
	})
	mux.HandleFunc(readinessPath, func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Readiness())
	})

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeHealth(w http.ResponseWriter, status HealthStatus) {
	code := http.StatusOK
	if !status.OK {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
