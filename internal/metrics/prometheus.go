package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/RealistikOsu/FastStreamDB/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request metrics
	PacketsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsdb_packets_handled_total",
		Help: "Client packets handled, by packet type",
	}, []string{"type"})

	ProtocolErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fsdb_protocol_errors_total",
		Help: "Connections dropped due to protocol errors",
	})

	// Enqueue/drain metrics
	EnqueuedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsdb_enqueued_bytes_total",
		Help: "Enqueue payload bytes received, by enqueue operation (multiple counts the payload once per listed id)",
	}, []string{"op"})

	DrainedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fsdb_drained_bytes_total",
		Help: "Bytes handed to clients by drain operations",
	})

	// Stream lifecycle metrics
	StreamsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fsdb_streams_active",
		Help: "Streams currently live in the registry",
	})

	StreamsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fsdb_streams_expired_total",
		Help: "Streams removed by the idle sweeper",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fsdb_sweep_duration_seconds",
		Help:    "Time spent in one idle sweep pass",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1},
	})

	// Connection metrics
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fsdb_connections_active",
		Help: "Client connections currently open",
	})

	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fsdb_connections_total",
		Help: "Client connections accepted since startup",
	})
)

// RunServer starts the Prometheus metrics HTTP server.
func RunServer(ctx context.Context, cfg config.MetricsConfig) error {
	mux := http.NewServeMux()
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux.Handle(path, promhttp.Handler())

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
