package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics server timeout constants.
const (
	// DefaultReadHeaderTimeout limits how long the server waits for request headers.
	DefaultReadHeaderTimeout = 5 * time.Second

	// DefaultShutdownTimeout limits how long Stop waits for in-flight scrapes.
	DefaultShutdownTimeout = 5 * time.Second
)

// MetricsServer exposes the process Prometheus registry over HTTP.
type MetricsServer struct {
	server *http.Server
	logger Logger
}

// NewMetricsServer creates a metrics server listening on addr.
func NewMetricsServer(addr string, logger Logger) *MetricsServer {
	if logger == nil {
		logger = NopLogger()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
		},
		logger: logger,
	}
}

// Start begins serving in a background goroutine.
func (s *MetricsServer) Start() {
	s.logger.Info("metrics server listening",
		String("addr", s.server.Addr),
	)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", Error(err))
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *MetricsServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
