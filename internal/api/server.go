package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rodriseer/surfseer/internal/observability"
)

// Server is the REST API server.
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
	logger     *slog.Logger
}

// NewServer creates a new API server with all routes registered.
func NewServer(svc ForecastService, metrics *observability.Metrics, logger *slog.Logger) *Server {
	h := &Handlers{
		Service:   svc,
		Logger:    logger,
		StartTime: time.Now(),
	}

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/v1/spots", h.ListSpots)
	apiMux.HandleFunc("GET /api/v1/spots/{spot_id}", h.GetSpot)
	apiMux.HandleFunc("GET /api/v1/spots/{spot_id}/forecast", h.GetForecast)
	apiMux.HandleFunc("GET /api/v1/spots/{spot_id}/outlook", h.GetOutlook)
	apiMux.HandleFunc("GET /api/v1/spots/{spot_id}/tide", h.GetTide)
	apiMux.HandleFunc("GET /api/v1/forecast", h.GetDefaultForecast)
	apiMux.HandleFunc("GET /api/v1/health", h.Health)

	// The live endpoint upgrades the connection and /metrics writes the
	// Prometheus text format; neither may carry the JSON content type, so
	// both register on the outer mux. The live pattern is more specific
	// than the /api/ prefix and takes precedence.
	mux := http.NewServeMux()
	mux.Handle("/api/", ContentType(apiMux))
	mux.HandleFunc("GET /api/v1/spots/{spot_id}/live", h.LiveReport)
	if metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	}

	// Apply middleware (outermost runs first).
	var handler http.Handler = mux
	handler = SecurityHeaders(handler)
	handler = CORS("")(handler) // Empty string disables CORS headers.
	handler = Logger(logger)(handler)
	handler = RequestID(handler)
	handler = Recovery(logger)(handler)

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // live streams stay open indefinitely
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, handlers: h, logger: logger}
}

// ListenAndServe starts the HTTP server. Blocks until context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer.Addr = addr
	s.logger.Info("api server starting", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the composed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// SetVersion sets the version string for the health endpoint.
func (s *Server) SetVersion(v string) { s.handlers.Version = v }
