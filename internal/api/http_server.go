package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"heritageblade/internal/config"
	"heritageblade/internal/metrics"
	"heritageblade/internal/telemetry"

	"github.com/rs/zerolog"
)

// ReadyFunc reports whether the server can serve traffic.
type ReadyFunc func(ctx context.Context) error

// HTTPServer serves the JSON API, health checks and the web pages.
type HTTPServer struct {
	cfg    config.HTTPConfig
	server *http.Server
	logger *zerolog.Logger
}

// NewHTTPServer mounts the API through the adapter named by cfg.Transport.
// web may be nil when only the API is served.
func NewHTTPServer(cfg config.HTTPConfig, h *Handler, web http.Handler, ready ReadyFunc, logger *zerolog.Logger) *HTTPServer {
	srvLogger := logger.With().Str("component", "http").Logger()

	var api http.Handler
	switch cfg.Transport {
	case config.TransportEcho:
		api = NewEchoRouter(h, &srvLogger)
	default:
		api = NewMux(h)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", api)
	mux.HandleFunc("/healthz", handleHealthz)
	mux.HandleFunc("/readyz", handleReadyz(ready, &srvLogger))
	if web != nil {
		mux.Handle("/", web)
	}

	handler := telemetry.WrapHandler(loggingMiddleware(mux, &srvLogger), "http")

	return &HTTPServer{
		cfg:    cfg,
		logger: &srvLogger,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Str("transport", s.cfg.Transport).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReadyz(ready ReadyFunc, logger *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				logger.Warn().Err(err).Msg("readiness check failed")
				writeError(w, http.StatusServiceUnavailable, "not ready")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func loggingMiddleware(next http.Handler, logger *zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		metrics.ObserveHTTP(routeLabel(r.URL.Path), r.Method, recorder.status, dur)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

// routeLabel collapses ids so metric label cardinality stays bounded.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/customers/"):
		return "/api/customers/:id"
	case strings.HasPrefix(path, "/admin/customers/"):
		return "/admin/customers/:id"
	}

	switch path {
	case "/", "/book", "/admin", "/admin/customers",
		"/api/bookings", "/api/bookings/export", "/api/customers",
		"/healthz", "/readyz":
		return path
	}
	if strings.HasPrefix(path, "/static/") {
		return "/static"
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
