// Package server hosts the résumé UI and the bundled generation backend.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"resumaker/internal/config"
	"resumaker/internal/errors"
	"resumaker/internal/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 30 * time.Second

// errorWriter writes an error body in the format a router's clients expect.
type errorWriter func(w http.ResponseWriter, code, message string, status int)

// Server holds what the UI and backend routers share: limits, auth,
// observability and the listener lifecycle.
type Server struct {
	name    string
	version string
	addr    string

	cfg     *config.Config
	logger  *errors.Logger
	obs     *observability.Manager
	metrics *observability.Metrics

	// API Authentication
	apiKeys map[string]bool

	// Rate limiting
	limiter *LimiterManager

	certs      *CertReloader
	writeError errorWriter
	handler    http.Handler
	closers    []func()
}

// Options carries the dependencies shared by both servers.
type Options struct {
	Config        *config.Config
	Version       string
	Logger        *errors.Logger
	Observability *observability.Manager
}

func newServer(name, port string, opts Options) *Server {
	cfg := opts.Config

	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.Server.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var limiter *LimiterManager
	if cfg.Server.RateLimit.Enabled {
		limiter = NewLimiterManager(cfg.Server.RateLimit, opts.Logger)
	}

	return &Server{
		name:       name,
		version:    opts.Version,
		addr:       fmt.Sprintf("%s:%s", cfg.Server.Host, port),
		cfg:        cfg,
		logger:     opts.Logger.With("server", name),
		obs:        opts.Observability,
		metrics:    opts.Observability.Metrics(),
		apiKeys:    apiKeyMap,
		limiter:    limiter,
		writeError: writeErrorResponse,
	}
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// newRouter returns a chi router with the middleware every route gets.
func (s *Server) newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.requestSizeLimit)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, "Not found", "The requested resource does not exist", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, "Method not allowed", "Method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}

// mountMetrics serves Prometheus metrics on the router when they do not
// have a port of their own.
func (s *Server) mountMetrics(r chi.Router) {
	if s.obs == nil || s.cfg.Observability.Prometheus.Port != "" {
		return
	}
	if h := s.obs.MetricsHandler(); h != nil {
		r.Method(http.MethodGet, s.cfg.Observability.Prometheus.Endpoint, h)
	}
}

// finish wraps the router in otelhttp instrumentation.
func (s *Server) finish(r chi.Router) {
	s.handler = s.obs.HTTPMiddleware(s.name)(r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.addr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	if err := s.configureTLS(httpServer); err != nil {
		return err
	}

	s.displayServerInfo(httpServer)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server",
			"address", httpServer.Addr,
			"tls_enabled", httpServer.TLSConfig != nil)

		var err error
		if httpServer.TLSConfig != nil {
			// certificates are served by TLSConfig.GetCertificate
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.Close()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.shutdown(httpServer)
	}
}

func (s *Server) shutdown(httpServer *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server...")
	err := httpServer.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		s.logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return httpServer.Close()
	}

	s.logger.Info("Server shutdown completed successfully")
	return nil
}

// Close releases background workers. Safe to call more than once.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.certs != nil {
		if err := s.certs.Close(); err != nil {
			s.logger.LogError(err, "Failed to stop certificate reloader")
		}
	}
	for _, c := range s.closers {
		c()
	}
	s.closers = nil
}
