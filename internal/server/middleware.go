package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// logRequests logs every request at debug level once it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
			"client_ip", getClientIP(r))
	})
}

// requestSizeLimit caps request bodies at server.maxRequestSize.
func (s *Server) requestSizeLimit(next http.Handler) http.Handler {
	limit := s.cfg.Server.MaxRequestSize
	if limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > limit {
			s.writeError(w, "Request too large", "Request body exceeds the allowed size", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

// authenticate requires a configured API key via X-API-Key or a bearer
// token. It passes everything through when no keys are configured.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.apiKeys) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		if apiKey == "" {
			s.writeError(w, "Authentication required", "API key required", http.StatusUnauthorized)
			return
		}
		if !s.apiKeys[apiKey] {
			s.logger.Warn("Invalid API key attempt",
				"api_key", maskAPIKey(apiKey),
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			s.writeError(w, "Authentication failed", "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimit rejects requests over the per-key budget.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := s.limiter.Key(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		if !s.limiter.Allow(key) {
			s.logger.Info("Rate limit exceeded",
				"key", maskAPIKey(key),
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			s.metrics.RecordRateLimitHit(r.Context(), r.URL.Path)
			w.Header().Set("Retry-After", s.limiter.RetryAfter())
			s.writeError(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// corsHandler opens the JSON API to the configured origins.
func (s *Server) corsHandler() func(http.Handler) http.Handler {
	c := s.cfg.Server.CORS
	return cors.Handler(cors.Options{
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           c.MaxAge,
	})
}

func requestAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// maskAPIKey keeps the first 8 characters for log correlation.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "****"
}
