package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"resumaker/internal/ai"
	"resumaker/internal/errors"
	"resumaker/internal/types"

	"github.com/go-chi/chi/v5"
)

const modelHealthTimeout = 10 * time.Second

// ResumeService is the generation capability the backend exposes.
type ResumeService interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelInfo(ctx context.Context) *ai.ModelInfo
	Stats() map[string]any
}

// Backend serves POST /api/generate-resume on top of a model provider.
type Backend struct {
	*Server
	service ResumeService
}

// NewBackend builds the generation backend server.
func NewBackend(opts Options, service ResumeService) *Backend {
	b := &Backend{
		Server:  newServer("resumaker-backend", opts.Config.Server.BackendPort, opts),
		service: service,
	}
	b.writeError = writeDetailResponse
	if c, ok := service.(interface{ Close() error }); ok {
		b.closers = append(b.closers, func() {
			if err := c.Close(); err != nil {
				b.logger.LogError(err, "Failed to close generation service")
			}
		})
	}
	b.routes()
	return b
}

func (b *Backend) routes() {
	r := b.newRouter()

	r.Get("/health", b.handleHealth)
	r.Get("/stats", b.handleStats)
	b.mountMetrics(r)

	r.Route("/api", func(r chi.Router) {
		r.Use(b.corsHandler())
		r.With(b.authenticate, b.rateLimit).Post("/generate-resume", b.handleGenerateResume)
	})

	b.finish(r)
}

// handleGenerateResume accepts {"prompt"} or the legacy {"userPrompt"}
// and answers {"resume"} or {"detail"}.
func (b *Backend) handleGenerateResume(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateResumeRequest
	if appErr, status := decodeJSON(r, &req); appErr != nil {
		writeDetailResponse(w, appErr.Code, appErr.Message, status)
		return
	}

	text, err := b.service.Generate(r.Context(), req.PromptText())
	if err != nil {
		writeDetailResponse(w, "", errors.UserMessage(err), generationStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, types.GenerateResumeResponse{Resume: text})
}

// generationStatus maps a generation failure to its HTTP status.
func generationStatus(err error) int {
	if errors.IsType(err, errors.ErrorTypeValidation) {
		return http.StatusBadRequest
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Code == errors.ErrCodeAIUnavailable {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func (b *Backend) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), modelHealthTimeout)
	defer cancel()

	info := b.service.ModelInfo(ctx)
	response := map[string]any{
		"status":   "healthy",
		"service":  "resumaker-backend",
		"version":  b.version,
		"ai_model": info,
	}

	if info == nil || !info.Available {
		response["status"] = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (b *Backend) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"service":  "resumaker-backend",
		"version":  b.version,
		"provider": b.service.Stats(),
	}
	if b.limiter != nil {
		stats["rate_limiter"] = b.limiter.Stats()
	}
	if b.certs != nil {
		stats["tls_auto_reload"] = b.certs.Watching()
	}
	writeJSON(w, http.StatusOK, stats)
}
