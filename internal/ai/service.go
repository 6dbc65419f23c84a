package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"resumaker/internal/config"
	"resumaker/internal/errors"
	"resumaker/internal/observability"
	"resumaker/internal/resilience"
)

// Service generates résumés with the configured provider and records
// generation metrics. It satisfies client.Generator, so the CLI can use
// it in place of a remote backend.
type Service struct {
	Provider Provider
	metrics  *observability.Metrics
	logger   *errors.Logger
}

// NewService creates the provider named by cfg.Provider.
func NewService(cfg config.AIConfig, metrics *observability.Metrics, logger *errors.Logger) (*Service, error) {
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"temperature", cfg.Temperature,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries)

	var provider Provider
	var err error
	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, logger)
	case "openai":
		provider, err = NewOpenAIProvider(cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to create AI provider", err)
	}

	return NewServiceWithProvider(provider, metrics, logger), nil
}

// NewServiceWithProvider wraps an existing provider.
func NewServiceWithProvider(provider Provider, metrics *observability.Metrics, logger *errors.Logger) *Service {
	if metrics == nil {
		metrics = &observability.Metrics{}
	}
	return &Service{Provider: provider, metrics: metrics, logger: logger}
}

// Generate returns résumé text for prompt. Errors are *errors.AppError
// values whose Message can be shown to the user.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.NewValidationError(errors.ErrCodeEmptyPrompt, errors.MsgEmptyPrompt, nil)
	}

	var text string
	err := s.metrics.TrackGeneration(ctx, "generate_resume", func(ctx context.Context) *observability.GenerationResult {
		var usage *observability.TokenUsage
		var genErr error
		text, usage, genErr = s.Provider.Generate(ctx, prompt)
		return &observability.GenerationResult{Error: genErr, TokenUsage: usage}
	})
	if err != nil {
		appErr := classify(err)
		s.logger.LogError(appErr, "Resume generation failed", "prompt_length", len(prompt))
		return "", appErr
	}

	s.metrics.RecordResumeSize(ctx, len(text))
	s.logger.Info("Resume generated", "prompt_length", len(prompt), "resume_length", len(text))
	return text, nil
}

// ModelInfo reports provider readiness.
func (s *Service) ModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.ModelInfo(ctx)
}

// Stats reports provider state.
func (s *Service) Stats() map[string]any {
	return s.Provider.Stats()
}

// Close releases the provider.
func (s *Service) Close() error {
	return s.Provider.Close()
}

func classify(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	switch {
	case resilience.IsOpenError(err):
		return errors.NewAIError(errors.ErrCodeAIUnavailable, errors.MsgModelUnavailable, err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewAIError(errors.ErrCodeAITimeout, errors.MsgGenerationTimeout, err)
	default:
		return errors.NewAIError(errors.ErrCodeAIServiceFailed, errors.MsgGenerationFailed, err)
	}
}
