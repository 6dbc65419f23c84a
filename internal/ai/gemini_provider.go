package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"resumaker/internal/config"
	"resumaker/internal/errors"
	"resumaker/internal/observability"
	"resumaker/internal/resilience"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

const modelCheckTimeout = 10 * time.Second

// GeminiProvider generates résumés with Google Gemini.
type GeminiProvider struct {
	client       *genai.Client
	config       config.AIConfig
	systemPrompt string
	breaker      *resilience.CircuitBreaker[*genai.GenerateContentResponse]
	logger       *errors.Logger
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini client. cfg.BaseURL, when set,
// overrides the API endpoint.
func NewGeminiProvider(cfg config.AIConfig, logger *errors.Logger) (*GeminiProvider, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:       client,
		config:       cfg,
		systemPrompt: resolveSystemPrompt(cfg.SystemPrompt),
		breaker:      resilience.New[*genai.GenerateContentResponse]("gemini", cfg.CircuitBreaker, logger),
		logger:       logger,
	}, nil
}

// Generate writes a résumé for the described person.
func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (string, *observability.TokenUsage, error) {
	ctx, span := otel.Tracer("resumaker.ai.gemini").Start(ctx, "gemini.generate_resume")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Int("input.prompt_length", len(prompt)),
	)

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.systemPrompt, genai.RoleUser),
	}
	if g.config.Temperature > 0 {
		genConfig.Temperature = genai.Ptr(g.config.Temperature)
	}
	if g.config.MaxOutputTokens > 0 {
		genConfig.MaxOutputTokens = g.config.MaxOutputTokens
	}

	result, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return executeWithRetry(ctx, g.logger, "gemini.generate_resume", g.config.MaxRetries, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(buildUserPrompt(prompt)), genConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, err
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, errors.NewAIError(errors.ErrCodeAIEmptyResponse, errors.MsgGenerationFailed,
			fmt.Errorf("gemini returned no text"))
	}

	usage := geminiTokenUsage(result)
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("output.resume_length", len(text)),
	)
	return text, usage, nil
}

// ModelInfo checks that the configured model exists.
func (g *GeminiProvider) ModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Provider: "gemini", Name: g.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", "gemini",
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	return info
}

// Stats reports circuit breaker state.
func (g *GeminiProvider) Stats() map[string]any {
	return map[string]any{
		"provider":        "gemini",
		"model":           g.config.Model,
		"circuit_breaker": g.breaker.Stats(),
		"healthy":         g.breaker.IsHealthy(),
	}
}

// Close is a no-op; the genai client holds no resources in unary mode.
func (g *GeminiProvider) Close() error {
	return nil
}

func geminiTokenUsage(result *genai.GenerateContentResponse) *observability.TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}
	usage := result.UsageMetadata
	return &observability.TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
