package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"resumaker/internal/config"
	"resumaker/internal/errors"
	"resumaker/internal/observability"
	"resumaker/internal/resilience"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// OpenAIProvider generates résumés through the OpenAI chat completions
// API or any compatible endpoint.
type OpenAIProvider struct {
	client       *openai.Client
	config       config.AIConfig
	systemPrompt string
	breaker      *resilience.CircuitBreaker[openai.ChatCompletionResponse]
	logger       *errors.Logger
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates an OpenAI client. cfg.BaseURL, when set,
// points it at a compatible server.
func NewOpenAIProvider(cfg config.AIConfig, logger *errors.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey, "OpenAI API key is required", nil)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(clientConfig),
		config:       cfg,
		systemPrompt: resolveSystemPrompt(cfg.SystemPrompt),
		breaker:      resilience.New[openai.ChatCompletionResponse]("openai", cfg.CircuitBreaker, logger),
		logger:       logger,
	}, nil
}

// Generate writes a résumé for the described person.
func (o *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, *observability.TokenUsage, error) {
	ctx, span := otel.Tracer("resumaker.ai.openai").Start(ctx, "openai.generate_resume")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", o.config.Model),
		attribute.Int("input.prompt_length", len(prompt)),
	)

	req := openai.ChatCompletionRequest{
		Model: o.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(prompt)},
		},
		Temperature: o.config.Temperature,
		MaxTokens:   int(o.config.MaxOutputTokens),
	}

	resp, err := o.breaker.Execute(func() (openai.ChatCompletionResponse, error) {
		return executeWithRetry(ctx, o.logger, "openai.generate_resume", o.config.MaxRetries, func() (openai.ChatCompletionResponse, error) {
			return o.client.CreateChatCompletion(ctx, req)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, errors.NewAIError(errors.ErrCodeAIEmptyResponse, errors.MsgGenerationFailed,
			fmt.Errorf("openai returned no content"))
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	usage := &observability.TokenUsage{
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
		TotalTokens:  int64(resp.Usage.TotalTokens),
	}
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("output.resume_length", len(text)),
	)
	return text, usage, nil
}

// ModelInfo checks that the configured model exists.
func (o *OpenAIProvider) ModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Provider: "openai", Name: o.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := o.client.GetModel(checkCtx, o.config.Model)
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		o.logger.Warn("Model availability check failed",
			"model", o.config.Model,
			"provider", "openai",
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.ID
	return info
}

// Stats reports circuit breaker state.
func (o *OpenAIProvider) Stats() map[string]any {
	return map[string]any{
		"provider":        "openai",
		"model":           o.config.Model,
		"circuit_breaker": o.breaker.Stats(),
		"healthy":         o.breaker.IsHealthy(),
	}
}

// Close is a no-op.
func (o *OpenAIProvider) Close() error {
	return nil
}
