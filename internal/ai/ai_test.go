package ai

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"resumaker/internal/config"
	"resumaker/internal/errors"
	"resumaker/internal/observability"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

var testLogger = errors.NewLogger(slog.LevelDebug)

func init() {
	retryBaseDelay = time.Millisecond
}

func testAIConfig(provider, baseURL string) config.AIConfig {
	return config.AIConfig{
		Provider:   provider,
		Model:      "test-model",
		BaseURL:    baseURL,
		Timeout:    2 * time.Second,
		APIKey:     "test-key",
		MaxRetries: 2,
	}
}

func chatCompletion(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 34, "total_tokens": 46},
	}
}

func TestOpenAIProviderGenerate(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletion("**Skills**\n• Go\n"))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(testAIConfig("openai", srv.URL), testLogger)
	require.NoError(t, err)

	text, usage, err := p.Generate(context.Background(), "  backend engineer  ")
	require.NoError(t, err)
	assert.Equal(t, "**Skills**\n• Go", text)
	assert.Equal(t, &observability.TokenUsage{InputTokens: 12, OutputTokens: 34, TotalTokens: 46}, usage)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, got.Messages[0].Content)
	assert.Contains(t, got.Messages[1].Content, "backend engineer")
	assert.Equal(t, "test-model", got.Model)
}

func TestOpenAIProviderRetriesTransientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(chatCompletion("**Summary**\nok"))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(testAIConfig("openai", srv.URL), testLogger)
	require.NoError(t, err)

	text, _, err := p.Generate(context.Background(), "nurse")
	require.NoError(t, err)
	assert.Equal(t, "**Summary**\nok", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestOpenAIProviderDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(testAIConfig("openai", srv.URL), testLogger)
	require.NoError(t, err)

	_, _, err = p.Generate(context.Background(), "nurse")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestOpenAIProviderEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(testAIConfig("openai", srv.URL), testLogger)
	require.NoError(t, err)

	_, _, err = p.Generate(context.Background(), "nurse")
	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, errors.ErrCodeAIEmptyResponse, appErr.Code)
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	cfg := testAIConfig("openai", "")
	cfg.APIKey = ""
	_, err := NewOpenAIProvider(cfg, testLogger)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestGeminiProviderGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/test-model:generateContent"), r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "systemInstruction")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]string{{"text": "**Education**\n• BSc"}},
				},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]int{
				"promptTokenCount":     5,
				"candidatesTokenCount": 7,
				"totalTokenCount":      12,
			},
		})
	}))
	defer srv.Close()

	p, err := NewGeminiProvider(testAIConfig("gemini", srv.URL), testLogger)
	require.NoError(t, err)

	text, usage, err := p.Generate(context.Background(), "librarian")
	require.NoError(t, err)
	assert.Equal(t, "**Education**\n• BSc", text)
	assert.Equal(t, &observability.TokenUsage{InputTokens: 5, OutputTokens: 7, TotalTokens: 12}, usage)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", stderrors.New("boom"), false},
		{"cancelled", context.Canceled, false},
		{"googleapi 429", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"googleapi 400", &googleapi.Error{Code: http.StatusBadRequest}, false},
		{"genai 503", genai.APIError{Code: http.StatusServiceUnavailable}, true},
		{"genai 403", genai.APIError{Code: http.StatusForbidden}, false},
		{"openai 500", &openai.APIError{HTTPStatusCode: http.StatusInternalServerError}, true},
		{"openai 401", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized}, false},
		{"openai request 502", &openai.RequestError{HTTPStatusCode: http.StatusBadGateway}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestBackoffIsCapped(t *testing.T) {
	assert.GreaterOrEqual(t, backoff(1), retryBaseDelay)
	assert.LessOrEqual(t, backoff(40), retryMaxDelay)
}

type stubProvider struct {
	text  string
	usage *observability.TokenUsage
	err   error
	calls int
}

func (s *stubProvider) Generate(ctx context.Context, prompt string) (string, *observability.TokenUsage, error) {
	s.calls++
	return s.text, s.usage, s.err
}
func (s *stubProvider) ModelInfo(ctx context.Context) *ModelInfo {
	return &ModelInfo{Provider: "stub", Name: "stub", Available: true}
}
func (s *stubProvider) Stats() map[string]any { return map[string]any{"provider": "stub"} }
func (s *stubProvider) Close() error          { return nil }

func TestServiceGenerate(t *testing.T) {
	stub := &stubProvider{text: "**Skills**\n• Go"}
	svc := NewServiceWithProvider(stub, nil, testLogger)

	text, err := svc.Generate(context.Background(), "engineer")
	require.NoError(t, err)
	assert.Equal(t, "**Skills**\n• Go", text)

	_, err = svc.Generate(context.Background(), "  ")
	assert.Equal(t, errors.MsgEmptyPrompt, errors.UserMessage(err))
	assert.Equal(t, 1, stub.calls)
}

func TestServiceClassifiesErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		message string
	}{
		{"timeout", context.DeadlineExceeded, errors.ErrCodeAITimeout, errors.MsgGenerationTimeout},
		{"generic", stderrors.New("boom"), errors.ErrCodeAIServiceFailed, errors.MsgGenerationFailed},
		{"app error kept", errors.NewAIError(errors.ErrCodeAIEmptyResponse, "empty", nil), errors.ErrCodeAIEmptyResponse, "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewServiceWithProvider(&stubProvider{err: tt.err}, nil, testLogger)
			_, err := svc.Generate(context.Background(), "engineer")

			var appErr *errors.AppError
			require.True(t, stderrors.As(err, &appErr))
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestNewServiceRejectsUnknownProvider(t *testing.T) {
	_, err := NewService(config.AIConfig{Provider: "llama"}, nil, testLogger)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestResolveSystemPrompt(t *testing.T) {
	assert.Equal(t, DefaultSystemPrompt, resolveSystemPrompt(" \n"))
	assert.Equal(t, "custom", resolveSystemPrompt("custom"))
	assert.Equal(t, "Create a resume for the following person:\n\nchef", buildUserPrompt(" chef "))
}
