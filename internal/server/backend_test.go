package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"resumaker/internal/ai"
	"resumaker/internal/client"
	"resumaker/internal/config"
	"resumaker/internal/errors"
	"resumaker/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	generate  func(ctx context.Context, prompt string) (string, error)
	available bool
	prompts   []string
}

func (s *stubService) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.generate(ctx, prompt)
}

func (s *stubService) ModelInfo(ctx context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Provider: "stub", Name: "stub-model", Available: s.available}
}

func (s *stubService) Stats() map[string]any {
	return map[string]any{"provider": "stub"}
}

func newBackendTestServer(t *testing.T, cfg *config.Config, svc *stubService) *httptest.Server {
	t.Helper()
	b := NewBackend(Options{Config: cfg, Version: "test", Logger: testLogger}, svc)
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(func() {
		srv.Close()
		b.Close()
	})
	return srv
}

func TestGenerateResumeSuccess(t *testing.T) {
	svc := &stubService{generate: func(ctx context.Context, prompt string) (string, error) {
		return "**Skills**\n• " + prompt, nil
	}}
	srv := newBackendTestServer(t, testConfig(), svc)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"prompt field", `{"prompt":"Go"}`, "**Skills**\n• Go"},
		{"legacy userPrompt field", `{"userPrompt":"Rust"}`, "**Skills**\n• Rust"},
		{"prompt preferred", `{"prompt":"Go","userPrompt":"Rust"}`, "**Skills**\n• Go"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postJSON(t, srv.URL+"/api/generate-resume", tt.body, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var out types.GenerateResumeResponse
			require.NoError(t, json.Unmarshal([]byte(body), &out))
			assert.Equal(t, tt.want, out.Resume)
		})
	}
}

func TestGenerateResumeFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"validation", errors.NewValidationError(errors.ErrCodeEmptyPrompt, errors.MsgEmptyPrompt, nil), http.StatusBadRequest, errors.MsgEmptyPrompt},
		{"unavailable", errors.NewAIError(errors.ErrCodeAIUnavailable, errors.MsgModelUnavailable, nil), http.StatusServiceUnavailable, errors.MsgModelUnavailable},
		{"timeout", errors.NewAIError(errors.ErrCodeAITimeout, errors.MsgGenerationTimeout, nil), http.StatusBadGateway, errors.MsgGenerationTimeout},
		{"unclassified", context.Canceled, http.StatusBadGateway, errors.MsgGenerationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{generate: func(ctx context.Context, prompt string) (string, error) {
				return "", tt.err
			}}
			srv := newBackendTestServer(t, testConfig(), svc)

			resp, body := postJSON(t, srv.URL+"/api/generate-resume", `{"prompt":"nurse"}`, nil)
			assert.Equal(t, tt.status, resp.StatusCode)

			var out types.GenerationErrorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &out))
			assert.Equal(t, tt.detail, out.Detail)
		})
	}
}

func TestGenerateResumeBadRequest(t *testing.T) {
	svc := &stubService{generate: func(ctx context.Context, prompt string) (string, error) {
		return "unused", nil
	}}
	srv := newBackendTestServer(t, testConfig(), svc)

	resp, body := postJSON(t, srv.URL+"/api/generate-resume", `{"prompt":`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, `"detail":"Invalid JSON in request body"`)
	assert.Empty(t, svc.prompts)
}

func TestGenerateResumeAuthUsesDetail(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIKeys = []string{"backend-key-1"}
	svc := &stubService{generate: func(ctx context.Context, prompt string) (string, error) {
		return "**Skills**", nil
	}}
	srv := newBackendTestServer(t, cfg, svc)

	resp, body := postJSON(t, srv.URL+"/api/generate-resume", `{"prompt":"nurse"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, `"detail":"API key required"`)

	resp, _ = postJSON(t, srv.URL+"/api/generate-resume", `{"prompt":"nurse"}`, map[string]string{"X-API-Key": "backend-key-1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// The UI client and the bundled backend must agree on the contract.
func TestClientAgainstBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIKeys = []string{"backend-key-1"}

	svc := &stubService{generate: func(ctx context.Context, prompt string) (string, error) {
		if prompt == "fail" {
			return "", errors.NewAIError(errors.ErrCodeAIServiceFailed, "quota exceeded", nil)
		}
		return "**Summary**\n" + prompt, nil
	}}
	srv := newBackendTestServer(t, cfg, svc)

	for _, field := range []string{"prompt", "userPrompt"} {
		c := client.New(config.ClientConfig{
			BaseURL:     srv.URL,
			Timeout:     2 * time.Second,
			PromptField: field,
			APIKey:      "backend-key-1",
		}, testLogger)

		text, err := c.Generate(context.Background(), "engineer")
		require.NoError(t, err, field)
		assert.Equal(t, "**Summary**\nengineer", text)

		_, err = c.Generate(context.Background(), "fail")
		assert.True(t, errors.IsType(err, errors.ErrorTypeBackend))
		assert.Equal(t, "quota exceeded", errors.UserMessage(err))
	}
}

func TestBackendHealth(t *testing.T) {
	svc := &stubService{available: true}
	srv := newBackendTestServer(t, testConfig(), svc)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"name":"stub-model"`)

	svc.available = false
	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body = readBody(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, `"status":"degraded"`)

	resp, err = http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	body = readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"provider":{"provider":"stub"}`)
}
