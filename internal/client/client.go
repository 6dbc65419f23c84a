// Package client submits prompts to a résumé generation service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"resumaker/internal/config"
	"resumaker/internal/errors"
	"resumaker/internal/resilience"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// GeneratePath is the generation endpoint relative to the base URL.
const GeneratePath = "/api/generate-resume"

// Generator produces raw résumé text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client talks to a generation service over HTTP. It never retries:
// each call is exactly one request.
type Client struct {
	endpoint        string
	promptField     string
	apiKey          string
	maxResponseSize int64
	httpClient      *http.Client
	breaker         *resilience.CircuitBreaker[string]
	logger          *errors.Logger
}

// New creates a client with a traced transport and the configured timeout.
func New(cfg config.ClientConfig, logger *errors.Logger) *Client {
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return NewWithHTTPClient(cfg, httpClient, logger)
}

// NewWithHTTPClient creates a client that sends requests through httpClient.
func NewWithHTTPClient(cfg config.ClientConfig, httpClient *http.Client, logger *errors.Logger) *Client {
	field := cfg.PromptField
	if field == "" {
		field = "prompt"
	}
	maxSize := cfg.MaxResponseSize
	if maxSize <= 0 {
		maxSize = 1 << 20
	}
	return &Client{
		endpoint:        strings.TrimRight(cfg.BaseURL, "/") + GeneratePath,
		promptField:     field,
		apiKey:          cfg.APIKey,
		maxResponseSize: maxSize,
		httpClient:      httpClient,
		breaker:         resilience.New[string]("generation-client", cfg.CircuitBreaker, logger),
		logger:          logger,
	}
}

// generationReply covers both the success and failure bodies.
type generationReply struct {
	Resume *string         `json:"resume"`
	Detail json.RawMessage `json:"detail"`
}

// Generate validates prompt, sends it and returns the raw résumé text.
// Returned errors are *errors.AppError values whose Message is meant for
// the user: validation for an empty prompt, backend for a non-2xx reply,
// network for anything that prevented a usable reply.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.NewValidationError(errors.ErrCodeEmptyPrompt, errors.MsgEmptyPrompt, nil)
	}

	resume, err := c.breaker.Execute(func() (string, error) {
		return c.send(ctx, prompt)
	})
	if err != nil && resilience.IsOpenError(err) {
		return "", errors.NewNetworkError(errors.ErrCodeBackendUnavail, errors.MsgBackendUnreachable, err)
	}
	return resume, err
}

func (c *Client) send(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(map[string]string{c.promptField: prompt})
	if err != nil {
		return "", errors.NewInternalError(errors.ErrCodeInvalidRequest, errors.MsgGenerationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", errors.NewNetworkError(errors.ErrCodeBackendUnavail, errors.MsgBackendUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	c.logger.Debug("Sending generation request", "endpoint", c.endpoint, "prompt_length", len(prompt))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		code := errors.ErrCodeBackendUnavail
		if isTimeout(err) {
			code = errors.ErrCodeNetworkTimeout
		}
		return "", errors.NewNetworkError(code, errors.MsgBackendUnreachable, err).
			WithContext("endpoint", c.endpoint)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize+1))
	if err != nil {
		return "", errors.NewNetworkError(errors.ErrCodeBackendUnavail, errors.MsgBackendUnreachable, err)
	}
	if int64(len(body)) > c.maxResponseSize {
		return "", malformed(resp.StatusCode, fmt.Errorf("response exceeds %d bytes", c.maxResponseSize))
	}

	// A null body decodes without error but carries no reply at all.
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return "", malformed(resp.StatusCode, fmt.Errorf("response body is null"))
	}

	var reply generationReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", malformed(resp.StatusCode, err)
	}

	c.logger.Debug("Generation response received", "status", resp.StatusCode, "body_size", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := errors.MsgGenerationFailed
		if detail := detailText(reply.Detail); detail != "" {
			message = detail
		}
		return "", errors.NewBackendError(errors.ErrCodeBackendRejected, message, nil).
			WithContext("status", resp.StatusCode)
	}

	if reply.Resume == nil {
		return "", malformed(resp.StatusCode, fmt.Errorf("response has no resume field"))
	}
	return *reply.Resume, nil
}

// detailText returns the detail field when it is a non-empty string.
// Structured details, such as validation error lists, are not shown.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// malformed reports a reply the UI cannot use. It is treated like a
// connectivity failure because nothing usable came back.
func malformed(status int, cause error) *errors.AppError {
	return errors.NewNetworkError(errors.ErrCodeBackendMalformed, errors.MsgBackendUnreachable, cause).
		WithContext("status", status)
}

func isTimeout(err error) bool {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return stderrors.Is(err, context.DeadlineExceeded)
}

// Stats reports circuit breaker state.
func (c *Client) Stats() map[string]any {
	return map[string]any{
		"endpoint":        c.endpoint,
		"circuit_breaker": c.breaker.Stats(),
	}
}

// Healthy is false while the circuit breaker is not closed.
func (c *Client) Healthy() bool {
	return c.breaker.IsHealthy()
}
