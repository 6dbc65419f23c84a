package ai

import (
	"context"

	"resumaker/internal/observability"
)

// Provider is a model backend able to write a résumé from a prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, *observability.TokenUsage, error)
	ModelInfo(ctx context.Context) *ModelInfo
	Stats() map[string]any
	Close() error
}

// ModelInfo describes the configured model for health checks.
type ModelInfo struct {
	Provider    string `json:"provider"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
