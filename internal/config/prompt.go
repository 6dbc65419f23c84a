package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// loadSystemPromptFile replaces AI.SystemPrompt with the content of
// AI.SystemPromptFile when a file is configured.
func (c *Config) loadSystemPromptFile() error {
	if c.AI.SystemPromptFile == "" {
		return nil
	}

	content, err := readPromptFile(c.AI.SystemPromptFile)
	if err != nil {
		return err
	}
	c.AI.SystemPrompt = content
	return nil
}

func readPromptFile(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for prompt file '%s': %w", path, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("prompt file not found: %s", absPath)
		}
		return "", fmt.Errorf("failed to read prompt file '%s': %w", absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("prompt file '%s' is empty", absPath)
	}

	log.Printf("[CONFIG] Loaded system prompt from file: %s (%d characters)", absPath, len(trimmed))
	return trimmed, nil
}
