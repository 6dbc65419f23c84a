package common

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumaker/internal/errors"
	"resumaker/internal/types"
)

const generated = "**Summary**\nCaring nurse.\n\n**Skills**\n• Triage\n• Patient care"

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func testLogger(t *testing.T) *errors.Logger {
	t.Helper()
	logger, err := errors.New("error")
	require.NoError(t, err)
	return logger
}

func TestBuildDocument(t *testing.T) {
	doc, err := BuildDocument("nurse", generated, "All")
	require.NoError(t, err)
	assert.Equal(t, "nurse", doc.Prompt)
	assert.Equal(t, generated, doc.Raw)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "**Summary**\nCaring nurse.\n\n**Skills**\n• Triage\n• Patient care", doc.Text)

	doc, err = BuildDocument("nurse", generated, "Skills")
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Skills", doc.Sections[0].Title)
	assert.Equal(t, "**Skills**\n• Triage\n• Patient care", doc.Text)

	doc, err = BuildDocument("nurse", generated, "")
	require.NoError(t, err)
	assert.Len(t, doc.Sections, 2)

	_, err = BuildDocument("nurse", generated, "Education")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "available: Summary, Skills")
}

func TestRunGenerateCommandWritesFile(t *testing.T) {
	t.Setenv("CI", "true")
	out := filepath.Join(t.TempDir(), "nested", "resume.json")

	var got string
	gen := generatorFunc(func(_ context.Context, prompt string) (string, error) {
		got = prompt
		return generated, nil
	})

	err := RunGenerateCommand(context.Background(), testLogger(t), gen,
		CommandConfig{OutputFile: out, OutputFormat: "json", Section: "Summary"}, "nurse")
	require.NoError(t, err)
	assert.Equal(t, "nurse", got)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc types.ResumeDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Summary", doc.Sections[0].Title)
	assert.Equal(t, []string{"Caring nurse."}, doc.Sections[0].Lines)
}

func TestRunGenerateCommandRejectsEmptyPrompt(t *testing.T) {
	t.Setenv("CI", "true")
	called := false
	gen := generatorFunc(func(context.Context, string) (string, error) {
		called = true
		return "", nil
	})

	err := RunGenerateCommand(context.Background(), testLogger(t), gen, CommandConfig{OutputFormat: "text"}, "  \n")
	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, errors.MsgEmptyPrompt, errors.UserMessage(err))
}

func TestRunGenerateCommandPropagatesGeneratorError(t *testing.T) {
	t.Setenv("CI", "true")
	backendErr := errors.NewBackendError(errors.ErrCodeBackendRejected, "Invalid prompt", nil)
	gen := generatorFunc(func(context.Context, string) (string, error) {
		return "", backendErr
	})

	err := RunGenerateCommand(context.Background(), testLogger(t), gen, CommandConfig{OutputFormat: "text"}, "nurse")
	assert.ErrorIs(t, err, backendErr)
}

func TestHandleOutputUnknownFormat(t *testing.T) {
	handler := NewOutputHandler(testLogger(t))
	err := handler.HandleOutput(types.ResumeDocument{Text: "x"}, CommandConfig{OutputFormat: "pdf"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Contains(t, handler.GetSupportedFormats(), "markdown")
}

func TestReadPromptFile(t *testing.T) {
	dir := t.TempDir()
	prompt := filepath.Join(dir, "prompt.txt")
	require.NoError(t, os.WriteFile(prompt, []byte("Senior nurse, 10 years ICU\n"), 0o600))
	blank := filepath.Join(dir, "blank.txt")
	require.NoError(t, os.WriteFile(blank, []byte(" \n\t"), 0o600))
	big := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(big, make([]byte, 64), 0o600))

	fp := NewFileProcessor(testLogger(t), 32)

	content, err := fp.ReadPromptFile(prompt)
	require.NoError(t, err)
	assert.Equal(t, "Senior nurse, 10 years ICU\n", content)

	_, err = fp.ReadPromptFile(blank)
	assert.Equal(t, errors.MsgEmptyPrompt, errors.UserMessage(err))

	_, err = fp.ReadPromptFile(big)
	assert.ErrorContains(t, err, "Invalid prompt file")

	_, err = fp.ReadPromptFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "resume.md")
	fp := NewFileProcessor(nil, 0)

	require.NoError(t, fp.WriteFile(path, "## Summary\n"))
	content, err := fp.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "## Summary\n", content)

	_, err = fp.ReadFile(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}
