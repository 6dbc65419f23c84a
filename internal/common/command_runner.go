package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"resumaker/internal/client"
	"resumaker/internal/errors"
	"resumaker/internal/resume"
	"resumaker/internal/types"
)

// BuildDocument parses raw generated text into the document the output
// formatters consume. A section other than "All" narrows the document to
// that section and fails when the résumé does not contain it.
func BuildDocument(prompt, raw, section string) (types.ResumeDocument, error) {
	sections := resume.Parse(raw)
	if section != "" && section != resume.AllSections {
		if !sections.Has(section) {
			return types.ResumeDocument{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("section %q not found; available: %s", section, strings.Join(sections.Keys(), ", ")), nil)
		}
		sections = sections.Only(section)
	}
	return types.ResumeDocument{
		Prompt:   prompt,
		Raw:      raw,
		Sections: sections.Sections(),
		Text:     sections.Export(),
	}, nil
}

// Generate runs one generation behind a spinner on stderr and returns the
// raw text. Empty prompts are rejected before any request is made.
func Generate(ctx context.Context, logger *errors.Logger, gen client.Generator, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.NewValidationError(errors.ErrCodeEmptyPrompt, errors.MsgEmptyPrompt, nil)
	}

	spinner := newSpinner(os.Stderr, "Generating resume")
	start := time.Now()
	raw, err := gen.Generate(ctx, prompt)
	_ = spinner.Finish()
	if err != nil {
		return "", err
	}

	logger.Debug("Resume generated", "chars", len(raw), "duration", time.Since(start))
	return raw, nil
}

// RunGenerateCommand generates a résumé for prompt and writes it in the
// requested format.
func RunGenerateCommand(ctx context.Context, logger *errors.Logger, gen client.Generator, cmdConfig CommandConfig, prompt string) error {
	raw, err := Generate(ctx, logger, gen, prompt)
	if err != nil {
		return err
	}

	doc, err := BuildDocument(prompt, raw, cmdConfig.Section)
	if err != nil {
		return err
	}

	logger.Debug("Generated resume", "sections", len(doc.Sections), "format", cmdConfig.OutputFormat)
	return NewOutputHandler(logger).HandleOutput(doc, cmdConfig)
}

// newSpinner returns an indeterminate progress bar. Under CI it writes
// nothing so logs stay clean.
func newSpinner(w io.Writer, description string) *progressbar.ProgressBar {
	if isCI() {
		w = io.Discard
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetSpinnerChangeInterval(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func isCI() bool {
	return os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != ""
}
