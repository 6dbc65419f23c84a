package cli

import (
	"fmt"
	"strings"

	"resumaker/internal/client"
	"resumaker/internal/common"
	"resumaker/internal/config"
	"resumaker/internal/errors"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate a resume from a description",
	Long: `Generate a resume from a free-text description such as
"Senior software engineer with 10 years experience in fintech".

The prompt is taken from the arguments or from --prompt-file. By default the
request goes to the generation service at client.baseURL; --local calls the
configured AI provider directly instead.`,
	Example: `  resumaker generate "Registered nurse, 5 years ICU experience"
  resumaker generate --prompt-file me.txt --section Skills
  resumaker generate -o resume.md "Data analyst moving into ML"`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		generateConfig.OutputFormat = common.ResolveOutputFormat(
			generateConfig.OutputFormat, generateConfig.OutputFile, cfg.App.DefaultFormat)
		// Validate format against supported formats
		return common.ValidateOutputFormat(generateConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runGenerate,
}

var (
	generateConfig     common.CommandConfig
	generatePromptFile string
	generateLocal      bool
)

func init() {
	generateCmd.Flags().StringVarP(&generateConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	generateCmd.Flags().StringVar(&generateConfig.OutputFormat, "format", "", "Output format: text, markdown, json or html")
	generateCmd.Flags().StringVarP(&generateConfig.Section, "section", "s", "All", "Only output this section")
	generateCmd.Flags().StringVarP(&generatePromptFile, "prompt-file", "f", "", "Read the prompt from a file")
	generateCmd.Flags().BoolVar(&generateLocal, "local", false, "Call the AI provider directly instead of the backend")

	// Add completion for format flag
	_ = generateCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	prompt, err := readPrompt(cfg, logger, args, generatePromptFile)
	if err != nil {
		return err
	}

	gen, closeGen, err := newGenerator(cfg, logger, generateLocal)
	if err != nil {
		return err
	}
	defer closeGen()

	return common.RunGenerateCommand(cmd.Context(), logger, gen, generateConfig, prompt)
}

// readPrompt returns the prompt from a file when one is given, otherwise
// the joined arguments.
func readPrompt(cfg *config.Config, logger *errors.Logger, args []string, promptFile string) (string, error) {
	if promptFile != "" {
		if len(args) > 0 {
			return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
				"Give the prompt as arguments or --prompt-file, not both", nil)
		}
		return common.NewFileProcessor(logger, cfg.App.MaxFileSize).ReadPromptFile(promptFile)
	}
	return strings.Join(args, " "), nil
}

// newGenerator returns the HTTP client, or the AI service itself when
// local is set. The returned func releases the generator.
func newGenerator(cfg *config.Config, logger *errors.Logger, local bool) (client.Generator, func(), error) {
	if !local {
		return client.New(cfg.Client, logger), func() {}, nil
	}

	if err := cfg.ValidateBackend(); err != nil {
		return nil, nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid AI configuration", err)
	}
	svc, err := newAIService(cfg, nil, logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, func() {
		if err := svc.Close(); err != nil {
			logger.LogError(err, "Failed to close AI service")
		}
	}, nil
}

// describeSource is shown in interactive output.
func describeSource(cfg *config.Config, local bool) string {
	if local {
		return fmt.Sprintf("%s (%s)", cfg.AI.Provider, cfg.AI.Model)
	}
	return cfg.Client.BaseURL
}
