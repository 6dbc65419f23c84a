package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"resumaker/internal/common"
	"resumaker/internal/config"
	"resumaker/internal/errors"
	"resumaker/internal/formatters"
	"resumaker/internal/resume"
	"resumaker/internal/utils"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

const (
	actionSave = "Save to file..."
	actionQuit = "Quit"
)

var browseCmd = &cobra.Command{
	Use:   "browse [prompt]",
	Short: "Generate a resume and browse it section by section",
	Long: `Generate a resume, then pick sections to view from an interactive menu.
The menu also offers saving the whole resume in any supported format.
Without a prompt argument you are asked for one.`,
	RunE: runBrowse,
}

var (
	browsePromptFile string
	browseLocal      bool
)

func init() {
	browseCmd.Flags().StringVarP(&browsePromptFile, "prompt-file", "f", "", "Read the prompt from a file")
	browseCmd.Flags().BoolVar(&browseLocal, "local", false, "Call the AI provider directly instead of the backend")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	out := cmd.OutOrStdout()

	prompt, err := readPrompt(cfg, logger, args, browsePromptFile)
	if err != nil {
		return err
	}
	if strings.TrimSpace(prompt) == "" {
		if prompt, err = askPrompt(cfg); err != nil {
			return err
		}
	}

	gen, closeGen, err := newGenerator(cfg, logger, browseLocal)
	if err != nil {
		return err
	}
	defer closeGen()

	fmt.Fprintf(out, "Generating with %s\n", describeSource(cfg, browseLocal))
	raw, err := common.Generate(cmd.Context(), logger, gen, prompt)
	if err != nil {
		return err
	}

	sections := resume.Parse(raw)
	if sections.Len() == 0 {
		fmt.Fprintln(out, raw)
		return nil
	}

	items := append([]string{resume.AllSections}, sections.Keys()...)
	items = append(items, actionSave, actionQuit)

	for {
		sel := promptui.Select{Label: "Section", Items: items, Size: len(items)}
		_, choice, err := sel.Run()
		if isPromptExit(err) {
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case actionQuit:
			return nil
		case actionSave:
			if err := saveInteractive(cfg, logger, prompt, raw); err != nil {
				if isPromptExit(err) {
					continue
				}
				logger.LogError(err, "Failed to save resume")
				fmt.Fprintln(out, errors.UserMessage(err))
			}
		default:
			printSection(out, sections, choice)
		}
	}
}

// printSection writes one section, or every section for "All".
func printSection(w io.Writer, sections *resume.SectionMap, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, sections.Only(title).Export())
	fmt.Fprintln(w)
}

func askPrompt(cfg *config.Config) (string, error) {
	examples := cfg.App.ExamplePrompts
	if len(examples) > 0 {
		items := append([]string{"Write my own"}, examples...)
		sel := promptui.Select{Label: "Start from an example?", Items: items}
		idx, choice, err := sel.Run()
		if err != nil {
			return "", err
		}
		if idx > 0 {
			return choice, nil
		}
	}

	p := promptui.Prompt{
		Label: "Describe yourself",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return stderrors.New(errors.MsgEmptyPrompt)
			}
			return nil
		},
	}
	return p.Run()
}

func saveInteractive(cfg *config.Config, logger *errors.Logger, prompt, raw string) error {
	formats := cfg.App.SupportedFormats
	if len(formats) == 0 {
		formats = formatters.GlobalRegistry.GetSupportedFormats()
	}
	sel := promptui.Select{Label: "Format", Items: formats}
	_, format, err := sel.Run()
	if err != nil {
		return err
	}

	name := promptui.Prompt{
		Label:   "File",
		Default: "resume" + utils.FormatExtension(format),
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return stderrors.New("file name is required")
			}
			return nil
		},
	}
	file, err := name.Run()
	if err != nil {
		return err
	}

	doc, err := common.BuildDocument(prompt, raw, resume.AllSections)
	if err != nil {
		return err
	}
	return common.NewOutputHandler(logger).HandleOutput(doc, common.CommandConfig{
		OutputFile:   strings.TrimSpace(file),
		OutputFormat: format,
	})
}

func isPromptExit(err error) bool {
	return slices.Contains([]error{promptui.ErrInterrupt, promptui.ErrEOF, promptui.ErrAbort}, err)
}
