package cli

import (
	"fmt"

	"resumaker/internal/ai"
	"resumaker/internal/config"
	"resumaker/internal/errors"
	"resumaker/internal/observability"
	"resumaker/internal/server"

	"github.com/spf13/cobra"
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Start the bundled resume generation backend",
	Long: `Start the generation backend the web UI talks to. It forwards prompts to
the configured AI provider (gemini or openai) and answers with plain resume text.

Available endpoints:
- POST /api/generate-resume: {"prompt": "..."} -> {"resume": "..."} or {"detail": "..."}
- GET /health: Health check including model availability
- GET /stats: Server statistics and rate limiting info`,
	RunE: runBackend,
}

func init() {
	backendCmd.Flags().StringP("port", "p", "", "Port to listen on (default server.backendPort)")
	backendCmd.Flags().String("host", "", "Host to bind to (default from config)")
	backendCmd.Flags().String("provider", "", "AI provider: gemini or openai (overrides config)")
	backendCmd.Flags().String("model", "", "Model name (overrides config)")
	addTLSFlags(backendCmd)
}

func runBackend(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if cmd.Flags().Changed("port") {
		cfg.Server.BackendPort, _ = cmd.Flags().GetString("port")
	}
	if cmd.Flags().Changed("provider") {
		cfg.AI.Provider, _ = cmd.Flags().GetString("provider")
	}
	if cmd.Flags().Changed("model") {
		cfg.AI.Model, _ = cmd.Flags().GetString("model")
	}
	if err := applyServerFlags(cmd, cfg); err != nil {
		return err
	}

	obs, err := observability.NewManager(cfg.Observability, Version, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer shutdownObservability(obs, logger)
	obs.StartMetricsServer()

	backend, err := newBackendServer(server.Options{
		Config:        cfg,
		Version:       Version,
		Logger:        logger,
		Observability: obs,
	})
	if err != nil {
		return err
	}
	defer backend.Close()

	return backend.Run(cmd.Context())
}

// newBackendServer validates the AI settings and builds the backend.
func newBackendServer(opts server.Options) (*server.Backend, error) {
	if err := opts.Config.ValidateBackend(); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid backend configuration", err)
	}
	svc, err := newAIService(opts.Config, opts.Observability.Metrics(), opts.Logger)
	if err != nil {
		return nil, err
	}
	return server.NewBackend(opts, svc), nil
}

// newAIService creates the provider-backed generation service.
func newAIService(cfg *config.Config, metrics *observability.Metrics, logger *errors.Logger) (*ai.Service, error) {
	svc, err := ai.NewService(cfg.AI, metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI service: %w", err)
	}
	return svc, nil
}
