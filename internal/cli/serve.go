package cli

import (
	"context"
	"fmt"
	"time"

	"resumaker/internal/client"
	"resumaker/internal/config"
	"resumaker/internal/errors"
	"resumaker/internal/observability"
	"resumaker/internal/server"
	"resumaker/internal/session"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the resume builder web UI",
	Long: `Start the web UI. Each browser gets its own session holding the prompt,
the generated resume and view preferences. Generation requests are sent to
the service at client.baseURL.

Available endpoints:
- GET /: Resume builder page
- POST /generate: Generate a resume from the submitted prompt
- GET /export/resume.txt, /export/resume.md, /export/print: Exports
- POST /api/format: Format and split arbitrary resume text
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("backend-url", "", "Generation service base URL (overrides config)")
	serveCmd.Flags().Bool("with-backend", false, "Also run the bundled generation backend in this process")
	addTLSFlags(serveCmd)
}

// addTLSFlags registers the TLS override flags shared by both servers.
func addTLSFlags(cmd *cobra.Command) {
	cmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	cmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	cmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	cmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

// applyServerFlags copies explicitly set flags over the loaded config.
func applyServerFlags(cmd *cobra.Command, cfg *config.Config) error {
	set := func(flag string, dst *string) {
		if cmd.Flags().Changed(flag) {
			*dst, _ = cmd.Flags().GetString(flag)
		}
	}
	set("host", &cfg.Server.Host)
	set("tls-mode", &cfg.Server.TLS.Mode)
	set("cert-file", &cfg.Server.TLS.CertFile)
	set("key-file", &cfg.Server.TLS.KeyFile)
	set("ca-file", &cfg.Server.TLS.CAFile)

	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetString("port")
	}
	if cmd.Flags().Changed("backend-url") {
		cfg.Client.BaseURL, _ = cmd.Flags().GetString("backend-url")
		if err := cfg.ValidateClient(); err != nil {
			return errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid backend URL", err)
		}
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

	opts := server.Options{Config: cfg, Version: Version, Logger: logger, Observability: obs}
	ctx := cmd.Context()

	withBackend, _ := cmd.Flags().GetBool("with-backend")
	backendErr := make(chan error, 1)
	if withBackend {
		backend, err := newBackendServer(opts)
		if err != nil {
			return err
		}
		defer backend.Close()
		go func() { backendErr <- backend.Run(ctx) }()
	}

	store := session.NewStore(cfg.Session, logger)
	ui, err := server.NewUI(opts, client.New(cfg.Client, logger), store)
	if err != nil {
		store.Close()
		return fmt.Errorf("failed to create UI server: %w", err)
	}
	defer ui.Close()

	uiErr := make(chan error, 1)
	go func() { uiErr <- ui.Run(ctx) }()

	select {
	case err := <-uiErr:
		return err
	case err := <-backendErr:
		if err != nil {
			return fmt.Errorf("backend stopped: %w", err)
		}
		return <-uiErr
	}
}

func shutdownObservability(obs *observability.Manager, logger *errors.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := obs.Shutdown(ctx); err != nil {
		logger.LogError(err, "Failed to shut down observability")
	}
}
