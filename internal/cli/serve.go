package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"resumetailor/internal/extract"
	"resumetailor/internal/render"
	"resumetailor/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start an HTTP server that exposes every stage as a REST endpoint.

Available endpoints:
- POST /extract: Extract the text of a PDF (multipart "file" or raw PDF body)
- POST /structure: Structure resume text into a JSON record
- POST /tailor: Tailor a JSON record for a job description
- POST /translate: Translate a JSON record
- POST /render: Render a JSON record as a PDF
- POST /run: Run the whole pipeline
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
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
}

// applyServeFlags copies the flags that were set over the loaded config.
func applyServeFlags(cmd *cobra.Command) {
	cfg := getConfigFromContext(cmd.Context())
	overrides := []struct {
		flag   string
		target *string
	}{
		{"port", &cfg.Server.Port},
		{"host", &cfg.Server.Host},
		{"tls-mode", &cfg.Server.TLS.Mode},
		{"cert-file", &cfg.Server.TLS.CertFile},
		{"key-file", &cfg.Server.TLS.KeyFile},
		{"ca-file", &cfg.Server.TLS.CAFile},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.target, _ = cmd.Flags().GetString(o.flag)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	applyServeFlags(cmd)
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	provider, prompts, err := providerFactory(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Warn("Failed to close AI service", "error", err)
		}
	}()

	deps := server.Dependencies{
		Provider:  provider,
		Extractor: extract.New(logger),
		Renderer:  render.New(cfg.Render.Options()...),
		Prompts:   prompts,
	}
	return server.NewServer(cfg, deps, Version, logger).Start(cmd.Context())
}
