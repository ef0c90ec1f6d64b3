package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"resumetailor/internal/ai"
	"resumetailor/internal/common"
	"resumetailor/internal/config"
	"resumetailor/internal/errors"
	"resumetailor/internal/formatters"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var configFile string

// providerFactory builds the AI provider for a command. Tests replace it.
var providerFactory = func(cfg *config.Config, logger *errors.Logger) (ai.Provider, *config.PromptStore, error) {
	prompts, err := config.NewPromptStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	return ai.NewService(cfg, prompts, logger), prompts, nil
}

var rootCmd = &cobra.Command{
	Use:   "resumetailor",
	Short: "Turn resumes into tailored, typeset PDF documents",
	Long: `Resumetailor extracts the text of a resume, structures it into JSON with an
AI model, tailors and translates it for a job, and typesets the result as a
PDF document. Every stage is available as its own command and through the
HTTP server.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfiguration,
}

// Execute runs the command line with ctx, cancelled on shutdown signals.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfiguration loads the config file, applies Vault secrets and
// creates the logger. A context that already carries a config is kept.
func loadConfiguration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if _, ok := ctx.Value(configKey).(*config.Config); ok {
		return nil
	}
	if cmd.Name() == versionCmd.Name() {
		return nil
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return fmt.Errorf("failed to load secrets from Vault: %w", err)
	}

	logger.Debug("Starting resumetailor",
		"version", Version,
		"command", cmd.Name(),
		"log_level", cfg.App.LogLevel,
		"ai_provider", cfg.AI.Provider)

	cmd.SetContext(withConfig(ctx, cfg, logger))
	return nil
}

func withConfig(ctx context.Context, cfg *config.Config, logger *errors.Logger) context.Context {
	ctx = context.WithValue(ctx, configKey, cfg)
	return context.WithValue(ctx, loggerKey, logger)
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// addOutputFlags registers --output and --format on cmd.
func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.SupportedFormats(cfg.App.SupportedFormats, formatters.GlobalRegistry.GetSupportedFormats()),
			cobra.ShellCompDirectiveNoFileComp
	})
}

// prepareOutput fills the defaults of cc from the config and validates the
// format.
func prepareOutput(cmd *cobra.Command, cc *common.CommandConfig) error {
	cfg := getConfigFromContext(cmd.Context())
	if cc.OutputFormat == "" {
		cc.OutputFormat = cfg.App.DefaultFormat
	}
	cc.MaxFileSize = cfg.App.MaxFileSize
	cc.Out = cmd.OutOrStdout()
	return common.ValidateOutputFormat(cc.OutputFormat, cfg.App.SupportedFormats)
}

// newProvider creates the AI provider. The returned func closes it.
func newProvider(cmd *cobra.Command) (ai.Provider, func(), error) {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	provider, _, err := providerFactory(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create AI service: %w", err)
	}
	return provider, func() {
		if err := provider.Close(); err != nil {
			logger.Warn("Failed to close AI service", "error", err)
		}
	}, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./config.yaml, $HOME/.resumetailor, /etc/resumetailor)")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(structureCmd)
	rootCmd.AddCommand(tailorCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
