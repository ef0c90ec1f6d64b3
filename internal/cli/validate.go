package cli

import (
	"github.com/spf13/cobra"

	"resumetailor/internal/common"
	"resumetailor/internal/errors"
	"resumetailor/internal/resume"
)

var validateCmd = &cobra.Command{
	Use:   "validate [resume.json]",
	Short: "Check a JSON resume against the resume schema",
	Long: `Validate a JSON resume: check it against the resume schema, report
fields that would be coerced or skipped, and list the sections that would be
rendered. The command fails when the resume is not valid.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return prepareOutput(cmd, &validateConfig)
	},
	RunE: runValidate,
}

var validateConfig common.CommandConfig

func init() {
	addOutputFlags(validateCmd, &validateConfig)
}

func runValidate(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())

	sources, err := common.NewFileProcessor(logger, validateConfig.MaxFileSize).ReadSources(args...)
	if err != nil {
		return err
	}

	report, err := resume.Check(sources[0].Data)
	if err != nil {
		return err
	}
	if err := common.NewOutputHandlerTo(logger, validateConfig.Out).HandleOutput(report, validateConfig); err != nil {
		return err
	}

	if !report.Valid {
		return errors.NewValidationError(errors.ErrCodeInvalidResume, "resume is not valid", nil).
			WithContext("file", sources[0].Path)
	}
	return nil
}
