package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"resumetailor/internal/ai"
	"resumetailor/internal/common"
	"resumetailor/internal/errors"
	"resumetailor/internal/extract"
	"resumetailor/internal/utils"
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdf-file]",
	Short: "Extract the text of a PDF resume",
	Long: `Extract the text of a PDF resume page by page. Pages without text are
reported as skipped; scanned documents need OCR first.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return prepareOutput(cmd, &extractConfig)
	},
	RunE: runExtract,
}

var extractConfig common.CommandConfig

func init() {
	addOutputFlags(extractCmd, &extractConfig)
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger := getLoggerFromContext(cmd.Context())
	extractor := extract.New(logger)

	createInput := func(_ context.Context, sources []*common.Source) (*common.Source, error) {
		if sources[0].Kind != utils.KindPDF {
			return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
				fmt.Sprintf("%s is not a PDF document", sources[0].Path), nil)
		}
		return sources[0], nil
	}

	logDetails := func(src *common.Source, cc common.CommandConfig) {
		logger.Info("Starting text extraction",
			"file", src.Path,
			"size", utils.FormatFileSize(int64(len(src.Data))),
			"output_format", cc.OutputFormat)
	}

	operation := func(ctx context.Context, src *common.Source) (*extract.Result, *ai.TokenUsage, error) {
		res, err := extractor.FromBytes(ctx, src.Data)
		return res, nil, err
	}

	if err := common.RunAICommand(cmd.Context(), logger, extractConfig, args, createInput, operation, logDetails); err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}
	return nil
}
