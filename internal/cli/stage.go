package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"resumetailor/internal/ai"
	"resumetailor/internal/common"
	"resumetailor/internal/errors"
	"resumetailor/internal/extract"
	"resumetailor/internal/pipeline"
	"resumetailor/internal/resume"
	"resumetailor/internal/utils"
)

// inputBuilder turns the files named on the command line into a pipeline
// input.
type inputBuilder func(sources []*common.Source) (pipeline.Input, error)

// runStage runs the AI stages selected by build, without rendering, and
// writes the final record in the requested format.
func runStage(cmd *cobra.Command, cc common.CommandConfig, args []string, what string, build inputBuilder) error {
	logger := getLoggerFromContext(cmd.Context())

	provider, closeProvider, err := newProvider(cmd)
	if err != nil {
		return err
	}
	defer closeProvider()

	p := pipeline.New(extract.New(logger), provider, nil, logger)

	createInput := func(_ context.Context, sources []*common.Source) (pipeline.Input, error) {
		in, err := build(sources)
		in.SkipRender = true
		return in, err
	}

	logDetails := func(in pipeline.Input, cc common.CommandConfig) {
		logger.Info("Starting "+what,
			"stages", in.Stages(),
			"output_format", cc.OutputFormat)
	}

	operation := func(ctx context.Context, in pipeline.Input) (*resume.Record, *ai.TokenUsage, error) {
		res, err := p.Run(ctx, in)
		if err != nil {
			return nil, nil, err
		}
		return res.Final, res.Usage, nil
	}

	if err := common.RunAICommand(cmd.Context(), logger, cc, args, createInput, operation, logDetails); err != nil {
		return fmt.Errorf("%s failed: %w", what, err)
	}
	logger.Info("Completed " + what)
	return nil
}

// requireText rejects a source that is a PDF or a JSON record.
func requireText(src *common.Source, role string) error {
	if src.Kind != utils.KindText {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("%s must be a plain text file, %s is %s", role, src.Path, src.Kind), nil)
	}
	return nil
}
