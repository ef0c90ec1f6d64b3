package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"resumetailor/internal/common"
	"resumetailor/internal/errors"
	"resumetailor/internal/pipeline"
	"resumetailor/internal/utils"
)

var structureCmd = &cobra.Command{
	Use:   "structure [resume-file]",
	Short: "Structure a plain-text or PDF resume into JSON",
	Long: `Structure a resume into the JSON record used by every other command.
The input is a plain text file or a PDF, whose text is extracted first.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return prepareOutput(cmd, &structureConfig)
	},
	RunE: runStructure,
}

var structureConfig common.CommandConfig

func init() {
	addOutputFlags(structureCmd, &structureConfig)
}

func runStructure(cmd *cobra.Command, args []string) error {
	return runStage(cmd, structureConfig, args, "resume structuring", func(sources []*common.Source) (pipeline.Input, error) {
		var in pipeline.Input
		if sources[0].Kind == utils.KindJSON {
			return in, errors.NewValidationError(errors.ErrCodeInvalidFormat,
				fmt.Sprintf("%s is already a JSON resume", sources[0].Path), nil)
		}
		return in, sources[0].ApplyTo(&in)
	})
}
