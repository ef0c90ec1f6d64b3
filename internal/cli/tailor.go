package cli

import (
	"github.com/spf13/cobra"

	"resumetailor/internal/common"
	"resumetailor/internal/pipeline"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor [resume-file] [job-description-file]",
	Short: "Tailor a resume for a specific job description",
	Long: `Tailor your resume for a specific job description using AI.
The resume may be a JSON record, a plain text file or a PDF; text and PDF
resumes are structured first. The job description is a plain text file.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return prepareOutput(cmd, &tailorConfig)
	},
	RunE: runTailor,
}

var tailorConfig common.CommandConfig

func init() {
	addOutputFlags(tailorCmd, &tailorConfig)
}

func runTailor(cmd *cobra.Command, args []string) error {
	return runStage(cmd, tailorConfig, args, "resume tailoring", func(sources []*common.Source) (pipeline.Input, error) {
		var in pipeline.Input
		if err := requireText(sources[1], "job description"); err != nil {
			return in, err
		}
		in.JobDescription = sources[1].Text()
		return in, sources[0].ApplyTo(&in)
	})
}
