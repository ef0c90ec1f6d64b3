package cli

import (
	"github.com/spf13/cobra"

	"resumetailor/internal/common"
	"resumetailor/internal/pipeline"
)

var translateCmd = &cobra.Command{
	Use:   "translate [resume-file]",
	Short: "Translate a resume into another language",
	Long: `Translate a resume with AI. Without --language the configured target
language (ai.targetLanguage) is used. Text and PDF resumes are structured
first.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := common.ValidateLanguage(translateLanguage, cmd.Flags().Changed("language")); err != nil {
			return err
		}
		return prepareOutput(cmd, &translateConfig)
	},
	RunE: runTranslate,
}

var (
	translateConfig   common.CommandConfig
	translateLanguage string
)

func init() {
	addOutputFlags(translateCmd, &translateConfig)
	translateCmd.Flags().StringVarP(&translateLanguage, "language", "l", "", "Target language (default from config)")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	return runStage(cmd, translateConfig, args, "resume translation", func(sources []*common.Source) (pipeline.Input, error) {
		in := pipeline.Input{Translate: true, Language: translateLanguage}
		return in, sources[0].ApplyTo(&in)
	})
}
