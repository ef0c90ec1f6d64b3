package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"resumetailor/internal/common"
	"resumetailor/internal/extract"
	"resumetailor/internal/pipeline"
	"resumetailor/internal/render"
)

var runCmd = &cobra.Command{
	Use:   "run [resume-file]",
	Short: "Run the whole pipeline from a resume to a tailored PDF",
	Long: `Run every stage in one go: extract the text of a PDF, structure it,
tailor it for --job, translate it with --translate or --language, and
render the final record as a PDF.

The source may be a PDF, a plain text resume or a JSON record; stages the
source does not need are skipped. With --output the PDF is written to that
file and a summary of the run is printed in --format; without it the PDF
goes to stdout.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := common.ValidateLanguage(runOptions.language, cmd.Flags().Changed("language")); err != nil {
			return err
		}
		return prepareOutput(cmd, &runOptions.output)
	},
	RunE: runPipeline,
}

var runOptions struct {
	output    common.CommandConfig
	jobFile   string
	translate bool
	language  string
}

func init() {
	addOutputFlags(runCmd, &runOptions.output)
	runCmd.Flags().StringVarP(&runOptions.jobFile, "job", "j", "", "Job description file to tailor the resume for")
	runCmd.Flags().BoolVar(&runOptions.translate, "translate", false, "Translate into the configured target language")
	runCmd.Flags().StringVarP(&runOptions.language, "language", "l", "", "Translate into this language")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	out := runOptions.output

	files := append([]string(nil), args...)
	if runOptions.jobFile != "" {
		files = append(files, runOptions.jobFile)
	}
	sources, err := common.NewFileProcessor(logger, cfg.App.MaxFileSize).ReadSources(files...)
	if err != nil {
		return err
	}

	in := pipeline.Input{Translate: runOptions.translate, Language: runOptions.language}
	if err := sources[0].ApplyTo(&in); err != nil {
		return err
	}
	if len(sources) > 1 {
		if err := requireText(sources[1], "job description"); err != nil {
			return err
		}
		in.JobDescription = sources[1].Text()
	}

	provider, closeProvider, err := newProvider(cmd)
	if err != nil {
		return err
	}
	defer closeProvider()

	p := pipeline.New(extract.New(logger), provider, render.New(cfg.Render.Options()...), logger)
	res, err := p.Run(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	handler := common.NewOutputHandlerTo(logger, out.Out)
	if err := handler.WriteDocument(res.Document, out.OutputFile); err != nil {
		return err
	}
	if out.OutputFile == "" {
		return nil
	}

	summary := out
	summary.OutputFile = ""
	return handler.HandleOutput(res, summary)
}
