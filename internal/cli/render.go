package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"resumetailor/internal/common"
	"resumetailor/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render [resume.json]",
	Short: "Typeset a JSON resume as a PDF document",
	Long: `Render a JSON resume record as a PDF document. Page size and accent
color come from the render section of the configuration. Without --output
the PDF is written to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var renderOutput string

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output PDF path (default: stdout)")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	sources, err := common.NewFileProcessor(logger, cfg.App.MaxFileSize).ReadSources(args...)
	if err != nil {
		return err
	}
	rec, err := sources[0].Record()
	if err != nil {
		return err
	}
	for _, issue := range rec.Issues() {
		logger.Warn("Resume field coerced", "field", issue.Field, "message", issue.Message)
	}

	doc, err := render.New(cfg.Render.Options()...).RenderDocument(rec)
	if err != nil {
		return fmt.Errorf("failed to render resume: %w", err)
	}
	logger.Info("Resume rendered", "pages", doc.Pages, "sections", rec.Sections())

	return common.NewOutputHandlerTo(logger, cmd.OutOrStdout()).WriteDocument(doc, renderOutput)
}
