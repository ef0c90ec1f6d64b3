package common

import (
	"fmt"
	"io"
	"os"

	"resumetailor/internal/errors"
	"resumetailor/internal/formatters"
	"resumetailor/internal/render"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
	MaxFileSize  int64

	// Out receives output when OutputFile is empty. Nil means stdout.
	Out io.Writer
}

func (c CommandConfig) writer() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	logger        *errors.Logger
	out           io.Writer
}

// NewOutputHandler creates an output handler that writes to stdout when no
// output file is given.
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return NewOutputHandlerTo(logger, os.Stdout)
}

// NewOutputHandlerTo is NewOutputHandler with an explicit writer in place of
// stdout.
func NewOutputHandlerTo(logger *errors.Logger, out io.Writer) *OutputHandler {
	if logger == nil {
		logger = errors.Discard()
	}
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger, 0),
		registry:      formatters.GlobalRegistry,
		logger:        logger,
		out:           out,
	}
}

// HandleOutput formats data and writes it to the specified output
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	if err := oh.fileProcessor.ValidateOutputFile(config.OutputFile); err != nil {
		return err
	}

	output, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	return oh.write([]byte(output), config.OutputFile, "format", config.OutputFormat)
}

// WriteDocument writes a rendered PDF to path, or to the output writer when
// path is empty.
func (oh *OutputHandler) WriteDocument(doc *render.Document, path string) error {
	if err := oh.fileProcessor.ValidateOutputFile(path); err != nil {
		return err
	}
	return oh.write(doc.Bytes, path, "pages", doc.Pages, "bytes", len(doc.Bytes))
}

func (oh *OutputHandler) write(content []byte, path string, logArgs ...any) error {
	if path == "" {
		if _, err := oh.out.Write(content); err != nil {
			return errors.NewIOError("FILE_WRITE_FAILED", "Cannot write output", err)
		}
		return nil
	}

	if err := oh.fileProcessor.WriteFile(path, content); err != nil {
		return err
	}
	oh.logger.Info("Output written successfully", append([]any{"file", path}, logArgs...)...)
	return nil
}

// GetSupportedFormats returns all supported output formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}
