package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"resumetailor/internal/errors"
	"resumetailor/internal/pipeline"
	"resumetailor/internal/resume"
	"resumetailor/internal/utils"
)

// Source is one input file and the kind of content it holds.
type Source struct {
	Path string
	Kind utils.FileKind
	Data []byte
}

// Text returns the content as a string.
func (s *Source) Text() string {
	return string(s.Data)
}

// Record decodes a JSON résumé and checks its required fields.
func (s *Source) Record() (*resume.Record, error) {
	if s.Kind != utils.KindJSON {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("%s is not a JSON resume (detected %s)", s.Path, s.Kind), nil)
	}
	rec, err := resume.Parse(s.Data)
	if err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// ApplyTo sets the matching pipeline source field.
func (s *Source) ApplyTo(in *pipeline.Input) error {
	switch s.Kind {
	case utils.KindPDF:
		in.PDF = s.Data
	case utils.KindJSON:
		rec, err := s.Record()
		if err != nil {
			return err
		}
		in.Record = rec
	default:
		in.Text = s.Text()
	}
	return nil
}

// FileProcessor handles common file operations
type FileProcessor struct {
	logger  *errors.Logger
	maxSize int64
}

// NewFileProcessor creates a file processor. Files larger than maxSize bytes
// are rejected; zero disables the limit.
func NewFileProcessor(logger *errors.Logger, maxSize int64) *FileProcessor {
	if logger == nil {
		logger = errors.Discard()
	}
	return &FileProcessor{logger: logger, maxSize: maxSize}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return content, nil
}

// WriteFile writes content to a file, creating its directory.
func (fp *FileProcessor) WriteFile(filename string, content []byte) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, content, 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ReadSources validates and reads the input files in order.
func (fp *FileProcessor) ReadSources(filenames ...string) ([]*Source, error) {
	sources := make([]*Source, len(filenames))

	for i, filename := range filenames {
		if err := utils.ValidateInputFile(filename, fp.maxSize); err != nil {
			return nil, errors.NewValidationError("INVALID_INPUT_FILE",
				fmt.Sprintf("Invalid file %s", filename), err)
		}

		content, err := fp.ReadFile(filename)
		if err != nil {
			return nil, err
		}

		kind := utils.DetectKind(filename, content)
		if kind == utils.KindText && !utils.IsTextFile(filename) {
			fp.logger.Warn("File may not be a text file", "filename", filename)
		}
		fp.logger.Debug("Read input file",
			"filename", filename, "kind", kind, "size", utils.FormatFileSize(int64(len(content))))

		sources[i] = &Source{Path: filename, Kind: kind, Data: content}
	}

	return sources, nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
