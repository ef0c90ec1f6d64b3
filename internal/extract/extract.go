// Package extract pulls plain text out of PDF résumés.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"resumetailor/internal/errors"
)

// pageSeparator goes between the text of consecutive pages.
const pageSeparator = "\n\n"

// Result is the text of a document together with page statistics.
type Result struct {
	Text         string `json:"text"`
	PageCount    int    `json:"pageCount"`
	TextPages    int    `json:"textPages"`
	SkippedPages []int  `json:"skippedPages,omitempty"`
}

// Extractor reads PDF documents.
type Extractor struct {
	logger *errors.Logger
}

// New creates an Extractor. A nil logger discards page-level warnings.
func New(logger *errors.Logger) *Extractor {
	if logger == nil {
		logger = errors.Discard()
	}
	return &Extractor{logger: logger}
}

// FromFile extracts the text of the PDF at path.
func (e *Extractor) FromFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", path), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", path), err)
	}
	return e.FromBytes(ctx, data)
}

// FromBytes extracts the text of an in-memory PDF. Pages without text are
// skipped; the remaining pages are joined with a blank line.
func (e *Extractor) FromBytes(ctx context.Context, data []byte) (res *Result, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF")) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, "input is not a PDF document", nil)
	}

	// the parser panics on some malformed cross-reference tables
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = errors.NewIOError(errors.ErrCodePDFExtractFailed, "PDF could not be parsed", fmt.Errorf("%v", p))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodePDFExtractFailed, "failed to open PDF", err)
	}

	res = &Result{PageCount: reader.NumPage()}
	parts := make([]string, 0, res.PageCount)

	for i := 1; i <= res.PageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			res.SkippedPages = append(res.SkippedPages, i)
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("Skipping unreadable PDF page", "page", i, "error", err)
			res.SkippedPages = append(res.SkippedPages, i)
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			res.SkippedPages = append(res.SkippedPages, i)
			continue
		}
		parts = append(parts, text)
	}

	if len(parts) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeNoTextFound, "no text content found in PDF", nil).
			WithContext("pages", res.PageCount)
	}

	res.Text = strings.Join(parts, pageSeparator)
	res.TextPages = len(parts)

	e.logger.Debug("Extracted PDF text",
		"pages", res.PageCount,
		"text_pages", res.TextPages,
		"characters", len(res.Text))

	return res, nil
}
