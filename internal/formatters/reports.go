package formatters

import (
	"fmt"
	"strings"

	"resumetailor/internal/extract"
	"resumetailor/internal/pipeline"
	"resumetailor/internal/resume"
)

// ExtractTextFormatter prints the extracted text followed by page stats.
type ExtractTextFormatter struct{}

func (f *ExtractTextFormatter) Format(data any) (string, error) {
	res, err := cast[*extract.Result](data)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(res.Text)
	if !strings.HasSuffix(res.Text, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("\n--- %d of %d pages contained text", res.TextPages, res.PageCount))
	if len(res.SkippedPages) > 0 {
		b.WriteString(fmt.Sprintf(", skipped: %s", joinInts(res.SkippedPages)))
	}
	b.WriteString(" ---\n")
	return b.String(), nil
}

func (f *ExtractTextFormatter) SupportedType() string { return typeExtract }

// ExtractMarkdownFormatter wraps the extracted text in a fenced block.
type ExtractMarkdownFormatter struct{}

func (f *ExtractMarkdownFormatter) Format(data any) (string, error) {
	res, err := cast[*extract.Result](data)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("# Extracted Text\n\n")
	b.WriteString(fmt.Sprintf("**Pages:** %d (%d with text)\n", res.PageCount, res.TextPages))
	if len(res.SkippedPages) > 0 {
		b.WriteString(fmt.Sprintf("**Skipped pages:** %s\n", joinInts(res.SkippedPages)))
	}
	b.WriteString("\n```\n")
	b.WriteString(strings.TrimRight(res.Text, "\n"))
	b.WriteString("\n```\n")
	return b.String(), nil
}

func (f *ExtractMarkdownFormatter) SupportedType() string { return typeExtract }

// ReportTextFormatter prints a validation report.
type ReportTextFormatter struct{}

func (f *ReportTextFormatter) Format(data any) (string, error) {
	report, err := cast[*resume.Report](data)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if report.Valid {
		b.WriteString("Resume is valid\n")
	} else {
		b.WriteString("Resume is NOT valid\n")
	}
	if report.Name != "" {
		b.WriteString("Name: " + report.Name + "\n")
	}
	b.WriteString("Sections: " + sectionList(report.Sections) + "\n")
	if report.Error != "" {
		b.WriteString("Error: " + report.Error + "\n")
	}
	writeIssues(&b, "Schema issues:\n", report.SchemaIssues, "  - ")
	writeIssues(&b, "Field issues:\n", report.FieldIssues, "  - ")
	return b.String(), nil
}

func (f *ReportTextFormatter) SupportedType() string { return typeReport }

// ReportMarkdownFormatter prints a validation report as markdown.
type ReportMarkdownFormatter struct{}

func (f *ReportMarkdownFormatter) Format(data any) (string, error) {
	report, err := cast[*resume.Report](data)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("# Validation Report\n\n")
	status := "valid"
	if !report.Valid {
		status = "invalid"
	}
	b.WriteString("**Status:** " + status + "\n")
	if report.Name != "" {
		b.WriteString("**Name:** " + report.Name + "\n")
	}
	b.WriteString("**Sections:** " + sectionList(report.Sections) + "\n")
	if report.Error != "" {
		b.WriteString("**Error:** " + report.Error + "\n")
	}
	writeIssues(&b, "\n## Schema Issues\n\n", report.SchemaIssues, "- ")
	writeIssues(&b, "\n## Field Issues\n\n", report.FieldIssues, "- ")
	return b.String(), nil
}

func (f *ReportMarkdownFormatter) SupportedType() string { return typeReport }

// PipelineTextFormatter prints stage timings, token usage and the final record.
type PipelineTextFormatter struct{}

func (f *PipelineTextFormatter) Format(data any) (string, error) {
	res, err := cast[*pipeline.Result](data)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("Stages:\n")
	for _, s := range res.Stages {
		b.WriteString(fmt.Sprintf("  - %-10s %s\n", s.Stage, s.Duration))
	}
	if res.Usage != nil {
		b.WriteString(fmt.Sprintf("Tokens: %d input, %d output, %d total\n",
			res.Usage.InputTokens, res.Usage.OutputTokens, res.Usage.TotalTokens))
	}
	if res.Document != nil {
		b.WriteString(fmt.Sprintf("Document: %d page(s), %d bytes\n", res.Document.Pages, len(res.Document.Bytes)))
	}
	if res.Final != nil {
		b.WriteString("\n")
		writeRecord(&b, res.Final, textStyle)
	}
	return b.String(), nil
}

func (f *PipelineTextFormatter) SupportedType() string { return typePipeline }

// PipelineMarkdownFormatter prints a pipeline result as markdown.
type PipelineMarkdownFormatter struct{}

func (f *PipelineMarkdownFormatter) Format(data any) (string, error) {
	res, err := cast[*pipeline.Result](data)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("# Pipeline Result\n\n")
	b.WriteString("| Stage | Duration |\n|-------|----------|\n")
	for _, s := range res.Stages {
		b.WriteString(fmt.Sprintf("| %s | %s |\n", s.Stage, s.Duration))
	}
	if res.Usage != nil {
		b.WriteString(fmt.Sprintf("\n**Tokens:** %d input, %d output, %d total\n",
			res.Usage.InputTokens, res.Usage.OutputTokens, res.Usage.TotalTokens))
	}
	if res.Document != nil {
		b.WriteString(fmt.Sprintf("\n**Document:** %d page(s)\n", res.Document.Pages))
	}
	if res.Final != nil {
		b.WriteString("\n---\n\n")
		writeRecord(&b, res.Final, markdownStyle)
	}
	return b.String(), nil
}

func (f *PipelineMarkdownFormatter) SupportedType() string { return typePipeline }

// writeIssues writes header followed by one bullet per issue.
func writeIssues(b *strings.Builder, header string, issues []resume.Issue, bullet string) {
	if len(issues) == 0 {
		return
	}
	b.WriteString(header)
	for _, issue := range issues {
		b.WriteString(bullet + issue.String() + "\n")
	}
}

func sectionList(sections []string) string {
	if len(sections) == 0 {
		return "(none)"
	}
	return strings.Join(sections, ", ")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
