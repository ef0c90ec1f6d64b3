package formatters

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumetailor/internal/ai"
	"resumetailor/internal/extract"
	"resumetailor/internal/pipeline"
	"resumetailor/internal/render"
	"resumetailor/internal/resume"
)

func sampleRecord() *resume.Record {
	return &resume.Record{
		Name:              "Jane Doe",
		ProfessionalTitle: "Backend Engineer",
		Contact:           resume.Contact{Email: "jane@example.com", Location: "Berlin"},
		Summary:           "Builds reliable services.",
		Skills: resume.NewCategorizedSkills(
			resume.SkillCategory{Name: "Languages", Items: resume.TextList{"Go", "SQL"}},
		),
		Experience: []resume.Experience{{
			Title:   "Engineer",
			Company: "Acme",
			Dates:   "2020 - Present",
			Bullets: resume.TextList{"Shipped the billing service"},
		}},
	}
}

func TestGetSupportedFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "markdown", "text"}, NewFormatterRegistry().GetSupportedFormats())
}

func TestFormatRecord(t *testing.T) {
	registry := NewFormatterRegistry()
	rec := sampleRecord()

	text, err := registry.Format(rec, "text")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "JANE DOE\n"))
	assert.Contains(t, text, "Backend Engineer | Berlin | jane@example.com")
	assert.Contains(t, text, "=== TECHNICAL SKILLS ===")
	assert.Contains(t, text, "  - Languages: Go, SQL")
	assert.Contains(t, text, "Engineer | 2020 - Present\nAcme\n  - Shipped the billing service\n")

	md, err := registry.Format(rec, "markdown")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md, "# Jane Doe\n"))
	assert.Contains(t, md, "## Profile\n\nBuilds reliable services.")
	assert.Contains(t, md, "- **Languages**: Go, SQL")
	assert.Contains(t, md, "### Engineer | 2020 - Present")
	assert.NotContains(t, md, "## Education", "empty sections are omitted")
}

func TestFormatJSONForAnyType(t *testing.T) {
	out, err := NewFormatterRegistry().Format(map[string]int{"pages": 2}, "json")
	require.NoError(t, err)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 2, decoded["pages"])
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestFormatUnknownCombination(t *testing.T) {
	registry := NewFormatterRegistry()

	_, err := registry.Format(map[string]int{}, "text")
	assert.ErrorContains(t, err, "no formatter found for format 'text' and type 'any'")

	_, err = registry.Format(sampleRecord(), "yaml")
	assert.Error(t, err)
}

func TestFormatExtractResult(t *testing.T) {
	res := &extract.Result{Text: "Jane Doe\nEngineer", PageCount: 3, TextPages: 2, SkippedPages: []int{2}}

	text, err := (&ExtractTextFormatter{}).Format(res)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nEngineer\n\n--- 2 of 3 pages contained text, skipped: 2 ---\n", text)

	md, err := (&ExtractMarkdownFormatter{}).Format(res)
	require.NoError(t, err)
	assert.Contains(t, md, "**Pages:** 3 (2 with text)")
	assert.Contains(t, md, "```\nJane Doe\nEngineer\n```")
}

func TestFormatReport(t *testing.T) {
	report := &resume.Report{
		Name:         "Jane Doe",
		Sections:     []string{"summary", "skills"},
		SchemaIssues: []resume.Issue{{Field: "skills", Message: "wrong type"}},
	}

	text, err := GlobalRegistry.Format(report, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Resume is NOT valid")
	assert.Contains(t, text, "Sections: summary, skills")
	assert.Contains(t, text, "Schema issues:\n  - skills: wrong type\n")
	assert.NotContains(t, text, "Field issues")

	md, err := GlobalRegistry.Format(&resume.Report{Valid: true}, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "**Status:** valid")
	assert.Contains(t, md, "**Sections:** (none)")
}

func TestFormatPipelineResult(t *testing.T) {
	res := &pipeline.Result{
		Final:    sampleRecord(),
		Usage:    &ai.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
		Document: &render.Document{Bytes: []byte("%PDF-1.4"), Pages: 1},
		Stages:   []pipeline.StageTiming{{Stage: pipeline.StageStructure, Duration: 2 * time.Second}},
	}

	text, err := GlobalRegistry.Format(res, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "  - structure  2s\n")
	assert.Contains(t, text, "Tokens: 10 input, 5 output, 15 total")
	assert.Contains(t, text, "Document: 1 page(s), 8 bytes")
	assert.Contains(t, text, "JANE DOE")

	md, err := GlobalRegistry.Format(res, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "| structure | 2s |")
	assert.Contains(t, md, "# Jane Doe")
}

func TestFormatterRejectsWrongType(t *testing.T) {
	_, err := (&RecordTextFormatter{}).Format("not a record")
	assert.ErrorContains(t, err, "expected *resume.Record, got string")
}

func TestJoinNonEmpty(t *testing.T) {
	assert.Equal(t, "a | c", joinNonEmpty(" | ", "a", " ", "c"))
	assert.Equal(t, "", joinNonEmpty(", "))
}
