package common

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumetailor/internal/ai"
	"resumetailor/internal/errors"
	"resumetailor/internal/pipeline"
	"resumetailor/internal/render"
	"resumetailor/internal/resume"
	"resumetailor/internal/utils"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestReadSourcesDetectsKinds(t *testing.T) {
	pdf := writeTemp(t, "resume.pdf", "%PDF-1.4\n")
	record := writeTemp(t, "resume.json", `{"name": "Jane Doe"}`)
	text := writeTemp(t, "job.txt", "Go engineer")

	sources, err := NewFileProcessor(nil, 0).ReadSources(pdf, record, text)
	require.NoError(t, err)
	require.Len(t, sources, 3)

	assert.Equal(t, utils.KindPDF, sources[0].Kind)
	assert.Equal(t, utils.KindJSON, sources[1].Kind)
	assert.Equal(t, utils.KindText, sources[2].Kind)
	assert.Equal(t, "Go engineer", sources[2].Text())
}

func TestReadSourcesRejectsLargeAndMissingFiles(t *testing.T) {
	fp := NewFileProcessor(nil, 4)

	_, err := fp.ReadSources(writeTemp(t, "big.txt", "too large"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = fp.ReadSources(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestSourceRecord(t *testing.T) {
	rec, err := (&Source{Kind: utils.KindJSON, Data: []byte(`{"name": "Jane Doe"}`)}).Record()
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", rec.Name.String())

	_, err = (&Source{Kind: utils.KindJSON, Data: []byte(`{"summary": "x"}`)}).Record()
	assert.Error(t, err, "name is required")

	_, err = (&Source{Path: "cv.txt", Kind: utils.KindText, Data: []byte("Jane")}).Record()
	assert.ErrorContains(t, err, "cv.txt is not a JSON resume")
}

func TestSourceApplyTo(t *testing.T) {
	var in pipeline.Input
	require.NoError(t, (&Source{Kind: utils.KindPDF, Data: []byte("%PDF-")}).ApplyTo(&in))
	assert.Equal(t, []byte("%PDF-"), in.PDF)

	in = pipeline.Input{}
	require.NoError(t, (&Source{Kind: utils.KindText, Data: []byte("Jane")}).ApplyTo(&in))
	assert.Equal(t, "Jane", in.Text)

	in = pipeline.Input{}
	require.NoError(t, (&Source{Kind: utils.KindJSON, Data: []byte(`{"name":"Jane"}`)}).ApplyTo(&in))
	require.NotNil(t, in.Record)
}

func TestHandleOutput(t *testing.T) {
	var out bytes.Buffer
	handler := NewOutputHandlerTo(nil, &out)

	rec := &resume.Record{Name: "Jane Doe"}
	require.NoError(t, handler.HandleOutput(rec, CommandConfig{OutputFormat: "json"}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "Jane Doe", decoded["name"])

	path := filepath.Join(t.TempDir(), "out", "resume.md")
	require.NoError(t, handler.HandleOutput(rec, CommandConfig{OutputFile: path, OutputFormat: "markdown"}))
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(written), "# Jane Doe")

	err = handler.HandleOutput(rec, CommandConfig{OutputFormat: "yaml"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestWriteDocument(t *testing.T) {
	var out bytes.Buffer
	handler := NewOutputHandlerTo(nil, &out)
	doc := &render.Document{Bytes: []byte("%PDF-1.4 body"), Pages: 1}

	require.NoError(t, handler.WriteDocument(doc, ""))
	assert.Equal(t, doc.Bytes, out.Bytes())

	path := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, handler.WriteDocument(doc, path))
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc.Bytes, written)
}

func TestRunAICommand(t *testing.T) {
	record := writeTemp(t, "resume.json", `{"name": "Jane Doe"}`)
	job := writeTemp(t, "job.txt", "Go engineer")

	type tailorInput struct {
		rec *resume.Record
		job string
	}
	var out bytes.Buffer
	var logged bool

	err := RunAICommand(
		context.Background(),
		nil,
		CommandConfig{OutputFormat: "text", Out: &out},
		[]string{record, job},
		func(_ context.Context, sources []*Source) (tailorInput, error) {
			rec, err := sources[0].Record()
			return tailorInput{rec: rec, job: sources[1].Text()}, err
		},
		func(_ context.Context, in tailorInput) (*resume.Record, *ai.TokenUsage, error) {
			tailored := *in.rec
			tailored.Summary = resume.Text("Tailored for " + in.job)
			return &tailored, &ai.TokenUsage{TotalTokens: 3}, nil
		},
		func(tailorInput, CommandConfig) { logged = true },
	)
	require.NoError(t, err)
	assert.True(t, logged)
	assert.Contains(t, out.String(), "Tailored for Go engineer")
}

func TestRunAICommandStopsOnInputError(t *testing.T) {
	called := false
	err := RunAICommand(
		context.Background(),
		nil,
		CommandConfig{OutputFormat: "json", Out: &bytes.Buffer{}},
		[]string{writeTemp(t, "resume.txt", "Jane")},
		func(_ context.Context, sources []*Source) (*resume.Record, error) {
			return sources[0].Record()
		},
		func(context.Context, *resume.Record) (*resume.Record, *ai.TokenUsage, error) {
			called = true
			return nil, nil, nil
		},
		func(*resume.Record, CommandConfig) {},
	)
	assert.ErrorContains(t, err, "failed to create input from file contents")
	assert.False(t, called)
}
