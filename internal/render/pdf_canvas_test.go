package render

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumetailor/internal/errors"
	"resumetailor/internal/resume"
)

func TestRenderProducesPDF(t *testing.T) {
	rec, err := resume.Parse([]byte(fullResume))
	require.NoError(t, err)

	out, err := New().Render(rec)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.True(t, bytes.Contains(out, []byte("%%EOF")))
}

func TestRenderIsDeterministic(t *testing.T) {
	rec, err := resume.Parse([]byte(fullResume))
	require.NoError(t, err)

	r := New()
	first, err := r.Render(rec)
	require.NoError(t, err)
	second, err := r.Render(rec)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "same record must render byte-identical output")
}

func TestRenderConcurrentCallsAreIndependent(t *testing.T) {
	rec, err := resume.Parse([]byte(fullResume))
	require.NoError(t, err)

	r := New()
	want, err := r.Render(rec)
	require.NoError(t, err)

	const workers = 8
	results := make([][]byte, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = r.Render(rec)
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.True(t, bytes.Equal(want, results[i]))
	}
}

func TestPDFCanvasPagination(t *testing.T) {
	t.Run("name only fits one page", func(t *testing.T) {
		c := NewPDFCanvas(DefaultLayout())
		require.NoError(t, New().Draw(c, &resume.Record{Name: "Jane Doe"}))
		assert.Equal(t, 1, c.PageCount())
	})

	t.Run("long bullets spill onto more pages", func(t *testing.T) {
		bullets := make(resume.TextList, 60)
		for i := range bullets {
			bullets[i] = resume.Text(strings.Repeat("Owned the on-call rotation and incident reviews. ", 5))
		}
		rec := &resume.Record{
			Name:       "Jane Doe",
			Experience: []resume.Experience{{Title: "SRE", Bullets: bullets}},
		}

		c := NewPDFCanvas(DefaultLayout())
		require.NoError(t, New().Draw(c, rec))
		assert.Greater(t, c.PageCount(), 1)
	})
}

func TestPDFCanvasGeometry(t *testing.T) {
	c := NewPDFCanvas(DefaultLayout())

	assert.InDelta(t, 192.0, c.RightEdge(), 1e-9)
	assert.InDelta(t, 18.0, c.LeftMargin(), 1e-9)
	assert.InDelta(t, 15.0, c.Y(), 1e-9)
	assert.InDelta(t, 297.0-20.0-15.0, c.SpaceLeft(), 1e-9)
}

func TestRenderHandlesNonASCII(t *testing.T) {
	rec := &resume.Record{
		Name:    "José Müller",
		Summary: "Entwickelt Systeme für Zürich – fünf Jahre Erfahrung.",
	}
	out, err := New().Render(rec)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRenderRejectsTextOutsideCoreFonts(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		text string
	}{
		{"cyrillic name", `{"name": "Иван Петров"}`, "ИВАН ПЕТРОВ"},
		{"japanese summary", `{"name": "Jane Doe", "summary": "Engineer 日本語"}`, "日本語"},
		{"polish bullet", `{"name": "Jane Doe", "experience": [{"title": "Dev", "bullets": ["Pracowałem w Łodzi"]}]}`, "Łodzi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New().Render(mustParse(t, tt.doc))
			require.Error(t, err)
			assert.Nil(t, out)

			appErr, ok := errors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrorTypeRender, appErr.Type)
			assert.Equal(t, errors.ErrCodeRenderFailed, appErr.Code)
			assert.Contains(t, err.Error(), tt.text)
		})
	}
}

func TestUnencodableRune(t *testing.T) {
	_, bad := unencodableRune("José Müller – 5 € “quoted” … naïve")
	assert.False(t, bad)

	r, bad := unencodableRune("Łukasz")
	assert.True(t, bad)
	assert.Equal(t, 'Ł', r)
}

func TestRenderUnsupportedPageSize(t *testing.T) {
	out, err := New(WithPageSize("Tabloid")).Render(&resume.Record{Name: "A"})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRender))
}

func TestRenderLetterPage(t *testing.T) {
	out, err := New(WithPageSize("Letter")).Render(&resume.Record{Name: "A"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderDocumentReportsPages(t *testing.T) {
	doc, err := New().RenderDocument(&resume.Record{Name: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Pages)
	assert.True(t, bytes.HasPrefix(doc.Bytes, []byte("%PDF-")))
}

func TestRenderDocumentPaginates(t *testing.T) {
	bullets := make(resume.TextList, 60)
	for i := range bullets {
		bullets[i] = resume.Text(strings.Repeat("Delivered measurable improvements across teams ", 6))
	}
	rec := &resume.Record{
		Name:       "Jane Doe",
		Experience: []resume.Experience{{Title: "Engineer", Company: "Acme", Bullets: bullets}},
	}

	doc, err := New().RenderDocument(rec)
	require.NoError(t, err)
	assert.Greater(t, doc.Pages, 1)
}
