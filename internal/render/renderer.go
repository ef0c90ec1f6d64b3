package render

import (
	"fmt"

	"resumetailor/internal/errors"
	"resumetailor/internal/resume"
)

// Option customises a Renderer.
type Option func(*Renderer)

// WithPageSize selects a named page size such as "A4" or "Letter".
func WithPageSize(size string) Option {
	return func(r *Renderer) {
		r.layout.PageSize = size
	}
}

// WithAccentColor sets the color of section titles and their rules.
func WithAccentColor(c Color) Option {
	return func(r *Renderer) {
		r.layout.Accent = c
	}
}

// WithMargins overrides the page margins.
func WithMargins(m Margins) Option {
	return func(r *Renderer) {
		r.layout.Margins = m
	}
}

// Renderer turns résumé records into PDF documents. It holds no per-call
// state and is safe for concurrent use.
type Renderer struct {
	layout Layout
}

// New creates a Renderer with the default layout adjusted by opts.
func New(opts ...Option) *Renderer {
	r := &Renderer{layout: DefaultLayout()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Layout returns the page geometry used for every document.
func (r *Renderer) Layout() Layout {
	return r.layout
}

// Document is a rendered PDF together with its page count.
type Document struct {
	Bytes []byte
	Pages int
}

// Render lays rec out on a fresh document and returns the PDF bytes. On
// failure no bytes are returned.
func (r *Renderer) Render(rec *resume.Record) ([]byte, error) {
	doc, err := r.RenderDocument(rec)
	if err != nil {
		return nil, err
	}
	return doc.Bytes, nil
}

// RenderDocument is Render with the page count of the result.
func (r *Renderer) RenderDocument(rec *resume.Record) (*Document, error) {
	if _, _, ok := PageDimensions(r.layout.PageSize); !ok {
		return nil, errors.NewRenderError(errors.ErrCodeRenderFailed,
			fmt.Sprintf("unsupported page size %q", r.layout.PageSize), nil)
	}

	canvas := NewPDFCanvas(r.layout)
	if err := r.Draw(canvas, rec); err != nil {
		return nil, err
	}

	out, err := canvas.Bytes()
	if err != nil {
		return nil, renderFailure(err)
	}
	return &Document{Bytes: out, Pages: canvas.PageCount()}, nil
}

// Draw lays rec out on c. Sections are placed in a fixed order and each one
// is skipped when its field is absent or empty.
func (r *Renderer) Draw(c Canvas, rec *resume.Record) (err error) {
	if rec == nil {
		return errors.NewRenderError(errors.ErrCodeRenderFailed, "no resume to render", nil)
	}

	defer func() {
		if p := recover(); p != nil {
			err = renderFailure(fmt.Errorf("%v", p))
		}
	}()

	w := &writer{c: c, layout: r.layout}
	w.header(rec)
	w.summary(rec.Summary)
	w.skills(rec.Skills)
	w.education(rec.Education)
	w.experience(rec.Experience)
	w.projects(rec.Projects)
	w.certifications(rec.Certifications)
	w.references(rec.References)

	if err := c.Err(); err != nil {
		return renderFailure(err)
	}
	return nil
}

func renderFailure(cause error) error {
	return errors.NewRenderError(errors.ErrCodeRenderFailed, "failed to lay out resume document", cause)
}
