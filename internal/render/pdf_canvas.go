package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

// documentDate pins the PDF info dates so identical input renders to
// identical bytes.
var documentDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// PDFCanvas draws onto an fpdf document using the core fonts.
type PDFCanvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// NewPDFCanvas starts a fresh document with the first page added.
func NewPDFCanvas(layout Layout) *PDFCanvas {
	pdf := fpdf.New("P", "mm", layout.PageSize, "")
	pdf.SetCreationDate(documentDate)
	pdf.SetModificationDate(documentDate)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(layout.Margins.Left, layout.Margins.Top, layout.Margins.Right)
	pdf.SetAutoPageBreak(true, layout.BreakMargin)
	pdf.AddPage()

	return &PDFCanvas{
		pdf: pdf,
		// core fonts are cp1252 encoded
		tr: pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (p *PDFCanvas) SetFont(family, style string, size float64) {
	p.pdf.SetFont(family, style, size)
}

func (p *PDFCanvas) SetTextColor(c Color) {
	p.pdf.SetTextColor(c.R, c.G, c.B)
}

func (p *PDFCanvas) SetDrawColor(c Color) {
	p.pdf.SetDrawColor(c.R, c.G, c.B)
}

func (p *PDFCanvas) StringWidth(s string) float64 {
	return p.pdf.GetStringWidth(p.tr(s))
}

func (p *PDFCanvas) WriteCell(w, h float64, text string, align Align, newLine bool) {
	if !p.encodable(text) {
		return
	}
	ln := 0
	if newLine {
		ln = 1
	}
	p.pdf.CellFormat(w, h, p.tr(text), "", ln, string(align), false, 0, "")
}

func (p *PDFCanvas) WriteWrappedBlock(w, h float64, text string, align Align) {
	if !p.encodable(text) {
		return
	}
	p.pdf.MultiCell(w, h, p.tr(text), "", string(align), false)
}

// encodable reports whether the core fonts can show text. The translator
// would print '.' for anything outside cp1252, so such text fails the
// document instead.
func (p *PDFCanvas) encodable(text string) bool {
	if r, ok := unencodableRune(text); ok {
		p.pdf.SetError(fmt.Errorf("text %q contains %q (U+%04X), which the cp1252 core fonts cannot encode", text, r, r))
		return false
	}
	return true
}

// unencodableRune returns the first rune of s with no cp1252 code.
func unencodableRune(s string) (rune, bool) {
	for _, r := range s {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return r, true
		}
	}
	return 0, false
}

func (p *PDFCanvas) DrawLine(x1, y1, x2, y2 float64) {
	p.pdf.Line(x1, y1, x2, y2)
}

func (p *PDFCanvas) Ln(h float64) {
	p.pdf.Ln(h)
}

func (p *PDFCanvas) NewPage() {
	p.pdf.AddPage()
}

func (p *PDFCanvas) X() float64 {
	return p.pdf.GetX()
}

func (p *PDFCanvas) Y() float64 {
	return p.pdf.GetY()
}

func (p *PDFCanvas) SetX(x float64) {
	p.pdf.SetX(x)
}

func (p *PDFCanvas) LeftMargin() float64 {
	left, _, _, _ := p.pdf.GetMargins()
	return left
}

func (p *PDFCanvas) SetLeftMargin(m float64) {
	p.pdf.SetLeftMargin(m)
}

func (p *PDFCanvas) RightEdge() float64 {
	width, _ := p.pdf.GetPageSize()
	_, _, right, _ := p.pdf.GetMargins()
	return width - right
}

func (p *PDFCanvas) SpaceLeft() float64 {
	_, height := p.pdf.GetPageSize()
	_, _, _, bottom := p.pdf.GetMargins()
	return height - bottom - p.pdf.GetY()
}

func (p *PDFCanvas) PageCount() int {
	return p.pdf.PageCount()
}

func (p *PDFCanvas) Err() error {
	return p.pdf.Error()
}

// Bytes closes the document and returns its encoded form.
func (p *PDFCanvas) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
