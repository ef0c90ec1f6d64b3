package render

import (
	"strings"
	"unicode/utf8"
)

// OpKind identifies a recorded canvas call.
type OpKind string

const (
	OpCell   OpKind = "cell"
	OpBlock  OpKind = "block"
	OpRule   OpKind = "rule"
	OpPage   OpKind = "page"
	OpMargin OpKind = "margin"
)

// Op is one recorded drawing operation. Blocks are recorded one op per
// wrapped line.
type Op struct {
	Kind   OpKind
	Page   int
	X, Y   float64
	W, H   float64
	X2, Y2 float64
	Text   string
	Align  Align
	Family string
	Style  string
	Size   float64
	Color  Color
}

// charWidthFactor approximates the average glyph advance of the core fonts
// as a fraction of the font size in millimetres.
const charWidthFactor = 0.18

// RecordingCanvas is a Canvas that records calls instead of producing a
// document. It tracks the cursor, wraps text with an approximate glyph
// width and breaks pages the same way the PDF canvas does.
type RecordingCanvas struct {
	Ops []Op

	// FailWith, when set, is reported by Err.
	FailWith error

	layout       Layout
	pageW, pageH float64
	x, y, left   float64
	page         int
	family       string
	style        string
	size         float64
	textColor    Color
}

// NewRecordingCanvas returns a canvas positioned at the top of page one.
func NewRecordingCanvas(layout Layout) *RecordingCanvas {
	w, h, ok := PageDimensions(layout.PageSize)
	if !ok {
		w, h, _ = PageDimensions("A4")
	}
	return &RecordingCanvas{
		layout: layout,
		pageW:  w,
		pageH:  h,
		left:   layout.Margins.Left,
		x:      layout.Margins.Left,
		y:      layout.Margins.Top,
		page:   1,
		family: "Helvetica",
		size:   12,
	}
}

func (r *RecordingCanvas) SetFont(family, style string, size float64) {
	r.family, r.style, r.size = family, style, size
}

func (r *RecordingCanvas) SetTextColor(c Color) {
	r.textColor = c
}

func (r *RecordingCanvas) SetDrawColor(Color) {}

func (r *RecordingCanvas) StringWidth(s string) float64 {
	return float64(utf8.RuneCountInString(s)) * r.size * charWidthFactor
}

func (r *RecordingCanvas) WriteCell(w, h float64, text string, align Align, newLine bool) {
	r.breakIfNeeded(h)
	if w == 0 {
		w = r.RightEdge() - r.x
	}
	r.record(OpCell, w, h, text, align)
	if newLine {
		r.x = r.left
		r.y += h
		return
	}
	r.x += w
}

func (r *RecordingCanvas) WriteWrappedBlock(w, h float64, text string, align Align) {
	if w == 0 {
		w = r.RightEdge() - r.x
	}
	startX := r.x
	for _, line := range r.wrap(text, w) {
		r.breakIfNeeded(h)
		r.x = startX
		r.record(OpBlock, w, h, line, align)
		r.y += h
	}
	r.x = r.left
}

func (r *RecordingCanvas) DrawLine(x1, y1, x2, y2 float64) {
	r.Ops = append(r.Ops, Op{Kind: OpRule, Page: r.page, X: x1, Y: y1, X2: x2, Y2: y2})
}

func (r *RecordingCanvas) Ln(h float64) {
	r.x = r.left
	r.y += h
}

func (r *RecordingCanvas) NewPage() {
	r.page++
	r.x = r.left
	r.y = r.layout.Margins.Top
	r.Ops = append(r.Ops, Op{Kind: OpPage, Page: r.page})
}

func (r *RecordingCanvas) X() float64 { return r.x }
func (r *RecordingCanvas) Y() float64 { return r.y }

func (r *RecordingCanvas) SetX(x float64) {
	r.x = x
}

func (r *RecordingCanvas) LeftMargin() float64 {
	return r.left
}

func (r *RecordingCanvas) SetLeftMargin(m float64) {
	r.left = m
	if r.x < m {
		r.x = m
	}
	r.Ops = append(r.Ops, Op{Kind: OpMargin, Page: r.page, X: m})
}

func (r *RecordingCanvas) RightEdge() float64 {
	return r.pageW - r.layout.Margins.Right
}

func (r *RecordingCanvas) SpaceLeft() float64 {
	return r.pageH - r.layout.BreakMargin - r.y
}

func (r *RecordingCanvas) PageCount() int {
	return r.page
}

func (r *RecordingCanvas) Err() error {
	return r.FailWith
}

func (r *RecordingCanvas) breakIfNeeded(h float64) {
	if r.y+h <= r.pageH-r.layout.BreakMargin {
		return
	}
	x := r.x
	r.NewPage()
	r.x = x
}

func (r *RecordingCanvas) record(kind OpKind, w, h float64, text string, align Align) {
	r.Ops = append(r.Ops, Op{
		Kind:   kind,
		Page:   r.page,
		X:      r.x,
		Y:      r.y,
		W:      w,
		H:      h,
		Text:   text,
		Align:  align,
		Family: r.family,
		Style:  r.style,
		Size:   r.size,
		Color:  r.textColor,
	})
}

// wrap breaks text greedily on spaces. A word wider than the line gets a
// line of its own.
func (r *RecordingCanvas) wrap(text string, width float64) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			candidate := current + " " + word
			if r.StringWidth(candidate) > width {
				lines = append(lines, current)
				current = word
				continue
			}
			current = candidate
		}
		lines = append(lines, current)
	}
	return lines
}

// Lines joins the text of consecutive cells and block lines that share a
// baseline, giving the visual lines of the document in order.
func (r *RecordingCanvas) Lines() []string {
	var lines []string
	var current strings.Builder
	lastPage, lastY, open := 0, 0.0, false

	for _, op := range r.Ops {
		if op.Kind != OpCell && op.Kind != OpBlock {
			continue
		}
		if open && (op.Page != lastPage || op.Y != lastY) {
			lines = append(lines, current.String())
			current.Reset()
		}
		current.WriteString(op.Text)
		lastPage, lastY, open = op.Page, op.Y, true
	}
	if open {
		lines = append(lines, current.String())
	}
	return lines
}

// TextOps returns the cell and block ops that carry visible text.
func (r *RecordingCanvas) TextOps() []Op {
	var out []Op
	for _, op := range r.Ops {
		if (op.Kind == OpCell || op.Kind == OpBlock) && strings.TrimSpace(op.Text) != "" {
			out = append(out, op)
		}
	}
	return out
}

// Headings returns the text written in a non-black color, which is how
// section titles are drawn.
func (r *RecordingCanvas) Headings() []string {
	var out []string
	for _, op := range r.TextOps() {
		if op.Color != Black {
			out = append(out, op.Text)
		}
	}
	return out
}
