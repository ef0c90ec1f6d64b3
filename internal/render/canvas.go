// Package render lays a résumé record out as a paginated PDF document.
package render

// Align is a horizontal text alignment inside a cell or block.
type Align string

const (
	AlignLeft    Align = "L"
	AlignCenter  Align = "C"
	AlignRight   Align = "R"
	AlignJustify Align = "J"
)

// Color is an RGB triple with components in 0..255.
type Color struct {
	R, G, B int
}

var (
	Black     = Color{0, 0, 0}
	SteelBlue = Color{70, 130, 180}
)

// Canvas is the drawing surface the renderer writes to. Units are
// millimetres and the cursor starts at the top-left margin of page one.
//
// WriteWrappedBlock reflows text into lines no wider than w (0 means up to
// the right margin). Before each line it checks the remaining vertical
// space and starts a new page when the line would cross the bottom break
// margin, keeping the current x. On return the cursor sits at the left
// margin just below the last line.
type Canvas interface {
	SetFont(family, style string, size float64)
	SetTextColor(c Color)
	SetDrawColor(c Color)
	StringWidth(s string) float64

	// WriteCell writes a single line of height h. A zero width extends to
	// the right margin. With newLine the cursor moves to the left margin of
	// the next line, otherwise it moves right by the cell width.
	WriteCell(w, h float64, text string, align Align, newLine bool)
	WriteWrappedBlock(w, h float64, text string, align Align)
	DrawLine(x1, y1, x2, y2 float64)
	Ln(h float64)
	NewPage()

	X() float64
	Y() float64
	SetX(x float64)
	LeftMargin() float64
	SetLeftMargin(m float64)
	RightEdge() float64
	SpaceLeft() float64
	PageCount() int

	// Err reports the first failure recorded by the surface.
	Err() error
}

// font is one typographic role.
type font struct {
	family string
	style  string
	size   float64
}

func (f font) apply(c Canvas) {
	c.SetFont(f.family, f.style, f.size)
}

var (
	nameFont    = font{"Times", "B", 24}
	contactFont = font{"Helvetica", "B", 10}
	titleFont   = font{"Helvetica", "B", 11}
	bodyFont    = font{"Helvetica", "", 10}
	boldFont    = font{"Helvetica", "B", 10}
	italicFont  = font{"Helvetica", "I", 10}
	captionFont = font{"Helvetica", "I", 9}
)

// Margins are page margins in millimetres.
type Margins struct {
	Left  float64
	Top   float64
	Right float64
}

// Layout is the fixed page geometry of a rendered document.
type Layout struct {
	PageSize    string
	Margins     Margins
	BreakMargin float64
	Accent      Color
	// BulletOffset is the distance of the bullet glyph from the left margin.
	BulletOffset float64
}

// BulletIndent is the x position of the bullet glyph.
func (l Layout) BulletIndent() float64 {
	return l.Margins.Left + l.BulletOffset
}

// DefaultLayout is A4 with 18/15/18 mm margins and a 20 mm break margin.
func DefaultLayout() Layout {
	return Layout{
		PageSize:     "A4",
		Margins:      Margins{Left: 18, Top: 15, Right: 18},
		BreakMargin:  20,
		Accent:       SteelBlue,
		BulletOffset: 5,
	}
}

var pageSizes = map[string][2]float64{
	"A4":     {210, 297},
	"A5":     {148, 210},
	"Letter": {215.9, 279.4},
	"Legal":  {215.9, 355.6},
}

// PageDimensions returns the width and height in millimetres of a named
// page size.
func PageDimensions(size string) (width, height float64, ok bool) {
	dims, ok := pageSizes[size]
	return dims[0], dims[1], ok
}

// SupportedPageSizes lists the page sizes accepted by WithPageSize.
func SupportedPageSizes() []string {
	return []string{"A4", "A5", "Letter", "Legal"}
}
