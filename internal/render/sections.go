package render

import (
	"strings"

	"resumetailor/internal/resume"
)

const (
	bulletGlyph       = "-  "
	lineHeight        = 5.0
	entryHeight       = 6.0
	titleHeight       = 7.0
	titleAdvance      = 10.0
	ruleOffset        = 3.5
	availableOnAsking = "Available upon request"
)

// writer carries the canvas through one layout pass.
type writer struct {
	c      Canvas
	layout Layout
}

// joinNonEmpty joins the trimmed non-empty parts with sep.
func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// withLeftMargin runs fn with the left margin moved to m and puts the
// previous margin back however fn exits.
func (w *writer) withLeftMargin(m float64, fn func()) {
	prev := w.c.LeftMargin()
	w.c.SetLeftMargin(m)
	defer w.c.SetLeftMargin(prev)
	fn()
}

// keepWithNext starts a new page when less than h is left, so a title is
// not stranded at the bottom of a page.
func (w *writer) keepWithNext(h float64) {
	if w.c.SpaceLeft() < h {
		w.c.NewPage()
	}
}

func (w *writer) sectionTitle(title string) {
	w.keepWithNext(titleAdvance + entryHeight)

	titleFont.apply(w.c)
	w.c.SetTextColor(w.layout.Accent)

	text := strings.ToUpper(title)
	w.c.WriteCell(w.c.StringWidth(text)+4, titleHeight, text, AlignLeft, false)

	y := w.c.Y() + ruleOffset
	w.c.SetDrawColor(w.layout.Accent)
	w.c.DrawLine(w.c.X()+2, y, w.c.RightEdge(), y)

	w.c.SetTextColor(Black)
	w.c.Ln(titleAdvance)
}

// bullet writes the glyph at the bullet indent and wraps text so that
// continuation lines align with the first word, not with the glyph.
func (w *writer) bullet(text string) {
	bodyFont.apply(w.c)
	glyphWidth := w.c.StringWidth(bulletGlyph)

	indent := w.layout.BulletIndent()
	w.c.SetX(indent)
	w.c.WriteCell(glyphWidth, lineHeight, bulletGlyph, AlignLeft, false)

	w.withLeftMargin(indent+glyphWidth, func() {
		w.c.WriteWrappedBlock(0, lineHeight, text, AlignJustify)
	})
}

func (w *writer) bullets(items resume.TextList) {
	for _, item := range items.Strings() {
		w.bullet(item)
	}
}

func (w *writer) header(rec *resume.Record) {
	nameFont.apply(w.c)
	w.c.WriteCell(0, 12, strings.ToUpper(rec.Name.Trimmed()), AlignCenter, true)
	w.c.Ln(2)

	contact := joinNonEmpty(" | ",
		rec.DisplayTitle(),
		rec.Contact.Location.String(),
		rec.Contact.Phone.String(),
		rec.Contact.Email.String(),
	)
	if contact != "" {
		contactFont.apply(w.c)
		w.c.WriteCell(0, entryHeight, contact, AlignCenter, true)
	}
	w.c.Ln(6)
}

func (w *writer) summary(summary resume.Text) {
	if summary.IsEmpty() {
		return
	}
	w.sectionTitle("Profile")
	bodyFont.apply(w.c)
	w.c.WriteWrappedBlock(0, lineHeight, summary.Trimmed(), AlignJustify)
	w.c.Ln(4)
}

func (w *writer) skills(skills resume.Skills) {
	flat := skills.Flatten()
	if len(flat) == 0 {
		return
	}
	w.sectionTitle("Technical Skills")
	bodyFont.apply(w.c)
	w.c.WriteWrappedBlock(0, lineHeight, strings.Join(flat, ", "), AlignJustify)
	w.c.Ln(4)
}

func (w *writer) education(entries []resume.Education) {
	if len(entries) == 0 {
		return
	}
	w.sectionTitle("Education")

	for _, edu := range entries {
		degree := edu.Degree.Trimmed()
		if !edu.Field.IsEmpty() {
			degree += " in " + edu.Field.Trimmed()
		}

		boldFont.apply(w.c)
		lead := "- " + degree
		w.c.WriteCell(w.c.StringWidth(lead)+2, entryHeight, lead, AlignLeft, false)

		rest := joinNonEmpty(" | ", edu.Institution.String(), edu.Location.String(), edu.Dates.String())
		if rest == "" {
			w.c.Ln(entryHeight)
			continue
		}
		bodyFont.apply(w.c)
		w.c.WriteCell(0, entryHeight, " - "+rest, AlignLeft, true)
	}
	w.c.Ln(4)
}

func (w *writer) experience(entries []resume.Experience) {
	if len(entries) == 0 {
		return
	}
	w.sectionTitle("Experience")

	for _, exp := range entries {
		boldFont.apply(w.c)
		if !exp.Title.IsEmpty() {
			w.c.WriteCell(0, entryHeight, exp.Title.Trimmed(), AlignLeft, true)
		}

		company := joinNonEmpty(" | ", exp.Company.String(), exp.Type.String(), exp.Location.String())
		w.c.WriteCell(0, lineHeight, company, AlignLeft, false)
		bodyFont.apply(w.c)
		w.c.WriteCell(0, lineHeight, exp.Dates.Trimmed(), AlignRight, true)
		w.c.Ln(2)

		w.bullets(exp.Bullets)
		w.c.Ln(4)
	}
}

func (w *writer) projects(entries []resume.Project) {
	if len(entries) == 0 {
		return
	}
	w.sectionTitle("Projects")

	for _, project := range entries {
		if !project.Name.IsEmpty() {
			boldFont.apply(w.c)
			w.c.WriteCell(0, entryHeight, project.Name.Trimmed(), AlignLeft, true)
		}
		if techs := project.Technologies.Join(", "); techs != "" {
			captionFont.apply(w.c)
			w.c.WriteCell(0, lineHeight, techs, AlignLeft, true)
		}
		if !project.Description.IsEmpty() {
			bodyFont.apply(w.c)
			w.c.WriteWrappedBlock(0, lineHeight, project.Description.Trimmed(), AlignJustify)
		}
		w.bullets(project.Bullets)
		w.c.Ln(3)
	}
}

func (w *writer) certifications(entries []resume.Certification) {
	if len(entries) == 0 {
		return
	}
	w.sectionTitle("Certifications")
	bodyFont.apply(w.c)

	for _, cert := range entries {
		line := "- " + cert.Name.Trimmed()
		if detail := joinNonEmpty(" | ", cert.Issuer.String(), cert.Date.String()); detail != "" {
			line += " - " + detail
		}
		w.c.WriteCell(0, entryHeight, line, AlignLeft, true)
	}
	w.c.Ln(4)
}

// references lists the given referees. Without any, only the closing
// "Available upon request" line is written.
func (w *writer) references(entries []resume.Reference) {
	if len(entries) == 0 {
		italicFont.apply(w.c)
		w.c.WriteCell(0, entryHeight, availableOnAsking, AlignLeft, true)
		return
	}

	w.sectionTitle("References")
	bodyFont.apply(w.c)
	for _, ref := range entries {
		line := "- " + ref.Name.Trimmed()
		if !ref.Title.IsEmpty() {
			line += ", " + ref.Title.Trimmed()
		}
		if !ref.Company.IsEmpty() {
			line += " at " + ref.Company.Trimmed()
		}
		if !ref.Contact.IsEmpty() {
			line += " - " + ref.Contact.Trimmed()
		}
		w.c.WriteCell(0, entryHeight, line, AlignLeft, true)
	}
	w.c.Ln(4)
}
