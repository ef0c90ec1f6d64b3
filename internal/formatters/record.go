package formatters

import (
	"fmt"
	"strings"

	"resumetailor/internal/resume"
)

// style decides how headings and entries look in a plain output format.
type style struct {
	title    func(name string) string
	heading  func(name string) string
	entry    func(line string) string
	emphasis func(s string) string
	bullet   string
}

var textStyle = style{
	title:    func(name string) string { return strings.ToUpper(name) + "\n" },
	heading:  func(name string) string { return "\n=== " + strings.ToUpper(name) + " ===\n" },
	entry:    func(line string) string { return line },
	emphasis: func(s string) string { return s },
	bullet:   "  - ",
}

var markdownStyle = style{
	title:    func(name string) string { return "# " + name + "\n" },
	heading:  func(name string) string { return "\n## " + name + "\n\n" },
	entry:    func(line string) string { return "### " + line },
	emphasis: func(s string) string { return "**" + s + "**" },
	bullet:   "- ",
}

// writeRecord writes rec in the section order of the rendered document.
func writeRecord(b *strings.Builder, rec *resume.Record, st style) {
	b.WriteString(st.title(rec.Name.Trimmed()))
	c := rec.Contact
	if line := joinNonEmpty(" | ", rec.DisplayTitle(), c.Location.Trimmed(), c.Phone.Trimmed(), c.Email.Trimmed()); line != "" {
		b.WriteString(line + "\n")
	}
	if links := joinNonEmpty(" | ", c.LinkedIn.Trimmed(), c.GitHub.Trimmed(), c.Website.Trimmed()); links != "" {
		b.WriteString(links + "\n")
	}

	if !rec.Summary.IsEmpty() {
		b.WriteString(st.heading("Profile"))
		b.WriteString(rec.Summary.Trimmed() + "\n")
	}

	writeSkills(b, rec.Skills, st)

	if len(rec.Education) > 0 {
		b.WriteString(st.heading("Education"))
		for _, e := range rec.Education {
			degree := e.Degree.Trimmed()
			if !e.Field.IsEmpty() {
				degree = joinNonEmpty(" in ", degree, e.Field.Trimmed())
			}
			line := joinNonEmpty(" - ", st.emphasis(degree), e.Institution.Trimmed())
			if degree == "" {
				line = e.Institution.Trimmed()
			}
			line = joinNonEmpty(" | ", line, e.Location.Trimmed(), e.Dates.Trimmed())
			if !e.GPA.IsEmpty() {
				line += " (GPA " + e.GPA.Trimmed() + ")"
			}
			b.WriteString(st.bullet + line + "\n")
		}
	}

	if len(rec.Experience) > 0 {
		b.WriteString(st.heading("Experience"))
		for i, e := range rec.Experience {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(st.entry(joinNonEmpty(" | ", e.Title.Trimmed(), e.Dates.Trimmed())) + "\n")
			if meta := joinNonEmpty(" | ", e.Company.Trimmed(), e.Type.Trimmed(), e.Location.Trimmed()); meta != "" {
				b.WriteString(meta + "\n")
			}
			writeBullets(b, e.Bullets, st)
		}
	}

	if len(rec.Projects) > 0 {
		b.WriteString(st.heading("Projects"))
		for i, p := range rec.Projects {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(st.entry(p.Name.Trimmed()) + "\n")
			if !p.Technologies.IsEmpty() {
				b.WriteString("Technologies: " + p.Technologies.Join(", ") + "\n")
			}
			if !p.Description.IsEmpty() {
				b.WriteString(p.Description.Trimmed() + "\n")
			}
			writeBullets(b, p.Bullets, st)
		}
	}

	if len(rec.Certifications) > 0 {
		b.WriteString(st.heading("Certifications"))
		for _, cert := range rec.Certifications {
			line := joinNonEmpty(" - ", cert.Name.Trimmed(), cert.Issuer.Trimmed())
			line = joinNonEmpty(" | ", line, cert.Date.Trimmed())
			b.WriteString(st.bullet + line + "\n")
		}
	}

	if len(rec.References) > 0 {
		b.WriteString(st.heading("References"))
		for _, ref := range rec.References {
			line := ref.Name.Trimmed()
			if !ref.Title.IsEmpty() {
				line += ", " + ref.Title.Trimmed()
			}
			if !ref.Company.IsEmpty() {
				line += " at " + ref.Company.Trimmed()
			}
			if !ref.Contact.IsEmpty() {
				line += " - " + ref.Contact.Trimmed()
			}
			b.WriteString(st.bullet + line + "\n")
		}
	}
}

// writeSkills keeps category labels, unlike the PDF which flattens them.
func writeSkills(b *strings.Builder, skills resume.Skills, st style) {
	if skills.IsZero() {
		return
	}
	b.WriteString(st.heading("Technical Skills"))
	if skills.Kind != resume.SkillsCategorized {
		b.WriteString(strings.Join(skills.Flatten(), ", ") + "\n")
		return
	}
	for _, category := range skills.Categories {
		if category.Items.IsEmpty() {
			continue
		}
		b.WriteString(fmt.Sprintf("%s%s: %s\n", st.bullet, st.emphasis(category.Name), category.Items.Join(", ")))
	}
}

func writeBullets(b *strings.Builder, bullets resume.TextList, st style) {
	for _, bullet := range bullets.Strings() {
		b.WriteString(st.bullet + strings.TrimSpace(bullet) + "\n")
	}
}

// RecordTextFormatter renders a record as plain text.
type RecordTextFormatter struct{}

func (f *RecordTextFormatter) Format(data any) (string, error) {
	rec, err := cast[*resume.Record](data)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	writeRecord(&b, rec, textStyle)
	return b.String(), nil
}

func (f *RecordTextFormatter) SupportedType() string { return typeRecord }

// RecordMarkdownFormatter renders a record as a markdown document.
type RecordMarkdownFormatter struct{}

func (f *RecordMarkdownFormatter) Format(data any) (string, error) {
	rec, err := cast[*resume.Record](data)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	writeRecord(&b, rec, markdownStyle)
	return b.String(), nil
}

func (f *RecordMarkdownFormatter) SupportedType() string { return typeRecord }
