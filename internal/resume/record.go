// Package resume holds the structured résumé record exchanged between the
// extraction, AI and rendering stages.
package resume

import (
	"bytes"
	"encoding/json"
	"fmt"

	"resumetailor/internal/errors"
)

// Record is the structured form of a résumé. Only Name is required.
type Record struct {
	Name              Text            `json:"name"`
	ProfessionalTitle Text            `json:"professional_title,omitempty"`
	Contact           Contact         `json:"contact,omitzero"`
	Summary           Text            `json:"summary,omitempty"`
	Skills            Skills          `json:"skills,omitzero"`
	Education         []Education     `json:"education,omitempty"`
	Experience        []Experience    `json:"experience,omitempty"`
	Projects          []Project       `json:"projects,omitempty"`
	Certifications    []Certification `json:"certifications,omitempty"`
	References        []Reference     `json:"references,omitempty"`

	issues []Issue
}

type Contact struct {
	Email    Text `json:"email,omitempty"`
	Phone    Text `json:"phone,omitempty"`
	Location Text `json:"location,omitempty"`
	LinkedIn Text `json:"linkedin,omitempty"`
	GitHub   Text `json:"github,omitempty"`
	Website  Text `json:"website,omitempty"`
}

type Education struct {
	Institution Text `json:"institution,omitempty"`
	Degree      Text `json:"degree,omitempty"`
	Field       Text `json:"field,omitempty"`
	Location    Text `json:"location,omitempty"`
	Dates       Text `json:"dates,omitempty"`
	GPA         Text `json:"gpa,omitempty"`
}

type Experience struct {
	Title    Text     `json:"title,omitempty"`
	Company  Text     `json:"company,omitempty"`
	Type     Text     `json:"type,omitempty"`
	Location Text     `json:"location,omitempty"`
	Dates    Text     `json:"dates,omitempty"`
	Bullets  TextList `json:"bullets,omitempty"`
}

type Project struct {
	Name         Text     `json:"name,omitempty"`
	Description  Text     `json:"description,omitempty"`
	Technologies TextList `json:"technologies,omitempty"`
	Bullets      TextList `json:"bullets,omitempty"`
}

type Certification struct {
	Name   Text `json:"name,omitempty"`
	Issuer Text `json:"issuer,omitempty"`
	Date   Text `json:"date,omitempty"`
}

type Reference struct {
	Name    Text `json:"name,omitempty"`
	Title   Text `json:"title,omitempty"`
	Company Text `json:"company,omitempty"`
	Contact Text `json:"contact,omitempty"`
}

// Issue describes a field that had an unexpected shape and was coerced or
// skipped while decoding.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// IsZero reports whether no contact detail is set.
func (c Contact) IsZero() bool {
	return c == Contact{}
}

// Issues returns the shape problems found while decoding the record.
func (r *Record) Issues() []Issue {
	return r.issues
}

// DisplayTitle is the professional title, falling back to the first
// experience entry's title.
func (r *Record) DisplayTitle() string {
	if !r.ProfessionalTitle.IsEmpty() {
		return r.ProfessionalTitle.Trimmed()
	}
	if len(r.Experience) > 0 {
		return r.Experience[0].Title.Trimmed()
	}
	return ""
}

// Validate checks the record carries the one required field.
func (r *Record) Validate() error {
	if r.Name.IsEmpty() {
		return errors.NewValidationError(errors.ErrCodeInvalidResume, "resume name is required", nil)
	}
	return nil
}

// Parse decodes a JSON résumé. Only a document that is not a JSON object is
// rejected; fields with the wrong shape are coerced and reported through
// Record.Issues.
func Parse(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, "resume is not a valid JSON object", err)
	}
	return &rec, nil
}

// UnmarshalJSON decodes each known field on its own so one malformed field
// never takes its siblings down with it.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var rec Record
	d := &fieldDecoder{fields: fields}
	d.text("name", &rec.Name)
	d.text("professional_title", &rec.ProfessionalTitle)
	d.object("contact", &rec.Contact)
	d.text("summary", &rec.Summary)
	d.value("skills", &rec.Skills)
	decodeList(d, "education", &rec.Education)
	decodeList(d, "experience", &rec.Experience)
	decodeList(d, "projects", &rec.Projects)
	decodeList(d, "certifications", &rec.Certifications)
	decodeList(d, "references", &rec.References)

	rec.issues = d.issues
	*r = rec
	return nil
}

type fieldDecoder struct {
	fields map[string]json.RawMessage
	issues []Issue
}

func (d *fieldDecoder) report(field, format string, args ...any) {
	d.issues = append(d.issues, Issue{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (d *fieldDecoder) raw(key string) (json.RawMessage, bool) {
	raw, ok := d.fields[key]
	if !ok {
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == 'n' {
		return nil, false
	}
	return raw, true
}

func (d *fieldDecoder) text(key string, dst *Text) {
	raw, ok := d.raw(key)
	if !ok {
		return
	}
	if !isScalarJSON(raw) {
		d.report(key, "expected a string, kept the JSON text")
	}
	if err := dst.UnmarshalJSON(raw); err != nil {
		d.report(key, "%v", err)
	}
}

func (d *fieldDecoder) object(key string, dst any) {
	raw, ok := d.raw(key)
	if !ok {
		return
	}
	if raw[0] != '{' {
		d.report(key, "expected an object, field skipped")
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		d.report(key, "%v", err)
	}
}

func (d *fieldDecoder) value(key string, dst json.Unmarshaler) {
	raw, ok := d.raw(key)
	if !ok {
		return
	}
	if err := dst.UnmarshalJSON(raw); err != nil {
		d.report(key, "%v", err)
	}
}

// decodeList accepts an array of objects or a single object. Entries that
// are not objects are skipped and reported.
func decodeList[T any](d *fieldDecoder, key string, dst *[]T) {
	raw, ok := d.raw(key)
	if !ok {
		return
	}

	var elems []json.RawMessage
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &elems); err != nil {
			d.report(key, "%v", err)
			return
		}
	case '{':
		d.report(key, "expected an array, treated the object as a single entry")
		elems = []json.RawMessage{raw}
	default:
		d.report(key, "expected an array, field skipped")
		return
	}

	out := make([]T, 0, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			d.report(fmt.Sprintf("%s[%d]", key, i), "expected an object, entry skipped")
			continue
		}
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			d.report(fmt.Sprintf("%s[%d]", key, i), "%v", err)
			continue
		}
		out = append(out, item)
	}
	*dst = out
}
