package resume

// Report is the outcome of checking a JSON résumé before rendering.
type Report struct {
	Valid        bool     `json:"valid"`
	Name         string   `json:"name,omitempty"`
	Sections     []string `json:"sections"`
	SchemaIssues []Issue  `json:"schemaIssues,omitempty"`
	FieldIssues  []Issue  `json:"fieldIssues,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Check validates data against the schema, decodes it and reports which
// sections would be rendered. Only a document that is not a JSON object
// returns an error; everything else ends up in the report.
func Check(data []byte) (*Report, error) {
	rec, err := Parse(data)
	if err != nil {
		return nil, err
	}
	schemaIssues, err := CheckSchema(data)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Name:         rec.Name.Trimmed(),
		Sections:     rec.Sections(),
		SchemaIssues: schemaIssues,
		FieldIssues:  rec.Issues(),
	}
	if err := rec.Validate(); err != nil {
		report.Error = err.Error()
	}
	report.Valid = report.Error == "" && len(schemaIssues) == 0
	return report, nil
}

// Sections lists the populated top-level fields in render order.
func (r *Record) Sections() []string {
	var sections []string
	add := func(name string, populated bool) {
		if populated {
			sections = append(sections, name)
		}
	}

	add("summary", !r.Summary.IsEmpty())
	add("skills", !r.Skills.IsZero())
	add("education", len(r.Education) > 0)
	add("experience", len(r.Experience) > 0)
	add("projects", len(r.Projects) > 0)
	add("certifications", len(r.Certifications) > 0)
	add("references", len(r.References) > 0)
	return sections
}
