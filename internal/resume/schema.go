package resume

import (
	_ "embed"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"resumetailor/internal/errors"
)

//go:embed schema.json
var schemaJSON []byte

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// Schema returns the embedded JSON schema document.
func Schema() []byte {
	return schemaJSON
}

// CheckSchema validates a raw JSON résumé against the embedded schema and
// returns every violation as an Issue. An error is returned only when the
// document cannot be validated at all. Violations are advisory: Parse still
// coerces what it can.
func CheckSchema(data []byte) ([]Issue, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeSchemaInvalid, "embedded resume schema failed to load", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, "resume is not valid JSON", err)
	}
	if result.Valid() {
		return nil, nil
	}

	issues := make([]Issue, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, Issue{Field: e.Field(), Message: e.Description()})
	}
	return issues, nil
}
