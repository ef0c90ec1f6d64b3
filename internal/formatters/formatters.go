package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"resumetailor/internal/extract"
	"resumetailor/internal/pipeline"
	"resumetailor/internal/resume"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry holds the default formatters.
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	for _, f := range []Formatter{&RecordTextFormatter{}, &ExtractTextFormatter{}, &ReportTextFormatter{}, &PipelineTextFormatter{}} {
		registry.RegisterFormatter("text", f.SupportedType(), f)
	}
	for _, f := range []Formatter{&RecordMarkdownFormatter{}, &ExtractMarkdownFormatter{}, &ReportMarkdownFormatter{}, &PipelineMarkdownFormatter{}} {
		registry.RegisterFormatter("markdown", f.SupportedType(), f)
	}

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted.
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

const (
	typeRecord   = "Record"
	typeExtract  = "ExtractResult"
	typeReport   = "Report"
	typePipeline = "PipelineResult"
)

func getDataType(data any) string {
	switch data.(type) {
	case *resume.Record:
		return typeRecord
	case *extract.Result:
		return typeExtract
	case *resume.Report:
		return typeReport
	case *pipeline.Result:
		return typePipeline
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

func cast[T any](data any) (T, error) {
	v, ok := data.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("expected %T, got %T", zero, data)
	}
	return v, nil
}

// joinNonEmpty joins the non-blank parts with sep.
func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
