package common

import (
	"fmt"
	"slices"
	"strings"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// SupportedFormats returns the configured formats the formatter registry
// can actually produce.
func SupportedFormats(configured, available []string) []string {
	if len(configured) == 0 {
		return available
	}
	var formats []string
	for _, f := range configured {
		if slices.Contains(available, f) {
			formats = append(formats, f)
		}
	}
	return formats
}

// ValidateLanguage rejects a translation target that is blank after
// trimming when one was explicitly requested.
func ValidateLanguage(language string, requested bool) error {
	if requested && strings.TrimSpace(language) == "" {
		return fmt.Errorf("target language cannot be empty")
	}
	return nil
}
