package ai

import (
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"resumetailor/internal/errors"
	"resumetailor/internal/resume"
)

// stripFence removes a markdown code fence around a model reply. A reply
// that does not start with a fence is only trimmed.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	parts := strings.SplitN(text, "```", 3)
	body := parts[1]
	body = strings.TrimPrefix(body, "json")
	body = strings.TrimPrefix(body, "JSON")
	return strings.TrimSpace(body)
}

// wrapperKeys are the envelopes some models put around the record.
var wrapperKeys = []string{"resume", "tailored_resume", "translated_resume", "data"}

// decodeRecord turns a model reply into a validated record.
func decodeRecord(text string) (*resume.Record, error) {
	body := stripFence(text)

	if !gjson.Valid(body) {
		return nil, errors.NewAIError(errors.ErrCodeAIResponseParseFailed,
			"AI response is not valid JSON", nil).WithContext("response_preview", preview(body))
	}
	parsed := gjson.Parse(body)
	if !parsed.IsObject() {
		return nil, errors.NewAIError(errors.ErrCodeAIResponseParseFailed,
			"AI response is not a JSON object", nil).WithContext("response_preview", preview(body))
	}

	if !parsed.Get("name").Exists() {
		for _, key := range wrapperKeys {
			if inner := parsed.Get(key); inner.IsObject() {
				body = inner.Raw
				break
			}
		}
	}

	rec, err := resume.Parse([]byte(body))
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIResponseParseFailed, "failed to decode AI response", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIResponseParseFailed, "AI response has no resume name", err)
	}
	return rec, nil
}

func preview(s string) string {
	const limit = 200
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
