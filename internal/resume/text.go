package resume

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Text is a string field that accepts any JSON value. Numbers and booleans
// keep their literal form, null decodes to the empty string, and objects or
// arrays are kept as compact JSON so nothing populated is ever lost.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*t = ""
		return nil
	}

	switch data[0] {
	case 'n':
		*t = ""
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*t = Text(buf.String())
	default:
		// numbers and booleans
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string {
	return string(t)
}

// Trimmed returns the value without surrounding whitespace.
func (t Text) Trimmed() string {
	return strings.TrimSpace(string(t))
}

// IsEmpty reports whether the field carries no visible text.
func (t Text) IsEmpty() bool {
	return t.Trimmed() == ""
}

// isScalarJSON reports whether raw is a JSON string, number or boolean.
func isScalarJSON(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch raw[0] {
	case '{', '[', 'n':
		return false
	}
	return true
}

// TextList is an ordered list of text values. A bare scalar decodes as a
// one-element list so that `"technologies": "Go, SQL"` and
// `"technologies": ["Go", "SQL"]` both work.
type TextList []Text

func (l *TextList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == 'n' {
		*l = nil
		return nil
	}

	if data[0] != '[' {
		var single Text
		if err := single.UnmarshalJSON(data); err != nil {
			return err
		}
		if single.IsEmpty() {
			*l = nil
			return nil
		}
		*l = TextList{single}
		return nil
	}

	var items []Text
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// Strings returns the non-empty entries as plain strings.
func (l TextList) Strings() []string {
	out := make([]string, 0, len(l))
	for _, item := range l {
		if !item.IsEmpty() {
			out = append(out, item.String())
		}
	}
	return out
}

// Join joins the non-empty entries with sep.
func (l TextList) Join(sep string) string {
	return strings.Join(l.Strings(), sep)
}

// IsEmpty reports whether the list holds no visible entries.
func (l TextList) IsEmpty() bool {
	return len(l.Strings()) == 0
}
