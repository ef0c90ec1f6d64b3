package resume

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SkillsKind tags which representation a Skills value holds.
type SkillsKind int

const (
	SkillsNone SkillsKind = iota
	SkillsList
	SkillsCategorized
)

func (k SkillsKind) String() string {
	switch k {
	case SkillsList:
		return "list"
	case SkillsCategorized:
		return "categorized"
	default:
		return "none"
	}
}

// SkillCategory is one labelled group of skills.
type SkillCategory struct {
	Name  string
	Items TextList
}

// Skills is either a flat list of skill names or an ordered set of
// categories. Category order follows the source document.
type Skills struct {
	Kind       SkillsKind
	List       TextList
	Categories []SkillCategory
}

// NewSkillList builds a flat skills value.
func NewSkillList(items ...string) Skills {
	list := make(TextList, len(items))
	for i, item := range items {
		list[i] = Text(item)
	}
	return Skills{Kind: SkillsList, List: list}
}

// NewCategorizedSkills builds a categorized skills value.
func NewCategorizedSkills(categories ...SkillCategory) Skills {
	return Skills{Kind: SkillsCategorized, Categories: categories}
}

// Flatten returns every skill name in order. Category labels are dropped.
func (s Skills) Flatten() []string {
	switch s.Kind {
	case SkillsList:
		return s.List.Strings()
	case SkillsCategorized:
		var out []string
		for _, category := range s.Categories {
			out = append(out, category.Items.Strings()...)
		}
		return out
	default:
		return nil
	}
}

// IsZero reports whether there is nothing to render.
func (s Skills) IsZero() bool {
	return len(s.Flatten()) == 0
}

func (s *Skills) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = Skills{}
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case 'n':
		return nil
	case '[':
		var list TextList
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*s = Skills{Kind: SkillsList, List: list}
		return nil
	case '{':
		categories, err := decodeCategories(data)
		if err != nil {
			return err
		}
		*s = Skills{Kind: SkillsCategorized, Categories: categories}
		return nil
	default:
		var list TextList
		if err := list.UnmarshalJSON(data); err != nil {
			return err
		}
		*s = Skills{Kind: SkillsList, List: list}
		return nil
	}
}

// decodeCategories walks the object token by token so that category order
// survives decoding.
func decodeCategories(data []byte) ([]SkillCategory, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var categories []SkillCategory
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected skills key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}

		var items TextList
		if err := items.UnmarshalJSON(raw); err != nil {
			return nil, err
		}
		categories = append(categories, SkillCategory{Name: name, Items: items})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s Skills) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case SkillsList:
		if s.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(s.List)
	case SkillsCategorized:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, category := range s.Categories {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(category.Name)
			if err != nil {
				return nil, err
			}
			items := category.Items
			if items == nil {
				items = TextList{}
			}
			value, err := json.Marshal(items)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(value)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return []byte("null"), nil
	}
}
