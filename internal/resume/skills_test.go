package resume

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkillsUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     SkillsKind
		expected []string
	}{
		{
			name:     "flat list",
			input:    `["Go","Rust","AWS"]`,
			kind:     SkillsList,
			expected: []string{"Go", "Rust", "AWS"},
		},
		{
			name:     "categorized keeps document order",
			input:    `{"Languages":["Go","Rust"],"Cloud":["AWS"]}`,
			kind:     SkillsCategorized,
			expected: []string{"Go", "Rust", "AWS"},
		},
		{
			name:     "category with scalar value",
			input:    `{"Languages":"Go","Years":5}`,
			kind:     SkillsCategorized,
			expected: []string{"Go", "5"},
		},
		{
			name:     "bare string",
			input:    `"Go, Rust"`,
			kind:     SkillsList,
			expected: []string{"Go, Rust"},
		},
		{
			name:     "empty entries dropped",
			input:    `["Go",""," ",null]`,
			kind:     SkillsList,
			expected: []string{"Go"},
		},
		{
			name:  "null",
			input: `null`,
			kind:  SkillsNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Skills
			require.NoError(t, json.Unmarshal([]byte(tt.input), &s))
			assert.Equal(t, tt.kind, s.Kind)
			assert.Equal(t, tt.expected, s.Flatten())
		})
	}
}

func TestSkillsFlattenIsRepresentationIndependent(t *testing.T) {
	flat := NewSkillList("Go", "Rust", "AWS")
	categorized := NewCategorizedSkills(
		SkillCategory{Name: "Languages", Items: TextList{"Go", "Rust"}},
		SkillCategory{Name: "Cloud", Items: TextList{"AWS"}},
	)
	assert.Equal(t, flat.Flatten(), categorized.Flatten())
}

func TestSkillsMarshalPreservesCategoryOrder(t *testing.T) {
	input := `{"Zeta":["a"],"Alpha":["b","c"]}`
	var s Skills
	require.NoError(t, json.Unmarshal([]byte(input), &s))

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, input, string(out))
}

func TestSkillsIsZero(t *testing.T) {
	assert.True(t, Skills{}.IsZero())
	assert.True(t, NewSkillList("", " ").IsZero())
	assert.True(t, NewCategorizedSkills(SkillCategory{Name: "Empty"}).IsZero())
	assert.False(t, NewSkillList("Go").IsZero())
}

func TestTextAcceptsScalars(t *testing.T) {
	tests := []struct {
		input    string
		expected Text
	}{
		{`"plain"`, "plain"},
		{`2020`, "2020"},
		{`3.75`, "3.75"},
		{`true`, "true"},
		{`null`, ""},
		{`[ "a", 1 ]`, `["a",1]`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var got Text
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTextListAcceptsSingleValue(t *testing.T) {
	var l TextList
	require.NoError(t, json.Unmarshal([]byte(`"Go"`), &l))
	assert.Equal(t, TextList{"Go"}, l)

	require.NoError(t, json.Unmarshal([]byte(`""`), &l))
	assert.Nil(t, l)
	assert.True(t, l.IsEmpty())
}
