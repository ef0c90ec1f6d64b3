package ai

import (
	"strings"

	"resumetailor/internal/config"
)

// Template placeholders. Custom prompts use the same names.
const (
	PlaceholderResumeText     = "{resume_text}"
	PlaceholderResumeJSON     = "{resume_json}"
	PlaceholderJobDescription = "{job_description}"
	PlaceholderTargetLanguage = "{target_language}"
)

// recordShape is the JSON layout every operation must answer with.
const recordShape = `{
  "name": "Full name",
  "professional_title": "Headline or current role",
  "contact": {"email": "", "phone": "", "location": "", "linkedin": "", "github": "", "website": ""},
  "summary": "Professional summary",
  "skills": {"Category": ["Skill", "Skill"]},
  "education": [{"institution": "", "degree": "", "field": "", "location": "", "dates": "", "gpa": ""}],
  "experience": [{"title": "", "company": "", "type": "", "location": "", "dates": "", "bullets": [""]}],
  "projects": [{"name": "", "description": "", "technologies": [""], "bullets": [""]}],
  "certifications": [{"name": "", "issuer": "", "date": ""}],
  "references": [{"name": "", "title": "", "company": "", "contact": ""}]
}`

// DefaultSystemPrompts are the built-in system instructions per operation.
var DefaultSystemPrompts = map[config.Operation]string{
	config.OpStructure: `You are a precise resume parser. You copy facts from the source text into a fixed JSON layout.

- Never invent names, dates, employers, degrees or skills
- Leave out any section the resume does not contain
- Keep the wording of bullet points as close to the source as possible`,

	config.OpTailor: `You are an expert resume writer with a strict commitment to honesty and accuracy.

- NEVER invent, exaggerate, or misattribute any skills or experiences
- Every statement must be traceable to the original resume
- Optimize for relevance to the target role and for applicant tracking systems`,

	config.OpTranslate: `You are a professional translator specialised in resumes and HR documents.

- Translate naturally and idiomatically, using the conventions of the target job market
- Keep proper nouns, company names, product names and technologies untranslated
- Never add, drop or reorder information`,
}

// DefaultUserPrompts are the built-in user templates per operation.
var DefaultUserPrompts = map[config.Operation]string{
	config.OpStructure: `Extract and structure the following resume text into JSON.

Resume Text:
{resume_text}

Use exactly this layout and only include sections that exist in the resume:
` + recordShape + `

Skills may be an object of categories or a flat array when the resume has no categories.
Return ONLY valid JSON, no markdown formatting or explanation.`,

	config.OpTailor: `Fine-tune this resume for the job description below while preserving its style, structure and truthfulness.

Original Resume (JSON):
{resume_json}

Job Description:
{job_description}

Instructions:
1. Identify the key skills, technologies and requirements of the job description
2. Improve the resume by:
   - Reordering skills so the relevant ones come first
   - Adjusting bullet points to emphasise relevant experience, without fabricating
   - Incorporating relevant keywords naturally where appropriate
   - Strengthening action verbs and quantifiable achievements
3. Preserve:
   - All factual information (dates, companies, titles, education)
   - The overall structure and the JSON keys of the input
   - A professional tone

Return the optimized resume as a JSON object with the same structure as the input.
Return ONLY valid JSON, no markdown formatting or explanation.`,

	config.OpTranslate: `Translate every human-readable value of this resume into {target_language}.

Resume (JSON):
{resume_json}

Rules:
- Keep all JSON keys in English and unchanged
- Keep email addresses, phone numbers, URLs, dates and numbers as they are
- Keep the order of every list

Return the translated resume as a JSON object with the same structure as the input.
Return ONLY valid JSON, no markdown formatting or explanation.`,
}

// promptsFor resolves the system prompt and user template of op: custom
// prompts from the store win over the built-in defaults.
func promptsFor(store *config.PromptStore, op config.Operation) (system, user string) {
	custom := store.Get(op)

	system = custom.System
	if system == "" {
		system = DefaultSystemPrompts[op]
	}
	user = custom.User
	if user == "" {
		user = DefaultUserPrompts[op]
	}
	return system, user
}

// renderPrompt fills the placeholders of template. Placeholders the
// template does not use are ignored; values are inserted verbatim, so text
// that happens to contain a placeholder is never expanded twice.
func renderPrompt(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for placeholder, value := range values {
		pairs = append(pairs, placeholder, value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// inlineSystemPrompt prepends the system prompt to the user prompt for
// models run without a separate system role.
func inlineSystemPrompt(system, user string) string {
	if system == "" {
		return user
	}
	return system + "\n\n" + user
}
