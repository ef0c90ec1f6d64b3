package ai

import (
	"context"

	"resumetailor/internal/resume"
)

// Provider turns résumé text and records into new records through a
// language model.
type Provider interface {
	StructureResume(ctx context.Context, text string) (*resume.Record, *TokenUsage, error)
	TailorResume(ctx context.Context, rec *resume.Record, jobDescription string) (*resume.Record, *TokenUsage, error)
	TranslateResume(ctx context.Context, rec *resume.Record, language string) (*resume.Record, *TokenUsage, error)
	GetModelInfo(ctx context.Context) map[string]*ModelInfo
	Close() error
}

// Model is one configured model endpoint. Implementations return the raw
// completion text; decoding is left to the caller.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Info(ctx context.Context) *ModelInfo
	Close() error
}

// Request is a single prompt-completion call.
type Request struct {
	// System is sent as a separate instruction. Empty means none.
	System      string
	User        string
	Temperature float32
	MaxTokens   int32
}

// Response is the completion text of a Request.
type Response struct {
	Text  string
	Usage *TokenUsage
}

// TokenUsage represents token consumption for an AI operation
type TokenUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}

// Add accumulates other into u. Either side may be nil; the result is nil
// only when both are.
func (u *TokenUsage) Add(other *TokenUsage) *TokenUsage {
	if other == nil {
		return u
	}
	if u == nil {
		u = &TokenUsage{}
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
	return u
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Provider    string `json:"provider"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
