package ai

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"resumetailor/internal/errors"
)

// GeminiModel calls the Gemini API through the genai SDK.
type GeminiModel struct {
	client *genai.Client
	model  string
	logger *errors.Logger
}

var _ Model = (*GeminiModel)(nil)

// NewGeminiModel creates a Gemini client. baseURL and httpClient are
// optional.
func NewGeminiModel(ctx context.Context, model, apiKey, baseURL string, httpClient *http.Client, logger *errors.Logger) (*GeminiModel, error) {
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cc.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}
	return &GeminiModel{client: client, model: model, logger: logger}, nil
}

// Generate asks for a JSON reply.
func (g *GeminiModel) Generate(ctx context.Context, req Request) (*Response, error) {
	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		MaxOutputTokens:  req.MaxTokens,
	}
	if req.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(req.Temperature)
	}
	if req.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.User), genCfg)
	if err != nil {
		return nil, err
	}
	return &Response{Text: result.Text(), Usage: geminiUsage(result)}, nil
}

func geminiUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}
	return &TokenUsage{
		InputTokens:  int64(result.UsageMetadata.PromptTokenCount),
		OutputTokens: int64(result.UsageMetadata.CandidatesTokenCount),
		TotalTokens:  int64(result.UsageMetadata.TotalTokenCount),
	}
}

// Info checks the model exists and the key may use it.
func (g *GeminiModel) Info(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Provider: "gemini", Name: g.model}

	model, err := g.client.Models.Get(ctx, g.model, &genai.GetModelConfig{})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.model,
			"provider", "gemini",
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	return info
}

// Close is a no-op; the genai client holds no connections of its own.
func (g *GeminiModel) Close() error {
	return nil
}
