package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"resumetailor/internal/errors"
)

// OpenAIModel calls an OpenAI-compatible chat completions endpoint. Groq
// and OpenAI both use it; only the base URL differs.
type OpenAIModel struct {
	client   *openai.Client
	provider string
	model    string
	logger   *errors.Logger
}

var _ Model = (*OpenAIModel)(nil)

// NewOpenAIModel creates a client for provider at baseURL. httpClient is
// optional.
func NewOpenAIModel(provider, model, apiKey, baseURL string, httpClient *http.Client, logger *errors.Logger) *OpenAIModel {
	cc := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cc.BaseURL = baseURL
	}
	if httpClient != nil {
		cc.HTTPClient = httpClient
	}
	return &OpenAIModel{
		client:   openai.NewClientWithConfig(cc),
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// Generate requests a JSON object reply.
func (o *OpenAIModel) Generate(ctx context.Context, req Request) (*Response, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   int(req.MaxTokens),
		Temperature: req.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "AI response has no choices", nil)
	}

	return &Response{
		Text: resp.Choices[0].Message.Content,
		Usage: &TokenUsage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
			TotalTokens:  int64(resp.Usage.TotalTokens),
		},
	}, nil
}

// Info looks the model up in the provider's model list.
func (o *OpenAIModel) Info(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Provider: o.provider, Name: o.model}

	model, err := o.client.GetModel(ctx, o.model)
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		o.logger.Warn("Model availability check failed",
			"model", o.model,
			"provider", o.provider,
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.ID
	return info
}

func (o *OpenAIModel) Close() error {
	return nil
}
