package ai

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumetailor/internal/config"
	"resumetailor/internal/errors"
	"resumetailor/internal/resume"
)

// fakeModel replies with a fixed text and records every request.
type fakeModel struct {
	mu       sync.Mutex
	reply    string
	usage    *TokenUsage
	err      error
	block    bool
	requests []Request
}

func (f *fakeModel) Generate(ctx context.Context, req Request) (*Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Response{Text: f.reply, Usage: f.usage}, nil
}

func (f *fakeModel) Info(context.Context) *ModelInfo {
	return &ModelInfo{Provider: "fake", Name: "fake-1", Available: true}
}

func (f *fakeModel) Close() error { return nil }

func (f *fakeModel) lastRequest(t *testing.T) Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func testConfig() *config.Config {
	return &config.Config{AI: config.AIConfig{
		Provider:         "groq",
		Model:            "llama-3.3-70b-versatile",
		APIKey:           "test-key",
		Timeout:          5 * time.Second,
		Temperature:      0.2,
		MaxTokens:        4000,
		UseSystemPrompts: true,
		TargetLanguage:   "French",
	}}
}

func newTestService(t *testing.T, cfg *config.Config, model *fakeModel) (*Service, *int) {
	t.Helper()
	created := 0
	svc := NewService(cfg, nil, errors.Discard(), WithModelFactory(
		func(_ context.Context, _ config.Operation, _ config.OperationAIConfig) (Model, error) {
			created++
			return model, nil
		}))
	t.Cleanup(func() { _ = svc.Close() })
	return svc, &created
}

const janeJSON = `{"name":"Jane Doe","professional_title":"Backend Engineer","skills":{"Languages":["Go","Rust"]}}`

func appCode(t *testing.T, err error) string {
	t.Helper()
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok, "expected an AppError, got %v", err)
	return appErr.Code
}

func TestStructureResume(t *testing.T) {
	model := &fakeModel{
		reply: "```json\n" + janeJSON + "\n```",
		usage: &TokenUsage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150},
	}
	svc, _ := newTestService(t, testConfig(), model)

	rec, usage, err := svc.StructureResume(context.Background(), "Jane Doe\nBackend Engineer\nGo, Rust")
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", rec.Name.String())
	assert.Equal(t, []string{"Go", "Rust"}, rec.Skills.Flatten())
	assert.Equal(t, int64(150), usage.TotalTokens)

	req := model.lastRequest(t)
	assert.Equal(t, DefaultSystemPrompts[config.OpStructure], req.System)
	assert.Contains(t, req.User, "Jane Doe\nBackend Engineer\nGo, Rust")
	assert.NotContains(t, req.User, PlaceholderResumeText)
	assert.InDelta(t, 0.2, req.Temperature, 1e-6)
	assert.Equal(t, int32(4000), req.MaxTokens)
}

func TestTailorResume(t *testing.T) {
	model := &fakeModel{reply: janeJSON}
	svc, _ := newTestService(t, testConfig(), model)

	base := &resume.Record{Name: "Jane Doe", Summary: "Builds APIs"}
	rec, _, err := svc.TailorResume(context.Background(), base, "Senior Go engineer, Kubernetes")
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", rec.ProfessionalTitle.String())

	req := model.lastRequest(t)
	assert.Contains(t, req.User, "Senior Go engineer, Kubernetes")
	assert.Contains(t, req.User, `"summary": "Builds APIs"`)
	assert.Equal(t, "Builds APIs", base.Summary.String(), "the input record is left alone")
}

func TestTranslateResumeUsesDefaultLanguage(t *testing.T) {
	model := &fakeModel{reply: janeJSON}
	svc, _ := newTestService(t, testConfig(), model)

	_, _, err := svc.TranslateResume(context.Background(), &resume.Record{Name: "Jane Doe"}, "  ")
	require.NoError(t, err)
	assert.Contains(t, model.lastRequest(t).User, "into French")

	_, _, err = svc.TranslateResume(context.Background(), &resume.Record{Name: "Jane Doe"}, "German")
	require.NoError(t, err)
	assert.Contains(t, model.lastRequest(t).User, "into German")
}

func TestInlineSystemPromptWhenDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.AI.UseSystemPrompts = false
	model := &fakeModel{reply: janeJSON}
	svc, _ := newTestService(t, cfg, model)

	_, _, err := svc.StructureResume(context.Background(), "Jane Doe")
	require.NoError(t, err)

	req := model.lastRequest(t)
	assert.Empty(t, req.System)
	assert.True(t, strings.HasPrefix(req.User, DefaultSystemPrompts[config.OpStructure]))
}

func TestInputValidation(t *testing.T) {
	svc, created := newTestService(t, testConfig(), &fakeModel{reply: janeJSON})
	ctx := context.Background()

	_, _, err := svc.StructureResume(ctx, "   ")
	assert.Equal(t, errors.ErrCodeInvalidRequest, appCode(t, err))

	_, _, err = svc.TailorResume(ctx, nil, "job")
	assert.Equal(t, errors.ErrCodeInvalidRequest, appCode(t, err))

	_, _, err = svc.TailorResume(ctx, &resume.Record{Name: "Jane"}, "")
	assert.Equal(t, errors.ErrCodeInvalidRequest, appCode(t, err))

	_, _, err = svc.TranslateResume(ctx, nil, "German")
	assert.Equal(t, errors.ErrCodeInvalidRequest, appCode(t, err))

	assert.Zero(t, *created, "invalid input never reaches a model")
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	cfg := testConfig()
	cfg.AI.APIKey = ""
	svc, created := newTestService(t, cfg, &fakeModel{reply: janeJSON})

	_, _, err := svc.StructureResume(context.Background(), "Jane Doe")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeMissingAPIKey, appCode(t, err))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Zero(t, *created)
}

func TestUnparsableReply(t *testing.T) {
	svc, _ := newTestService(t, testConfig(), &fakeModel{reply: "I'm sorry, Dave."})

	_, _, err := svc.StructureResume(context.Background(), "Jane Doe")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAIResponseParseFailed, appCode(t, err))
}

func TestOperationTimeout(t *testing.T) {
	cfg := testConfig()
	timeout := 20 * time.Millisecond
	cfg.AI.Structure.Timeout = &timeout
	svc, _ := newTestService(t, cfg, &fakeModel{block: true})

	_, _, err := svc.StructureResume(context.Background(), "Jane Doe")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAITimeout, appCode(t, err))
}

func TestRunnersAreCreatedOncePerOperation(t *testing.T) {
	svc, created := newTestService(t, testConfig(), &fakeModel{reply: janeJSON})
	ctx := context.Background()

	for range 3 {
		_, _, err := svc.StructureResume(ctx, "Jane Doe")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, *created)

	_, _, err := svc.TranslateResume(ctx, &resume.Record{Name: "Jane"}, "German")
	require.NoError(t, err)
	assert.Equal(t, 2, *created)
}

func TestGetModelInfoAndStats(t *testing.T) {
	cfg := testConfig()
	cfg.AI.Tailor.CircuitBreaker = breakerConfig(3, 0.6)
	svc, _ := newTestService(t, cfg, &fakeModel{reply: janeJSON})

	infos := svc.GetModelInfo(context.Background())
	require.Len(t, infos, 3)
	for _, op := range config.Operations() {
		assert.True(t, infos[string(op)].Available, string(op))
	}

	stats := svc.Stats()
	assert.Equal(t, true, stats["overall_healthy"])
	tailor, ok := stats["tailor"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "AI-tailor", tailor["name"])
	structure, ok := stats["structure"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, structure["enabled"])
}

func TestTokenUsageAdd(t *testing.T) {
	var total *TokenUsage
	total = total.Add(nil)
	assert.Nil(t, total)

	total = total.Add(&TokenUsage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3})
	total = total.Add(&TokenUsage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30})
	assert.Equal(t, &TokenUsage{InputTokens: 11, OutputTokens: 22, TotalTokens: 33}, total)
}
