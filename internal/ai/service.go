package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"resumetailor/internal/config"
	"resumetailor/internal/errors"
	"resumetailor/internal/resume"
)

// ModelFactory builds the model backing one operation.
type ModelFactory func(ctx context.Context, op config.Operation, cfg config.OperationAIConfig) (Model, error)

// Option configures a Service.
type Option func(*Service)

// WithModelFactory replaces the provider switch. Tests use it to inject
// fake models.
func WithModelFactory(f ModelFactory) Option {
	return func(s *Service) { s.factory = f }
}

// WithHTTPClient sets the HTTP client handed to the provider SDKs.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// Service handles AI operations for resume processing. Each operation gets
// its own model, circuit breaker and retry policy, created on first use so
// commands that never call a model need no API key.
type Service struct {
	cfg        *config.Config
	prompts    *config.PromptStore
	logger     *errors.Logger
	factory    ModelFactory
	httpClient *http.Client

	mu      sync.Mutex
	runners map[config.Operation]*runner
}

var _ Provider = (*Service)(nil)

// NewService creates a new AI service. prompts may be nil, in which case
// the built-in prompts are used.
func NewService(cfg *config.Config, prompts *config.PromptStore, logger *errors.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		prompts: prompts,
		logger:  orDiscard(logger),
		runners: make(map[config.Operation]*runner),
	}
	s.factory = s.defaultModel
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func orDiscard(logger *errors.Logger) *errors.Logger {
	if logger == nil {
		return errors.Discard()
	}
	return logger
}

func (s *Service) defaultModel(ctx context.Context, op config.Operation, cfg config.OperationAIConfig) (Model, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiModel(ctx, cfg.Model, cfg.APIKey, cfg.BaseURL, s.httpClient, s.logger)
	case "groq", "openai":
		return NewOpenAIModel(cfg.Provider, cfg.Model, cfg.APIKey, cfg.BaseURL, s.httpClient, s.logger), nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
}

// runner returns the runner of op, creating it on first use.
func (s *Service) runner(ctx context.Context, op config.Operation) (*runner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.runners[op]; ok {
		return r, nil
	}

	opCfg := s.cfg.OperationConfig(op)
	if opCfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			fmt.Sprintf("no API key configured for %s provider %s", op, opCfg.Provider), nil).
			WithContext("operation", string(op))
	}

	s.logger.Debug("Initializing AI operation",
		"operation", op,
		"provider", opCfg.Provider,
		"model", opCfg.Model,
		"temperature", *opCfg.Temperature,
		"timeout", *opCfg.Timeout,
		"max_retries", *opCfg.MaxRetries,
		"use_system_prompts", *opCfg.UseSystemPrompts)

	model, err := s.factory(ctx, op, opCfg)
	if err != nil {
		if _, ok := errors.AsAppError(err); ok {
			return nil, err
		}
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to create AI provider", err)
	}

	r := newRunner(op, opCfg, model, s.logger)
	s.runners[op] = r
	return r, nil
}

// StructureResume turns extracted résumé text into a record.
func (s *Service) StructureResume(ctx context.Context, text string) (*resume.Record, *TokenUsage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "resume text is required", nil)
	}

	r, err := s.runner(ctx, config.OpStructure)
	if err != nil {
		return nil, nil, err
	}
	system, user := promptsFor(s.prompts, config.OpStructure)
	user = renderPrompt(user, map[string]string{PlaceholderResumeText: text})

	return r.run(ctx, system, user, attribute.Int("input.text_length", len(text)))
}

// TailorResume rewrites rec for jobDescription without adding facts.
func (s *Service) TailorResume(ctx context.Context, rec *resume.Record, jobDescription string) (*resume.Record, *TokenUsage, error) {
	if rec == nil {
		return nil, nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "resume is required", nil)
	}
	if strings.TrimSpace(jobDescription) == "" {
		return nil, nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "job description is required", nil)
	}

	resumeJSON, err := encodeRecord(rec)
	if err != nil {
		return nil, nil, err
	}
	r, err := s.runner(ctx, config.OpTailor)
	if err != nil {
		return nil, nil, err
	}
	system, user := promptsFor(s.prompts, config.OpTailor)
	user = renderPrompt(user, map[string]string{
		PlaceholderResumeJSON:     resumeJSON,
		PlaceholderJobDescription: jobDescription,
	})

	return r.run(ctx, system, user,
		attribute.Int("input.resume_length", len(resumeJSON)),
		attribute.Int("input.job_length", len(jobDescription)))
}

// TranslateResume translates rec into language, or into the configured
// default language when language is empty.
func (s *Service) TranslateResume(ctx context.Context, rec *resume.Record, language string) (*resume.Record, *TokenUsage, error) {
	if rec == nil {
		return nil, nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "resume is required", nil)
	}
	language = strings.TrimSpace(language)
	if language == "" {
		language = s.cfg.AI.TargetLanguage
	}
	if language == "" {
		return nil, nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "target language is required", nil)
	}

	resumeJSON, err := encodeRecord(rec)
	if err != nil {
		return nil, nil, err
	}
	r, err := s.runner(ctx, config.OpTranslate)
	if err != nil {
		return nil, nil, err
	}
	system, user := promptsFor(s.prompts, config.OpTranslate)
	user = renderPrompt(user, map[string]string{
		PlaceholderResumeJSON:     resumeJSON,
		PlaceholderTargetLanguage: language,
	})

	return r.run(ctx, system, user,
		attribute.String("input.language", language),
		attribute.Int("input.resume_length", len(resumeJSON)))
}

func encodeRecord(rec *resume.Record) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", errors.NewInternalError(errors.ErrCodeInvalidResume, "failed to encode resume", err)
	}
	return string(data), nil
}

// GetModelInfo checks every operation's model. Operations without an API
// key report the problem instead of failing the whole check.
func (s *Service) GetModelInfo(ctx context.Context) map[string]*ModelInfo {
	timeout := s.cfg.Observability.HealthCheck.AIModelCheckTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	infos := make(map[string]*ModelInfo, len(config.Operations()))
	for _, op := range config.Operations() {
		r, err := s.runner(ctx, op)
		if err != nil {
			opCfg := s.cfg.OperationConfig(op)
			infos[string(op)] = &ModelInfo{Provider: opCfg.Provider, Name: opCfg.Model, Error: err.Error()}
			continue
		}

		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		infos[string(op)] = r.info(checkCtx)
		cancel()
	}
	return infos
}

// Stats returns circuit breaker statistics of the operations used so far.
func (s *Service) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[string]any, len(s.runners))
	healthy := true
	for op, r := range s.runners {
		stats[string(op)] = r.breaker.GetStats()
		healthy = healthy && r.breaker.IsHealthy()
	}
	stats["overall_healthy"] = healthy
	return stats
}

// Close releases every model client.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for op, r := range s.runners {
		if err := r.model.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.runners, op)
	}
	return firstErr
}
