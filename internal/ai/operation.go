package ai

import (
	"context"
	stderrors "errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"resumetailor/internal/config"
	"resumetailor/internal/errors"
	"resumetailor/internal/resume"
)

const tracerName = "resumetailor.ai"

// runner executes one operation: timeout, tracing, circuit breaker, retry,
// then decoding of the reply.
type runner struct {
	op      config.Operation
	cfg     config.OperationAIConfig
	model   Model
	breaker *CircuitBreaker[*Response]
	retry   *retrier
	logger  *errors.Logger
}

func newRunner(op config.Operation, cfg config.OperationAIConfig, model Model, logger *errors.Logger) *runner {
	return &runner{
		op:      op,
		cfg:     cfg,
		model:   model,
		breaker: NewCircuitBreaker[*Response](breakerName(op), cfg.CircuitBreaker, logger),
		retry:   newRetrier(*cfg.MaxRetries, logger),
		logger:  logger,
	}
}

func (r *runner) request(system, user string) Request {
	req := Request{
		User:        user,
		Temperature: *r.cfg.Temperature,
		MaxTokens:   *r.cfg.MaxTokens,
	}
	if *r.cfg.UseSystemPrompts {
		req.System = system
	} else {
		req.User = inlineSystemPrompt(system, user)
	}
	return req
}

func (r *runner) run(ctx context.Context, system, user string, attrs ...attribute.KeyValue) (*resume.Record, *TokenUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, *r.cfg.Timeout)
	defer cancel()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ai."+string(r.op))
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", r.cfg.Provider),
		attribute.String("ai.model", r.cfg.Model),
		attribute.Float64("ai.temperature", float64(*r.cfg.Temperature)),
	)
	span.SetAttributes(attrs...)

	fail := func(err error) (*resume.Record, *TokenUsage, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("success", false))
		return nil, nil, err
	}

	req := r.request(system, user)
	resp, err := r.breaker.Execute(func() (*Response, error) {
		return withRetry(ctx, r.retry, string(r.op), func() (*Response, error) {
			return r.model.Generate(ctx, req)
		})
	})
	if err != nil {
		return fail(r.wrapError(ctx, err))
	}

	rec, err := decodeRecord(resp.Text)
	if err != nil {
		r.logger.LogError(err, "Failed to decode AI response", "operation", r.op)
		return fail(err)
	}
	if issues := rec.Issues(); len(issues) > 0 {
		r.logger.Warn("AI response had malformed fields",
			"operation", r.op,
			"issues", len(issues))
	}

	if usage := resp.Usage; usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))
	return rec, resp.Usage, nil
}

func (r *runner) wrapError(ctx context.Context, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewAIError(errors.ErrCodeAITimeout,
			"AI operation timed out for "+string(r.op), err).
			WithContext("timeout", r.cfg.Timeout.String())
	}
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	return errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to generate content for "+string(r.op), err)
}

// info runs the model check under the breaker so a failing provider is
// not hammered by health probes.
func (r *runner) info(ctx context.Context) *ModelInfo {
	if !r.breaker.IsHealthy() {
		return &ModelInfo{
			Provider: r.cfg.Provider,
			Name:     r.cfg.Model,
			Error:    "circuit breaker is open",
		}
	}
	return r.model.Info(ctx)
}
