package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Business metric types accepted by RecordBusinessMetric.
const (
	MetricResumeStructured = "resume_structured"
	MetricResumeTailored   = "resume_tailored"
	MetricResumeTranslated = "resume_translated"
	MetricPDFExtracted     = "pdf_extracted"
	MetricDocumentRendered = "document_rendered"
	MetricPipelineRun      = "pipeline_run"
	MetricRateLimitHit     = "rate_limit_hit"
)

// Reload targets for RecordReload.
const (
	ReloadCertificate = "certificate"
	ReloadPrompts     = "prompts"
)

// Metrics holds all custom metrics for resumetailor. Every field may be nil,
// in which case recording is skipped.
type Metrics struct {
	// AI operation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Counter

	// Business metrics
	ResumesStructured metric.Int64Counter
	ResumesTailored   metric.Int64Counter
	ResumesTranslated metric.Int64Counter
	PDFsExtracted     metric.Int64Counter
	DocumentsRendered metric.Int64Counter
	PipelineRuns      metric.Int64Counter

	// Rendering
	RenderTime    metric.Float64Histogram
	RenderedPages metric.Int64Histogram

	// Reloads and certificates
	ReloadCount    metric.Int64Counter
	CertExpiryTime metric.Float64Gauge

	RateLimitHits metric.Int64Counter
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&m.AIRequestCount, "resumetailor_ai_requests_total", "Total number of AI requests"},
		{&m.AIErrorCount, "resumetailor_ai_errors_total", "Total number of AI request errors"},
		{&m.ResumesStructured, "resumetailor_resumes_structured_total", "Total number of resumes structured from text"},
		{&m.ResumesTailored, "resumetailor_resumes_tailored_total", "Total number of resumes tailored"},
		{&m.ResumesTranslated, "resumetailor_resumes_translated_total", "Total number of resumes translated"},
		{&m.PDFsExtracted, "resumetailor_pdfs_extracted_total", "Total number of PDF documents extracted"},
		{&m.DocumentsRendered, "resumetailor_documents_rendered_total", "Total number of PDF documents rendered"},
		{&m.PipelineRuns, "resumetailor_pipeline_runs_total", "Total number of pipeline runs"},
		{&m.ReloadCount, "resumetailor_config_reloads_total", "Total number of certificate and prompt reloads"},
		{&m.RateLimitHits, "resumetailor_rate_limit_hits_total", "Total number of rate limit hits"},
	}
	for _, c := range counters {
		if *c.target, err = meter.Int64Counter(c.name, metric.WithDescription(c.description)); err != nil {
			return nil, fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
	}

	m.AITokenUsage, err = meter.Int64Counter(
		"resumetailor_ai_token_usage_total",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("tokens"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	m.AIProcessingTime, err = meter.Float64Histogram(
		"resumetailor_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	m.RenderTime, err = meter.Float64Histogram(
		"resumetailor_render_duration_seconds",
		metric.WithDescription("Time spent rendering PDF documents"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create render time metric: %w", err)
	}

	m.RenderedPages, err = meter.Int64Histogram(
		"resumetailor_rendered_pages",
		metric.WithDescription("Pages per rendered document"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 6, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rendered pages metric: %w", err)
	}

	m.CertExpiryTime, err = meter.Float64Gauge(
		"resumetailor_cert_expiry_seconds",
		metric.WithDescription("Seconds until certificate expiry"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate expiry time metric: %w", err)
	}

	return m, nil
}

// TrackAIOperationWithTokens runs fn inside an "ai.<operation>" span and
// records duration, request, error and token metrics for it.
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult) error {
	tracer := otel.Tracer("resumetailor.ai")
	ctx, span := tracer.Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	if result == nil {
		result = &AIOperationResult{}
	}
	duration := time.Since(start).Seconds()

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", result.Error == nil),
	}

	if m.AIProcessingTime != nil {
		m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
	}
	if m.AIRequestCount != nil {
		m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	if result.Error != nil {
		span.RecordError(result.Error)
		span.SetStatus(codes.Error, result.Error.Error())
		if m.AIErrorCount != nil {
			m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		return result.Error
	}

	if usage := result.TokenUsage; usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
		m.recordTokens(ctx, operation, usage)
	}
	return nil
}

func (m *Metrics) recordTokens(ctx context.Context, operation string, usage *TokenUsage) {
	if m.AITokenUsage == nil {
		return
	}
	for kind, n := range map[string]int64{
		"input":  usage.InputTokens,
		"output": usage.OutputTokens,
		"total":  usage.TotalTokens,
	} {
		if n <= 0 {
			continue
		}
		m.AITokenUsage.Add(ctx, n, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", kind),
		))
	}
}

// RecordBusinessMetric increments the counter for metricType. Unknown types
// are ignored.
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, attributes ...attribute.KeyValue) {
	counter := m.counterFor(metricType)
	if counter == nil {
		return
	}
	attrs := append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) counterFor(metricType string) metric.Int64Counter {
	switch metricType {
	case MetricResumeStructured:
		return m.ResumesStructured
	case MetricResumeTailored:
		return m.ResumesTailored
	case MetricResumeTranslated:
		return m.ResumesTranslated
	case MetricPDFExtracted:
		return m.PDFsExtracted
	case MetricDocumentRendered:
		return m.DocumentsRendered
	case MetricPipelineRun:
		return m.PipelineRuns
	case MetricRateLimitHit:
		return m.RateLimitHits
	default:
		return nil
	}
}

// RecordRender records one render attempt.
func (m *Metrics) RecordRender(ctx context.Context, pages int, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.Bool("success", err == nil))
	if m.RenderTime != nil {
		m.RenderTime.Record(ctx, duration.Seconds(), attrs)
	}
	if err == nil && m.RenderedPages != nil {
		m.RenderedPages.Record(ctx, int64(pages))
	}
	m.RecordBusinessMetric(ctx, MetricDocumentRendered, err == nil)
}

// RecordReload counts a certificate or prompt reload.
func (m *Metrics) RecordReload(ctx context.Context, target string, success bool) {
	if m.ReloadCount == nil {
		return
	}
	m.ReloadCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", target),
		attribute.Bool("success", success),
	))
}

// RecordCertExpiry publishes the seconds left until notAfter.
func (m *Metrics) RecordCertExpiry(ctx context.Context, notAfter time.Time) {
	if m.CertExpiryTime == nil {
		return
	}
	m.CertExpiryTime.Record(ctx, time.Until(notAfter).Seconds())
}
