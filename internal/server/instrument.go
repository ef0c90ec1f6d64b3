package server

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"resumetailor/internal/ai"
	"resumetailor/internal/extract"
	"resumetailor/internal/observability"
	"resumetailor/internal/pipeline"
	"resumetailor/internal/render"
	"resumetailor/internal/resume"
)

// instrumentedProvider records AI metrics around every provider call, so
// the single-operation endpoints and /run report the same series.
type instrumentedProvider struct {
	ai.Provider
	metrics *observability.Metrics
}

func (p instrumentedProvider) StructureResume(ctx context.Context, text string) (*resume.Record, *ai.TokenUsage, error) {
	return p.track(ctx, "structure", observability.MetricResumeStructured,
		func(ctx context.Context) (*resume.Record, *ai.TokenUsage, error) {
			return p.Provider.StructureResume(ctx, text)
		})
}

func (p instrumentedProvider) TailorResume(ctx context.Context, rec *resume.Record, jobDescription string) (*resume.Record, *ai.TokenUsage, error) {
	return p.track(ctx, "tailor", observability.MetricResumeTailored,
		func(ctx context.Context) (*resume.Record, *ai.TokenUsage, error) {
			return p.Provider.TailorResume(ctx, rec, jobDescription)
		})
}

func (p instrumentedProvider) TranslateResume(ctx context.Context, rec *resume.Record, language string) (*resume.Record, *ai.TokenUsage, error) {
	return p.track(ctx, "translate", observability.MetricResumeTranslated,
		func(ctx context.Context) (*resume.Record, *ai.TokenUsage, error) {
			return p.Provider.TranslateResume(ctx, rec, language)
		})
}

func (p instrumentedProvider) track(ctx context.Context, operation, metricType string,
	fn func(context.Context) (*resume.Record, *ai.TokenUsage, error)) (*resume.Record, *ai.TokenUsage, error) {
	var (
		rec   *resume.Record
		usage *ai.TokenUsage
	)
	err := p.metrics.TrackAIOperationWithTokens(ctx, operation, func(ctx context.Context) *observability.AIOperationResult {
		var aiErr error
		rec, usage, aiErr = fn(ctx)
		return &observability.AIOperationResult{
			Error:      aiErr,
			TokenUsage: (*observability.TokenUsage)(usage),
		}
	})
	p.metrics.RecordBusinessMetric(ctx, metricType, err == nil)
	return rec, usage, err
}

type instrumentedExtractor struct {
	pipeline.TextExtractor
	metrics *observability.Metrics
}

func (e instrumentedExtractor) FromBytes(ctx context.Context, data []byte) (*extract.Result, error) {
	res, err := e.TextExtractor.FromBytes(ctx, data)
	if err != nil {
		e.metrics.RecordBusinessMetric(ctx, observability.MetricPDFExtracted, false)
		return nil, err
	}
	e.metrics.RecordBusinessMetric(ctx, observability.MetricPDFExtracted, true,
		attribute.Int("pages", res.PageCount))
	return res, nil
}

type instrumentedRenderer struct {
	pipeline.DocumentRenderer
	metrics *observability.Metrics
}

func (r instrumentedRenderer) RenderDocument(rec *resume.Record) (*render.Document, error) {
	start := time.Now()
	doc, err := r.DocumentRenderer.RenderDocument(rec)
	pages := 0
	if doc != nil {
		pages = doc.Pages
	}
	r.metrics.RecordRender(context.Background(), pages, time.Since(start), err)
	return doc, err
}
