// Package pipeline chains the résumé stages: extract, structure, tailor,
// translate and render.
package pipeline

import (
	"context"
	"slices"
	"strings"
	"time"

	"resumetailor/internal/ai"
	"resumetailor/internal/errors"
	"resumetailor/internal/extract"
	"resumetailor/internal/render"
	"resumetailor/internal/resume"
)

// Stage names, in execution order.
const (
	StageExtract   = "extract"
	StageStructure = "structure"
	StageTailor    = "tailor"
	StageTranslate = "translate"
	StageRender    = "render"
)

// TextExtractor reads the text of a PDF document.
type TextExtractor interface {
	FromBytes(ctx context.Context, data []byte) (*extract.Result, error)
}

// DocumentRenderer lays a record out as a PDF.
type DocumentRenderer interface {
	RenderDocument(rec *resume.Record) (*render.Document, error)
}

// Input names one source (PDF, Text or Record) and the optional stages.
type Input struct {
	PDF    []byte
	Text   string
	Record *resume.Record

	// JobDescription enables tailoring.
	JobDescription string
	// Translate enables translation into Language, or into the configured
	// default language when Language is empty. A non-empty Language alone
	// also enables it.
	Translate bool
	Language  string

	SkipRender bool
}

// StageTiming is the wall time one stage took.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// Result holds the output of every stage that ran.
type Result struct {
	Extracted  *extract.Result  `json:"extracted,omitempty"`
	Structured *resume.Record   `json:"structured,omitempty"`
	Tailored   *resume.Record   `json:"tailored,omitempty"`
	Translated *resume.Record   `json:"translated,omitempty"`
	Final      *resume.Record   `json:"final"`
	Document   *render.Document `json:"-"`
	Usage      *ai.TokenUsage   `json:"usage,omitempty"`
	Stages     []StageTiming    `json:"stages"`
}

// Pipeline runs the stages in order, stopping at the first failure.
type Pipeline struct {
	extractor TextExtractor
	provider  ai.Provider
	renderer  DocumentRenderer
	logger    *errors.Logger
}

// New creates a Pipeline. provider may be nil when only records are
// rendered.
func New(extractor TextExtractor, provider ai.Provider, renderer DocumentRenderer, logger *errors.Logger) *Pipeline {
	if logger == nil {
		logger = errors.Discard()
	}
	return &Pipeline{extractor: extractor, provider: provider, renderer: renderer, logger: logger}
}

// Stages lists the stages Run executes for in.
func (in Input) Stages() []string {
	var stages []string
	switch {
	case in.Record != nil:
	case strings.TrimSpace(in.Text) != "":
		stages = append(stages, StageStructure)
	default:
		stages = append(stages, StageExtract, StageStructure)
	}
	if strings.TrimSpace(in.JobDescription) != "" {
		stages = append(stages, StageTailor)
	}
	if in.Translate || strings.TrimSpace(in.Language) != "" {
		stages = append(stages, StageTranslate)
	}
	if !in.SkipRender {
		stages = append(stages, StageRender)
	}
	return stages
}

func (in Input) validate() error {
	sources := 0
	if len(in.PDF) > 0 {
		sources++
	}
	if strings.TrimSpace(in.Text) != "" {
		sources++
	}
	if in.Record != nil {
		sources++
	}

	switch sources {
	case 0:
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"one of a PDF, resume text or a resume record is required", nil)
	case 1:
		return nil
	default:
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"only one of a PDF, resume text or a resume record may be given", nil)
	}
}

func (p *Pipeline) needsProvider(stages []string) bool {
	for _, s := range stages {
		if s == StageStructure || s == StageTailor || s == StageTranslate {
			return true
		}
	}
	return false
}

func (p *Pipeline) checkCollaborators(stages []string) error {
	if p.needsProvider(stages) && p.provider == nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "no AI provider configured", nil)
	}
	if slices.Contains(stages, StageExtract) && p.extractor == nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "no PDF extractor configured", nil)
	}
	if slices.Contains(stages, StageRender) && p.renderer == nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "no renderer configured", nil)
	}
	return nil
}

// Run executes the stages selected by in. The result carries the output of
// every completed stage even when a later one fails.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	stages := in.Stages()
	if err := p.checkCollaborators(stages); err != nil {
		return nil, err
	}

	res := &Result{Final: in.Record}
	text := in.Text

	p.logger.Info("Starting pipeline", "stages", strings.Join(stages, ","))

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		start := time.Now()
		err := p.runStage(ctx, stage, in, res, &text)
		res.Stages = append(res.Stages, StageTiming{Stage: stage, Duration: time.Since(start)})
		if err != nil {
			p.logger.LogError(err, "Pipeline stage failed", "stage", stage)
			return res, err
		}
		p.logger.Debug("Pipeline stage completed", "stage", stage, "duration", time.Since(start))
	}

	if res.Usage != nil {
		p.logger.Info("AI token usage",
			"input_tokens", res.Usage.InputTokens,
			"output_tokens", res.Usage.OutputTokens,
			"total_tokens", res.Usage.TotalTokens)
	}
	return res, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage string, in Input, res *Result, text *string) error {
	switch stage {
	case StageExtract:
		extracted, err := p.extractor.FromBytes(ctx, in.PDF)
		if err != nil {
			return err
		}
		res.Extracted = extracted
		*text = extracted.Text

	case StageStructure:
		rec, usage, err := p.provider.StructureResume(ctx, *text)
		if err != nil {
			return err
		}
		res.Structured, res.Final = rec, rec
		res.Usage = res.Usage.Add(usage)

	case StageTailor:
		rec, usage, err := p.provider.TailorResume(ctx, res.Final, in.JobDescription)
		if err != nil {
			return err
		}
		res.Tailored, res.Final = rec, rec
		res.Usage = res.Usage.Add(usage)

	case StageTranslate:
		rec, usage, err := p.provider.TranslateResume(ctx, res.Final, in.Language)
		if err != nil {
			return err
		}
		res.Translated, res.Final = rec, rec
		res.Usage = res.Usage.Add(usage)

	case StageRender:
		doc, err := p.renderer.RenderDocument(res.Final)
		if err != nil {
			return err
		}
		res.Document = doc
	}
	return nil
}
