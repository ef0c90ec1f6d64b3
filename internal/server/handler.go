package server

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"resumetailor/internal/ai"
	"resumetailor/internal/errors"
	"resumetailor/internal/observability"
	"resumetailor/internal/pipeline"
	"resumetailor/internal/render"
	"resumetailor/internal/resume"
	"resumetailor/internal/utils"
)

// handlers serve the résumé endpoints through instrumented collaborators.
type handlers struct {
	logger    *errors.Logger
	tracer    oteltrace.Tracer
	metrics   *observability.Metrics
	provider  ai.Provider
	extractor pipeline.TextExtractor
	renderer  pipeline.DocumentRenderer
	pipeline  *pipeline.Pipeline
}

func (s *Server) newHandlers(om *observability.ObservabilityManager) *handlers {
	metrics := om.GetMetrics()
	h := &handlers{
		logger:  s.Logger,
		tracer:  om.Tracer("resumetailor.api"),
		metrics: metrics,
	}
	if s.deps.Provider != nil {
		h.provider = instrumentedProvider{Provider: s.deps.Provider, metrics: metrics}
	}
	if s.deps.Extractor != nil {
		h.extractor = instrumentedExtractor{TextExtractor: s.deps.Extractor, metrics: metrics}
	}
	if s.deps.Renderer != nil {
		h.renderer = instrumentedRenderer{DocumentRenderer: s.deps.Renderer, metrics: metrics}
	}
	h.pipeline = pipeline.New(h.extractor, h.provider, h.renderer, s.Logger)
	return h
}

// start opens the api span and tags it with the request ID.
func (h *handlers) start(r *http.Request, operation string) (context.Context, oteltrace.Span) {
	ctx, span := h.tracer.Start(r.Context(), "api."+operation)
	span.SetAttributes(
		attribute.String("operation", operation),
		attribute.String("request.id", requestIDFrom(r)),
	)
	return ctx, span
}

// fail records err on span and writes the matching error response.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, span oteltrace.Span, title string, err error) {
	span.RecordError(err)
	if appErr, ok := errors.AsAppError(err); ok {
		span.SetAttributes(attribute.String("error.type", string(appErr.Type)))
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.LogError(err, title, "endpoint", r.URL.Path, "request_id", requestIDFrom(r))
	}
	writeAppError(w, r, title, err)
}

func (h *handlers) requireProvider(w http.ResponseWriter, r *http.Request, span oteltrace.Span) bool {
	if h.provider != nil {
		return true
	}
	h.fail(w, r, span, "AI provider unavailable",
		errors.NewConfigError(errors.ErrCodeInvalidConfig, "no AI provider configured", nil))
	return false
}

// extract returns the text of an uploaded PDF.
func (h *handlers) extract(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.start(r, "extract")
	defer span.End()

	data, err := readPDF(r)
	if err != nil {
		h.fail(w, r, span, "Invalid request body", err)
		return
	}
	span.SetAttributes(attribute.Int("request.pdf_size", len(data)))

	if h.extractor == nil {
		h.fail(w, r, span, "Extraction unavailable",
			errors.NewConfigError(errors.ErrCodeInvalidConfig, "no extractor configured", nil))
		return
	}
	res, err := h.extractor.FromBytes(ctx, data)
	if err != nil {
		h.fail(w, r, span, "Failed to extract text", err)
		return
	}

	span.SetAttributes(
		attribute.Int("response.pages", res.PageCount),
		attribute.Int("response.text_length", len(res.Text)),
	)
	writeJSON(w, r, http.StatusOK, res)
}

// structure turns résumé text into a record.
func (h *handlers) structure(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.start(r, "structure")
	defer span.End()

	var req StructureRequest
	if err := parseJSONRequest(r, &req); err != nil {
		h.fail(w, r, span, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		h.fail(w, r, span, "Missing resume text",
			errors.NewValidationError(errors.ErrCodeInvalidRequest, "text field is required", nil))
		return
	}
	if !h.requireProvider(w, r, span) {
		return
	}
	span.SetAttributes(attribute.Int("request.text_length", len(req.Text)))

	rec, usage, err := h.provider.StructureResume(ctx, req.Text)
	if err != nil {
		h.fail(w, r, span, "Failed to structure resume", err)
		return
	}
	h.writeRecord(w, r, span, rec, usage)
}

// tailor rewrites a record for a job description.
func (h *handlers) tailor(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.start(r, "tailor")
	defer span.End()

	var req TailorRequest
	if err := parseJSONRequest(r, &req); err != nil {
		h.fail(w, r, span, "Invalid request body", err)
		return
	}
	if err := requireRecord(req.Resume); err != nil {
		h.fail(w, r, span, "Invalid resume", err)
		return
	}
	if strings.TrimSpace(req.JobDescription) == "" {
		h.fail(w, r, span, "Missing job description",
			errors.NewValidationError(errors.ErrCodeInvalidRequest, "jobDescription field is required", nil))
		return
	}
	if !h.requireProvider(w, r, span) {
		return
	}
	span.SetAttributes(attribute.Int("request.job_length", len(req.JobDescription)))

	rec, usage, err := h.provider.TailorResume(ctx, req.Resume, req.JobDescription)
	if err != nil {
		h.fail(w, r, span, "Failed to tailor resume", err)
		return
	}
	h.writeRecord(w, r, span, rec, usage)
}

// translate rewrites a record into another language.
func (h *handlers) translate(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.start(r, "translate")
	defer span.End()

	var req TranslateRequest
	if err := parseJSONRequest(r, &req); err != nil {
		h.fail(w, r, span, "Invalid request body", err)
		return
	}
	if err := requireRecord(req.Resume); err != nil {
		h.fail(w, r, span, "Invalid resume", err)
		return
	}
	if !h.requireProvider(w, r, span) {
		return
	}
	span.SetAttributes(attribute.String("request.language", req.Language))

	rec, usage, err := h.provider.TranslateResume(ctx, req.Resume, req.Language)
	if err != nil {
		h.fail(w, r, span, "Failed to translate resume", err)
		return
	}
	h.writeRecord(w, r, span, rec, usage)
}

// render lays a record out as a PDF. The body is the record itself.
func (h *handlers) render(w http.ResponseWriter, r *http.Request) {
	_, span := h.start(r, "render")
	defer span.End()

	body, err := readJSONBody(r)
	if err != nil {
		h.fail(w, r, span, "Invalid request body", err)
		return
	}
	rec, err := resume.Parse(body)
	if err == nil {
		err = rec.Validate()
	}
	if err != nil {
		h.fail(w, r, span, "Invalid resume", err)
		return
	}
	if h.renderer == nil {
		h.fail(w, r, span, "Rendering unavailable",
			errors.NewConfigError(errors.ErrCodeInvalidConfig, "no renderer configured", nil))
		return
	}

	doc, err := h.renderer.RenderDocument(rec)
	if err != nil {
		h.fail(w, r, span, "Failed to render resume", err)
		return
	}
	span.SetAttributes(
		attribute.Int("response.pages", doc.Pages),
		attribute.Int("response.size", len(doc.Bytes)),
	)
	writePDF(w, r, doc, nil)
}

// run executes the whole pipeline for one source.
func (h *handlers) run(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.start(r, "run")
	defer span.End()

	var req RunRequest
	if err := parseJSONRequest(r, &req); err != nil {
		h.fail(w, r, span, "Invalid request body", err)
		return
	}
	if req.Resume != nil {
		if err := req.Resume.Validate(); err != nil {
			h.fail(w, r, span, "Invalid resume", err)
			return
		}
	}

	in := pipeline.Input{
		PDF:            req.PDF,
		Text:           req.Text,
		Record:         req.Resume,
		JobDescription: req.JobDescription,
		Translate:      req.Translate,
		Language:       req.Language,
	}
	span.SetAttributes(attribute.StringSlice("pipeline.stages", in.Stages()))

	res, err := h.pipeline.Run(ctx, in)
	h.metrics.RecordBusinessMetric(ctx, observability.MetricPipelineRun, err == nil,
		attribute.Int("stages", len(in.Stages())))
	if err != nil {
		h.fail(w, r, span, "Pipeline failed", err)
		return
	}

	if strings.EqualFold(req.Format, "pdf") {
		writePDF(w, r, res.Document, res.Usage)
		return
	}

	out := RunResponse{Result: res}
	if res.Document != nil {
		out.PDF = res.Document.Bytes
		out.Pages = res.Document.Pages
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *handlers) writeRecord(w http.ResponseWriter, r *http.Request, span oteltrace.Span, rec *resume.Record, usage *ai.TokenUsage) {
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.StringSlice("response.sections", rec.Sections()),
	)
	writeJSON(w, r, http.StatusOK, RecordResponse{Resume: rec, Issues: rec.Issues(), Usage: usage})
}

// requireRecord rejects a missing record or one without a name.
func requireRecord(rec *resume.Record) error {
	if rec == nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "resume field is required", nil)
	}
	return rec.Validate()
}

// readPDF accepts a multipart upload in the "file" field or a raw PDF body.
func readPDF(r *http.Request) ([]byte, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	var data []byte
	switch mediaType {
	case "multipart/form-data":
		file, _, ferr := r.FormFile("file")
		if ferr != nil {
			if tooLarge := asTooLarge(ferr); tooLarge != nil {
				return nil, tooLarge
			}
			return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "multipart field \"file\" is required", ferr)
		}
		defer func() { _ = file.Close() }()
		data, err = io.ReadAll(file)
	case "application/pdf", "application/octet-stream":
		data, err = io.ReadAll(r.Body)
	default:
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			"content-type must be multipart/form-data or application/pdf", nil)
	}
	if err != nil {
		return nil, readError(err)
	}
	if !utils.IsPDF(data) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, "uploaded file is not a PDF document", nil)
	}
	return data, nil
}

// writePDF streams doc with its page count and token usage in headers.
func writePDF(w http.ResponseWriter, r *http.Request, doc *render.Document, usage *ai.TokenUsage) {
	if doc == nil {
		writeErrorResponse(w, r, "No document", "the pipeline did not render a document", errors.ErrCodeRenderFailed, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Bytes)))
	w.Header().Set("X-Page-Count", strconv.Itoa(doc.Pages))
	if usage != nil {
		w.Header().Set("X-Total-Tokens", strconv.FormatInt(usage.TotalTokens, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Bytes)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeErrorResponse(w, r, "Failed to encode response", err.Error(), errors.ErrCodeInvalidFormat, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
