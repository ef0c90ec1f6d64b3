package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumetailor/internal/ai"
	"resumetailor/internal/config"
	"resumetailor/internal/errors"
	"resumetailor/internal/extract"
	"resumetailor/internal/render"
	"resumetailor/internal/resume"
)

type stubProvider struct {
	mu     sync.Mutex
	calls  []string
	err    error
	models map[string]*ai.ModelInfo
}

func (p *stubProvider) record(op string, rec *resume.Record) (*resume.Record, *ai.TokenUsage, error) {
	p.mu.Lock()
	p.calls = append(p.calls, op)
	p.mu.Unlock()
	if p.err != nil {
		return nil, nil, p.err
	}
	return rec, &ai.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}, nil
}

func (p *stubProvider) StructureResume(_ context.Context, text string) (*resume.Record, *ai.TokenUsage, error) {
	name, _, _ := strings.Cut(text, "\n")
	return p.record("structure", &resume.Record{Name: resume.Text(name)})
}

func (p *stubProvider) TailorResume(_ context.Context, rec *resume.Record, job string) (*resume.Record, *ai.TokenUsage, error) {
	out := *rec
	out.Summary = resume.Text("tailored for " + job)
	return p.record("tailor", &out)
}

func (p *stubProvider) TranslateResume(_ context.Context, rec *resume.Record, language string) (*resume.Record, *ai.TokenUsage, error) {
	out := *rec
	out.Summary = resume.Text("translated to " + language)
	return p.record("translate", &out)
}

func (p *stubProvider) GetModelInfo(context.Context) map[string]*ai.ModelInfo { return p.models }

func (p *stubProvider) Close() error { return nil }

type stubExtractor struct{}

func (stubExtractor) FromBytes(_ context.Context, data []byte) (*extract.Result, error) {
	return &extract.Result{Text: "Jane Doe\nEngineer", PageCount: 1, TextPages: 1}, nil
}

func availableModels() map[string]*ai.ModelInfo {
	return map[string]*ai.ModelInfo{
		"structure": {Provider: "openai", Name: "gpt-4o-mini", Available: true},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{MaxFileSize: 1 << 20},
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: "0",
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, deps Dependencies) (*Server, http.Handler) {
	t.Helper()
	s := NewServer(cfg, deps, "test", errors.Discard())
	t.Cleanup(func() {
		if s.RateLimiter != nil {
			s.RateLimiter.Close()
		}
	})
	return s, s.Handler(nil)
}

func defaultDeps(p *stubProvider) Dependencies {
	return Dependencies{Provider: p, Extractor: stubExtractor{}, Renderer: render.New()}
}

func postJSON(t *testing.T, h http.Handler, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		provider   ai.Provider
		wantStatus int
		want       string
	}{
		{"all models available", &stubProvider{models: availableModels()}, http.StatusOK, "healthy"},
		{"model unavailable", &stubProvider{models: map[string]*ai.ModelInfo{
			"tailor": {Provider: "gemini", Name: "gemini-2.0-flash", Error: "quota"},
		}}, http.StatusServiceUnavailable, "degraded"},
		{"no provider", nil, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h := newTestServer(t, testConfig(), Dependencies{Provider: tt.provider})

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body["status"])
			assert.Equal(t, "test", body["version"])
		})
	}
}

func TestStatsHandler(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMin: 60, BurstCapacity: 5, ByIP: true}
	_, h := newTestServer(t, cfg, Dependencies{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	limits, ok := body["rate_limiting"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 60.0, limits["rate_per_minute"], 0.001)
	assert.InDelta(t, 5.0, limits["burst_capacity"], 0.001)
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIKeys = []string{"secret-key-123456"}
	_, h := newTestServer(t, cfg, defaultDeps(&stubProvider{}))
	body := StructureRequest{Text: "Jane Doe\nEngineer"}

	tests := []struct {
		name    string
		headers []string
		want    int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", []string{"X-API-Key", "nope"}, http.StatusUnauthorized},
		{"header key", []string{"X-API-Key", "secret-key-123456"}, http.StatusOK},
		{"bearer token", []string{"Authorization", "Bearer secret-key-123456"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h, "/structure", body, tt.headers...)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	t.Run("health stays public", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequestID(t *testing.T) {
	_, h := newTestServer(t, testConfig(), defaultDeps(&stubProvider{}))

	rec := postJSON(t, h, "/structure", StructureRequest{}, "X-Request-ID", "req-42")
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-42", decodeError(t, rec).RequestID)

	rec = postJSON(t, h, "/structure", StructureRequest{})
	_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
	assert.NoError(t, err, "a request ID is generated when none is sent")
}

func TestStructureEndpoint(t *testing.T) {
	provider := &stubProvider{}
	_, h := newTestServer(t, testConfig(), defaultDeps(provider))

	rec := postJSON(t, h, "/structure", StructureRequest{Text: "Jane Doe\nEngineer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp RecordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Resume)
	assert.Equal(t, resume.Text("Jane Doe"), resp.Resume.Name)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, int64(15), resp.Usage.TotalTokens)
	assert.Equal(t, []string{"structure"}, provider.calls)
}

func TestStructureEndpointErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
		body     string
		ctype    string
		want     int
		wantCode string
	}{
		{"blank text", &stubProvider{}, `{"text":"  "}`, "application/json", http.StatusBadRequest, errors.ErrCodeInvalidRequest},
		{"wrong content type", &stubProvider{}, `{"text":"Jane"}`, "text/plain", http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"malformed json", &stubProvider{}, `{"text":`, "application/json", http.StatusBadRequest, errors.ErrCodeInvalidFormat},
		{"ai failure", &stubProvider{err: errors.NewAIError(errors.ErrCodeAIServiceFailed, "upstream down", nil)},
			`{"text":"Jane"}`, "application/json", http.StatusBadGateway, errors.ErrCodeAIServiceFailed},
		{"ai timeout", &stubProvider{err: errors.NewAIError(errors.ErrCodeAITimeout, "too slow", nil)},
			`{"text":"Jane"}`, "application/json", http.StatusGatewayTimeout, errors.ErrCodeAITimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, h := newTestServer(t, testConfig(), defaultDeps(tt.provider))

			req := httptest.NewRequest(http.MethodPost, "/structure", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.ctype)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestEndpointsWithoutProvider(t *testing.T) {
	_, h := newTestServer(t, testConfig(), Dependencies{Renderer: render.New()})

	rec := postJSON(t, h, "/structure", StructureRequest{Text: "Jane"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = postJSON(t, h, "/run", RunRequest{Text: "Jane"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = postJSON(t, h, "/render", resume.Record{Name: "Jane Doe"})
	assert.Equal(t, http.StatusOK, rec.Code, "rendering needs no provider")
}

func TestTailorEndpoint(t *testing.T) {
	_, h := newTestServer(t, testConfig(), defaultDeps(&stubProvider{}))
	jane := &resume.Record{Name: "Jane Doe"}

	t.Run("tailors", func(t *testing.T) {
		rec := postJSON(t, h, "/tailor", TailorRequest{Resume: jane, JobDescription: "Go developer"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp RecordResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, resume.Text("tailored for Go developer"), resp.Resume.Summary)
	})

	tests := []struct {
		name string
		req  TailorRequest
	}{
		{"missing resume", TailorRequest{JobDescription: "Go developer"}},
		{"resume without name", TailorRequest{Resume: &resume.Record{Summary: "x"}, JobDescription: "Go"}},
		{"missing job", TailorRequest{Resume: jane}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h, "/tailor", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestTranslateEndpoint(t *testing.T) {
	_, h := newTestServer(t, testConfig(), defaultDeps(&stubProvider{}))

	rec := postJSON(t, h, "/translate", TranslateRequest{Resume: &resume.Record{Name: "Jane Doe"}, Language: "German"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp RecordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, resume.Text("translated to German"), resp.Resume.Summary)
	assert.Equal(t, resume.Text("Jane Doe"), resp.Resume.Name)
}

func TestRenderEndpoint(t *testing.T) {
	_, h := newTestServer(t, testConfig(), defaultDeps(&stubProvider{}))

	rec := postJSON(t, h, "/render", map[string]any{
		"name":    "Jane Doe",
		"summary": "Backend engineer",
		"skills":  []string{"Go", "SQL"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Page-Count"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = postJSON(t, h, "/render", map[string]any{"summary": "no name"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrCodeInvalidResume, decodeError(t, rec).Code)
}

func TestRunEndpoint(t *testing.T) {
	provider := &stubProvider{}
	_, h := newTestServer(t, testConfig(), defaultDeps(provider))

	t.Run("json result", func(t *testing.T) {
		rec := postJSON(t, h, "/run", RunRequest{Text: "Jane Doe\nEngineer", JobDescription: "SRE"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Final *resume.Record `json:"final"`
			PDF   []byte         `json:"pdf"`
			Pages int            `json:"pages"`
			Usage *ai.TokenUsage `json:"usage"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Final)
		assert.Equal(t, resume.Text("tailored for SRE"), resp.Final.Summary)
		assert.True(t, bytes.HasPrefix(resp.PDF, []byte("%PDF-")))
		assert.Equal(t, 1, resp.Pages)
		assert.Equal(t, int64(30), resp.Usage.TotalTokens)
	})

	t.Run("pdf format", func(t *testing.T) {
		rec := postJSON(t, h, "/run", RunRequest{Resume: &resume.Record{Name: "Jane Doe"}, Format: "pdf"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
	})

	t.Run("pdf source", func(t *testing.T) {
		rec := postJSON(t, h, "/run", RunRequest{PDF: []byte("%PDF-1.4 fake"), Translate: true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"extracted"`)
	})

	t.Run("two sources", func(t *testing.T) {
		rec := postJSON(t, h, "/run", RunRequest{Text: "Jane", Resume: &resume.Record{Name: "Jane"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestExtractEndpoint(t *testing.T) {
	_, h := newTestServer(t, testConfig(), defaultDeps(&stubProvider{}))
	pdf := []byte("%PDF-1.4\n%fake\n")

	t.Run("raw body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/extract", bytes.NewReader(pdf))
		req.Header.Set("Content-Type", "application/pdf")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res extract.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, 1, res.PageCount)
		assert.Contains(t, res.Text, "Jane Doe")
	})

	t.Run("multipart", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "resume.pdf")
		require.NoError(t, err)
		_, err = part.Write(pdf)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/extract", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("not a pdf", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader("hello"))
		req.Header.Set("Content-Type", "application/pdf")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRequestTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.App.MaxFileSize = 16
	_, h := newTestServer(t, cfg, defaultDeps(&stubProvider{}))

	rec := postJSON(t, h, "/structure", StructureRequest{Text: strings.Repeat("x", 100)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	_, h := newTestServer(t, testConfig(), defaultDeps(&stubProvider{}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/structure", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	_, h := newTestServer(t, cfg, defaultDeps(&stubProvider{}))
	body := StructureRequest{Text: "Jane"}

	rec := postJSON(t, h, "/structure", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, h, "/structure", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	rec = postJSON(t, h, "/structure", body, "X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, http.StatusOK, rec.Code, "another client has its own bucket")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errors.NewValidationError(errors.ErrCodeInvalidRequest, "bad", nil), http.StatusBadRequest},
		{"io", errors.NewIOError(errors.ErrCodeFileNotReadable, "bad", nil), http.StatusUnprocessableEntity},
		{"render", errors.NewRenderError(errors.ErrCodeRenderFailed, "bad", nil), http.StatusUnprocessableEntity},
		{"ai", errors.NewAIError(errors.ErrCodeAIServiceFailed, "bad", nil), http.StatusBadGateway},
		{"ai timeout", errors.NewAIError(errors.ErrCodeAITimeout, "slow", nil), http.StatusGatewayTimeout},
		{"network", errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "slow", nil), http.StatusGatewayTimeout},
		{"config", errors.NewConfigError(errors.ErrCodeInvalidConfig, "bad", nil), http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"too large", &http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{"plain", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefghijkl"))
}

func TestWriteServerInfo(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIKeys = []string{"k"}
	s, _ := newTestServer(t, cfg, Dependencies{})

	var buf bytes.Buffer
	s.writeServerInfo(&buf, &http.Server{Addr: "127.0.0.1:8080"})
	out := buf.String()
	assert.Contains(t, out, "http://127.0.0.1:8080")
	assert.Contains(t, out, "POST /run")
	assert.Contains(t, out, "API authentication: ENABLED (1 keys configured)")
	assert.Contains(t, out, "File size limit: 1.0 MB")
}
