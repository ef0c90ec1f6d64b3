package server

import (
	"context"
	"time"

	"resumetailor/internal/ai"
	"resumetailor/internal/config"
	"resumetailor/internal/errors"
	"resumetailor/internal/pipeline"
	"resumetailor/internal/resume"
)

// StructureRequest represents the request body for the structure endpoint
type StructureRequest struct {
	Text string `json:"text"`
}

// TailorRequest represents the request body for the tailor endpoint
type TailorRequest struct {
	Resume         *resume.Record `json:"resume"`
	JobDescription string         `json:"jobDescription"`
}

// TranslateRequest represents the request body for the translate endpoint.
// An empty Language means the configured default.
type TranslateRequest struct {
	Resume   *resume.Record `json:"resume"`
	Language string         `json:"language,omitempty"`
}

// RunRequest represents the request body for the run endpoint. Exactly one
// of Text, PDF (base64 in JSON) or Resume is the source.
type RunRequest struct {
	Text           string         `json:"text,omitempty"`
	PDF            []byte         `json:"pdf,omitempty"`
	Resume         *resume.Record `json:"resume,omitempty"`
	JobDescription string         `json:"jobDescription,omitempty"`
	Translate      bool           `json:"translate,omitempty"`
	Language       string         `json:"language,omitempty"`
	// Format "pdf" returns the rendered document itself; anything else
	// returns JSON with the document base64 encoded.
	Format string `json:"format,omitempty"`
}

// RecordResponse is returned by the AI endpoints
type RecordResponse struct {
	Resume *resume.Record `json:"resume"`
	Issues []resume.Issue `json:"issues,omitempty"`
	Usage  *ai.TokenUsage `json:"usage,omitempty"`
}

// RunResponse is the JSON form of a pipeline result
type RunResponse struct {
	*pipeline.Result
	PDF   []byte `json:"pdf,omitempty"`
	Pages int    `json:"pages,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// statsProvider is implemented by providers that expose circuit breaker
// statistics, such as *ai.Service.
type statsProvider interface {
	Stats() map[string]any
}

// Dependencies are the collaborators the handlers call. Provider may be nil
// when only extraction and rendering are served.
type Dependencies struct {
	Provider  ai.Provider
	Extractor pipeline.TextExtractor
	Renderer  pipeline.DocumentRenderer
	Prompts   *config.PromptStore
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Logger *errors.Logger

	deps     Dependencies
	certs    *certReloader
	watchers []watcher
}

// watcher is a background reloader started with the server.
type watcher interface {
	Start() error
	Stop() error
	Status() map[string]any
}

// NewServer creates a new Server instance from the application config
func NewServer(appCfg *config.Config, deps Dependencies, version string, logger *errors.Logger) *Server {
	if logger == nil {
		logger = errors.Discard()
	}
	srvCfg := appCfg.Server

	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range srvCfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if srvCfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(srvCfg.RateLimit.RequestsPerMin, srvCfg.RateLimit.BurstCapacity, logger)
	}

	return &Server{
		Host:           srvCfg.Host,
		Port:           srvCfg.Port,
		Version:        version,
		AppConfig:      appCfg,
		TLSConfig:      srvCfg.TLS,
		APIKeys:        apiKeyMap,
		ReadTimeout:    srvCfg.ReadTimeout,
		WriteTimeout:   srvCfg.WriteTimeout,
		IdleTimeout:    srvCfg.IdleTimeout,
		MaxRequestSize: appCfg.App.MaxFileSize,
		RateLimit:      &srvCfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
		deps:           deps,
	}
}

// healthCheckTimeout bounds the model availability checks of /health.
func (s *Server) healthCheckTimeout() time.Duration {
	if t := s.AppConfig.Observability.HealthCheck.Timeout; t > 0 {
		return t
	}
	return 30 * time.Second
}

// providerStats returns circuit breaker stats when the provider has them.
func (s *Server) providerStats() map[string]any {
	if sp, ok := s.deps.Provider.(statsProvider); ok {
		return sp.Stats()
	}
	return nil
}

// withHealthTimeout derives the context for the health check.
func (s *Server) withHealthTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.healthCheckTimeout())
}
