package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"resumetailor/internal/observability"
)

type requestIDKey struct{}

// Handler builds the complete HTTP handler: routes, request IDs and the
// OpenTelemetry middleware. om may be nil.
func (s *Server) Handler(om *observability.ObservabilityManager) http.Handler {
	mux := s.setupRoutes(om)
	var handler http.Handler = observability.RequestAttributesMiddleware(requestIDFrom)(mux)
	handler = om.HTTPMiddleware()(handler)
	return requestIDMiddleware(handler)
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes(om *observability.ObservabilityManager) *http.ServeMux {
	mux := http.NewServeMux()
	h := s.newHandlers(om)

	rateLimit := s.rateLimitMiddleware(om)
	sizeLimit := s.requestSizeLimitMiddleware()
	protected := func(next http.HandlerFunc) http.HandlerFunc {
		return rateLimit(s.authMiddleware(sizeLimit(next)))
	}

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)
	mux.HandleFunc("POST /extract", protected(h.extract))
	mux.HandleFunc("POST /structure", protected(h.structure))
	mux.HandleFunc("POST /tailor", protected(h.tailor))
	mux.HandleFunc("POST /translate", protected(h.translate))
	mux.HandleFunc("POST /render", protected(h.render))
	mux.HandleFunc("POST /run", protected(h.run))

	return mux
}

// requestIDMiddleware propagates X-Request-ID, generating one when the
// client sent none.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", clientIP(r),
				"request_id", requestIDFrom(r))
			writeErrorResponse(w, r, "Missing API key", "X-API-Key header or Authorization Bearer token required", "", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", clientIP(r),
				"api_key_prefix", maskAPIKey(apiKey),
				"request_id", requestIDFrom(r))
			writeErrorResponse(w, r, "Invalid API key", "Unauthorized access", "", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// requestSizeLimitMiddleware limits the size of incoming requests. JSON
// bodies carry PDFs base64 encoded, so the limit is twice the file limit.
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, 2*s.MaxRequestSize)
			}
			next(w, r)
		}
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
