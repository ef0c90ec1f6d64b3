package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"resumetailor/internal/errors"
)

// healthHandler reports model availability, circuit breakers, certificate
// state and file watchers. Any unavailable part turns the status into
// "degraded" with 503.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "resumetailor",
		"version": s.Version,
	}
	healthy := true

	if s.deps.Provider != nil {
		ctx, cancel := s.withHealthTimeout(r.Context())
		defer cancel()

		models := s.deps.Provider.GetModelInfo(ctx)
		response["ai_models"] = models
		for _, info := range models {
			if info == nil || !info.Available {
				healthy = false
			}
		}
	} else {
		response["ai_models"] = map[string]any{"available": false, "error": "no AI provider configured"}
		healthy = false
	}

	if stats := s.providerStats(); stats != nil {
		response["circuit_breakers"] = stats
	}

	if s.certs != nil {
		certStatus := s.certs.status()
		response["certificates"] = certStatus
		if ok, _ := certStatus["healthy"].(bool); !ok {
			healthy = false
		}
	}

	if len(s.watchers) > 0 {
		watchers := make([]map[string]any, 0, len(s.watchers))
		for _, wt := range s.watchers {
			watchers = append(watchers, wt.Status())
		}
		response["watchers"] = watchers
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "resumetailor",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"auth_enabled":           len(s.APIKeys) > 0,
			"tls_mode":               s.TLSConfig.Mode,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if stats := s.providerStats(); stats != nil {
		response["circuit_breakers"] = stats
	}

	writeJSON(w, r, http.StatusOK, response)
}

// readJSONBody checks the content type and reads the whole body.
func readJSONBody(r *http.Request) ([]byte, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, "content-type must be application/json", nil)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, readError(err)
	}
	return body, nil
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	body, err := readJSONBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, "failed to parse JSON", err)
	}
	return nil
}

// readError classifies a body read failure.
func readError(err error) error {
	if tooLarge := asTooLarge(err); tooLarge != nil {
		return tooLarge
	}
	return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read request body", err)
}

// asTooLarge converts a MaxBytesReader failure into a validation error that
// keeps the original in its chain.
func asTooLarge(err error) error {
	var maxBytesErr *http.MaxBytesError
	if !stderrors.As(err, &maxBytesErr) {
		return nil
	}
	return errors.NewValidationError(errors.ErrCodeInvalidRequest,
		fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
}

// statusFor maps an error to the HTTP status it is reported with.
func statusFor(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case stderrors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	appErr, ok := errors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeIO, errors.ErrorTypeRender:
		return http.StatusUnprocessableEntity
	case errors.ErrorTypeAI:
		if appErr.Code == errors.ErrCodeAITimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.ErrorTypeNetwork:
		return http.StatusGatewayTimeout
	case errors.ErrorTypeConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError writes err with the status and code derived from it.
func writeAppError(w http.ResponseWriter, r *http.Request, title string, err error) {
	message, code := err.Error(), ""
	if appErr, ok := errors.AsAppError(err); ok {
		message, code = appErr.Message, appErr.Code
	}
	writeErrorResponse(w, r, title, message, code, statusFor(err))
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, r *http.Request, title, message, code string, statusCode int) {
	body, err := json.Marshal(ErrorResponse{
		Error:     title,
		Message:   message,
		Code:      code,
		RequestID: requestIDFrom(r),
	})
	if err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(append(body, '\n'))
}
