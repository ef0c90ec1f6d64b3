package ai

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"resumetailor/internal/errors"
)

const maxBackoff = 30 * time.Second

// backoffDelay is 2^(attempt-1) seconds plus up to 10% jitter, capped at
// maxBackoff.
func backoffDelay(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter := time.Duration(0)
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(baseDelay+jitter, maxBackoff)
}

// retrier runs a call up to maxRetries+1 times while its error is
// retryable.
type retrier struct {
	maxRetries int
	logger     *errors.Logger
	// delay is swapped out by tests.
	delay func(attempt int) time.Duration
}

func newRetrier(maxRetries int, logger *errors.Logger) *retrier {
	return &retrier{maxRetries: max(maxRetries, 0), logger: logger, delay: backoffDelay}
}

func withRetry[T any](ctx context.Context, r *retrier, operation string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			r.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", r.maxRetries,
				"error", lastErr.Error())

			timer := time.NewTimer(r.delay(attempt))
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				r.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			r.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			return zero, err
		}
	}

	r.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", r.maxRetries+1)

	return zero, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, r.maxRetries, lastErr)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// isRetryableError accepts network failures and rate limit or server
// errors from any of the model backends.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var googleErr *googleapi.Error
	if stderrors.As(err, &googleErr) {
		return retryableStatus(googleErr.Code)
	}

	var genaiErr genai.APIError
	if stderrors.As(err, &genaiErr) {
		return retryableStatus(genaiErr.Code)
	}

	var openaiErr *openai.APIError
	if stderrors.As(err, &openaiErr) {
		return retryableStatus(openaiErr.HTTPStatusCode)
	}

	var requestErr *openai.RequestError
	if stderrors.As(err, &requestErr) {
		return retryableStatus(requestErr.HTTPStatusCode)
	}

	return false
}
