package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"resumetailor/internal/errors"
)

func instantRetrier(maxRetries int) *retrier {
	r := newRetrier(maxRetries, errors.Discard())
	r.delay = func(int) time.Duration { return 0 }
	return r
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", stderrors.New("bad request"), false},
		{"network error", &net.OpError{Op: "dial", Err: stderrors.New("connection refused")}, true},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), false},
		{"googleapi 503", &googleapi.Error{Code: http.StatusServiceUnavailable}, true},
		{"googleapi 400", &googleapi.Error{Code: http.StatusBadRequest}, false},
		{"genai 429", genai.APIError{Code: http.StatusTooManyRequests}, true},
		{"genai 403", genai.APIError{Code: http.StatusForbidden}, false},
		{"openai 502", &openai.APIError{HTTPStatusCode: http.StatusBadGateway}, true},
		{"openai 401", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized}, false},
		{"openai request 504", &openai.RequestError{HTTPStatusCode: http.StatusGatewayTimeout, Err: stderrors.New("gateway")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestWithRetryRecoversFromTransientErrors(t *testing.T) {
	attempts := 0
	got, err := withRetry(context.Background(), instantRetrier(3), "structure", func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", &googleapi.Error{Code: http.StatusTooManyRequests}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	permanent := &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "invalid key"}
	attempts := 0
	_, err := withRetry(context.Background(), instantRetrier(3), "tailor", func() (int, error) {
		attempts++
		return 0, permanent
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, permanent)
}

func TestWithRetryGivesUp(t *testing.T) {
	attempts := 0
	_, err := withRetry(context.Background(), instantRetrier(2), "translate", func() (int, error) {
		attempts++
		return 0, &googleapi.Error{Code: http.StatusInternalServerError}
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "failed after 2 retries")
}

func TestWithRetryHonoursContext(t *testing.T) {
	r := newRetrier(5, errors.Discard())
	r.delay = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := withRetry(ctx, r, "structure", func() (int, error) {
		attempts++
		cancel()
		return 0, &googleapi.Error{Code: http.StatusServiceUnavailable}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{1, time.Second, 1100 * time.Millisecond},
		{2, 2 * time.Second, 2200 * time.Millisecond},
		{4, 8 * time.Second, 8800 * time.Millisecond},
		{10, maxBackoff, maxBackoff},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt %d", tt.attempt), func(t *testing.T) {
			d := backoffDelay(tt.attempt)
			assert.GreaterOrEqual(t, d, tt.min)
			assert.LessOrEqual(t, d, tt.max)
		})
	}
}
