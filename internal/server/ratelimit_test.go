package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(60, 2, nil)
	defer rl.Close()

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "burst exhausted")
	assert.True(t, rl.Allow("b"), "keys are limited independently")

	stats := rl.GetStats()
	assert.Equal(t, 2, stats["active_limiters"])
	assert.Equal(t, 2, stats["burst_capacity"])
	assert.InDelta(t, 60.0, stats["rate_per_minute"], 0.001)
}

func TestRateLimiterEvictIdle(t *testing.T) {
	rl := NewRateLimiter(60, 1, nil)
	defer rl.Close()

	rl.Allow("old")
	rl.mu.Lock()
	rl.lastSeen["old"] = time.Now().Add(-time.Hour)
	rl.mu.Unlock()
	rl.Allow("new")

	rl.evictIdle(time.Minute)
	assert.Equal(t, 1, rl.GetStats()["active_limiters"])
	assert.True(t, rl.Allow("old"), "an evicted key starts with a full bucket")
}

func TestRateLimiterCloseTwice(t *testing.T) {
	rl := NewRateLimiter(60, 1, nil)
	rl.Close()
	assert.NotPanics(t, rl.Close)
}

func TestRateLimitKey(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		byAPIKey bool
		byIP     bool
		want     string
	}{
		{"ip from remote addr", nil, false, true, "ip:192.0.2.1"},
		{"forwarded ip", map[string]string{"X-Forwarded-For": "garbage, 198.51.100.7"}, false, true, "ip:198.51.100.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.8"}, false, true, "ip:198.51.100.8"},
		{"api key first", map[string]string{"X-API-Key": "k1"}, true, true, "api:k1"},
		{"bearer key", map[string]string{"Authorization": "Bearer k2"}, true, false, "api:k2"},
		{"api key missing falls back to ip", nil, true, true, "ip:192.0.2.1"},
		{"nothing enabled", nil, false, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, rateLimitKey(r, tt.byAPIKey, tt.byIP))
		})
	}
}
