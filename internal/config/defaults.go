package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type providerDefault struct {
	model   string
	baseURL string
	envKey  string
}

var providerDefaults = map[string]providerDefault{
	"groq":   {model: "llama-3.3-70b-versatile", baseURL: "https://api.groq.com/openai/v1", envKey: "GROQ_API_KEY"},
	"openai": {model: "gpt-4o-mini", baseURL: "https://api.openai.com/v1", envKey: "OPENAI_API_KEY"},
	"gemini": {model: "gemini-2.0-flash", envKey: "GEMINI_API_KEY"},
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string {
	return providerDefaults[provider].model
}

// DefaultBaseURL returns the API endpoint of an OpenAI-compatible provider.
// Gemini has none.
func DefaultBaseURL(provider string) string {
	return providerDefaults[provider].baseURL
}

func apiKeyFromEnv(provider string) string {
	if d, ok := providerDefaults[provider]; ok {
		return os.Getenv(d.envKey)
	}
	return ""
}

// operationDefaults are the sampling temperatures and timeouts per
// operation: extraction and translation are kept near-deterministic.
var operationDefaults = map[Operation]struct {
	temperature float32
	timeout     time.Duration
	maxRetries  int
}{
	OpStructure: {0.1, 60 * time.Second, 3},
	OpTailor:    {0.3, 90 * time.Second, 2},
	OpTranslate: {0.1, 90 * time.Second, 2},
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "groq")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.baseURL", "")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("ai.maxTokens", 4000)
	v.SetDefault("ai.useSystemPrompts", true)
	v.SetDefault("ai.targetLanguage", "French")

	for op, d := range operationDefaults {
		prefix := "ai." + string(op) + "."
		v.SetDefault(prefix+"temperature", d.temperature)
		v.SetDefault(prefix+"timeout", d.timeout)
		v.SetDefault(prefix+"maxRetries", d.maxRetries)

		v.SetDefault(prefix+"circuitBreaker.enabled", true)
		v.SetDefault(prefix+"circuitBreaker.maxRequests", 3)
		v.SetDefault(prefix+"circuitBreaker.interval", 60*time.Second)
		v.SetDefault(prefix+"circuitBreaker.timeout", 60*time.Second)
		v.SetDefault(prefix+"circuitBreaker.minRequests", 3)
		v.SetDefault(prefix+"circuitBreaker.failureThreshold", 0.6)
	}

	v.SetDefault("render.pageSize", "A4")
	v.SetDefault("render.accentColor", []int{70, 130, 180})
	v.SetDefault("render.margins.left", 18.0)
	v.SetDefault("render.margins.top", 15.0)
	v.SetDefault("render.margins.right", 18.0)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 120*time.Second) // AI round trips
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.watchPrompts", false)
	v.SetDefault("server.debounceDelay", time.Second)

	v.SetDefault("server.tls.mode", "disabled")
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.caFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.clientAuthPolicy", "require")
	v.SetDefault("server.tls.reload", true)

	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)

	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024)

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.aiKey", "")
	v.SetDefault("vault.secrets.tlsCerts", "")
	v.SetDefault("vault.pollInterval", 5*time.Minute)

	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.serviceName", "resumetailor")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.prettyPrint", true)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.metricsInterval", 15*time.Second)
	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.aiModelCheckTimeout", 10*time.Second)
}
