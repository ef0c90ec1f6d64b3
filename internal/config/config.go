package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"resumetailor/internal/render"
)

// EnvPrefix is prepended to every environment override, with dots in the
// key replaced by underscores (RESUMETAILOR_AI_APIKEY).
const EnvPrefix = "RESUMETAILOR"

// Config holds all application configuration.
//
// API key precedence, highest first:
//  1. Vault (when enabled)
//  2. config file
//  3. RESUMETAILOR_* environment variables
//  4. the provider's conventional variable (GROQ_API_KEY, GEMINI_API_KEY, OPENAI_API_KEY)
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Render        RenderConfig        `mapstructure:"render"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// Operation names one of the AI-backed résumé transformations.
type Operation string

const (
	OpStructure Operation = "structure"
	OpTailor    Operation = "tailor"
	OpTranslate Operation = "translate"
)

// Operations lists every AI operation in pipeline order.
func Operations() []Operation {
	return []Operation{OpStructure, OpTailor, OpTranslate}
}

// AIConfig holds the global model settings and the per-operation overrides.
type AIConfig struct {
	Provider         string        `mapstructure:"provider"`
	Model            string        `mapstructure:"model"`
	BaseURL          string        `mapstructure:"baseURL"`
	Timeout          time.Duration `mapstructure:"timeout"`
	APIKey           string        `mapstructure:"apiKey"`
	MaxRetries       int           `mapstructure:"maxRetries"`
	Temperature      float32       `mapstructure:"temperature"`
	MaxTokens        int32         `mapstructure:"maxTokens"`
	UseSystemPrompts bool          `mapstructure:"useSystemPrompts"`

	// TargetLanguage is used by translate when the caller names none.
	TargetLanguage string `mapstructure:"targetLanguage"`

	Structure OperationAIConfig `mapstructure:"structure"`
	Tailor    OperationAIConfig `mapstructure:"tailor"`
	Translate OperationAIConfig `mapstructure:"translate"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // requests let through while half-open
	Interval         time.Duration `mapstructure:"interval"`         // closed-state count reset period
	Timeout          time.Duration `mapstructure:"timeout"`          // open state duration
	MinRequests      uint32        `mapstructure:"minRequests"`      // requests before the ratio is considered
	FailureThreshold float64       `mapstructure:"failureThreshold"` // 0.0-1.0
}

// OperationAIConfig overrides the global AI settings for one operation.
// Nil pointers and empty strings inherit the global value.
type OperationAIConfig struct {
	Provider         string               `mapstructure:"provider"`
	Model            string               `mapstructure:"model"`
	BaseURL          string               `mapstructure:"baseURL"`
	Timeout          *time.Duration       `mapstructure:"timeout"`
	APIKey           string               `mapstructure:"apiKey"`
	MaxRetries       *int                 `mapstructure:"maxRetries"`
	Temperature      *float32             `mapstructure:"temperature"`
	MaxTokens        *int32               `mapstructure:"maxTokens"`
	UseSystemPrompts *bool                `mapstructure:"useSystemPrompts"`
	Prompts          PromptConfig         `mapstructure:"prompts"`
	CircuitBreaker   CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig overrides the built-in prompt templates of an operation.
// Inline text wins over a file when both are given.
type PromptConfig struct {
	System     string `mapstructure:"system"`
	SystemFile string `mapstructure:"systemFile"`
	User       string `mapstructure:"user"`
	UserFile   string `mapstructure:"userFile"`
}

// RenderConfig holds the document layout settings.
type RenderConfig struct {
	PageSize    string        `mapstructure:"pageSize"`
	AccentColor []int         `mapstructure:"accentColor"`
	Margins     MarginsConfig `mapstructure:"margins"`
}

// MarginsConfig holds page margins in millimetres. All zero keeps the
// renderer defaults.
type MarginsConfig struct {
	Left  float64 `mapstructure:"left"`
	Top   float64 `mapstructure:"top"`
	Right float64 `mapstructure:"right"`
}

func (m MarginsConfig) isZero() bool {
	return m == MarginsConfig{}
}

// Options converts the settings into renderer options.
func (r RenderConfig) Options() []render.Option {
	var opts []render.Option
	if r.PageSize != "" {
		opts = append(opts, render.WithPageSize(r.PageSize))
	}
	if len(r.AccentColor) == 3 {
		opts = append(opts, render.WithAccentColor(render.Color{
			R: r.AccentColor[0], G: r.AccentColor[1], B: r.AccentColor[2],
		}))
	}
	if !r.Margins.isZero() {
		opts = append(opts, render.WithMargins(render.Margins{
			Left: r.Margins.Left, Top: r.Margins.Top, Right: r.Margins.Right,
		}))
	}
	return opts
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	TLS TLSConfig `mapstructure:"tls"`

	// APIKeys authenticate clients through X-API-Key. Empty disables auth.
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`

	// WatchPrompts reloads prompt files when they change on disk.
	WatchPrompts  bool          `mapstructure:"watchPrompts"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode     string `mapstructure:"mode"` // "disabled", "server", "mutual"
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"` // required for mutual mode

	// PEM content, filled from Vault instead of files
	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`
	CAContent   string `mapstructure:"caContent"`

	MinVersion       string `mapstructure:"minVersion"`       // "1.2", "1.3"
	ClientAuthPolicy string `mapstructure:"clientAuthPolicy"` // "require", "request", "verify"

	// Reload watches the certificate files and swaps in new pairs.
	Reload bool `mapstructure:"reload"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requestsPerMin"`
	BurstCapacity  int  `mapstructure:"burstCapacity"`
	ByIP           bool `mapstructure:"byIP"`
	ByAPIKey       bool `mapstructure:"byAPIKey"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	ServiceName     string            `mapstructure:"serviceName"`
	ServiceVersion  string            `mapstructure:"serviceVersion"`
	ServiceInstance string            `mapstructure:"serviceInstance"`
	ConsoleOutput   bool              `mapstructure:"consoleOutput"`
	PrettyPrint     bool              `mapstructure:"prettyPrint"`
	SampleRate      float64           `mapstructure:"sampleRate"`
	MetricsInterval time.Duration     `mapstructure:"metricsInterval"`
	Prometheus      PrometheusConfig  `mapstructure:"prometheus"`
	OTLP            OTLPConfig        `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig `mapstructure:"healthCheck"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

// LoadConfig loads configuration from .env, environment variables and an
// optional config.yaml. An explicit file path takes the place of the
// search paths.
func LoadConfig(file string) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	// a missing .env is normal outside development
	if err := godotenv.Load(); err == nil {
		log.Println("[CONFIG] Loaded environment from .env")
	}

	return load(viper.New(), file)
}

func load(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/resumetailor/")
		v.AddConfigPath("$HOME/.resumetailor")
		v.AddConfigPath(".")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid. A missing AI key is not an
// error here: commands that never call a model run without one.
func (c *Config) Validate() error {
	if _, ok := providerDefaults[c.AI.Provider]; !ok {
		return fmt.Errorf("unsupported AI provider: %s", c.AI.Provider)
	}
	for _, op := range Operations() {
		if p := c.operation(op).Provider; p != "" {
			if _, ok := providerDefaults[p]; !ok {
				return fmt.Errorf("unsupported AI provider for %s: %s", op, p)
			}
		}
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}
	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("AI maxTokens must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.Render.validate(); err != nil {
		return err
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

func (r RenderConfig) validate() error {
	if r.PageSize != "" {
		if _, _, ok := render.PageDimensions(r.PageSize); !ok {
			return fmt.Errorf("unsupported page size: %s (supported: %s)",
				r.PageSize, strings.Join(render.SupportedPageSizes(), ", "))
		}
	}
	if err := r.validateMargins(); err != nil {
		return err
	}
	if len(r.AccentColor) == 0 {
		return nil
	}
	if len(r.AccentColor) != 3 {
		return fmt.Errorf("accentColor must have exactly 3 components, got %d", len(r.AccentColor))
	}
	for _, c := range r.AccentColor {
		if c < 0 || c > 255 {
			return fmt.Errorf("accentColor component out of range: %d", c)
		}
	}
	return nil
}

func (r RenderConfig) validateMargins() error {
	m := r.Margins
	if m.isZero() {
		return nil
	}
	if m.Left < 0 || m.Top < 0 || m.Right < 0 {
		return fmt.Errorf("margins cannot be negative: left=%g top=%g right=%g", m.Left, m.Top, m.Right)
	}
	size := r.PageSize
	if size == "" {
		size = render.DefaultLayout().PageSize
	}
	if width, _, ok := render.PageDimensions(size); ok && m.Left+m.Right >= width/2 {
		return fmt.Errorf("margins leave too little room: left+right=%g on a %gmm wide page", m.Left+m.Right, width)
	}
	return nil
}

func (c *Config) operation(op Operation) *OperationAIConfig {
	switch op {
	case OpStructure:
		return &c.AI.Structure
	case OpTailor:
		return &c.AI.Tailor
	case OpTranslate:
		return &c.AI.Translate
	default:
		panic(fmt.Sprintf("config: unknown operation %q", op))
	}
}

// OperationConfig returns the settings of op with every unset field
// inherited from the global AI configuration.
func (c *Config) OperationConfig(op Operation) OperationAIConfig {
	opCfg := *c.operation(op)

	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		if opCfg.Provider == c.AI.Provider && c.AI.Model != "" {
			opCfg.Model = c.AI.Model
		} else {
			opCfg.Model = DefaultModel(opCfg.Provider)
		}
	}
	if opCfg.BaseURL == "" {
		if opCfg.Provider == c.AI.Provider && c.AI.BaseURL != "" {
			opCfg.BaseURL = c.AI.BaseURL
		} else {
			opCfg.BaseURL = DefaultBaseURL(opCfg.Provider)
		}
	}
	if opCfg.APIKey == "" {
		if opCfg.Provider == c.AI.Provider && c.AI.APIKey != "" {
			opCfg.APIKey = c.AI.APIKey
		} else {
			opCfg.APIKey = apiKeyFromEnv(opCfg.Provider)
		}
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	if opCfg.MaxTokens == nil {
		opCfg.MaxTokens = &c.AI.MaxTokens
	}
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}

	return opCfg
}

// applyFallbacks fills values that depend on other settings or on the
// process environment.
func (c *Config) applyFallbacks() {
	if c.AI.Model == "" {
		c.AI.Model = DefaultModel(c.AI.Provider)
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = DefaultBaseURL(c.AI.Provider)
	}
	if c.AI.APIKey == "" {
		c.AI.APIKey = apiKeyFromEnv(c.AI.Provider)
	}

	// RESUMETAILOR_SERVER_APIKEYS="a, b" arrives split but untrimmed
	c.Server.APIKeys = splitList(strings.Join(c.Server.APIKeys, ","))

	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}

	if c.Observability.ServiceInstance == "" {
		if hostname, err := os.Hostname(); err == nil {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-%s", c.Observability.ServiceName, hostname)
		} else {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-1", c.Observability.ServiceName)
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		EnvPrefix + "_AI_APIKEY",
		EnvPrefix + "_AI_PROVIDER",
		EnvPrefix + "_AI_MODEL",
		EnvPrefix + "_SERVER_PORT",
		EnvPrefix + "_APP_LOGLEVEL",
		EnvPrefix + "_VAULT_ENABLED",
		"GROQ_API_KEY",
		"GEMINI_API_KEY",
		"OPENAI_API_KEY",
	}

	hasEnvVars := false
	for _, envVar := range envVars {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		if strings.Contains(strings.ToUpper(envVar), "KEY") {
			value = "***MASKED***"
		}
		log.Printf("[CONFIG]   %s=%s", envVar, value)
		hasEnvVars = true
	}
	if !hasEnvVars {
		log.Println("[CONFIG] Environment variables: none set")
	}

	apiKeyState := "***NOT SET***"
	if c.AI.APIKey != "" {
		apiKeyState = "***CONFIGURED***"
	}
	log.Printf("[CONFIG] AI Provider: %s, Model: %s, API Key: %s", c.AI.Provider, c.AI.Model, apiKeyState)
	for _, op := range Operations() {
		opCfg := c.OperationConfig(op)
		log.Printf("[CONFIG] %s - Provider: %s, Model: %s, Temperature: %.2f",
			op, opCfg.Provider, opCfg.Model, *opCfg.Temperature)
	}
	log.Printf("[CONFIG] Server: %s:%s, TLS Mode: %s", c.Server.Host, c.Server.Port, c.Server.TLS.Mode)
	log.Printf("[CONFIG] Log Level: %s, Vault Enabled: %t, Observability Enabled: %t",
		c.App.LogLevel, c.Vault.Enabled, c.Observability.Enabled)
}
