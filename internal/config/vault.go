package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"resumetailor/internal/errors"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`

	// PollInterval is how often the server checks the TLS secret for a
	// new version when certificate reload is enabled.
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

// VaultSecrets are KV v2 paths. Empty paths are skipped.
type VaultSecrets struct {
	// APIKeys holds a "keys" field with comma separated client keys.
	APIKeys string `mapstructure:"apiKeys"`
	// AIKey holds an "api_key" field with the model provider key.
	AIKey string `mapstructure:"aiKey"`
	// TLSCerts holds "cert", "key" and optionally "ca" PEM fields.
	TLSCerts string `mapstructure:"tlsCerts"`
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	config VaultConfig
	logger *errors.Logger
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

func orDiscard(logger *errors.Logger) *errors.Logger {
	if logger == nil {
		return errors.Discard()
	}
	return logger
}

// NewVaultClient connects to Vault and checks its health. It returns nil
// without error when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	logger = orDiscard(logger)
	if !config.Enabled {
		logger.Debug("Vault integration disabled")
		return nil, nil
	}

	logger.Debug("Initializing Vault client",
		"address", config.Address,
		"namespace", config.Namespace,
		"token_file", config.TokenFile,
		"has_token", config.Token != "")

	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}
	client, err := api.NewClient(vaultConfig)
	if err != nil {
		logger.LogError(err, "Failed to create Vault client")
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		logger.LogError(err, "Vault token is not available")
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		logger.LogError(err, "Failed to connect to Vault", "address", config.Address)
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	logger.Info("Connected to Vault",
		"address", config.Address,
		"version", health.Version,
		"sealed", health.Sealed)

	return &VaultClient{client: client, config: config, logger: logger}, nil
}

// resolveVaultToken prefers the configured token over the token file.
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token

	if token == "" && config.TokenFile != "" {
		data, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(data))
	}

	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	vc.logger.Debug("Reading secret from Vault", "path", path)
	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return decodeKV2(secret.Data, path)
}

// decodeKV2 unpacks the data and metadata envelopes of a KV v2 read.
func decodeKV2(raw map[string]any, path string) (*VaultSecret, error) {
	data, ok := raw["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := raw["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	versionRaw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	version, err := parseVersionValue(versionRaw, path)
	if err != nil {
		return nil, err
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue accepts the version as the JSON decoder or the Vault
// client may hand it over.
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case json.Number:
		version, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

func stringField(secret *VaultSecret, path, key string) (string, error) {
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	return str, nil
}

// maskSecret keeps the first and last four characters of long values.
func maskSecret(s string) string {
	switch {
	case len(s) > 8:
		return s[:4] + "****" + s[len(s)-4:]
	case s != "":
		return "****"
	default:
		return ""
	}
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the
// config. Vault values win over every other source.
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	logger = orDiscard(logger)
	if !config.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}

	secrets := config.Vault.Secrets
	loaders := []struct {
		path  string
		name  string
		apply func(*VaultSecret) error
	}{
		{secrets.AIKey, "AI API key", func(s *VaultSecret) error {
			key, err := stringField(s, secrets.AIKey, "api_key")
			if err != nil {
				return err
			}
			applyAIKeyToConfig(config, key)
			logger.Info("AI API key loaded from Vault", "masked_value", maskSecret(key))
			return nil
		}},
		{secrets.APIKeys, "server API keys", func(s *VaultSecret) error {
			raw, err := stringField(s, secrets.APIKeys, "keys")
			if err != nil {
				return err
			}
			if keys := splitList(raw); len(keys) > 0 {
				config.Server.APIKeys = keys
				logger.Info("Server API keys loaded from Vault", "count", len(keys))
			} else {
				logger.Warn("No server API keys found in Vault", "path", secrets.APIKeys)
			}
			return nil
		}},
		{secrets.TLSCerts, "TLS certificates", func(s *VaultSecret) error {
			n := applyTLSContent(config, s)
			logger.Info("TLS certificates loaded from Vault", "certificates_loaded", n)
			return nil
		}},
	}

	for _, l := range loaders {
		if l.path == "" {
			continue
		}
		secret, err := client.GetSecretV2(l.path)
		if err == nil {
			err = l.apply(secret)
		}
		if err != nil {
			logger.LogError(err, "Failed to load secret from Vault", "secret", l.name, "path", l.path)
			return fmt.Errorf("failed to load %s from vault: %w", l.name, err)
		}
	}

	return nil
}

// applyAIKeyToConfig sets the global key and every operation key that
// would otherwise inherit it.
func applyAIKeyToConfig(config *Config, key string) {
	if key == "" {
		return
	}
	config.AI.APIKey = key
	for _, op := range Operations() {
		opCfg := config.operation(op)
		if opCfg.APIKey == "" && (opCfg.Provider == "" || opCfg.Provider == config.AI.Provider) {
			opCfg.APIKey = key
		}
	}
}

// applyTLSContent copies the PEM fields of a TLS secret into the server
// config and returns how many were present.
func applyTLSContent(config *Config, secret *VaultSecret) int {
	targets := []struct {
		field  string
		target *string
	}{
		{"cert", &config.Server.TLS.CertContent},
		{"key", &config.Server.TLS.KeyContent},
		{"ca", &config.Server.TLS.CAContent},
	}

	n := 0
	for _, t := range targets {
		if content, ok := secret.Data[t.field].(string); ok && content != "" {
			*t.target = content
			n++
		}
	}
	return n
}
