package server

import (
	"fmt"
	"sync"
	"time"

	"resumetailor/internal/config"
	"resumetailor/internal/errors"
)

// SecretReader reads KV v2 secrets. *config.VaultClient implements it.
type SecretReader interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
}

// CertificateData holds PEM content read from a Vault TLS secret
type CertificateData struct {
	CertContent string
	KeyContent  string
	CAContent   string
}

// VaultWatcher polls a TLS secret and hands every new version to onChange.
type VaultWatcher struct {
	mu sync.RWMutex

	client       SecretReader
	secretPath   string
	pollInterval time.Duration
	onChange     func(*CertificateData)
	logger       *errors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
	lastError   string
}

// NewVaultWatcher creates a watcher for the secret at secretPath
func NewVaultWatcher(client SecretReader, secretPath string, pollInterval time.Duration, onChange func(*CertificateData), logger *errors.Logger) *VaultWatcher {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}
	if logger == nil {
		logger = errors.Discard()
	}
	return &VaultWatcher{
		client:       client,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		onChange:     onChange,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start records the current secret version and begins polling.
func (vw *VaultWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if vw.running {
		return fmt.Errorf("vault watcher is already running")
	}

	if secret, err := vw.client.GetSecretV2(vw.secretPath); err == nil {
		vw.lastVersion = secret.Version
	} else {
		vw.logger.Warn("Failed to read initial Vault secret version", "path", vw.secretPath, "error", err)
	}

	vw.running = true
	go vw.pollLoop()
	vw.logger.Info("Vault watcher started", "secret_path", vw.secretPath, "poll_interval", vw.pollInterval)
	return nil
}

// Stop stops the Vault watcher
func (vw *VaultWatcher) Stop() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if !vw.running {
		return nil
	}
	close(vw.stopChan)
	vw.running = false
	vw.logger.Info("Vault watcher stopped")
	return nil
}

func (vw *VaultWatcher) pollLoop() {
	ticker := time.NewTicker(vw.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			vw.poll()
		case <-vw.stopChan:
			return
		}
	}
}

// poll fetches the secret once and calls onChange when its version grew.
func (vw *VaultWatcher) poll() {
	data, changed, err := vw.checkForUpdates()

	vw.mu.Lock()
	if err != nil {
		vw.lastError = err.Error()
	} else {
		vw.lastError = ""
	}
	vw.mu.Unlock()

	if err != nil {
		vw.logger.LogError(err, "Failed to check Vault for updates", "path", vw.secretPath)
		return
	}
	if changed {
		vw.logger.Info("Vault secret changed, triggering reload", "path", vw.secretPath)
		vw.onChange(data)
	}
}

func (vw *VaultWatcher) checkForUpdates() (*CertificateData, bool, error) {
	secret, err := vw.client.GetSecretV2(vw.secretPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read secret: %w", err)
	}

	vw.mu.Lock()
	defer vw.mu.Unlock()
	if secret.Version <= vw.lastVersion {
		return nil, false, nil
	}
	vw.lastVersion = secret.Version
	return certificateData(secret), true, nil
}

func certificateData(secret *config.VaultSecret) *CertificateData {
	data := &CertificateData{}
	if s, ok := secret.Data["cert"].(string); ok {
		data.CertContent = s
	}
	if s, ok := secret.Data["key"].(string); ok {
		data.KeyContent = s
	}
	if s, ok := secret.Data["ca"].(string); ok {
		data.CAContent = s
	}
	return data
}

// Status returns the current status of the VaultWatcher for health reporting
func (vw *VaultWatcher) Status() map[string]any {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	status := map[string]any{
		"name":          "vault",
		"running":       vw.running,
		"poll_interval": vw.pollInterval.String(),
		"secret_path":   vw.secretPath,
		"last_version":  vw.lastVersion,
	}
	if vw.lastError != "" {
		status["last_error"] = vw.lastError
	}
	return status
}
