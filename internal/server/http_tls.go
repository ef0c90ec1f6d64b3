package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"resumetailor/internal/config"
	"resumetailor/internal/errors"
	"resumetailor/internal/observability"
)

const (
	certCriticalThreshold = 24 * time.Hour
	certWarningThreshold  = 7 * 24 * time.Hour
)

// certReloader serves the current server certificate and swaps in a new
// key pair when the files change. A failed reload keeps the previous pair.
type certReloader struct {
	certFile string
	keyFile  string
	metrics  *observability.Metrics
	logger   *errors.Logger

	mu          sync.RWMutex
	cert        *tls.Certificate
	notAfter    time.Time
	lastReload  time.Time
	reloadCount int
	failures    int
	lastError   string
}

// newCertReloader loads the initial pair from PEM content when given,
// otherwise from the files.
func newCertReloader(cfg config.TLSConfig, metrics *observability.Metrics, logger *errors.Logger) (*certReloader, error) {
	cr := &certReloader{certFile: cfg.CertFile, keyFile: cfg.KeyFile, metrics: metrics, logger: logger}

	var (
		cert tls.Certificate
		err  error
	)
	switch {
	case cfg.CertContent != "" && cfg.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
		if err != nil {
			return nil, fmt.Errorf("failed to load server cert/key from content: %w", err)
		}
		// content comes from Vault, so there is nothing on disk to reload
		cr.certFile, cr.keyFile = "", ""
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load server cert/key from files: %w", err)
		}
	default:
		return nil, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
	}

	if err := cr.store(&cert); err != nil {
		return nil, err
	}
	return cr, nil
}

func (cr *certReloader) store(cert *tls.Certificate) error {
	leaf := cert.Leaf
	if leaf == nil {
		parsed, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return fmt.Errorf("failed to parse server certificate: %w", err)
		}
		leaf = parsed
	}

	cr.mu.Lock()
	cr.cert = cert
	cr.notAfter = leaf.NotAfter
	cr.lastReload = time.Now()
	cr.mu.Unlock()

	cr.metrics.RecordCertExpiry(context.Background(), leaf.NotAfter)
	return nil
}

// reload rereads the key pair from disk.
func (cr *certReloader) reload() {
	cert, err := tls.LoadX509KeyPair(cr.certFile, cr.keyFile)
	cr.finishReload(&cert, err, "file")
}

// reloadContent swaps in a key pair delivered by the Vault watcher.
func (cr *certReloader) reloadContent(data *CertificateData) {
	cert, err := tls.X509KeyPair([]byte(data.CertContent), []byte(data.KeyContent))
	cr.finishReload(&cert, err, "vault")
}

func (cr *certReloader) finishReload(cert *tls.Certificate, err error, source string) {
	if err == nil {
		err = cr.store(cert)
	}

	cr.mu.Lock()
	cr.reloadCount++
	if err != nil {
		cr.failures++
		cr.lastError = err.Error()
	} else {
		cr.lastError = ""
	}
	cr.mu.Unlock()

	cr.metrics.RecordReload(context.Background(), observability.ReloadCertificate, err == nil)
	if err != nil {
		cr.logger.LogError(err, "Failed to reload TLS certificates, keeping the previous pair", "source", source)
		return
	}
	cr.logger.Info("TLS certificates reloaded successfully", "source", source)
}

// GetCertificate implements tls.Config.GetCertificate.
func (cr *certReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.cert, nil
}

func (cr *certReloader) files() []string {
	if cr.certFile == "" {
		return nil
	}
	return []string{cr.certFile, cr.keyFile}
}

// status classifies the time left before expiry.
func (cr *certReloader) status() map[string]any {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	timeToExpiry := time.Until(cr.notAfter)
	status := map[string]any{
		"not_after":            cr.notAfter,
		"time_to_expiry_hours": int(timeToExpiry.Hours()),
		"last_reload_time":     cr.lastReload,
		"reload_count":         cr.reloadCount,
		"reload_failure_count": cr.failures,
	}
	if cr.lastError != "" {
		status["last_reload_error"] = cr.lastError
	}

	switch {
	case timeToExpiry <= 0:
		status["healthy"], status["status"] = false, "expired"
	case timeToExpiry <= certCriticalThreshold:
		status["healthy"], status["status"] = false, "critical"
	case timeToExpiry <= certWarningThreshold:
		status["healthy"], status["status"] = true, "warning"
	default:
		status["healthy"], status["status"] = true, "ok"
	}
	return status
}

// buildTLSConfig returns nil when TLS is disabled. Otherwise it loads the
// server certificate into s.certs and, for mutual mode, the client CA pool.
func (s *Server) buildTLSConfig(om *observability.ObservabilityManager) (*tls.Config, error) {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		return nil, nil
	case "server", "mutual":
	default:
		return nil, fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	certs, err := newCertReloader(s.TLSConfig, om.GetMetrics(), s.Logger)
	if err != nil {
		return nil, err
	}
	s.certs = certs

	tlsConfig := &tls.Config{
		MinVersion:     tlsVersion(s.TLSConfig.MinVersion),
		GetCertificate: certs.GetCertificate,
		ClientAuth:     tls.NoClientCert,
	}

	if s.TLSConfig.Mode == "mutual" {
		pool, err := s.loadCACertificatePool()
		if err != nil {
			return nil, err
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = clientAuthPolicy(s.TLSConfig.ClientAuthPolicy)
	}
	return tlsConfig, nil
}

// loadCACertificatePool loads the CA from content or file
func (s *Server) loadCACertificatePool() (*x509.CertPool, error) {
	var caCert []byte
	switch {
	case s.TLSConfig.CAContent != "":
		caCert = []byte(s.TLSConfig.CAContent)
	case s.TLSConfig.CAFile != "":
		data, err := os.ReadFile(s.TLSConfig.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		caCert = data
	default:
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to append CA cert")
	}
	return pool, nil
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}
