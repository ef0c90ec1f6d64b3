package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumetailor/internal/config"
	"resumetailor/internal/errors"
	"resumetailor/internal/observability"
)

// selfSigned returns PEM encoded certificate and key valid for validFor.
func selfSigned(t *testing.T, validFor time.Duration) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(now.UnixNano()),
		Subject:               pkix.Name{CommonName: "localhost"},
		DNSNames:              []string{"localhost"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(validFor),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}

func writePair(t *testing.T, dir string, certPEM, keyPEM []byte) (string, string) {
	t.Helper()
	certFile, keyFile := filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	return certFile, keyFile
}

func TestCertReloaderFromFiles(t *testing.T) {
	certPEM, keyPEM := selfSigned(t, 30*24*time.Hour)
	certFile, keyFile := writePair(t, t.TempDir(), certPEM, keyPEM)

	cr, err := newCertReloader(config.TLSConfig{CertFile: certFile, KeyFile: keyFile}, &observability.Metrics{}, errors.Discard())
	require.NoError(t, err)
	assert.Equal(t, []string{certFile, keyFile}, cr.files())

	cert, err := cr.GetCertificate(nil)
	require.NoError(t, err)
	require.NotNil(t, cert)

	status := cr.status()
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, true, status["healthy"])

	newCert, newKey := selfSigned(t, 3*24*time.Hour)
	writePair(t, filepath.Dir(certFile), newCert, newKey)
	cr.reload()

	status = cr.status()
	assert.Equal(t, "warning", status["status"])
	assert.Equal(t, 1, status["reload_count"])
	assert.Equal(t, 0, status["reload_failure_count"])
}

func TestCertReloaderFromContent(t *testing.T) {
	certPEM, keyPEM := selfSigned(t, 12*time.Hour)
	cr, err := newCertReloader(config.TLSConfig{
		CertFile:    "/ignored.crt",
		KeyFile:     "/ignored.key",
		CertContent: string(certPEM),
		KeyContent:  string(keyPEM),
	}, &observability.Metrics{}, errors.Discard())
	require.NoError(t, err)
	assert.Empty(t, cr.files(), "content pairs are not watched on disk")

	status := cr.status()
	assert.Equal(t, "critical", status["status"])
	assert.Equal(t, false, status["healthy"])

	before, _ := cr.GetCertificate(nil)

	cr.reloadContent(&CertificateData{CertContent: "garbage", KeyContent: "garbage"})
	after, _ := cr.GetCertificate(nil)
	assert.Same(t, before, after, "a failed reload keeps the previous pair")
	status = cr.status()
	assert.Equal(t, 1, status["reload_failure_count"])
	assert.NotEmpty(t, status["last_reload_error"])

	newCert, newKey := selfSigned(t, 90*24*time.Hour)
	cr.reloadContent(&CertificateData{CertContent: string(newCert), KeyContent: string(newKey)})
	status = cr.status()
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, 2, status["reload_count"])
	assert.NotContains(t, status, "last_reload_error")
}

func TestNewCertReloaderErrors(t *testing.T) {
	_, err := newCertReloader(config.TLSConfig{}, &observability.Metrics{}, errors.Discard())
	assert.Error(t, err)

	_, err = newCertReloader(config.TLSConfig{CertFile: "/missing.crt", KeyFile: "/missing.key"}, &observability.Metrics{}, errors.Discard())
	assert.Error(t, err)
}

func TestBuildTLSConfig(t *testing.T) {
	certPEM, keyPEM := selfSigned(t, 30*24*time.Hour)

	tests := []struct {
		name       string
		tls        config.TLSConfig
		wantNil    bool
		wantErr    bool
		wantAuth   tls.ClientAuthType
		wantMinVer uint16
	}{
		{name: "disabled", tls: config.TLSConfig{Mode: "disabled"}, wantNil: true},
		{name: "empty mode", tls: config.TLSConfig{}, wantNil: true},
		{name: "invalid mode", tls: config.TLSConfig{Mode: "both"}, wantErr: true},
		{
			name:       "server",
			tls:        config.TLSConfig{Mode: "server", CertContent: string(certPEM), KeyContent: string(keyPEM), MinVersion: "1.3"},
			wantAuth:   tls.NoClientCert,
			wantMinVer: tls.VersionTLS13,
		},
		{
			name: "mutual",
			tls: config.TLSConfig{Mode: "mutual", CertContent: string(certPEM), KeyContent: string(keyPEM),
				CAContent: string(certPEM), ClientAuthPolicy: "verify"},
			wantAuth:   tls.VerifyClientCertIfGiven,
			wantMinVer: tls.VersionTLS12,
		},
		{
			name:    "mutual without ca",
			tls:     config.TLSConfig{Mode: "mutual", CertContent: string(certPEM), KeyContent: string(keyPEM)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Server.TLS = tt.tls
			s, _ := newTestServer(t, cfg, Dependencies{})

			tlsConfig, err := s.buildTLSConfig(nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, tlsConfig)
				return
			}
			require.NotNil(t, tlsConfig)
			assert.Equal(t, tt.wantAuth, tlsConfig.ClientAuth)
			assert.Equal(t, tt.wantMinVer, tlsConfig.MinVersion)
			assert.NotNil(t, tlsConfig.GetCertificate)
			assert.NotNil(t, s.certs)
		})
	}
}

func TestLoadCACertificatePoolFromFile(t *testing.T) {
	certPEM, _ := selfSigned(t, time.Hour)
	caFile := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(caFile, certPEM, 0o600))

	cfg := testConfig()
	cfg.Server.TLS = config.TLSConfig{CAFile: caFile}
	s, _ := newTestServer(t, cfg, Dependencies{})

	pool, err := s.loadCACertificatePool()
	require.NoError(t, err)
	assert.NotNil(t, pool)

	s.TLSConfig = config.TLSConfig{CAContent: "not pem"}
	_, err = s.loadCACertificatePool()
	assert.Error(t, err)
}

func TestClientAuthPolicy(t *testing.T) {
	assert.Equal(t, tls.RequestClientCert, clientAuthPolicy("request"))
	assert.Equal(t, tls.VerifyClientCertIfGiven, clientAuthPolicy("verify"))
	assert.Equal(t, tls.RequireAndVerifyClientCert, clientAuthPolicy("require"))
	assert.Equal(t, tls.RequireAndVerifyClientCert, clientAuthPolicy(""))
}
