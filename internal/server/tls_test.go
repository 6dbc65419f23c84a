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
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"resumaker/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSigned(t *testing.T, cn string) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
}

func writeCertFiles(t *testing.T, dir, cn string) (string, string) {
	t.Helper()
	certPEM, keyPEM := selfSigned(t, cn)
	certFile := filepath.Join(dir, "server.crt")
	keyFile := filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	return certFile, keyFile
}

func leafCN(t *testing.T, cert *tls.Certificate) string {
	t.Helper()
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return leaf.Subject.CommonName
}

func TestCertReloaderFromContent(t *testing.T) {
	certPEM, keyPEM := selfSigned(t, "vault")
	cr, err := NewCertReloader(config.TLSConfig{
		Mode:        "server",
		CertContent: string(certPEM),
		KeyContent:  string(keyPEM),
		AutoReload:  config.AutoReloadConfig{Enabled: true},
	}, nil, testLogger)
	require.NoError(t, err)
	defer func() { _ = cr.Close() }()

	cert, err := cr.GetCertificate(nil)
	require.NoError(t, err)
	assert.Equal(t, "vault", leafCN(t, cert))
	assert.False(t, cr.Watching())
}

func TestCertReloaderMissingCertificate(t *testing.T) {
	_, err := NewCertReloader(config.TLSConfig{Mode: "server"}, nil, testLogger)
	assert.Error(t, err)
}

func TestCertReloaderReload(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeCertFiles(t, dir, "first")

	cr, err := NewCertReloader(config.TLSConfig{Mode: "server", CertFile: certFile, KeyFile: keyFile}, nil, testLogger)
	require.NoError(t, err)
	defer func() { _ = cr.Close() }()

	cert, _ := cr.GetCertificate(nil)
	assert.Equal(t, "first", leafCN(t, cert))

	writeCertFiles(t, dir, "second")
	require.NoError(t, cr.Reload())
	cert, _ = cr.GetCertificate(nil)
	assert.Equal(t, "second", leafCN(t, cert))

	require.NoError(t, os.WriteFile(certFile, []byte("garbage"), 0o600))
	assert.Error(t, cr.Reload())
	cert, _ = cr.GetCertificate(nil)
	assert.Equal(t, "second", leafCN(t, cert), "a failed reload keeps the previous certificate")
}

func TestCertReloaderWatchesFiles(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeCertFiles(t, dir, "first")

	cr, err := NewCertReloader(config.TLSConfig{
		Mode:       "server",
		CertFile:   certFile,
		KeyFile:    keyFile,
		AutoReload: config.AutoReloadConfig{Enabled: true, DebounceDelay: 10 * time.Millisecond},
	}, nil, testLogger)
	require.NoError(t, err)
	defer func() { _ = cr.Close() }()
	require.True(t, cr.Watching())

	// make sure the new files get a later modification time
	time.Sleep(20 * time.Millisecond)
	writeCertFiles(t, dir, "rotated")
	future := time.Now().Add(time.Second)
	require.NoError(t, os.Chtimes(certFile, future, future))
	require.NoError(t, os.Chtimes(keyFile, future, future))

	require.Eventually(t, func() bool {
		cert, _ := cr.GetCertificate(nil)
		return leafCN(t, cert) == "rotated"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestBuildTLSConfig(t *testing.T) {
	getCert := func(*tls.ClientHelloInfo) (*tls.Certificate, error) { return nil, nil }

	cfg, err := buildTLSConfig(config.TLSConfig{
		Mode:         "server",
		MinVersion:   "1.3",
		CipherSuites: []string{"TLS_AES_128_GCM_SHA256", "NOT_A_SUITE"},
	}, getCert)
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
	assert.Equal(t, []uint16{tls.TLS_AES_128_GCM_SHA256}, cfg.CipherSuites)
	assert.Equal(t, tls.NoClientCert, cfg.ClientAuth)
	assert.NotNil(t, cfg.GetCertificate)

	_, err = buildTLSConfig(config.TLSConfig{Mode: "mutual"}, getCert)
	assert.Error(t, err, "mutual TLS needs a CA")

	caPEM, _ := selfSigned(t, "ca")
	cfg, err = buildTLSConfig(config.TLSConfig{Mode: "mutual", CAContent: string(caPEM), ClientAuthPolicy: "verify"}, getCert)
	require.NoError(t, err)
	assert.Equal(t, tls.VerifyClientCertIfGiven, cfg.ClientAuth)
	assert.NotNil(t, cfg.ClientCAs)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
}

func TestConfigureTLSRejectsUnknownMode(t *testing.T) {
	cfg := testConfig()
	cfg.Server.TLS.Mode = "sometimes"
	s := newServer("test", "0", Options{Config: cfg, Logger: testLogger})

	err := s.configureTLS(&http.Server{})
	assert.ErrorContains(t, err, "invalid TLS mode")
}
