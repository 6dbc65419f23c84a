package config

import (
	"crypto/tls"
	"fmt"
)

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	t := c.Server.TLS

	switch t.Mode {
	case "disabled":
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", t.Mode)
	}

	if err := requireOneSource("certificate", "cert", t.CertFile, t.CertContent, t.Mode); err != nil {
		return err
	}
	if err := requireOneSource("private key", "key", t.KeyFile, t.KeyContent, t.Mode); err != nil {
		return err
	}

	if t.Mode == "mutual" {
		if err := requireOneSource("CA certificate", "ca", t.CAFile, t.CAContent, t.Mode); err != nil {
			return err
		}
		switch t.ClientAuthPolicy {
		case "require", "request", "verify", "":
		default:
			return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", t.ClientAuthPolicy)
		}
	}

	switch t.MinVersion {
	case "", "1.2", "1.3":
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", t.MinVersion)
	}

	for _, suite := range t.CipherSuites {
		if CipherSuiteID(suite) == 0 {
			return fmt.Errorf("unknown cipher suite: %s", suite)
		}
	}

	return nil
}

// requireOneSource checks that exactly one of file or inline content is set.
func requireOneSource(what, field, file, content, mode string) error {
	switch {
	case file == "" && content == "":
		return fmt.Errorf("TLS %s is required for %s mode (provide either %sFile or %sContent)", what, mode, field, field)
	case file != "" && content != "":
		return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", field, field)
	}
	return nil
}

// CipherSuiteID returns the ID of a named cipher suite, or 0 when unknown.
func CipherSuiteID(name string) uint16 {
	for _, s := range tls.CipherSuites() {
		if s.Name == name {
			return s.ID
		}
	}
	return 0
}
