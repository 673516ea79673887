package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/AdguardTeam/golibs/errors"
)

// ErrBadCA is returned when the CA file holds no usable PEM certificate.
const ErrBadCA errors.Error = "no certificates in ca file"

// TLSConfig is the client-side TLS section of the configuration.
type TLSConfig struct {
	// CAFile adds PEM certificates to the trusted roots of every request.
	CAFile string `yaml:"ca_file"`

	// CertFile and KeyFile are the client certificate for mutual TLS. Both
	// must be set for either to apply.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// IsZero reports whether no TLS option is set.
func (c TLSConfig) IsZero() bool {
	return c == TLSConfig{}
}

// Build returns the crypto/tls configuration for c, or nil if c is empty.
func (c TLSConfig) Build() (conf *tls.Config, err error) {
	if c.IsZero() {
		return nil, nil
	}

	conf = &tls.Config{
		// #nosec G402 -- Explicitly requested by the user.
		InsecureSkipVerify: c.InsecureSkipVerify,
	}

	if c.CertFile != "" && c.KeyFile != "" {
		cert, certErr := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if certErr != nil {
			return nil, fmt.Errorf("loading client certificate: %w", certErr)
		}
		conf.Certificates = []tls.Certificate{cert}
	}

	if c.CAFile != "" {
		pem, readErr := os.ReadFile(c.CAFile)
		if readErr != nil {
			return nil, fmt.Errorf("reading ca file: %w", readErr)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%s: %w", c.CAFile, ErrBadCA)
		}
		conf.RootCAs = pool
	}

	return conf, nil
}
