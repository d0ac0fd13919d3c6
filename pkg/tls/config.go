// Package tls builds the server-side TLS configuration for the render
// server, from files or from a generated self-signed certificate.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"
)

// DefaultValidFor is the lifetime of generated certificates
const DefaultValidFor = 90 * 24 * time.Hour

// ErrNoCertificate is returned when neither files nor generation are set up
var ErrNoCertificate = errors.New("tls: no certificate configured")

// Config selects the server certificate
type Config struct {
	CertFile string
	KeyFile  string
	// SelfSigned generates a certificate in memory when no files are given
	SelfSigned bool
	// Hosts are the DNS names and IPs of a generated certificate
	Hosts    []string
	ValidFor time.Duration
}

// ServerConfig loads or generates the certificate and returns a TLS 1.2+
// server configuration together with the parsed leaf certificate
func ServerConfig(cfg Config) (*tls.Config, *x509.Certificate, error) {
	var (
		cert tls.Certificate
		err  error
	)
	switch {
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading certificate: %w", err)
		}
	case cfg.SelfSigned:
		cert, err = SelfSigned(cfg.Hosts, cfg.ValidFor, time.Now())
		if err != nil {
			return nil, nil, fmt.Errorf("generating certificate: %w", err)
		}
	default:
		return nil, nil, ErrNoCertificate
	}

	leaf := cert.Leaf
	if leaf == nil {
		if leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return nil, nil, fmt.Errorf("parsing certificate: %w", err)
		}
		cert.Leaf = leaf
	}
	now := time.Now()
	if now.After(leaf.NotAfter) {
		return nil, nil, fmt.Errorf("certificate expired at %s", leaf.NotAfter.Format(time.RFC3339))
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		CipherSuites: cipherSuites,
	}, leaf, nil
}

// cipherSuites restricts TLS 1.2 to AEAD suites with forward secrecy; TLS
// 1.3 suites are not configurable
var cipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
}
