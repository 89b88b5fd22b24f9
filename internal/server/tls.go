package server

import (
	"crypto/tls"
	"fmt"

	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"

	"github.com/victorgomez09/portal/internal/config"
)

const (
	TLSMinVersion       = tls.VersionTLS12
	DefaultACMECacheDir = "./certs"
)

// portalCiphers restricts TLS 1.2 to forward-secret AEAD suites. TLS 1.3 suites are not configurable.
var portalCiphers = []uint16{
	// ECDSA
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,

	// RSA
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
}

// newTLSConfig serves the configured key pair, or certificates fetched over ACME
// (TLS-ALPN-01) for the configured domains.
func newTLSConfig(cfg *config.TLS) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:   TLSMinVersion,
		CipherSuites: portalCiphers,
		NextProtos:   []string{"h2", "http/1.1"},
	}

	if cfg.ACME {
		cacheDir := cfg.CacheDir
		if cacheDir == "" {
			cacheDir = DefaultACMECacheDir
		}
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.Domains...),
			Cache:      autocert.DirCache(cacheDir),
		}
		tlsConfig.GetCertificate = m.GetCertificate
		tlsConfig.NextProtos = append(tlsConfig.NextProtos, acme.ALPNProto)
		return tlsConfig, nil
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	tlsConfig.Certificates = []tls.Certificate{cert}
	return tlsConfig, nil
}
