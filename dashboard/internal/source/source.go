package source

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"

	"github.com/gabiworld/pipewatch/dashboard/internal/config"
	"github.com/gabiworld/pipewatch/pkg/types"
)

// Source is implemented by every dataset provider.
type Source interface {
	// Fetch returns one consistent pair of /stats and /jobs payloads.
	Fetch(ctx context.Context) (*types.Dataset, error)

	// Demo reports whether the data is built-in rather than from the backend.
	Demo() bool
}

// New returns the Source selected by cfg.Mode. The HTTP client is built once
// and reused across fetches.
func New(cfg config.BackendConfig) (Source, error) {
	switch cfg.Mode {
	case config.ModeFixture:
		return NewFixture(), nil
	case config.ModeLive, "":
		client, err := buildHTTPClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("source: build http client: %w", err)
		}
		return NewLive(cfg.Endpoint, client), nil
	default:
		return nil, fmt.Errorf("source: unsupported mode %q", cfg.Mode)
	}
}

const defaultKeyHeader = "X-API-Key"

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		header := t.auth.Header
		if header == "" {
			header = defaultKeyHeader
		}
		req = req.Clone(req.Context())
		req.Header.Set(header, t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the backend's auth and TLS
// settings. Timeout bounds each request; the poller bounds the whole cycle.
func buildHTTPClient(cfg config.BackendConfig) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if cfg.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(cfg.Auth.CertFile, cfg.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if cfg.Auth.CAFile != "" {
			caPEM, err := os.ReadFile(cfg.Auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", cfg.Auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = tlsCfg

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	return &http.Client{
		Transport: &authRoundTripper{base: base, auth: cfg.Auth},
		Timeout:   timeout,
	}, nil
}
