// internal/common/http/client.go
package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// Options configures the shared outbound HTTP client.
// Deadlines come from the request context; the client itself has none.
type Options struct {
	// CAFile is an optional PEM bundle or DER certificate; when set it replaces the system
	// roots for upstream TLS.
	CAFile string
	// Transport overrides the default transport (tests).
	Transport http.RoundTripper
}

type Client struct {
	httpClient *http.Client
}

// NewClient builds the client. It fails only when the CA bundle cannot be
// read or holds no certificates.
func NewClient(opts Options) (*Client, error) {
	transport := opts.Transport
	if transport == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		if opts.CAFile != "" {
			pool, err := LoadCertPool(opts.CAFile)
			if err != nil {
				return nil, err
			}
			base.TLSClientConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
				RootCAs:    pool,
			}
		}
		transport = base
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
		},
	}, nil
}

// LoadCertPool reads a PEM bundle, or a single DER-encoded certificate such
// as a .cer export, into a certificate pool.
func LoadCertPool(caFile string) (*x509.CertPool, error) {
	caBytes, err := os.ReadFile(filepath.Clean(caFile))
	if err != nil {
		return nil, fmt.Errorf("read CA bundle %s: %w", caFile, err)
	}
	pool := x509.NewCertPool()
	if pool.AppendCertsFromPEM(caBytes) {
		return pool, nil
	}
	cert, err := x509.ParseCertificate(caBytes)
	if err != nil {
		return nil, fmt.Errorf("parse CA bundle %s: no valid certificates", caFile)
	}
	pool.AddCert(cert)
	return pool, nil
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// DoWithContext sends req bound to ctx, which carries the call deadline.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	return c.httpClient.Do(req)
}
