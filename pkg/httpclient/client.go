// Package httpclient wraps net/http with the timeout and redirect policy used
// for every outbound page request.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxRedirects = 10
)

// Config defines the setup for the HTTP Client.
type Config struct {
	// Timeout bounds a whole request including reading the body. Zero means 10s.
	Timeout time.Duration
	// MaxRedirects caps followed redirects. Zero means 10, negative disables
	// redirect following so the 3xx response itself is returned.
	MaxRedirects int
	// Transport overrides the round tripper, e.g. for proxies or uTLS.
	Transport http.RoundTripper
}

// Client is an http.Client whose requests always carry a caller context.
type Client struct {
	*http.Client
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = defaultMaxRedirects
	}

	c := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: cfg.Transport,
	}

	limit := cfg.MaxRedirects
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if limit < 0 {
			return http.ErrUseLastResponse
		}
		if len(via) >= limit {
			return fmt.Errorf("stopped after %d redirects", limit)
		}
		return nil
	}

	return &Client{Client: c}
}

// Do sends req bound to ctx. ctx governs cancellation independently of the
// client timeout, whichever fires first wins.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("httpclient: nil context")
	}
	resp, err := c.Client.Do(req.Clone(ctx))
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	return resp, nil
}
