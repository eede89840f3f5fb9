// Package provider implements ports.Provider over HTTP against a
// quantum-random-number service.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/artpar/qrng/domain/provider"
	"github.com/artpar/qrng/domain/sizing"
	"github.com/artpar/qrng/ports"
	"github.com/rs/zerolog"
)

// DefaultURL is the public QRNG endpoint.
const DefaultURL = "https://api.shitchell.com/qrng"

// maxBodySize bounds how much of a response is read.
const maxBodySize = 4 << 20

// Client fetches random hex blocks from the provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	logger     zerolog.Logger
}

// ClientConfig configures the provider client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Headers map[string]string
	Logger  zerolog.Logger
}

// NewClient creates a new provider HTTP client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		headers:    cfg.Headers,
		logger:     cfg.Logger,
	}
}

// URL returns the full request URL for req.
func (c *Client) URL(req sizing.Request) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	for k, vs := range provider.Query(req) {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch issues GET <base>?length=<count>&type=hex16&size=<blockSize> and
// decodes the envelope. Network failures, timeouts, non-2xx statuses and
// undecodable bodies are returned as *provider.TransportError.
func (c *Client) Fetch(ctx context.Context, req sizing.Request) (provider.Response, error) {
	target, err := c.URL(req)
	if err != nil {
		return provider.Response{}, &provider.TransportError{Op: "build", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return provider.Response{}, &provider.TransportError{Op: "build", Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	c.logger.Debug().Str("url", target).Msg("requesting random blocks")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return provider.Response{}, &provider.TransportError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxBodySize)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(body, 512))
		return provider.Response{}, &provider.TransportError{
			Op:         "request",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", msg),
		}
	}

	var out provider.Response
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return provider.Response{}, decodeError(err)
	}
	return out, nil
}

// decodeError classifies a body decode failure. Syntax errors, type
// mismatches and empty or truncated bodies are malformed responses; read
// failures such as timeouts stay transport errors.
func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return &provider.ProviderError{Reason: "undecodable envelope: " + err.Error()}
	default:
		return &provider.TransportError{Op: "decode", Err: err}
	}
}

// HealthCheck performs a minimal fetch to verify the provider is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Fetch(ctx, sizing.Request{BlockCount: 1, BlockSize: 1})
	return err
}

var _ ports.Provider = (*Client)(nil)
