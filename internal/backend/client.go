// Package backend talks to the URL-shortening backend over HTTP.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/serroba/shortlink-web/internal/reqmeta"
	"github.com/serroba/shortlink-web/internal/shortlink"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTimeout bounds every outbound request when Config.Timeout is unset.
	DefaultTimeout = 5 * time.Second

	maxBodyBytes = 1 << 20
)

// Config locates the backend. It is passed in explicitly; nothing is read
// from the environment here.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client issues requests against the backend. It never follows redirects:
// 3xx responses are returned to the caller with their headers intact.
type Client struct {
	baseURL  string
	http     *http.Client
	listings singleflight.Group
	logger   *zap.Logger
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}

	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("backend url %q must be an absolute http(s) url", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(base.String(), "/"),
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")

	if id := reqmeta.FromContext(ctx).RequestID; id != "" {
		req.Header.Set(reqmeta.HeaderRequestID, id)
	}

	return req, nil
}

// do sends req and maps transport failures to ErrUpstreamUnavailable.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Bool("timeout", isTimeout(err)),
			zap.Error(err),
		)

		return nil, fmt.Errorf("%w: %s %s: %w", shortlink.ErrUpstreamUnavailable, req.Method, req.URL.Path, err)
	}

	return resp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var uerr *url.Error

	return errors.As(err, &uerr) && uerr.Timeout()
}

func readBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
}

// Ping reports whether the backend answers at all. Anything below 500 counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", shortlink.ErrUpstreamUnavailable, resp.StatusCode)
	}

	return nil
}
