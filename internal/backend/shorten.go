package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/serroba/shortlink-web/internal/shortlink"
	"go.uber.org/zap"
)

const shortenPath = "/api/v1/urls/shorten"

type shortenRequest struct {
	URL        string `json:"url"`
	CustomSlug string `json:"customSlug,omitempty"`
}

// Shorten submits destination, with an optional custom alias, to the backend.
// A 4xx answer becomes a *shortlink.RejectedError carrying the backend's
// message; anything else that is not a usable 2xx is ErrUpstreamUnavailable.
func (c *Client) Shorten(ctx context.Context, destination, customSlug string) (*shortlink.Created, error) {
	payload, err := json.Marshal(shortenRequest{URL: destination, CustomSlug: customSlug})
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, shortenPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: read shorten response: %w", shortlink.ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var created shortlink.Created
		if err := json.Unmarshal(body, &created); err != nil || created.ShortURL == "" {
			c.logger.Warn("unexpected shorten response",
				zap.Int("status", resp.StatusCode),
				zap.ByteString("body", body),
			)

			return nil, fmt.Errorf("%w: unexpected shorten response", shortlink.ErrUpstreamUnavailable)
		}

		return &created, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, &shortlink.RejectedError{
			Status:  resp.StatusCode,
			Message: rejectionMessage(resp.StatusCode, body),
		}
	default:
		return nil, fmt.Errorf("%w: shorten returned status %d", shortlink.ErrUpstreamUnavailable, resp.StatusCode)
	}
}

// rejectionMessage pulls the human readable reason out of an error body.
func rejectionMessage(status int, body []byte) string {
	var structured struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}

	if json.Unmarshal(body, &structured) == nil {
		for _, msg := range []string{structured.Message, structured.Error, structured.Detail} {
			if strings.TrimSpace(msg) != "" {
				return msg
			}
		}
	}

	var plain string
	if json.Unmarshal(body, &plain) == nil && strings.TrimSpace(plain) != "" {
		return plain
	}

	return http.StatusText(status)
}
