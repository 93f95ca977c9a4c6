package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/serroba/shortlink-web/internal/alias"
	"github.com/serroba/shortlink-web/internal/shortlink"
	"go.uber.org/zap"
)

// targetFields are the payload keys that may name the destination of a
// resolved alias, checked in order.
var targetFields = []string{"url", "originalUrl", "targetUrl", "original_url", "target_url"}

// Resolve asks the backend where slug points. Every call reaches the backend;
// nothing is cached. A 3xx with a Location header always wins over a body.
// Transport failures, timeouts and 5xx answers return ErrUpstreamUnavailable.
func (c *Client) Resolve(ctx context.Context, slug string) (shortlink.Outcome, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/"+url.PathEscape(slug), nil)
	if err != nil {
		return shortlink.Outcome{}, err
	}

	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.do(req)
	if err != nil {
		return shortlink.Outcome{}, err
	}
	defer closeBody(resp)

	outcome, err := c.interpret(resp)
	if err != nil {
		return shortlink.Outcome{}, err
	}

	c.logger.Debug("slug resolved",
		zap.String("slug", slug),
		zap.Int("status", resp.StatusCode),
		zap.Stringer("outcome", outcome.Kind),
		zap.String("reason", outcome.Reason),
	)

	return outcome, nil
}

func (c *Client) interpret(resp *http.Response) (shortlink.Outcome, error) {
	status := resp.StatusCode

	switch {
	case status >= 300 && status < 400:
		if loc := resp.Header.Get("Location"); loc != "" {
			return shortlink.Redirect(loc, shortlink.ReasonLocation), nil
		}

		return shortlink.NotFound(shortlink.ReasonMissingLocation), nil
	case status >= 200 && status < 300:
		return c.interpretPayload(resp), nil
	case status >= 400 && status < 500:
		return shortlink.NotFound(shortlink.ReasonClientStatus), nil
	default:
		return shortlink.Outcome{}, fmt.Errorf("%w: resolve returned status %d", shortlink.ErrUpstreamUnavailable, status)
	}
}

func (c *Client) interpretPayload(resp *http.Response) shortlink.Outcome {
	if !isJSON(resp.Header.Get("Content-Type")) {
		return shortlink.NotFound(shortlink.ReasonNoPayload)
	}

	body, err := readBody(resp)
	if err != nil {
		c.logger.Warn("unreadable resolve payload", zap.Error(err))

		return shortlink.NotFound(shortlink.ReasonMalformedPayload)
	}

	var payload map[string]any
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&payload); err != nil {
		c.logger.Warn("malformed resolve payload", zap.Error(err))

		return shortlink.NotFound(shortlink.ReasonMalformedPayload)
	}

	for _, name := range targetFields {
		target, ok := payload[name].(string)
		if !ok || strings.TrimSpace(target) == "" {
			continue
		}

		// Only absolute http(s) targets leave the payload path as a redirect.
		if !alias.IsValidDestination(target) {
			c.logger.Warn("unusable resolve target", zap.String("field", name), zap.String("target", target))

			return shortlink.NotFound(shortlink.ReasonInvalidTarget)
		}

		return shortlink.Redirect(strings.TrimSpace(target), shortlink.ReasonPayload)
	}

	return shortlink.NotFound(shortlink.ReasonMissingTarget)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
