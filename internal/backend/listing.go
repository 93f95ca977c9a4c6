package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/serroba/shortlink-web/internal/shortlink"
)

const (
	allPath = "/api/v1/urls/all"
	topPath = "/api/v1/urls/top"
)

// ListAll fetches every shortened URL in the backend's order.
func (c *Client) ListAll(ctx context.Context) ([]shortlink.Record, error) {
	return c.fetchRecords(ctx, allPath)
}

// Top fetches the backend's top list for r. The rows may or may not be
// ordered; callers rank them again.
func (c *Client) Top(ctx context.Context, limit int, r shortlink.Range) ([]shortlink.Record, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("range", string(r))

	return c.fetchRecords(ctx, topPath+"?"+q.Encode())
}

// fetchRecords coalesces concurrent identical listing requests into one
// backend call. Results are shared only between callers already in flight.
// The shared call outlives any single caller's cancellation and stays bounded
// by the client timeout; each caller still stops waiting when its own ctx ends.
func (c *Client) fetchRecords(ctx context.Context, path string) ([]shortlink.Record, error) {
	ch := c.listings.DoChan(path, func() (any, error) {
		return c.fetchOnce(context.WithoutCancel(ctx), path)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", shortlink.ErrUpstreamUnavailable, path, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		records, _ := res.Val.([]shortlink.Record)

		return records, nil
	}
}

func (c *Client) fetchOnce(ctx context.Context, path string) ([]shortlink.Record, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", shortlink.ErrUpstreamUnavailable, path, resp.StatusCode)
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", shortlink.ErrUpstreamUnavailable, path, err)
	}

	records, err := shortlink.DecodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shortlink.ErrUpstreamUnavailable, err)
	}

	return records, nil
}
