package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/serroba/shortlink-web/internal/backend"
	"github.com/serroba/shortlink-web/internal/reqmeta"
	"github.com/serroba/shortlink-web/internal/shortlink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := backend.NewClient(backend.Config{BaseURL: srv.URL, Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	return client
}

func TestNewClient(t *testing.T) {
	t.Run("accepts an http base url", func(t *testing.T) {
		_, err := backend.NewClient(backend.Config{BaseURL: "http://localhost:8080/"}, zap.NewNop())

		assert.NoError(t, err)
	})

	t.Run("rejects relative or non-http urls", func(t *testing.T) {
		for _, base := range []string{"", "localhost:8080", "ftp://backend", "/api"} {
			_, err := backend.NewClient(backend.Config{BaseURL: base}, zap.NewNop())

			assert.Error(t, err, "base %q", base)
		}
	})
}

func TestClient_Resolve(t *testing.T) {
	t.Run("redirect status with location wins over a json body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/Ab3Z", r.URL.Path)
			w.Header().Set("Location", "https://example.com/x")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusFound)
			_, _ = w.Write([]byte(`{"url":"https://example.com/other"}`))
		})

		outcome, err := client.Resolve(context.Background(), "Ab3Z")

		require.NoError(t, err)
		assert.True(t, outcome.Found())
		assert.Equal(t, "https://example.com/x", outcome.Target)
		assert.Equal(t, shortlink.ReasonLocation, outcome.Reason)
	})

	t.Run("does not follow the redirect", func(t *testing.T) {
		var targetHits atomic.Int32

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/target" {
				targetHits.Add(1)

				return
			}

			http.Redirect(w, r, "/target", http.StatusMovedPermanently)
		})

		outcome, err := client.Resolve(context.Background(), "Ab3Z")

		require.NoError(t, err)
		assert.Equal(t, "/target", outcome.Target)
		assert.Equal(t, int32(0), targetHits.Load())
	})

	t.Run("json body with url redirects", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_, _ = w.Write([]byte(`{"url":"https://example.com/y"}`))
		})

		outcome, err := client.Resolve(context.Background(), "Ab3Z")

		require.NoError(t, err)
		assert.True(t, outcome.Found())
		assert.Equal(t, "https://example.com/y", outcome.Target)
		assert.Equal(t, shortlink.ReasonPayload, outcome.Reason)
	})

	t.Run("json body with originalUrl redirects", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/problem+json")
			_, _ = w.Write([]byte(`{"originalUrl":"https://example.com/z"}`))
		})

		outcome, err := client.Resolve(context.Background(), "Ab3Z")

		require.NoError(t, err)
		assert.Equal(t, "https://example.com/z", outcome.Target)
	})

	t.Run("not found status", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		outcome, err := client.Resolve(context.Background(), "Ab3Z")

		require.NoError(t, err)
		assert.False(t, outcome.Found())
		assert.Equal(t, shortlink.ReasonClientStatus, outcome.Reason)
	})

	t.Run("redirect status without location is not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusFound)
		})

		outcome, err := client.Resolve(context.Background(), "Ab3Z")

		require.NoError(t, err)
		assert.False(t, outcome.Found())
		assert.Equal(t, shortlink.ReasonMissingLocation, outcome.Reason)
	})

	t.Run("success without json content type is not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`{"url":"https://example.com/y"}`))
		})

		outcome, err := client.Resolve(context.Background(), "Ab3Z")

		require.NoError(t, err)
		assert.False(t, outcome.Found())
		assert.Equal(t, shortlink.ReasonNoPayload, outcome.Reason)
	})

	t.Run("malformed json is not found, not an error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"url":`))
		})

		outcome, err := client.Resolve(context.Background(), "Ab3Z")

		require.NoError(t, err)
		assert.False(t, outcome.Found())
		assert.Equal(t, shortlink.ReasonMalformedPayload, outcome.Reason)
	})

	t.Run("json without a target is not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"url":"","slug":"Ab3Z"}`))
		})

		outcome, err := client.Resolve(context.Background(), "Ab3Z")

		require.NoError(t, err)
		assert.False(t, outcome.Found())
		assert.Equal(t, shortlink.ReasonMissingTarget, outcome.Reason)
	})

	t.Run("json target that is not an absolute http url is not found", func(t *testing.T) {
		for _, target := range []string{"javascript:alert(1)", "/relative/path", "ftp://example.com/file"} {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]string{"url": target})
			})

			outcome, err := client.Resolve(context.Background(), "Ab3Z")

			require.NoError(t, err)
			assert.False(t, outcome.Found(), "target %q", target)
			assert.Equal(t, shortlink.ReasonInvalidTarget, outcome.Reason)
		}
	})

	t.Run("server error is upstream unavailable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.Resolve(context.Background(), "Ab3Z")

		assert.ErrorIs(t, err, shortlink.ErrUpstreamUnavailable)
	})

	t.Run("timeout is upstream unavailable", func(t *testing.T) {
		release := make(chan struct{})

		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			<-release
		}))
		t.Cleanup(srv.Close)
		t.Cleanup(func() { close(release) })

		client, err := backend.NewClient(backend.Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, zap.NewNop())
		require.NoError(t, err)

		_, err = client.Resolve(context.Background(), "Ab3Z")

		assert.ErrorIs(t, err, shortlink.ErrUpstreamUnavailable)
	})

	t.Run("unreachable backend is upstream unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		base := srv.URL
		srv.Close()

		client, err := backend.NewClient(backend.Config{BaseURL: base, Timeout: time.Second}, zap.NewNop())
		require.NoError(t, err)

		_, err = client.Resolve(context.Background(), "Ab3Z")

		assert.ErrorIs(t, err, shortlink.ErrUpstreamUnavailable)
	})

	t.Run("disables caching and forwards the request id", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "no-cache, no-store", r.Header.Get("Cache-Control"))
			assert.Equal(t, "req-42", r.Header.Get(reqmeta.HeaderRequestID))
			w.WriteHeader(http.StatusNotFound)
		})

		ctx := reqmeta.WithMeta(context.Background(), reqmeta.Meta{RequestID: "req-42"})

		_, err := client.Resolve(ctx, "Ab3Z")

		require.NoError(t, err)
	})

	t.Run("escapes the slug", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/a%2Fb", r.URL.EscapedPath())
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := client.Resolve(context.Background(), "a/b")

		require.NoError(t, err)
	})

	t.Run("concurrent resolutions each reach the backend", func(t *testing.T) {
		var hits atomic.Int32

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.Header().Set("Location", "https://example.com")
			w.WriteHeader(http.StatusFound)
		})

		var wg sync.WaitGroup

		for range 8 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				outcome, err := client.Resolve(context.Background(), "Ab3Z")
				assert.NoError(t, err)
				assert.True(t, outcome.Found())
			}()
		}

		wg.Wait()

		assert.Equal(t, int32(8), hits.Load())
	})
}

func TestClient_Shorten(t *testing.T) {
	t.Run("posts url and custom slug", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/urls/shorten", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "https://example.com", body["url"])
			assert.Equal(t, "Ab3Z", body["customSlug"])

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"slug":"Ab3Z","shortUrl":"http://localhost:8080/Ab3Z"}`))
		})

		created, err := client.Shorten(context.Background(), "https://example.com", "Ab3Z")

		require.NoError(t, err)
		assert.Equal(t, "Ab3Z", created.Slug)
		assert.Equal(t, "http://localhost:8080/Ab3Z", created.ShortURL)
	})

	t.Run("omits an empty custom slug", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			assert.NotContains(t, string(raw), "customSlug")

			_, _ = w.Write([]byte(`{"slug":"Zz22","shortUrl":"http://localhost:8080/Zz22"}`))
		})

		_, err := client.Shorten(context.Background(), "https://example.com", "")

		require.NoError(t, err)
	})

	t.Run("passes the backend message through on rejection", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"Alias Ab3Z is already taken"}`))
		})

		_, err := client.Shorten(context.Background(), "https://example.com", "Ab3Z")

		var rejected *shortlink.RejectedError
		require.True(t, errors.As(err, &rejected))
		assert.Equal(t, http.StatusConflict, rejected.Status)
		assert.Equal(t, "Alias Ab3Z is already taken", rejected.Message)
	})

	t.Run("falls back to the status text", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})

		_, err := client.Shorten(context.Background(), "https://example.com", "")

		var rejected *shortlink.RejectedError
		require.True(t, errors.As(err, &rejected))
		assert.Equal(t, "Bad Request", rejected.Message)
	})

	t.Run("success without shortUrl is upstream unavailable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"slug":"Ab3Z"}`))
		})

		_, err := client.Shorten(context.Background(), "https://example.com", "")

		assert.ErrorIs(t, err, shortlink.ErrUpstreamUnavailable)
	})

	t.Run("server error is upstream unavailable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := client.Shorten(context.Background(), "https://example.com", "")

		assert.ErrorIs(t, err, shortlink.ErrUpstreamUnavailable)
	})
}

func TestClient_Listing(t *testing.T) {
	t.Run("top sends limit and range and reads an items envelope", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/urls/top", r.URL.Path)
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			assert.Equal(t, "7d", r.URL.Query().Get("range"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"items":[{"slug":"aaaa","hitsIn7d":3},{"slug":"bbbb","hits_in_range":8}]}`))
		})

		records, err := client.Top(context.Background(), 10, shortlink.RangeLast7Days)

		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "aaaa", records[0].Slug)
	})

	t.Run("all-time top sends the total range", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "total", r.URL.Query().Get("range"))
			_, _ = w.Write([]byte(`[]`))
		})

		records, err := client.Top(context.Background(), 10, shortlink.RangeAllTime)

		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("all reads a bare array", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/urls/all", r.URL.Path)
			_, _ = w.Write([]byte(`[{"slug":"aaaa","targetUrl":"https://example.com","hits":2}]`))
		})

		records, err := client.ListAll(context.Background())

		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "https://example.com", records[0].Destination)
	})

	t.Run("a canceled caller does not fail the callers sharing its request", func(t *testing.T) {
		arrived := make(chan struct{}, 2)
		release := make(chan struct{})

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			arrived <- struct{}{}
			<-release
			_, _ = w.Write([]byte(`[{"slug":"aaaa","url":"https://example.com"}]`))
		})

		firstCtx, cancelFirst := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)

		go func() {
			_, err := client.ListAll(firstCtx)
			firstErr <- err
		}()

		<-arrived

		type result struct {
			records []shortlink.Record
			err     error
		}

		second := make(chan result, 1)

		go func() {
			records, err := client.ListAll(context.Background())
			second <- result{records, err}
		}()

		time.Sleep(50 * time.Millisecond)
		cancelFirst()

		err := <-firstErr
		assert.ErrorIs(t, err, context.Canceled)

		close(release)

		res := <-second
		require.NoError(t, res.err)
		require.Len(t, res.records, 1)
		assert.Equal(t, "aaaa", res.records[0].Slug)
	})

	t.Run("non-2xx is upstream unavailable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.ListAll(context.Background())

		assert.ErrorIs(t, err, shortlink.ErrUpstreamUnavailable)
	})

	t.Run("garbage payload is upstream unavailable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html></html>`))
		})

		_, err := client.ListAll(context.Background())

		assert.ErrorIs(t, err, shortlink.ErrUpstreamUnavailable)
	})
}

func TestClient_Ping(t *testing.T) {
	t.Run("healthy below 500", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		assert.NoError(t, client.Ping(context.Background()))
	})

	t.Run("unhealthy on 5xx", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		assert.ErrorIs(t, client.Ping(context.Background()), shortlink.ErrUpstreamUnavailable)
	})
}
