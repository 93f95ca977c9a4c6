package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serroba/shortlink-web/internal/ratelimit"
	"github.com/serroba/shortlink-web/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Record(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 0, errors.New("store down")
}

func TestPolicyBuilder(t *testing.T) {
	t.Run("orders limits by window", func(t *testing.T) {
		policy := ratelimit.NewPolicyBuilder().
			AddLimit(ratelimit.ScopeSubmit, 100, time.Hour).
			AddLimit(ratelimit.ScopeSubmit, 10, time.Minute).
			Build()

		assert.Equal(t, []ratelimit.LimitConfig{
			{Window: time.Minute, Max: 10},
			{Window: time.Hour, Max: 100},
		}, policy.Limits[ratelimit.ScopeSubmit])
	})

	t.Run("ignores non-positive limits", func(t *testing.T) {
		policy := ratelimit.NewPolicyBuilder().
			AddLimit(ratelimit.ScopeGlobal, 0, time.Minute).
			AddLimit(ratelimit.ScopeGlobal, 5, 0).
			Build()

		assert.Empty(t, policy.Limits[ratelimit.ScopeGlobal])
	})

	t.Run("default policy limits every scope", func(t *testing.T) {
		policy := ratelimit.DefaultPolicy()

		for _, scope := range []ratelimit.Scope{
			ratelimit.ScopeGlobal, ratelimit.ScopeLookup, ratelimit.ScopeRedirect, ratelimit.ScopeSubmit,
		} {
			assert.NotEmpty(t, policy.Limits[scope], "scope %s", scope)
		}
	})

	t.Run("default scope limits sit below the global limit", func(t *testing.T) {
		policy := ratelimit.DefaultPolicy()

		global := map[time.Duration]int64{}
		for _, l := range policy.Limits[ratelimit.ScopeGlobal] {
			global[l.Window] = l.Max
		}

		for scope, limits := range policy.Limits {
			if scope == ratelimit.ScopeGlobal {
				continue
			}

			for _, l := range limits {
				if globalMax, ok := global[l.Window]; ok {
					assert.Less(t, l.Max, globalMax, "scope %s window %s", scope, l.Window)
				}
			}
		}
	})

	t.Run("redirect limit is reachable under the default policy", func(t *testing.T) {
		limiter := ratelimit.NewPolicyLimiter(store.NewRateLimitMemoryStore(), ratelimit.DefaultPolicy())
		scopes := []ratelimit.Scope{ratelimit.ScopeGlobal, ratelimit.ScopeRedirect}

		for range 1000 {
			allowed, _, err := limiter.Allow(context.Background(), "client", scopes)
			require.NoError(t, err)
			require.True(t, allowed)
		}

		allowed, exceeded, err := limiter.Allow(context.Background(), "client", scopes)

		require.NoError(t, err)
		assert.False(t, allowed)
		require.NotNil(t, exceeded)
		assert.Equal(t, ratelimit.ScopeRedirect, exceeded.Scope)
	})
}

func TestPolicyLimiter_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("allows until the limit and reports the exceeded scope", func(t *testing.T) {
		policy := ratelimit.NewPolicyBuilder().
			AddLimit(ratelimit.ScopeSubmit, 2, time.Minute).
			Build()
		limiter := ratelimit.NewPolicyLimiter(store.NewRateLimitMemoryStore(), policy)
		scopes := []ratelimit.Scope{ratelimit.ScopeGlobal, ratelimit.ScopeSubmit}

		for range 2 {
			allowed, exceeded, err := limiter.Allow(ctx, "client", scopes)

			require.NoError(t, err)
			assert.True(t, allowed)
			assert.Nil(t, exceeded)
		}

		allowed, exceeded, err := limiter.Allow(ctx, "client", scopes)

		require.NoError(t, err)
		assert.False(t, allowed)
		require.NotNil(t, exceeded)
		assert.Equal(t, ratelimit.ScopeSubmit, exceeded.Scope)
		assert.Equal(t, int64(3), exceeded.Count)
		assert.Equal(t, time.Minute, exceeded.RetryAfter())
	})

	t.Run("tracks clients independently", func(t *testing.T) {
		policy := ratelimit.NewPolicyBuilder().
			AddLimit(ratelimit.ScopeGlobal, 1, time.Minute).
			Build()
		limiter := ratelimit.NewPolicyLimiter(store.NewRateLimitMemoryStore(), policy)
		scopes := []ratelimit.Scope{ratelimit.ScopeGlobal}

		allowed, _, _ := limiter.Allow(ctx, "a", scopes)
		assert.True(t, allowed)

		allowed, _, _ = limiter.Allow(ctx, "a", scopes)
		assert.False(t, allowed)

		allowed, _, err := limiter.Allow(ctx, "b", scopes)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("frees up after the window", func(t *testing.T) {
		policy := ratelimit.NewPolicyBuilder().
			AddLimit(ratelimit.ScopeLookup, 1, 50*time.Millisecond).
			Build()
		limiter := ratelimit.NewPolicyLimiter(store.NewRateLimitMemoryStore(), policy)
		scopes := []ratelimit.Scope{ratelimit.ScopeLookup}

		_, _, _ = limiter.Allow(ctx, "client", scopes)

		allowed, _, _ := limiter.Allow(ctx, "client", scopes)
		assert.False(t, allowed)

		time.Sleep(60 * time.Millisecond)

		allowed, _, err := limiter.Allow(ctx, "client", scopes)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("returns store errors", func(t *testing.T) {
		policy := ratelimit.NewPolicyBuilder().
			AddLimit(ratelimit.ScopeGlobal, 1, time.Minute).
			Build()
		limiter := ratelimit.NewPolicyLimiter(failingStore{}, policy)

		allowed, _, err := limiter.Allow(ctx, "client", []ratelimit.Scope{ratelimit.ScopeGlobal})

		assert.Error(t, err)
		assert.False(t, allowed)
	})
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "rl:submit:60000:abc", ratelimit.ScopeKey("abc", ratelimit.ScopeSubmit, time.Minute))
	assert.Equal(t, "rl:route:/{slug}:1000:abc", ratelimit.RouteKey("abc", "/{slug}", time.Second))
}
