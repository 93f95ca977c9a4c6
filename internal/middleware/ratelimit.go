package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink-web/internal/ratelimit"
	"go.uber.org/zap"
)

// PolicyRateLimiter limits requests per client. Operations may carry a
// ratelimit.EndpointConfig in their metadata to opt out, to pick a scope, or
// to bring their own limits keyed by route template. Everything else is
// checked against the policy for the scopes the resolver returns.
func PolicyRateLimiter(
	api huma.API,
	limiter *ratelimit.PolicyLimiter,
	resolver ratelimit.ScopeResolver,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		cfg := ratelimit.GetEndpointConfig(ctx)

		switch {
		case cfg != nil && cfg.Disabled:
			next(ctx)
		case cfg != nil && len(cfg.Limits) > 0:
			if checkRouteLimits(api, ctx, limiter.Store(), cfg.Limits, logger) {
				next(ctx)
			}
		default:
			if checkPolicy(api, ctx, limiter, resolver.Resolve(ctx), logger) {
				next(ctx)
			}
		}
	}
}

// clientKey identifies a client by IP and user agent without storing either.
func clientKey(ctx huma.Context) string {
	hash := sha256.Sum256([]byte(clientIP(ctx) + "|" + ctx.Header("User-Agent")))

	return hex.EncodeToString(hash[:])
}

func operationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ctx.URL().Path
}

func checkPolicy(
	api huma.API,
	ctx huma.Context,
	limiter *ratelimit.PolicyLimiter,
	scopes []ratelimit.Scope,
	logger *zap.Logger,
) bool {
	allowed, exceeded, err := limiter.Allow(ctx.Context(), clientKey(ctx), scopes)
	if err != nil {
		logger.Error("rate limit check failed", zap.String("path", operationPath(ctx)), zap.Error(err))
		_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

		return false
	}

	if allowed {
		return true
	}

	logger.Warn("rate limit exceeded",
		zap.String("path", operationPath(ctx)),
		zap.String("method", ctx.Method()),
		zap.String("scope", string(exceeded.Scope)),
		zap.Int64("count", exceeded.Count),
		zap.Int64("max", exceeded.Config.Max),
		zap.Duration("window", exceeded.Config.Window),
		zap.String("client_ip", clientIP(ctx)),
	)

	tooManyRequests(api, ctx, exceeded.Config, fmt.Sprintf("rate limit exceeded: %s scope, %d/%d requests in %s",
		exceeded.Scope, exceeded.Count, exceeded.Config.Max, exceeded.Config.Window))

	return false
}

// checkRouteLimits applies an endpoint's own limits. Counters are keyed by
// route template, so /{slug} shares one budget whatever the slug.
func checkRouteLimits(
	api huma.API,
	ctx huma.Context,
	store ratelimit.Store,
	limits []ratelimit.LimitConfig,
	logger *zap.Logger,
) bool {
	key := clientKey(ctx)
	path := operationPath(ctx)

	for _, limit := range limits {
		count, err := store.Record(ctx.Context(), ratelimit.RouteKey(key, path, limit.Window), limit.Window)
		if err != nil {
			logger.Error("route rate limit check failed", zap.String("path", path), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return false
		}

		if count > limit.Max {
			logger.Warn("route rate limit exceeded",
				zap.String("path", path),
				zap.String("method", ctx.Method()),
				zap.Int64("count", count),
				zap.Int64("max", limit.Max),
				zap.Duration("window", limit.Window),
				zap.String("client_ip", clientIP(ctx)),
			)

			tooManyRequests(api, ctx, limit, fmt.Sprintf("rate limit exceeded: %d/%d requests in %s",
				count, limit.Max, limit.Window))

			return false
		}
	}

	return true
}

func tooManyRequests(api huma.API, ctx huma.Context, limit ratelimit.LimitConfig, msg string) {
	ctx.SetHeader("Retry-After", strconv.Itoa(max(1, int(limit.Window.Seconds()))))
	_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, msg)
}
