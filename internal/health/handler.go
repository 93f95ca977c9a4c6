package health

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink-web/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"

	Healthy   = "healthy"
	Unhealthy = "unhealthy"
	Disabled  = "disabled"
)

// checkTimeout bounds each dependency ping.
const checkTimeout = 2 * time.Second

// Checker reports whether a dependency is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

// RedisChecker adapts a redis client to Checker.
type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

func (r *RedisChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Handler reports the health of the backend and, when in use, Redis.
type Handler struct {
	backend Checker
	redis   Checker
	logger  *zap.Logger
}

// NewHandler builds a health handler. cache may be nil when nothing in the
// server uses Redis.
func NewHandler(backend, cache Checker, logger *zap.Logger) *Handler {
	return &Handler{backend: backend, redis: cache, logger: logger}
}

// Response is the response for the health check endpoint.
type Response struct {
	Body struct {
		Status  string `json:"status"`
		Backend string `json:"backend"`
		Redis   string `json:"redis"`
	}
}

// Check pings every dependency. It always answers 200; a failing
// dependency turns the status to degraded.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = StatusOK
	resp.Body.Backend = h.status(ctx, "backend", h.backend)
	resp.Body.Redis = h.status(ctx, "redis", h.redis)

	if resp.Body.Backend == Unhealthy || resp.Body.Redis == Unhealthy {
		resp.Body.Status = StatusDegraded
	}

	return resp, nil
}

func (h *Handler) status(ctx context.Context, name string, c Checker) string {
	if c == nil {
		return Disabled
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := c.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))

		return Unhealthy
	}

	return Healthy
}

// RegisterRoutes registers the health route. It is exempt from rate limiting.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"Health"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true},
		},
	}, h.Check)
}
