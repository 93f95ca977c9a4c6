// Package container wires the application's services with samber/do.
package container

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shortlink-web/internal/alias"
	"github.com/serroba/shortlink-web/internal/analytics"
	analyticsstore "github.com/serroba/shortlink-web/internal/analytics/store"
	"github.com/serroba/shortlink-web/internal/backend"
	"github.com/serroba/shortlink-web/internal/handlers"
	"github.com/serroba/shortlink-web/internal/health"
	"github.com/serroba/shortlink-web/internal/logging"
	"github.com/serroba/shortlink-web/internal/messaging"
	"github.com/serroba/shortlink-web/internal/middleware"
	"github.com/serroba/shortlink-web/internal/ratelimit"
	"github.com/serroba/shortlink-web/internal/store"
	"go.uber.org/zap"
)

// ConsumerGroupName is the Redis stream consumer group of the analytics
// consumer.
const ConsumerGroupName = "analytics"

const requestIDLength = 16

// RedisClient owns the Redis connection. Stream publishers and subscribers
// may close it first, so a second close is not an error.
type RedisClient struct {
	redis.UniversalClient
}

func (c *RedisClient) Shutdown() error {
	if err := c.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}

	return nil
}

// PostgresPool owns the analytics database pool.
type PostgresPool struct {
	*pgxpool.Pool
}

func (p *PostgresPool) Shutdown() error {
	p.Close()

	return nil
}

// LoggerPackage provides the application logger.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*logging.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		return logging.New(logging.Config{
			Format: opts.LogFormat,
			Level:  opts.LogLevel,
			File:   opts.LogFile,
		})
	})

	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		return do.MustInvoke[*logging.Logger](i).Logger, nil
	})
}

// RedisPackage provides the Redis client. It connects lazily, on first use.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)

		return &RedisClient{UniversalClient: redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
		})}, nil
	})
}

// PostgresPackage provides the analytics pool and makes sure its tables exist.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*PostgresPool, error) {
		opts := do.MustInvoke[*Options](i)

		pool, err := pgxpool.New(context.Background(), opts.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		return &PostgresPool{Pool: pool}, nil
	})
}

// BackendPackage provides the backend HTTP client.
func BackendPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*backend.Client, error) {
		opts := do.MustInvoke[*Options](i)

		return backend.NewClient(backend.Config{
			BaseURL: opts.BackendURL,
			Timeout: opts.BackendTimeout,
		}, do.MustInvoke[*zap.Logger](i).Named("backend"))
	})
}

// RateLimitPackage provides the policy limiter on the configured store.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (ratelimit.Store, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.RateLimitStore {
		case RateLimitStoreRedis:
			return store.NewRateLimitRedisStore(do.MustInvoke[*RedisClient](i)), nil
		case "", RateLimitStoreMemory:
			return store.NewRateLimitMemoryStore(), nil
		default:
			return nil, fmt.Errorf("unknown rate limit store %q", opts.RateLimitStore)
		}
	})

	do.Provide(i, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		return ratelimit.NewPolicyLimiter(do.MustInvoke[ratelimit.Store](i), ratelimit.DefaultPolicy()), nil
	})

	do.Provide(i, func(_ *do.Injector) (ratelimit.ScopeResolver, error) {
		return ratelimit.NewOperationScopeResolver(), nil
	})
}

// PublisherGroupPackage provides the event publisher. With events disabled
// it drops everything.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		opts := do.MustInvoke[*Options](i)

		if !opts.Events {
			return messaging.NewPublisherGroup(messaging.NewDiscardPublisher()), nil
		}

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client:     do.MustInvoke[*RedisClient](i),
				Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
			},
			messaging.NewZapLogger(do.MustInvoke[*zap.Logger](i).Named("publisher")),
		)
		if err != nil {
			return nil, fmt.Errorf("create publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// HTTPPackage provides the router and the API with every route registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		newID, err := nanoid.Standard(requestIDLength)
		if err != nil {
			return nil, fmt.Errorf("create request id generator: %w", err)
		}

		api := humachi.New(router, huma.DefaultConfig("Shortlink Web", "1.0.0"))
		api.UseMiddleware(
			middleware.RequestMeta(api, newID),
			middleware.PolicyRateLimiter(
				api,
				do.MustInvoke[*ratelimit.PolicyLimiter](i),
				do.MustInvoke[ratelimit.ScopeResolver](i),
				logger.Named("ratelimit"),
			),
		)

		client := do.MustInvoke[*backend.Client](i)
		publisher := do.MustInvoke[*messaging.PublisherGroup](i).Publisher()

		handlers.RegisterRoutes(api, handlers.NewURLHandler(
			client,
			alias.NewValidator(),
			opts.PublicURL,
			opts.TopLimit,
			messaging.NewPublishFunc[analytics.ResolutionEvent](publisher, analytics.TopicSlugResolved),
			messaging.NewPublishFunc[analytics.SubmissionEvent](publisher, analytics.TopicURLSubmitted),
			logger.Named("handlers"),
		))

		var redisChecker health.Checker
		if opts.usesRedis() {
			redisChecker = health.NewRedisChecker(do.MustInvoke[*RedisClient](i))
		}

		health.RegisterRoutes(api, health.NewHandler(client, redisChecker, logger.Named("health")))

		return api, nil
	})
}

// AnalyticsStorePackage provides where consumed events end up: Postgres when
// a connection string is configured, the log otherwise.
func AnalyticsStorePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (analytics.Store, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.PostgresURL == "" {
			logger.Info("no postgres configured, logging events instead")

			return analyticsstore.NewNoop(logger.Named("events")), nil
		}

		pg := store.NewAnalyticsPostgresStore(do.MustInvoke[*PostgresPool](i).Pool)
		if err := pg.Migrate(context.Background()); err != nil {
			return nil, fmt.Errorf("migrate analytics tables: %w", err)
		}

		return pg, nil
	})
}

// ConsumerGroupPackage provides the analytics consumers reading both topics
// from one Redis stream subscriber.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (message.Subscriber, error) {
		subscriber, err := redisstream.NewSubscriber(
			redisstream.SubscriberConfig{
				Client:        do.MustInvoke[*RedisClient](i),
				Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
				ConsumerGroup: ConsumerGroupName,
			},
			messaging.NewZapLogger(do.MustInvoke[*zap.Logger](i).Named("subscriber")),
		)
		if err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}

		return subscriber, nil
	})

	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		return NewConsumerGroup(
			do.MustInvoke[message.Subscriber](i),
			do.MustInvoke[analytics.Store](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// NewConsumerGroup builds one consumer per event topic, each saving into
// events.
func NewConsumerGroup(subscriber message.Subscriber, events analytics.Store, logger *zap.Logger) *messaging.ConsumerGroup {
	group := messaging.NewConsumerGroup(subscriber, logger)

	group.Add(messaging.NewConsumer[analytics.ResolutionEvent](
		subscriber, analytics.TopicSlugResolved, events.SaveResolution, logger,
	))
	group.Add(messaging.NewConsumer[analytics.SubmissionEvent](
		subscriber, analytics.TopicURLSubmitted, events.SaveSubmission, logger,
	))

	return group
}
