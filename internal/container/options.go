package container

import "time"

const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Options configures both binaries. The server reads them through humacli
// flags and SERVICE_ environment variables.
type Options struct {
	Port           int           `default:"3000"                  help:"Port to listen on"                             short:"p"`
	BackendURL     string        `default:"http://localhost:8080" help:"Base URL of the URL-shortening backend"        short:"b"`
	BackendTimeout time.Duration `default:"5s"                    help:"Timeout for each backend request"`
	PublicURL      string        `default:"http://localhost:3000" help:"Origin used to build short URLs in listings"`
	TopLimit       int           `default:"10"                    help:"Rows returned by the top URLs table"`
	RedisAddr      string        `default:"localhost:6379"        help:"Redis server address"                          short:"r"`
	RateLimitStore string        `default:"memory"                help:"Where rate limit windows are kept: memory or redis"`
	Events         bool          `default:"false"                 help:"Publish usage events to Redis streams"`
	LogFormat      string        `default:"console"               help:"Log encoding: console or json"`
	LogLevel       string        `default:"info"                  help:"Minimum log level"`
	LogFile        string        `help:"Also write JSON logs to this rotating file"`
	PostgresURL    string        `help:"Postgres connection string for the analytics store"`
}

// usesRedis reports whether any component needs a Redis connection.
func (o *Options) usesRedis() bool {
	return o.RateLimitStore == RateLimitStoreRedis || o.Events
}
