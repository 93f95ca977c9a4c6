package reqmeta

import "context"

// HeaderRequestID carries the request id in and out of the service.
const HeaderRequestID = "X-Request-ID"

type metaKey struct{}

// Meta holds inbound HTTP request metadata.
type Meta struct {
	RequestID string
	ClientIP  string
	UserAgent string
	Referrer  string
}

// WithMeta adds request metadata to ctx.
func WithMeta(ctx context.Context, meta Meta) context.Context {
	return context.WithValue(ctx, metaKey{}, meta)
}

// FromContext extracts request metadata from ctx, or the zero Meta.
func FromContext(ctx context.Context) Meta {
	if v, ok := ctx.Value(metaKey{}).(Meta); ok {
		return v
	}

	return Meta{}
}
