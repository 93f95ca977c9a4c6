package middleware

import (
	"net"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink-web/internal/reqmeta"
)

// maxRequestIDLen bounds inbound request ids that are echoed back.
const maxRequestIDLen = 128

// RequestMeta stores client IP, user agent, referrer and a request id in the
// request context. An inbound X-Request-ID is reused when sane; otherwise
// newID mints one. The id is echoed on the response.
func RequestMeta(_ huma.API, newID func() string) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		id := strings.TrimSpace(ctx.Header(reqmeta.HeaderRequestID))
		if id == "" || len(id) > maxRequestIDLen {
			id = newID()
		}

		meta := reqmeta.Meta{
			RequestID: id,
			ClientIP:  clientIP(ctx),
			UserAgent: ctx.Header("User-Agent"),
			Referrer:  ctx.Header("Referer"),
		}

		ctx.SetHeader(reqmeta.HeaderRequestID, id)

		next(huma.WithContext(ctx, reqmeta.WithMeta(ctx.Context(), meta)))
	}
}

// clientIP prefers proxy headers and falls back to the connection address.
func clientIP(ctx huma.Context) string {
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	addr := ctx.RemoteAddr()
	if addr == "" {
		addr = ctx.Host()
	}

	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return ip
}
