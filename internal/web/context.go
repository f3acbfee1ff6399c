package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/auditdash/internal/core"
)

// WithRequestMetadata adds IP and User-Agent to context for journal events.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, clientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}

// clientIP returns the request's IP without the port. RemoteAddr has already
// been processed by TrustedRealIP.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
