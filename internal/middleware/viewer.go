package middleware

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/secretsanta/internal/audit"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ViewerKey is the context key for the caller's audit metadata.
const ViewerKey contextKey = "viewer"

// GetViewer extracts the caller's audit metadata from the context.
// Returns the zero Viewer if not found.
func GetViewer(ctx context.Context) audit.Viewer {
	v, _ := ctx.Value(ViewerKey).(audit.Viewer)
	return v
}

// WithViewer returns a copy of ctx carrying v.
func WithViewer(ctx context.Context, v audit.Viewer) context.Context {
	return context.WithValue(ctx, ViewerKey, v)
}

// ViewerInterceptor records the peer address and user agent of every call in
// the context so reveal handlers can log them. X-Forwarded-For is only read
// when trustForwardedFor is set, i.e. behind a proxy that overwrites it.
func ViewerInterceptor(trustForwardedFor bool) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			forwardedFor := ""
			if trustForwardedFor {
				forwardedFor = req.Header().Get("X-Forwarded-For")
			}
			viewer := audit.NewViewer(
				req.Peer().Addr,
				forwardedFor,
				req.Header().Get("User-Agent"),
			)
			return next(WithViewer(ctx, viewer), req)
		}
	}
}
